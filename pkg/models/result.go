package models

import "time"

// FieldValue holds either a scalar string or a list of strings for one rule.
type FieldValue struct {
	Scalar string
	List   []string
	IsList bool
}

// ScalarValue returns the value as a single string (joining a list with ", ").
func (f FieldValue) ScalarValue() string {
	if !f.IsList {
		return f.Scalar
	}
	if len(f.List) == 0 {
		return ""
	}
	out := f.List[0]
	for _, v := range f.List[1:] {
		out += ", " + v
	}
	return out
}

// Result is the extracted data for one URL.
type Result struct {
	URLID          string
	Data           map[string]FieldValue
	Method         string // fetcher method that produced the HTML
	ScrapedAt      time.Time
	RawHTML        string
	VisionExtracted bool
}

// IsEmpty reports whether no field was populated.
func (r *Result) IsEmpty() bool {
	return r == nil || len(r.Data) == 0
}
