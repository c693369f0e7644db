package models

import "time"

// CreateJobRequest is the payload for submitting a new scraping job.
type CreateJobRequest struct {
	Name     string           `json:"name,omitempty"`
	Mode     JobMode          `json:"mode" validate:"required,oneof=single list crawl"`
	URLs     []string         `json:"urls" validate:"required,min=1,dive,url"`
	Rules    []Rule           `json:"rules" validate:"required,min=1"`
	Settings *JobSettingsSpec `json:"settings,omitempty"`
}

// JobSettingsSpec is the JSON-facing subset of JobSettings a caller may
// override at submission time.
type JobSettingsSpec struct {
	URLTimeout      time.Duration  `json:"url_timeout,omitempty"`
	DelayMin        time.Duration  `json:"delay_min,omitempty"`
	DelayMax        time.Duration  `json:"delay_max,omitempty"`
	VisionEnabled   bool           `json:"vision_enabled,omitempty"`
	CascadeOverride *CascadeConfig `json:"cascade_override,omitempty"`
}

// CreateJobResponse is returned from a successful job submission.
type CreateJobResponse struct {
	JobID     string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	RequestID string    `json:"request_id"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    time.Duration     `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// LogsResponse is the JSON-facing wrapper around a LogPage.
type LogsResponse struct {
	Logs         []LogEntry `json:"logs"`
	TotalCount   int        `json:"total_count"`
	CurrentIndex int        `json:"current_index"`
}
