package models

// PillKind is the classification a poison-pill detector can report.
type PillKind string

const (
	PillNone             PillKind = ""
	PillPaywall          PillKind = "paywall_detected"
	PillRateLimited      PillKind = "rate_limited"
	PillAntiBot          PillKind = "anti_bot"
	PillCaptcha          PillKind = "captcha"
	PillLoginRequired    PillKind = "login_required"
	PillDeadLink         PillKind = "dead_link"
	PillContentTooShort  PillKind = "content_too_short"
)

// Severity is how serious a detected pill is.
type Severity string

const (
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// PillResult is the outcome of running the poison-pill detector on an HTML body.
type PillResult struct {
	Kind     PillKind
	Severity Severity
	Retry    bool   // whether this kind is conventionally retry-worthy
	Action   string // recommended remedial action, e.g. "solve_captcha", "none"
}

// Clean reports whether no pill was detected.
func (p PillResult) Clean() bool {
	return p.Kind == PillNone
}

// FallbackOn configures the cascade engine's post-success and post-failure
// fallback triggers.
type FallbackOn struct {
	StatusCodes        map[int]struct{}    `json:"status_codes,omitempty"`
	ErrorPatterns      []string             `json:"error_patterns,omitempty"`
	PoisonPills        map[PillKind]struct{} `json:"poison_pills,omitempty"`
	EmptyContent       bool                 `json:"empty_content,omitempty"`
	MinContentLength   int                  `json:"min_content_length,omitempty"`
	JavascriptRequired bool                 `json:"javascript_required,omitempty"`
}

// DefaultFallbackOn returns the process-wide default fallback configuration.
func DefaultFallbackOn() FallbackOn {
	return FallbackOn{
		StatusCodes: map[int]struct{}{403: {}, 429: {}, 503: {}},
		PoisonPills: map[PillKind]struct{}{
			PillAntiBot:     {},
			PillRateLimited: {},
		},
		MinContentLength: 500,
	}
}

// CascadeConfig is the ordered fetcher cascade for a job.
type CascadeConfig struct {
	Enabled     bool       `json:"enabled"`
	Order       []string   `json:"order,omitempty"`
	MaxAttempts int        `json:"max_attempts,omitempty"`
	FallbackOn  FallbackOn `json:"fallback_on,omitempty"`
}

// DefaultCascadeConfig returns the process-wide default cascade configuration.
func DefaultCascadeConfig() CascadeConfig {
	return CascadeConfig{
		Enabled:     true,
		Order:       []string{"http", "brightdata", "headless", "firecrawl"},
		MaxAttempts: 4,
		FallbackOn:  DefaultFallbackOn(),
	}
}

// FetchAttempt records the outcome of a single cascade attempt.
type FetchAttempt struct {
	Method          string
	Success         bool
	StatusCode      int
	Error           string
	ResponseTimeMs  int64
	FallbackReason  string
	HTML            string
}

// FetchOutcome is the return value of running the cascade engine on a URL.
type FetchOutcome struct {
	HTML           string
	MethodUsed     string
	StatusCode     int
	ResponseTimeMs int64
	Success        bool
	Error          string
	Attempts       []FetchAttempt
	Screenshot     []byte
}

// FetchOptions are the opaque options passed to a Fetcher.
type FetchOptions struct {
	WaitFor        string
	TakeScreenshot bool
}

// FetchResult is what a Fetcher.Fetch call returns.
type FetchResult struct {
	Success        bool
	HTML           string
	StatusCode     int
	Error          string
	ResponseTimeMs int64
	Screenshot     []byte
}
