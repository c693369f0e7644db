package models

import "time"

// URLStatus is the lifecycle state of a single URL record within a job.
type URLStatus string

const (
	URLPending    URLStatus = "pending"
	URLProcessing URLStatus = "processing"
	URLCompleted  URLStatus = "completed"
	URLFailed     URLStatus = "failed"
	URLSkipped    URLStatus = "skipped"
)

// ErrorKind is the normalised error_type taxonomy.
type ErrorKind string

const (
	ErrTimeout          ErrorKind = "timeout"
	ErrExtractionFailed ErrorKind = "extraction_failed"
	ErrException        ErrorKind = "exception"
	ErrPaywallDetected  ErrorKind = "paywall_detected"
	ErrAntiBot          ErrorKind = "anti_bot"
	ErrRateLimited      ErrorKind = "rate_limited"
	ErrDeadLink         ErrorKind = "dead_link"
	ErrLoginRequired    ErrorKind = "login_required"
	ErrCaptcha          ErrorKind = "captcha"
	ErrContentTooShort  ErrorKind = "content_too_short"
)

// HTTPErrorKind builds the "http_<code>" error kind for a propagated status code.
func HTTPErrorKind(code int) ErrorKind {
	return ErrorKind("http_" + itoa(code))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// URLRecord is a child of a Job: one URL to be fetched and extracted.
type URLRecord struct {
	ID             string
	JobID          string
	URL            string
	Status         URLStatus
	AttemptCount   int
	LastAttemptAt  *time.Time
	CompletedAt    *time.Time
	ErrorKind      ErrorKind
	ErrorMessage   string
	ProcessingTime time.Duration
	InsertedAt     time.Time
}
