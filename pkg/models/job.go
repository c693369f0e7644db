package models

import "time"

// JobMode describes how a job's URL set was produced.
type JobMode string

const (
	ModeSingle JobMode = "single"
	ModeList   JobMode = "list"
	ModeCrawl  JobMode = "crawl"
)

// JobStatus is the job lifecycle state (see the orchestrator state machine).
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobPaused    JobStatus = "paused"
	JobCompleted JobStatus = "completed"
	JobCancelled JobStatus = "cancelled"
	JobFailed    JobStatus = "failed"
	JobArchived  JobStatus = "archived"
)

// Job is a declarative scraping job: a set of URLs plus a set of extraction rules.
type Job struct {
	ID          string
	Name        string
	Mode        JobMode
	Status      JobStatus
	Settings    JobSettings
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	PausedAt    *time.Time

	ProgressCurrent int
	ProgressTotal   int
	SuccessCount    int
	FailureCount    int
}

// JobSettings is the per-job settings map: timeouts, delays, cascade override.
type JobSettings struct {
	URLTimeout       time.Duration
	DelayMin         time.Duration
	DelayMax         time.Duration
	CascadeOverride  *CascadeConfig
	VisionEnabled    bool
}

// DefaultJobSettings mirrors the process-wide worker defaults used when a job
// does not override them.
func DefaultJobSettings() JobSettings {
	return JobSettings{
		URLTimeout: 30 * time.Second,
		DelayMin:   500 * time.Millisecond,
		DelayMax:   2 * time.Second,
	}
}

// Counts returns a defensive copy of the job's progress counters.
func (j *Job) Counts() (current, total, success, failure int) {
	return j.ProgressCurrent, j.ProgressTotal, j.SuccessCount, j.FailureCount
}
