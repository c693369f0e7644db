// Package orchestrator owns job lifecycle: the state machine, the registry
// of live Workers, and the per-job log buffers with scheduled eviction.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"scrapeforge/internal/store"
	"scrapeforge/internal/worker"
	"scrapeforge/pkg/apperrors"
	"scrapeforge/pkg/models"
)

const logEvictionDelay = 300 * time.Second

// scraper is the single method of *worker.Scraper the Orchestrator needs to
// hand to each Worker it builds.
type scraper interface {
	Run(ctx context.Context, targetURL string, rules []models.Rule, cascadeCfg models.CascadeConfig, visionEnabled bool) (*worker.ScrapeOutcome, error)
}

type runningWorker struct {
	w *worker.Worker
}

// Orchestrator is the process-wide singleton that drives every job. All
// mutations to the worker registry and the log-buffer registry are
// serialised under two distinct locks so status reads never block on
// worker-map churn and vice versa.
type Orchestrator struct {
	jobs    store.JobRepository
	urls    store.URLRepository
	rules   store.RuleRepository
	results store.ResultRepository
	settings store.SettingsRepository

	scraper        scraper
	defaultCascade models.CascadeConfig

	workersMu sync.RWMutex
	workers   map[string]*runningWorker

	logsMu   sync.Mutex
	logs     map[string]*logBuffer
	evictors map[string]*time.Timer
}

// New builds an Orchestrator. defaultCascade is used for any job that has
// not stored a per-job CascadeConfig override.
func New(jobs store.JobRepository, urls store.URLRepository, rules store.RuleRepository, results store.ResultRepository, settings store.SettingsRepository, scraper scraper, defaultCascade models.CascadeConfig) *Orchestrator {
	return &Orchestrator{
		jobs:           jobs,
		urls:           urls,
		rules:          rules,
		results:        results,
		settings:       settings,
		scraper:        scraper,
		defaultCascade: defaultCascade,
		workers:        make(map[string]*runningWorker),
		logs:           make(map[string]*logBuffer),
		evictors:       make(map[string]*time.Timer),
	}
}

// Log implements worker.LogSink, appending to the job's buffer.
func (o *Orchestrator) Log(jobID string, level models.LogLevel, message string, data map[string]interface{}) {
	o.logsMu.Lock()
	buf, ok := o.logs[jobID]
	if !ok {
		buf = newLogBuffer()
		o.logs[jobID] = buf
	}
	o.logsMu.Unlock()

	buf.Append(models.LogEntry{Timestamp: time.Now(), Level: level, Message: message, Data: data})
}

// Start transitions a pending or paused job to running and launches its
// Worker. Resume layers an extra paused-only guard on top and then calls
// this, since both resume a worker over the job's existing pending-URL set.
func (o *Orchestrator) Start(jobID string) (bool, error) {
	job, err := o.jobs.Get(context.Background(), jobID)
	if err != nil {
		return false, err
	}
	if job.Status != models.JobPending && job.Status != models.JobPaused {
		return false, apperrors.NewConflictError(fmt.Sprintf("cannot start job in status %q", job.Status))
	}

	o.workersMu.Lock()
	if _, running := o.workers[jobID]; running {
		o.workersMu.Unlock()
		return false, apperrors.NewConflictError("job already has an active worker")
	}
	o.workersMu.Unlock()

	o.cancelEviction(jobID)

	rules, err := o.rules.GetRules(context.Background(), jobID)
	if err != nil {
		return false, err
	}

	cascadeCfg := o.defaultCascade
	if job.Settings.CascadeOverride != nil {
		cascadeCfg = *job.Settings.CascadeOverride
	} else if stored, serr := o.settings.GetCascadeConfig(context.Background(), jobID); serr == nil {
		cascadeCfg = *stored
	}

	now := time.Now()
	if job.StartedAt == nil {
		job.StartedAt = &now
	}
	job.Status = models.JobRunning
	job.PausedAt = nil
	if err := o.jobs.Update(context.Background(), job); err != nil {
		return false, err
	}

	w := worker.New(jobID, rules, cascadeCfg, job.Settings, job.Settings.VisionEnabled, o.jobs, o.urls, o.results, o.scraper, o)

	o.workersMu.Lock()
	o.workers[jobID] = &runningWorker{w: w}
	o.workersMu.Unlock()

	go o.runWorker(jobID, w)

	return true, nil
}

// Resume resumes a paused job. Unlike Start, which also accepts a pending
// job, Resume rejects any job that is not paused; a paused job is handed
// to Start's own worker-launch logic over the same pending-URL set.
func (o *Orchestrator) Resume(jobID string) (bool, error) {
	job, err := o.jobs.Get(context.Background(), jobID)
	if err != nil {
		return false, err
	}
	if job.Status != models.JobPaused {
		return false, apperrors.NewConflictError(fmt.Sprintf("cannot resume job in status %q", job.Status))
	}
	return o.Start(jobID)
}

func (o *Orchestrator) runWorker(jobID string, w *worker.Worker) {
	reason, err := w.Run(context.Background())

	o.workersMu.Lock()
	delete(o.workers, jobID)
	o.workersMu.Unlock()

	job, gerr := o.jobs.Get(context.Background(), jobID)
	if gerr != nil {
		o.scheduleEviction(jobID)
		return
	}

	now := time.Now()
	switch {
	case err != nil:
		job.Status = models.JobFailed
		job.CompletedAt = &now
		o.Log(jobID, models.LogError, "worker crashed", map[string]interface{}{"error": err.Error()})
	case reason == "paused":
		job.Status = models.JobPaused
		job.PausedAt = &now
	case reason == "stopped":
		job.Status = models.JobCancelled
		job.CompletedAt = &now
	default:
		job.Status = models.JobCompleted
		job.CompletedAt = &now
	}

	_ = o.jobs.Update(context.Background(), job)
	o.scheduleEviction(jobID)
}

// Pause requests a running job's worker to stop after its current URL
// attempt, preserving pending/processing state for a later Resume.
func (o *Orchestrator) Pause(jobID string) error {
	job, err := o.jobs.Get(context.Background(), jobID)
	if err != nil {
		return err
	}
	if job.Status != models.JobRunning {
		return apperrors.NewConflictError(fmt.Sprintf("cannot pause job in status %q", job.Status))
	}

	o.workersMu.RLock()
	rw, ok := o.workers[jobID]
	o.workersMu.RUnlock()
	if !ok {
		return apperrors.NewConflictError("job has no active worker")
	}
	rw.w.RequestPause()
	return nil
}

// Stop requests a cooperative stop. A running job's worker finishes its
// current URL attempt and exits; a pending or paused job (no active worker)
// is cancelled immediately.
func (o *Orchestrator) Stop(jobID string) error {
	job, err := o.jobs.Get(context.Background(), jobID)
	if err != nil {
		return err
	}
	if isTerminal(job.Status) {
		return apperrors.NewConflictError(fmt.Sprintf("cannot stop job in status %q", job.Status))
	}

	o.workersMu.RLock()
	rw, ok := o.workers[jobID]
	o.workersMu.RUnlock()

	if ok {
		rw.w.RequestStop()
		return nil
	}

	now := time.Now()
	job.Status = models.JobCancelled
	job.CompletedAt = &now
	if err := o.jobs.Update(context.Background(), job); err != nil {
		return err
	}
	o.scheduleEviction(jobID)
	return nil
}

// StopAll requests every active worker to stop. Idempotent and safe to call
// repeatedly, including during process shutdown.
func (o *Orchestrator) StopAll() {
	o.workersMu.RLock()
	defer o.workersMu.RUnlock()
	for _, rw := range o.workers {
		rw.w.RequestStop()
	}
}

// Status returns an external-facing snapshot of a job.
func (o *Orchestrator) Status(jobID string) (models.Status, error) {
	job, err := o.jobs.Get(context.Background(), jobID)
	if err != nil {
		return models.Status{}, err
	}
	counts, err := o.urls.CountsByJob(context.Background(), jobID)
	if err != nil {
		return models.Status{}, err
	}

	o.workersMu.RLock()
	_, running := o.workers[jobID]
	o.workersMu.RUnlock()

	return models.Status{
		ID:              job.ID,
		Name:            job.Name,
		Status:          job.Status,
		ProgressCurrent: job.ProgressCurrent,
		ProgressTotal:   job.ProgressTotal,
		SuccessCount:    job.SuccessCount,
		FailureCount:    job.FailureCount,
		URLCounts:       counts,
		IsRunning:       running,
	}, nil
}

// Logs returns a page of a job's log buffer starting at sinceIndex,
// optionally filtered to a single level.
func (o *Orchestrator) Logs(jobID string, sinceIndex int, level *models.LogLevel) models.LogPage {
	o.logsMu.Lock()
	buf, ok := o.logs[jobID]
	o.logsMu.Unlock()
	if !ok {
		return models.LogPage{}
	}
	return buf.Page(sinceIndex, level)
}

// Archive moves a terminal job into the archived state.
func (o *Orchestrator) Archive(jobID string) error {
	job, err := o.jobs.Get(context.Background(), jobID)
	if err != nil {
		return err
	}
	if !isTerminal(job.Status) {
		return apperrors.NewConflictError(fmt.Sprintf("cannot archive job in status %q", job.Status))
	}
	job.Status = models.JobArchived
	return o.jobs.Update(context.Background(), job)
}

// Unarchive returns an archived job to pending, leaving URLs, rules, and
// results untouched.
func (o *Orchestrator) Unarchive(jobID string) error {
	job, err := o.jobs.Get(context.Background(), jobID)
	if err != nil {
		return err
	}
	if job.Status != models.JobArchived {
		return apperrors.NewConflictError(fmt.Sprintf("cannot unarchive job in status %q", job.Status))
	}
	job.Status = models.JobPending
	return o.jobs.Update(context.Background(), job)
}

func isTerminal(s models.JobStatus) bool {
	switch s {
	case models.JobCompleted, models.JobCancelled, models.JobFailed, models.JobArchived:
		return true
	default:
		return false
	}
}

func (o *Orchestrator) scheduleEviction(jobID string) {
	o.logsMu.Lock()
	defer o.logsMu.Unlock()

	if t, ok := o.evictors[jobID]; ok {
		t.Stop()
	}
	o.evictors[jobID] = time.AfterFunc(logEvictionDelay, func() {
		o.logsMu.Lock()
		delete(o.logs, jobID)
		delete(o.evictors, jobID)
		o.logsMu.Unlock()
	})
}

func (o *Orchestrator) cancelEviction(jobID string) {
	o.logsMu.Lock()
	defer o.logsMu.Unlock()
	if t, ok := o.evictors[jobID]; ok {
		t.Stop()
		delete(o.evictors, jobID)
	}
}
