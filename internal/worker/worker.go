package worker

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"scrapeforge/internal/store"
	"scrapeforge/pkg/models"
)

// LogSink is the narrow interface the Worker uses to stream job-scoped log
// events back to the orchestrator's per-job log buffer.
type LogSink interface {
	Log(jobID string, level models.LogLevel, message string, data map[string]interface{})
}

// scrapeRunner is the single method of *Scraper the Worker depends on,
// narrowed to an interface so tests can substitute a stub.
type scrapeRunner interface {
	Run(ctx context.Context, targetURL string, rules []models.Rule, cascadeCfg models.CascadeConfig, visionEnabled bool) (*ScrapeOutcome, error)
}

var errURLTimeout = errors.New("url processing timed out")

// haltReason records why a running Worker stopped iterating.
type haltReason int

const (
	haltNone haltReason = iota
	haltStop
	haltPause
)

// Worker drives one job to completion: pulls pending URLs in
// insertion order, runs each through the Scraper under a hard per-URL
// timeout, and performs a single retry pass over URLs that failed on the
// first attempt.
type Worker struct {
	jobID         string
	rules         []models.Rule
	cascade       models.CascadeConfig
	settings      models.JobSettings
	visionEnabled bool

	jobs    store.JobRepository
	urls    store.URLRepository
	results store.ResultRepository

	scraper scrapeRunner
	logs    LogSink

	rngMu sync.Mutex
	rng   *rand.Rand

	mu   sync.Mutex
	halt haltReason
}

// New builds a Worker for a single job run. The rules and cascade config
// are snapshotted by the caller at start time and never
// change for the life of this Worker.
func New(jobID string, rules []models.Rule, cascadeCfg models.CascadeConfig, settings models.JobSettings, visionEnabled bool, jobs store.JobRepository, urls store.URLRepository, results store.ResultRepository, scraper scrapeRunner, logs LogSink) *Worker {
	return &Worker{
		jobID:         jobID,
		rules:         rules,
		cascade:       cascadeCfg,
		settings:      settings,
		visionEnabled: visionEnabled,
		jobs:          jobs,
		urls:          urls,
		results:       results,
		scraper:       scraper,
		logs:          logs,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RequestStop asks the worker to stop after its current URL attempt.
func (w *Worker) RequestStop() { w.setHalt(haltStop) }

// RequestPause asks the worker to pause after its current URL attempt,
// preserving pending/processing URL state for a later Resume.
func (w *Worker) RequestPause() { w.setHalt(haltPause) }

func (w *Worker) setHalt(reason haltReason) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.halt == haltNone {
		w.halt = reason
	}
}

func (w *Worker) haltRequested() haltReason {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.halt
}

// Run drives the job to completion and reports why it stopped: "completed"
// when no pending URLs remain, "stopped"/"paused" on a cooperative halt. A
// non-nil error means the worker's own logic panicked or hit a repository
// error — the orchestrator transitions the job to failed in that case.
func (w *Worker) Run(ctx context.Context) (reason string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker panic: %v", r)
		}
	}()

	pendingCount, cerr := w.urls.CountsByJob(ctx, w.jobID)
	if cerr != nil {
		return "", cerr
	}
	w.logs.Log(w.jobID, models.LogInfo, "worker started", map[string]interface{}{"pending": pendingCount.Pending})

	var retryIDs []string

	for w.haltRequested() == haltNone {
		pending, lerr := w.urls.ListPendingByJob(ctx, w.jobID, 1)
		if lerr != nil {
			return "", lerr
		}
		if len(pending) == 0 {
			break
		}

		rec := pending[0]
		if failed := w.processOne(ctx, rec); failed {
			retryIDs = append(retryIDs, rec.ID)
		}

		if w.haltRequested() != haltNone {
			break
		}
		w.delay(ctx)
	}

	if w.haltRequested() == haltNone {
		for _, id := range retryIDs {
			if w.haltRequested() != haltNone {
				break
			}
			if rerr := w.retryOne(ctx, id); rerr != nil {
				return "", rerr
			}
		}
	}

	switch w.haltRequested() {
	case haltStop:
		w.logs.Log(w.jobID, models.LogInfo, "worker stopped", nil)
		return "stopped", nil
	case haltPause:
		w.logs.Log(w.jobID, models.LogInfo, "worker paused", nil)
		return "paused", nil
	default:
		w.logs.Log(w.jobID, models.LogSuccess, "worker completed", nil)
		return "completed", nil
	}
}

// processOne runs the full per-URL contract: mark processing, run
// the scraper under a hard timeout, persist the outcome, bump job
// counters, and log. It reports whether the URL ended up failed (and so is
// a retry-pass candidate).
func (w *Worker) processOne(ctx context.Context, rec *models.URLRecord) (failed bool) {
	now := time.Now()
	rec.Status = models.URLProcessing
	rec.LastAttemptAt = &now
	rec.AttemptCount++
	if err := w.urls.Update(ctx, rec); err != nil {
		w.logs.Log(w.jobID, models.LogError, "failed to mark url processing", map[string]interface{}{"url": rec.URL, "error": err.Error()})
		return true
	}

	start := time.Now()
	outcome, err := w.runWithTimeout(ctx, rec.URL)
	elapsed := time.Since(start)

	switch {
	case err == errURLTimeout:
		rec.Status = models.URLFailed
		rec.ErrorKind = models.ErrTimeout
		rec.ErrorMessage = fmt.Sprintf("processing exceeded %s timeout", w.settings.URLTimeout)
		rec.ProcessingTime = elapsed
		_ = w.urls.Update(ctx, rec)
		w.bumpJobProgress(ctx, false)
		w.logs.Log(w.jobID, models.LogWarning, "url timed out", map[string]interface{}{"url": rec.URL, "timeout": w.settings.URLTimeout.String()})
		return true

	case err != nil:
		rec.Status = models.URLFailed
		rec.ErrorKind = models.ErrException
		rec.ErrorMessage = err.Error()
		rec.ProcessingTime = elapsed
		_ = w.urls.Update(ctx, rec)
		w.bumpJobProgress(ctx, false)
		w.logs.Log(w.jobID, models.LogError, "url processing raised an exception", map[string]interface{}{"url": rec.URL, "error": err.Error()})
		return true
	}

	if outcome.Success {
		result := outcome.Result
		result.URLID = rec.ID
		if serr := w.results.Save(ctx, result); serr != nil {
			rec.Status = models.URLFailed
			rec.ErrorKind = models.ErrException
			rec.ErrorMessage = serr.Error()
			rec.ProcessingTime = elapsed
			_ = w.urls.Update(ctx, rec)
			w.bumpJobProgress(ctx, false)
			w.logs.Log(w.jobID, models.LogError, "failed to persist result", map[string]interface{}{"url": rec.URL, "error": serr.Error()})
			return true
		}

		completedAt := time.Now()
		rec.Status = models.URLCompleted
		rec.CompletedAt = &completedAt
		rec.ProcessingTime = elapsed
		rec.ErrorKind = ""
		rec.ErrorMessage = ""
		_ = w.urls.Update(ctx, rec)
		w.bumpJobProgress(ctx, true)
		w.logs.Log(w.jobID, models.LogSuccess, "url scraped successfully", map[string]interface{}{"url": rec.URL, "method": outcome.MethodUsed})
		return false
	}

	rec.Status = models.URLFailed
	rec.ErrorKind = outcome.ErrorKind
	rec.ErrorMessage = outcome.ErrorMessage
	rec.ProcessingTime = elapsed
	_ = w.urls.Update(ctx, rec)
	w.bumpJobProgress(ctx, false)
	w.logs.Log(w.jobID, models.LogError, "url scrape failed", map[string]interface{}{"url": rec.URL, "error_type": string(outcome.ErrorKind), "error": outcome.ErrorMessage})
	return true
}

// retryOne resets a previously-failed URL to pending and reprocesses it
// once. The earlier failure's counters are undone first so
// the retry pass does not double-count the attempt.
func (w *Worker) retryOne(ctx context.Context, urlID string) error {
	rec, err := w.urls.Get(ctx, urlID)
	if err != nil {
		return err
	}
	if rec.Status != models.URLFailed {
		return nil
	}

	job, err := w.jobs.Get(ctx, w.jobID)
	if err != nil {
		return err
	}
	job.ProgressCurrent--
	job.FailureCount--
	if err := w.jobs.Update(ctx, job); err != nil {
		return err
	}

	rec.Status = models.URLPending
	if err := w.urls.Update(ctx, rec); err != nil {
		return err
	}

	w.processOne(ctx, rec)
	return nil
}

func (w *Worker) bumpJobProgress(ctx context.Context, success bool) {
	job, err := w.jobs.Get(ctx, w.jobID)
	if err != nil {
		w.logs.Log(w.jobID, models.LogError, "failed to load job for progress update", map[string]interface{}{"error": err.Error()})
		return
	}
	job.ProgressCurrent++
	if success {
		job.SuccessCount++
	} else {
		job.FailureCount++
	}
	if err := w.jobs.Update(ctx, job); err != nil {
		w.logs.Log(w.jobID, models.LogError, "failed to persist progress update", map[string]interface{}{"error": err.Error()})
	}
}

// runWithTimeout runs the scraper in its own goroutine and waits on it with
// a deadline. On deadline expiry the goroutine is abandoned rather than
// cancelled: it keeps running, and may keep its connection open, until the
// scraper returns, and its eventual result is discarded.
func (w *Worker) runWithTimeout(ctx context.Context, url string) (*ScrapeOutcome, error) {
	type result struct {
		outcome *ScrapeOutcome
		err     error
	}
	ch := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{nil, fmt.Errorf("scraper panic: %v", r)}
			}
		}()
		outcome, err := w.scraper.Run(ctx, url, w.rules, w.cascade, w.visionEnabled)
		ch <- result{outcome, err}
	}()

	timeout := w.settings.URLTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	select {
	case r := <-ch:
		return r.outcome, r.err
	case <-time.After(timeout):
		return nil, errURLTimeout
	}
}

// delay sleeps a uniform-random interval in [delay_min, delay_max],
// waking early only if the context is done; a halt request is not seen
// until the sleep ends.
func (w *Worker) delay(ctx context.Context) {
	min, max := w.settings.DelayMin, w.settings.DelayMax
	if max < min {
		max = min
	}

	d := min
	if max > min {
		w.rngMu.Lock()
		d = min + time.Duration(w.rng.Int63n(int64(max-min)))
		w.rngMu.Unlock()
	}

	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
