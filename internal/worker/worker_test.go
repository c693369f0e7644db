package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapeforge/internal/store/memory"
	"scrapeforge/pkg/models"
)

type recordedLog struct {
	level   models.LogLevel
	message string
}

type fakeLogSink struct {
	mu   sync.Mutex
	logs []recordedLog
}

func (f *fakeLogSink) Log(jobID string, level models.LogLevel, message string, data map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, recordedLog{level: level, message: message})
}

func (f *fakeLogSink) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.logs))
	for i, l := range f.logs {
		out[i] = l.message
	}
	return out
}

// scriptedScraper returns one queued outcome per call, in order, keyed by URL.
type scriptedScraper struct {
	mu      sync.Mutex
	byURL   map[string][]scriptedCall
	calls   int
}

type scriptedCall struct {
	outcome *ScrapeOutcome
	err     error
	delay   time.Duration
}

func (s *scriptedScraper) Run(ctx context.Context, targetURL string, rules []models.Rule, cascadeCfg models.CascadeConfig, visionEnabled bool) (*ScrapeOutcome, error) {
	s.mu.Lock()
	queue := s.byURL[targetURL]
	var next scriptedCall
	if len(queue) > 0 {
		next = queue[0]
		s.byURL[targetURL] = queue[1:]
	}
	s.calls++
	s.mu.Unlock()

	if next.delay > 0 {
		select {
		case <-time.After(next.delay):
		case <-ctx.Done():
		}
	}
	return next.outcome, next.err
}

func newTestWorker(t *testing.T, jobID string, urlStrings []string, scraper scrapeRunner, logs *fakeLogSink) (*Worker, *memory.JobStore, *memory.URLStore, *memory.ResultStore) {
	t.Helper()

	jobs := memory.NewJobStore()
	urls := memory.NewURLStore()
	results := memory.NewResultStore()

	job := &models.Job{
		ID:            jobID,
		Status:        models.JobRunning,
		Settings:      models.JobSettings{URLTimeout: 200 * time.Millisecond, DelayMin: time.Millisecond, DelayMax: time.Millisecond},
		ProgressTotal: len(urlStrings),
	}
	require.NoError(t, jobs.Create(context.Background(), job))

	for i, u := range urlStrings {
		rec := &models.URLRecord{ID: jobID + "-url-" + string(rune('a'+i)), JobID: jobID, URL: u, Status: models.URLPending}
		require.NoError(t, urls.Insert(context.Background(), rec))
	}

	w := New(jobID, nil, models.DefaultCascadeConfig(), job.Settings, false, jobs, urls, results, scraper, logs)
	return w, jobs, urls, results
}

func TestWorker_RunCompletesAllURLsSuccessfully(t *testing.T) {
	logs := &fakeLogSink{}
	scraper := &scriptedScraper{byURL: map[string][]scriptedCall{
		"http://a.test": {{outcome: &ScrapeOutcome{Success: true, Result: &models.Result{Data: map[string]models.FieldValue{"title": {Scalar: "A"}}}, MethodUsed: "http"}}},
		"http://b.test": {{outcome: &ScrapeOutcome{Success: true, Result: &models.Result{Data: map[string]models.FieldValue{"title": {Scalar: "B"}}}, MethodUsed: "http"}}},
	}}

	w, jobs, urls, results := newTestWorker(t, "job-1", []string{"http://a.test", "http://b.test"}, scraper, logs)

	reason, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "completed", reason)

	job, err := jobs.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, 2, job.ProgressCurrent)
	assert.Equal(t, 2, job.SuccessCount)
	assert.Equal(t, 0, job.FailureCount)

	recs, err := urls.ListByJob(context.Background(), "job-1")
	require.NoError(t, err)
	for _, r := range recs {
		assert.Equal(t, models.URLCompleted, r.Status)
		res, err := results.Get(context.Background(), r.ID)
		require.NoError(t, err)
		assert.False(t, res.IsEmpty())
	}

	assert.Contains(t, logs.messages(), "worker completed")
}

func TestWorker_FailedURLIsRetriedOnceAndCountersStayConsistent(t *testing.T) {
	logs := &fakeLogSink{}
	scraper := &scriptedScraper{byURL: map[string][]scriptedCall{
		"http://flaky.test": {
			{outcome: &ScrapeOutcome{Success: false, ErrorKind: models.ErrExtractionFailed, ErrorMessage: "no match"}},
			{outcome: &ScrapeOutcome{Success: true, Result: &models.Result{Data: map[string]models.FieldValue{"title": {Scalar: "ok"}}}, MethodUsed: "http"}},
		},
	}}

	w, jobs, urls, _ := newTestWorker(t, "job-2", []string{"http://flaky.test"}, scraper, logs)

	reason, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "completed", reason)

	job, err := jobs.Get(context.Background(), "job-2")
	require.NoError(t, err)
	assert.Equal(t, 1, job.ProgressCurrent)
	assert.Equal(t, 1, job.SuccessCount)
	assert.Equal(t, 0, job.FailureCount)

	recs, err := urls.ListByJob(context.Background(), "job-2")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, models.URLCompleted, recs[0].Status)
	assert.Equal(t, 2, recs[0].AttemptCount)
}

func TestWorker_URLStillFailingAfterRetryStaysFailed(t *testing.T) {
	logs := &fakeLogSink{}
	scraper := &scriptedScraper{byURL: map[string][]scriptedCall{
		"http://dead.test": {
			{outcome: &ScrapeOutcome{Success: false, ErrorKind: models.ErrDeadLink, ErrorMessage: "404"}},
			{outcome: &ScrapeOutcome{Success: false, ErrorKind: models.ErrDeadLink, ErrorMessage: "404"}},
		},
	}}

	w, jobs, urls, _ := newTestWorker(t, "job-3", []string{"http://dead.test"}, scraper, logs)

	reason, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "completed", reason)

	job, err := jobs.Get(context.Background(), "job-3")
	require.NoError(t, err)
	assert.Equal(t, 1, job.ProgressCurrent)
	assert.Equal(t, 0, job.SuccessCount)
	assert.Equal(t, 1, job.FailureCount)

	recs, err := urls.ListByJob(context.Background(), "job-3")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, models.URLFailed, recs[0].Status)
	assert.Equal(t, models.ErrDeadLink, recs[0].ErrorKind)
}

func TestWorker_URLTimeoutIsRecordedAndAbandoned(t *testing.T) {
	logs := &fakeLogSink{}
	scraper := &scriptedScraper{byURL: map[string][]scriptedCall{
		"http://slow.test": {
			{delay: 2 * time.Second, outcome: &ScrapeOutcome{Success: true, Result: &models.Result{Data: map[string]models.FieldValue{"x": {Scalar: "y"}}}}},
			{delay: 2 * time.Second, outcome: &ScrapeOutcome{Success: true, Result: &models.Result{Data: map[string]models.FieldValue{"x": {Scalar: "y"}}}}},
		},
	}}

	jobs := memory.NewJobStore()
	urls := memory.NewURLStore()
	results := memory.NewResultStore()
	job := &models.Job{ID: "job-4", Status: models.JobRunning, Settings: models.JobSettings{URLTimeout: 20 * time.Millisecond, DelayMin: time.Millisecond, DelayMax: time.Millisecond}}
	require.NoError(t, jobs.Create(context.Background(), job))
	require.NoError(t, urls.Insert(context.Background(), &models.URLRecord{ID: "u1", JobID: "job-4", URL: "http://slow.test", Status: models.URLPending}))

	w := New("job-4", nil, models.DefaultCascadeConfig(), job.Settings, false, jobs, urls, results, scraper, logs)

	reason, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "completed", reason)

	rec, err := urls.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.URLFailed, rec.Status)
	assert.Equal(t, models.ErrTimeout, rec.ErrorKind)

	updatedJob, err := jobs.Get(context.Background(), "job-4")
	require.NoError(t, err)
	assert.Equal(t, 1, updatedJob.FailureCount)
}

func TestWorker_RequestStopHaltsBeforeRemainingURLs(t *testing.T) {
	logs := &fakeLogSink{}
	scraper := &scriptedScraper{byURL: map[string][]scriptedCall{
		"http://a.test": {{outcome: &ScrapeOutcome{Success: true, Result: &models.Result{Data: map[string]models.FieldValue{"x": {Scalar: "1"}}}}}},
		"http://b.test": {{outcome: &ScrapeOutcome{Success: true, Result: &models.Result{Data: map[string]models.FieldValue{"x": {Scalar: "2"}}}}}},
	}}

	w, _, urls, _ := newTestWorker(t, "job-5", []string{"http://a.test", "http://b.test"}, scraper, logs)
	w.RequestStop()

	reason, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "stopped", reason)

	recs, err := urls.ListByJob(context.Background(), "job-5")
	require.NoError(t, err)
	pending := 0
	for _, r := range recs {
		if r.Status == models.URLPending {
			pending++
		}
	}
	assert.Equal(t, 2, pending)
}

func TestWorker_PanicInScraperIsRecoveredAsError(t *testing.T) {
	logs := &fakeLogSink{}
	w, _, urls, _ := newTestWorker(t, "job-6", []string{"http://a.test"}, panicScraper{}, logs)

	reason, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "completed", reason)

	rec, err := urls.Get(context.Background(), "job-6-url-a")
	require.NoError(t, err)
	assert.Equal(t, models.URLFailed, rec.Status)
	assert.Equal(t, models.ErrException, rec.ErrorKind)
}

type panicScraper struct{}

func (panicScraper) Run(ctx context.Context, targetURL string, rules []models.Rule, cascadeCfg models.CascadeConfig, visionEnabled bool) (*ScrapeOutcome, error) {
	panic("boom")
}

func TestWorker_RunWithNoPendingURLsCompletesImmediately(t *testing.T) {
	logs := &fakeLogSink{}
	w, _, _, _ := newTestWorker(t, "job-7", nil, &scriptedScraper{byURL: map[string][]scriptedCall{}}, logs)

	reason, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "completed", reason)
}
