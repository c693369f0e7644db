package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapeforge/internal/store/memory"
	"scrapeforge/internal/worker"
	"scrapeforge/pkg/models"
)

// panickingURLStore panics inside the Worker's own main-loop goroutine
// (not inside the scraper it calls), exercising Worker.Run's own recover
// and the Orchestrator's "uncaught worker exception fails the job" path.
type panickingURLStore struct {
	*memory.URLStore
}

func (p panickingURLStore) ListPendingByJob(ctx context.Context, jobID string, limit int) ([]*models.URLRecord, error) {
	panic("url store exploded")
}

type stubScraper struct {
	outcome *worker.ScrapeOutcome
	err     error
	delay   time.Duration
}

func (s stubScraper) Run(ctx context.Context, targetURL string, rules []models.Rule, cascadeCfg models.CascadeConfig, visionEnabled bool) (*worker.ScrapeOutcome, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
		}
	}
	return s.outcome, s.err
}

func newTestOrchestrator(s scraper) (*Orchestrator, *memory.JobStore, *memory.URLStore) {
	jobs := memory.NewJobStore()
	urls := memory.NewURLStore()
	rules := memory.NewRuleStore()
	results := memory.NewResultStore()
	settings := memory.NewSettingsStore()

	o := New(jobs, urls, rules, results, settings, s, models.DefaultCascadeConfig())
	return o, jobs, urls
}

func waitUntilNotRunning(t *testing.T, o *Orchestrator, jobID string) models.Status {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st, err := o.Status(jobID)
		require.NoError(t, err)
		if !st.IsRunning {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for job to stop running")
	return models.Status{}
}

func TestOrchestrator_StartWithNoURLsCompletesImmediately(t *testing.T) {
	o, jobs, _ := newTestOrchestrator(stubScraper{})
	job := &models.Job{ID: "job-1", Status: models.JobPending, Settings: models.DefaultJobSettings()}
	require.NoError(t, jobs.Create(context.Background(), job))

	ok, err := o.Start("job-1")
	require.NoError(t, err)
	assert.True(t, ok)

	st := waitUntilNotRunning(t, o, "job-1")
	assert.Equal(t, models.JobCompleted, st.Status)
}

func TestOrchestrator_StartGuardsAgainstRunningStatus(t *testing.T) {
	o, jobs, _ := newTestOrchestrator(stubScraper{delay: 500 * time.Millisecond, outcome: &worker.ScrapeOutcome{Success: true, Result: &models.Result{Data: map[string]models.FieldValue{"x": {Scalar: "y"}}}}})
	job := &models.Job{ID: "job-2", Status: models.JobPending, Settings: models.DefaultJobSettings()}
	require.NoError(t, jobs.Create(context.Background(), job))

	urls := memory.NewURLStore()
	_ = urls

	ok, err := o.Start("job-2")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = o.Start("job-2")
	assert.Error(t, err)

	o.StopAll()
}

func TestOrchestrator_PauseRequiresRunning(t *testing.T) {
	o, jobs, _ := newTestOrchestrator(stubScraper{})
	job := &models.Job{ID: "job-3", Status: models.JobPending, Settings: models.DefaultJobSettings()}
	require.NoError(t, jobs.Create(context.Background(), job))

	err := o.Pause("job-3")
	assert.Error(t, err)
}

func TestOrchestrator_PauseThenResumePreservesProgress(t *testing.T) {
	o, jobs, urls := newTestOrchestrator(stubScraper{delay: 50 * time.Millisecond, outcome: &worker.ScrapeOutcome{Success: true, Result: &models.Result{Data: map[string]models.FieldValue{"x": {Scalar: "y"}}}}})

	settings := models.DefaultJobSettings()
	settings.URLTimeout = time.Second
	settings.DelayMin = time.Millisecond
	settings.DelayMax = time.Millisecond
	job := &models.Job{ID: "job-4", Status: models.JobPending, Settings: settings, ProgressTotal: 3}
	require.NoError(t, jobs.Create(context.Background(), job))
	for _, u := range []string{"http://a", "http://b", "http://c"} {
		require.NoError(t, urls.Insert(context.Background(), &models.URLRecord{ID: u, JobID: "job-4", URL: u, Status: models.URLPending}))
	}

	ok, err := o.Start("job-4")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, o.Pause("job-4"))
	st := waitUntilNotRunning(t, o, "job-4")
	assert.Equal(t, models.JobPaused, st.Status)
	progressAtPause := st.ProgressCurrent

	ok, err = o.Resume("job-4")
	require.NoError(t, err)
	assert.True(t, ok)

	st = waitUntilNotRunning(t, o, "job-4")
	assert.Equal(t, models.JobCompleted, st.Status)
	assert.GreaterOrEqual(t, st.ProgressCurrent, progressAtPause)
	assert.Equal(t, 3, st.ProgressCurrent)
}

func TestOrchestrator_ResumeRejectsPendingJob(t *testing.T) {
	o, jobs, _ := newTestOrchestrator(stubScraper{})
	job := &models.Job{ID: "job-4b", Status: models.JobPending, Settings: models.DefaultJobSettings()}
	require.NoError(t, jobs.Create(context.Background(), job))

	ok, err := o.Resume("job-4b")
	assert.Error(t, err)
	assert.False(t, ok)

	st, err := jobs.Get(context.Background(), "job-4b")
	require.NoError(t, err)
	assert.Equal(t, models.JobPending, st.Status)
}

func TestOrchestrator_StopPendingJobCancelsImmediately(t *testing.T) {
	o, jobs, _ := newTestOrchestrator(stubScraper{})
	job := &models.Job{ID: "job-5", Status: models.JobPending, Settings: models.DefaultJobSettings()}
	require.NoError(t, jobs.Create(context.Background(), job))

	require.NoError(t, o.Stop("job-5"))

	st, err := o.Status("job-5")
	require.NoError(t, err)
	assert.Equal(t, models.JobCancelled, st.Status)
}

func TestOrchestrator_StopOnTerminalJobIsRejected(t *testing.T) {
	o, jobs, _ := newTestOrchestrator(stubScraper{})
	job := &models.Job{ID: "job-6", Status: models.JobCompleted, Settings: models.DefaultJobSettings()}
	require.NoError(t, jobs.Create(context.Background(), job))

	assert.Error(t, o.Stop("job-6"))
}

func TestOrchestrator_ArchiveRequiresTerminalStatus(t *testing.T) {
	o, jobs, _ := newTestOrchestrator(stubScraper{})
	job := &models.Job{ID: "job-7", Status: models.JobRunning, Settings: models.DefaultJobSettings()}
	require.NoError(t, jobs.Create(context.Background(), job))

	assert.Error(t, o.Archive("job-7"))

	job2 := &models.Job{ID: "job-8", Status: models.JobCompleted, Settings: models.DefaultJobSettings()}
	require.NoError(t, jobs.Create(context.Background(), job2))
	require.NoError(t, o.Archive("job-8"))

	st, err := o.Status("job-8")
	require.NoError(t, err)
	assert.Equal(t, models.JobArchived, st.Status)

	require.NoError(t, o.Unarchive("job-8"))
	st, err = o.Status("job-8")
	require.NoError(t, err)
	assert.Equal(t, models.JobPending, st.Status)
}

func TestOrchestrator_LogsAreAppendedAndPaginated(t *testing.T) {
	o, _, _ := newTestOrchestrator(stubScraper{})

	o.Log("job-9", models.LogInfo, "first", nil)
	o.Log("job-9", models.LogError, "second", nil)
	o.Log("job-9", models.LogInfo, "third", nil)

	page := o.Logs("job-9", 0, nil)
	require.Len(t, page.Logs, 3)
	assert.Equal(t, 3, page.CurrentIndex)

	nextPage := o.Logs("job-9", page.CurrentIndex, nil)
	assert.Empty(t, nextPage.Logs)

	errLevel := models.LogError
	filtered := o.Logs("job-9", 0, &errLevel)
	require.Len(t, filtered.Logs, 1)
	assert.Equal(t, "second", filtered.Logs[0].Message)
}

func TestOrchestrator_WorkerCrashFailsJob(t *testing.T) {
	jobs := memory.NewJobStore()
	urls := panickingURLStore{memory.NewURLStore()}
	rules := memory.NewRuleStore()
	results := memory.NewResultStore()
	settingsStore := memory.NewSettingsStore()
	o := New(jobs, urls, rules, results, settingsStore, stubScraper{}, models.DefaultCascadeConfig())

	job := &models.Job{ID: "job-10", Status: models.JobPending, Settings: models.DefaultJobSettings()}
	require.NoError(t, jobs.Create(context.Background(), job))
	require.NoError(t, urls.Insert(context.Background(), &models.URLRecord{ID: "u1", JobID: "job-10", URL: "http://a", Status: models.URLPending}))

	ok, err := o.Start("job-10")
	require.NoError(t, err)
	assert.True(t, ok)

	st := waitUntilNotRunning(t, o, "job-10")
	assert.Equal(t, models.JobFailed, st.Status)
}
