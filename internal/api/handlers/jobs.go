package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"scrapeforge/internal/logging"
	"scrapeforge/internal/orchestrator"
	"scrapeforge/internal/store"
	"scrapeforge/pkg/apperrors"
	"scrapeforge/pkg/models"
	"scrapeforge/pkg/utils"
)

var validate = validator.New()

// JobsHandler exposes the job lifecycle over HTTP: submission, the
// start/pause/resume/stop state-machine transitions, status polling, log
// polling, and result retrieval.
type JobsHandler struct {
	jobs    store.JobRepository
	urls    store.URLRepository
	rules   store.RuleRepository
	results store.ResultRepository
	orch    *orchestrator.Orchestrator
}

// NewJobsHandler builds a JobsHandler.
func NewJobsHandler(jobs store.JobRepository, urls store.URLRepository, rules store.RuleRepository, results store.ResultRepository, orch *orchestrator.Orchestrator) *JobsHandler {
	return &JobsHandler{jobs: jobs, urls: urls, rules: rules, results: results, orch: orch}
}

func errorResponse(requestID string, appErr *apperrors.AppError) models.ErrorResponse {
	return models.ErrorResponse{
		Error:     appErr.Message,
		Message:   appErr.Error(),
		RequestID: requestID,
		Timestamp: time.Now(),
	}
}

// Create persists a new job, its URL set, and its extraction rules, then
// leaves it pending until Start is called.
func (h *JobsHandler) Create(c echo.Context) error {
	requestID, _ := c.Get("request_id").(string)
	logger := logging.LogWithRequestID(requestID)

	var req models.CreateJobRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(requestID, apperrors.NewBadRequestError("invalid request body")))
	}
	if err := validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse(requestID, apperrors.NewValidationError(err.Error())))
	}

	settings := models.DefaultJobSettings()
	if req.Settings != nil {
		if req.Settings.URLTimeout > 0 {
			settings.URLTimeout = req.Settings.URLTimeout
		}
		if req.Settings.DelayMin > 0 {
			settings.DelayMin = req.Settings.DelayMin
		}
		if req.Settings.DelayMax > 0 {
			settings.DelayMax = req.Settings.DelayMax
		}
		settings.VisionEnabled = req.Settings.VisionEnabled
		settings.CascadeOverride = req.Settings.CascadeOverride
	}

	jobID := utils.GenerateJobID()
	job := &models.Job{
		ID:            jobID,
		Name:          req.Name,
		Mode:          req.Mode,
		Status:        models.JobPending,
		Settings:      settings,
		CreatedAt:     time.Now(),
		ProgressTotal: len(req.URLs),
	}

	ctx := c.Request().Context()
	if err := h.jobs.Create(ctx, job); err != nil {
		logger.Error("failed to persist job", map[string]interface{}{"error": err.Error()})
		return c.JSON(http.StatusInternalServerError, errorResponse(requestID, apperrors.NewInternalServerError("failed to create job")))
	}

	recs := make([]*models.URLRecord, 0, len(req.URLs))
	for _, u := range req.URLs {
		recs = append(recs, &models.URLRecord{
			ID:         utils.GenerateRequestID(),
			JobID:      jobID,
			URL:        u,
			Status:     models.URLPending,
			InsertedAt: time.Now(),
		})
	}
	if err := h.urls.InsertBatch(ctx, recs); err != nil {
		logger.Error("failed to persist job urls", map[string]interface{}{"error": err.Error()})
		return c.JSON(http.StatusInternalServerError, errorResponse(requestID, apperrors.NewInternalServerError("failed to create job urls")))
	}

	for i := range req.Rules {
		req.Rules[i].JobID = jobID
	}
	if err := h.rules.SetRules(ctx, jobID, req.Rules); err != nil {
		logger.Error("failed to persist job rules", map[string]interface{}{"error": err.Error()})
		return c.JSON(http.StatusInternalServerError, errorResponse(requestID, apperrors.NewInternalServerError("failed to create job rules")))
	}

	logger.Info("job created", map[string]interface{}{"job_id": jobID, "url_count": len(recs)})

	return c.JSON(http.StatusCreated, models.CreateJobResponse{
		JobID:     jobID,
		Status:    job.Status,
		RequestID: requestID,
	})
}

// List returns every known job's external-facing status.
func (h *JobsHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	jobs, err := h.jobs.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, apperrors.NewInternalServerError("failed to list jobs"))
	}

	out := make([]models.Status, 0, len(jobs))
	for _, j := range jobs {
		st, err := h.orch.Status(j.ID)
		if err != nil {
			continue
		}
		out = append(out, st)
	}
	return c.JSON(http.StatusOK, out)
}

// Status returns a single job's external-facing status.
func (h *JobsHandler) Status(c echo.Context) error {
	st, err := h.orch.Status(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, apperrors.NewNotFoundError("job not found"))
	}
	return c.JSON(http.StatusOK, st)
}

// Start launches a pending or paused job.
func (h *JobsHandler) Start(c echo.Context) error {
	ok, err := h.orch.Start(c.Param("id"))
	return h.respondToTransition(c, ok, err)
}

// Resume resumes a paused job.
func (h *JobsHandler) Resume(c echo.Context) error {
	ok, err := h.orch.Resume(c.Param("id"))
	return h.respondToTransition(c, ok, err)
}

// Pause requests a cooperative pause of a running job.
func (h *JobsHandler) Pause(c echo.Context) error {
	err := h.orch.Pause(c.Param("id"))
	return h.respondToSimpleOp(c, err)
}

// Stop requests a cooperative stop, or cancels immediately if the job has
// no active worker.
func (h *JobsHandler) Stop(c echo.Context) error {
	err := h.orch.Stop(c.Param("id"))
	return h.respondToSimpleOp(c, err)
}

// Archive moves a terminal job into the archived state.
func (h *JobsHandler) Archive(c echo.Context) error {
	err := h.orch.Archive(c.Param("id"))
	return h.respondToSimpleOp(c, err)
}

// Unarchive returns an archived job to pending.
func (h *JobsHandler) Unarchive(c echo.Context) error {
	err := h.orch.Unarchive(c.Param("id"))
	return h.respondToSimpleOp(c, err)
}

func (h *JobsHandler) respondToTransition(c echo.Context, ok bool, err error) error {
	if err != nil {
		if appErr, isApp := err.(*apperrors.AppError); isApp {
			return c.JSON(appErr.Code, appErr)
		}
		return c.JSON(http.StatusInternalServerError, apperrors.NewInternalServerError(err.Error()))
	}
	return c.JSON(http.StatusOK, map[string]bool{"started": ok})
}

func (h *JobsHandler) respondToSimpleOp(c echo.Context, err error) error {
	if err != nil {
		if appErr, isApp := err.(*apperrors.AppError); isApp {
			return c.JSON(appErr.Code, appErr)
		}
		return c.JSON(http.StatusInternalServerError, apperrors.NewInternalServerError(err.Error()))
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// Logs polls a job's log buffer starting at since_index, optionally
// filtered to a single level.
func (h *JobsHandler) Logs(c echo.Context) error {
	sinceIndex := 0
	if raw := c.QueryParam("since_index"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			sinceIndex = v
		}
	}

	var levelFilter *models.LogLevel
	if raw := c.QueryParam("level"); raw != "" {
		lvl := models.LogLevel(raw)
		levelFilter = &lvl
	}

	page := h.orch.Logs(c.Param("id"), sinceIndex, levelFilter)
	return c.JSON(http.StatusOK, models.LogsResponse{
		Logs:         page.Logs,
		TotalCount:   page.TotalCount,
		CurrentIndex: page.CurrentIndex,
	})
}

// Results returns every completed URL's extracted data for a job.
func (h *JobsHandler) Results(c echo.Context) error {
	ctx := c.Request().Context()
	jobID := c.Param("id")

	recs, err := h.urls.ListByJob(ctx, jobID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, apperrors.NewInternalServerError("failed to list job urls"))
	}

	urlIDs := make([]string, 0, len(recs))
	for _, r := range recs {
		urlIDs = append(urlIDs, r.ID)
	}

	results, err := h.results.ListByJob(ctx, jobID, urlIDs)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, apperrors.NewInternalServerError("failed to list job results"))
	}
	return c.JSON(http.StatusOK, results)
}
