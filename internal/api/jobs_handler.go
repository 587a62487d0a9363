package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sitewatch/sitewatch/internal/database"
	"github.com/sitewatch/sitewatch/internal/domain"
	"github.com/sitewatch/sitewatch/internal/scheduler"
	"github.com/sitewatch/sitewatch/internal/templates"
)

// JobStore is the job persistence surface the handlers need.
type JobStore interface {
	Create(ctx context.Context, job *domain.CrawlJob) error
	GetByID(ctx context.Context, id string) (*domain.CrawlJob, error)
	List(ctx context.Context, tenantID string, limit, offset int) ([]*domain.CrawlJob, error)
	Update(ctx context.Context, job *domain.CrawlJob) error
	Delete(ctx context.Context, id string) error
}

// RunStore is the run read surface the handlers need.
type RunStore interface {
	GetByID(ctx context.Context, id string) (*domain.JobRun, error)
	ListByJob(ctx context.Context, jobID string, limit int) ([]*domain.JobRun, error)
}

// Scheduler is the orchestrator surface the handlers need.
type Scheduler interface {
	ValidateSchedule(expr string) error
	ScheduleJob(job *domain.CrawlJob) error
	UnscheduleJob(jobID string)
	TriggerJob(jobID string) error
	Status() scheduler.Status
}

// CreateJobRequest is the payload for creating a crawl job.
type CreateJobRequest struct {
	Name         string  `json:"name" binding:"required"`
	BaseURL      string  `json:"base_url" binding:"required"`
	Schedule     string  `json:"schedule" binding:"required"`
	TemplateID   string  `json:"template_id"`
	CredentialID *string `json:"credential_id"`
	MaxDepth     int     `json:"max_depth"`
	MaxPages     int     `json:"max_pages"`
	// DelayMS and TimeoutSeconds override the template's pacing; zero
	// inherits the template value.
	DelayMS        int   `json:"delay_ms"`
	TimeoutSeconds int   `json:"timeout_seconds"`
	Active         *bool `json:"active"`
}

// UpdateJobRequest is the payload for updating a crawl job. Zero-value
// fields are left unchanged.
type UpdateJobRequest struct {
	Name           string  `json:"name"`
	BaseURL        string  `json:"base_url"`
	Schedule       string  `json:"schedule"`
	TemplateID     string  `json:"template_id"`
	CredentialID   *string `json:"credential_id"`
	MaxDepth       *int    `json:"max_depth"`
	MaxPages       *int    `json:"max_pages"`
	DelayMS        *int    `json:"delay_ms"`
	TimeoutSeconds *int    `json:"timeout_seconds"`
	Active         *bool   `json:"active"`
}

// JobsHandler handles job and run HTTP requests.
type JobsHandler struct {
	jobs      JobStore
	runs      RunStore
	scheduler Scheduler
	tenant    string
}

// NewJobsHandler creates a jobs handler.
func NewJobsHandler(jobs JobStore, runs RunStore, sched Scheduler, tenant string) *JobsHandler {
	return &JobsHandler{jobs: jobs, runs: runs, scheduler: sched, tenant: tenant}
}

// ListJobs handles GET /api/v1/jobs
func (h *JobsHandler) ListJobs(c *gin.Context) {
	limit, offset := parseLimitOffset(c)

	jobs, err := h.jobs.List(c.Request.Context(), h.tenant, limit, offset)
	if err != nil {
		respondInternalError(c, "Failed to retrieve jobs")
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "limit": limit, "offset": offset})
}

// GetJob handles GET /api/v1/jobs/:id
func (h *JobsHandler) GetJob(c *gin.Context) {
	id := c.Param("id")
	if id == "" || id == "undefined" {
		respondBadRequest(c, "Invalid job ID")
		return
	}

	job, err := h.jobs.GetByID(c.Request.Context(), id)
	if err != nil {
		respondNotFound(c, "Job")
		return
	}

	c.JSON(http.StatusOK, job)
}

// CreateJob handles POST /api/v1/jobs. The cron expression is validated at
// save time so a bad schedule is rejected here, not discovered at trigger
// registration.
func (h *JobsHandler) CreateJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	if err := h.scheduler.ValidateSchedule(req.Schedule); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	templateID := req.TemplateID
	if templateID == "" {
		templateID = templates.SuggestForURL(req.BaseURL).ID
	} else if _, err := templates.ByID(templateID); err != nil {
		respondBadRequest(c, "Unknown template: "+templateID)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	job := &domain.CrawlJob{
		ID:             uuid.NewString(),
		TenantID:       h.tenant,
		Name:           req.Name,
		BaseURL:        req.BaseURL,
		Schedule:       req.Schedule,
		TemplateID:     templateID,
		CredentialID:   req.CredentialID,
		MaxDepth:       req.MaxDepth,
		MaxPages:       req.MaxPages,
		DelayMS:        req.DelayMS,
		TimeoutSeconds: req.TimeoutSeconds,
		Active:         active,
		Status:         domain.JobStatusIdle,
	}

	if err := h.jobs.Create(c.Request.Context(), job); err != nil {
		respondInternalError(c, "Failed to create job: "+err.Error())
		return
	}

	if job.Active {
		if err := h.scheduler.ScheduleJob(job); err != nil {
			respondInternalError(c, "Job created but scheduling failed: "+err.Error())
			return
		}
	}

	c.JSON(http.StatusCreated, job)
}

// UpdateJob handles PUT /api/v1/jobs/:id
func (h *JobsHandler) UpdateJob(c *gin.Context) {
	id := c.Param("id")

	var req UpdateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	job, err := h.jobs.GetByID(c.Request.Context(), id)
	if err != nil {
		respondNotFound(c, "Job")
		return
	}

	if req.Schedule != "" {
		if validateErr := h.scheduler.ValidateSchedule(req.Schedule); validateErr != nil {
			respondBadRequest(c, validateErr.Error())
			return
		}
		job.Schedule = req.Schedule
	}
	if req.Name != "" {
		job.Name = req.Name
	}
	if req.BaseURL != "" {
		job.BaseURL = req.BaseURL
	}
	if req.TemplateID != "" {
		if _, tmplErr := templates.ByID(req.TemplateID); tmplErr != nil {
			respondBadRequest(c, "Unknown template: "+req.TemplateID)
			return
		}
		job.TemplateID = req.TemplateID
	}
	if req.CredentialID != nil {
		job.CredentialID = req.CredentialID
	}
	if req.MaxDepth != nil {
		job.MaxDepth = *req.MaxDepth
	}
	if req.MaxPages != nil {
		job.MaxPages = *req.MaxPages
	}
	if req.DelayMS != nil {
		job.DelayMS = *req.DelayMS
	}
	if req.TimeoutSeconds != nil {
		job.TimeoutSeconds = *req.TimeoutSeconds
	}
	if req.Active != nil {
		job.Active = *req.Active
	}

	if updateErr := h.jobs.Update(c.Request.Context(), job); updateErr != nil {
		respondInternalError(c, "Failed to update job: "+updateErr.Error())
		return
	}

	if job.Active {
		if scheduleErr := h.scheduler.ScheduleJob(job); scheduleErr != nil {
			respondInternalError(c, "Job updated but scheduling failed: "+scheduleErr.Error())
			return
		}
	} else {
		h.scheduler.UnscheduleJob(job.ID)
	}

	c.JSON(http.StatusOK, job)
}

// DeleteJob handles DELETE /api/v1/jobs/:id
func (h *JobsHandler) DeleteJob(c *gin.Context) {
	id := c.Param("id")

	if err := h.jobs.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondNotFound(c, "Job")
			return
		}
		respondInternalError(c, "Failed to delete job")
		return
	}

	h.scheduler.UnscheduleJob(id)
	c.JSON(http.StatusOK, gin.H{"message": "Job deleted successfully"})
}

// RunJob handles POST /api/v1/jobs/:id/run. A job with a run already in
// flight yields 409.
func (h *JobsHandler) RunJob(c *gin.Context) {
	id := c.Param("id")

	if _, err := h.jobs.GetByID(c.Request.Context(), id); err != nil {
		respondNotFound(c, "Job")
		return
	}

	if err := h.scheduler.TriggerJob(id); err != nil {
		if errors.Is(err, scheduler.ErrJobAlreadyRunning) {
			respondError(c, http.StatusConflict, "Job already has a run in flight")
			return
		}
		respondInternalError(c, "Failed to trigger run: "+err.Error())
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Run started"})
}

// ListJobRuns handles GET /api/v1/jobs/:id/runs
func (h *JobsHandler) ListJobRuns(c *gin.Context) {
	id := c.Param("id")
	limit, _ := parseLimitOffset(c)

	runs, err := h.runs.ListByJob(c.Request.Context(), id, limit)
	if err != nil {
		respondInternalError(c, "Failed to retrieve runs")
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// GetRun handles GET /api/v1/runs/:id
func (h *JobsHandler) GetRun(c *gin.Context) {
	id := c.Param("id")

	run, err := h.runs.GetByID(c.Request.Context(), id)
	if err != nil {
		respondNotFound(c, "Run")
		return
	}

	c.JSON(http.StatusOK, run)
}

// GetSchedulerStatus handles GET /api/v1/scheduler/status
func (h *JobsHandler) GetSchedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.scheduler.Status())
}
