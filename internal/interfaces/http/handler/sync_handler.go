package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	syncapp "github.com/syncbridge/backend/internal/application/sync"
	syncdomain "github.com/syncbridge/backend/internal/domain/sync"
	"github.com/syncbridge/backend/internal/interfaces/http/dto"
)

// SyncHandler serves the sync job and run endpoints
type SyncHandler struct {
	BaseHandler
	service     *syncapp.Service
	defaultRuns int
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(service *syncapp.Service) *SyncHandler {
	return &SyncHandler{service: service}
}

// SetDefaultRunLimit sets the page size used by run listings when the
// request carries no limit query parameter
func (h *SyncHandler) SetDefaultRunLimit(limit int) {
	h.defaultRuns = limit
}

// RegisterRoutes registers job and run routes
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	jobs := rg.Group("/jobs")
	{
		jobs.POST("", h.CreateJob)
		jobs.GET("", h.ListJobs)
		jobs.GET("/:id", h.GetJob)
		jobs.POST("/:id/activate", h.ActivateJob)
		jobs.POST("/:id/deactivate", h.DeactivateJob)
		jobs.POST("/:id/trigger", h.TriggerJob)
		jobs.GET("/:id/runs", h.ListRuns)
	}

	rg.GET("/runs/:id", h.GetRun)
}

// CreateJob creates a sync job
func (h *SyncHandler) CreateJob(c *gin.Context) {
	orgID, ok := getOrgID(c)
	if !ok {
		h.Unauthorized(c, "organization context required")
		return
	}

	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	ids, err := parseUUIDs(req.SourceConnectorID, req.TargetConnectorID, req.MappingID)
	if err != nil {
		h.BadRequest(c, "invalid connector or mapping ID")
		return
	}

	options := syncdomain.DefaultSyncOptions()
	if req.Options != nil {
		options = *req.Options
	}

	job, err := h.service.CreateJob(c.Request.Context(), orgID, req.Name,
		ids[0], ids[1], ids[2],
		syncdomain.SyncType(req.SyncType),
		syncdomain.Direction(req.Direction),
		syncdomain.Schedule{
			Type:            syncdomain.ScheduleType(req.Schedule.Type),
			IntervalSeconds: req.Schedule.IntervalSeconds,
			CronExpr:        req.Schedule.CronExpr,
		},
		options,
	)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Created(c, dto.JobResponseFromDomain(job))
}

// ListJobs lists the organization's sync jobs
func (h *SyncHandler) ListJobs(c *gin.Context) {
	orgID, ok := getOrgID(c)
	if !ok {
		h.Unauthorized(c, "organization context required")
		return
	}

	jobs, err := h.service.ListJobs(c.Request.Context(), orgID)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	out := make([]dto.JobResponse, len(jobs))
	for i := range jobs {
		out[i] = dto.JobResponseFromDomain(&jobs[i])
	}
	h.List(c, out, len(out))
}

// GetJob returns one sync job with its stats
func (h *SyncHandler) GetJob(c *gin.Context) {
	orgID, ok := getOrgID(c)
	if !ok {
		h.Unauthorized(c, "organization context required")
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "invalid job ID")
		return
	}

	job, err := h.service.GetJob(c.Request.Context(), orgID, id)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, dto.JobResponseFromDomain(job))
}

// ActivateJob resumes scheduling and triggering of a job
func (h *SyncHandler) ActivateJob(c *gin.Context) {
	h.setActive(c, true)
}

// DeactivateJob pauses a job; in-flight runs are unaffected
func (h *SyncHandler) DeactivateJob(c *gin.Context) {
	h.setActive(c, false)
}

// TriggerJob starts a run immediately, bypassing the schedule
func (h *SyncHandler) TriggerJob(c *gin.Context) {
	orgID, ok := getOrgID(c)
	if !ok {
		h.Unauthorized(c, "organization context required")
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "invalid job ID")
		return
	}

	result, err := h.service.TriggerJob(c.Request.Context(), orgID, id)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, result)
}

// ListRuns lists a job's run history, newest first
func (h *SyncHandler) ListRuns(c *gin.Context) {
	orgID, ok := getOrgID(c)
	if !ok {
		h.Unauthorized(c, "organization context required")
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "invalid job ID")
		return
	}
	limit := h.defaultRuns
	if raw := c.Query("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	runs, err := h.service.ListRuns(c.Request.Context(), orgID, id, limit)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	out := make([]dto.RunResponse, len(runs))
	for i := range runs {
		out[i] = dto.RunResponseFromDomain(&runs[i])
	}
	h.List(c, out, len(out))
}

// GetRun returns one run with its counts and error list
func (h *SyncHandler) GetRun(c *gin.Context) {
	orgID, ok := getOrgID(c)
	if !ok {
		h.Unauthorized(c, "organization context required")
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "invalid run ID")
		return
	}

	run, err := h.service.GetRun(c.Request.Context(), orgID, id)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, dto.RunResponseFromDomain(run))
}

func (h *SyncHandler) setActive(c *gin.Context, active bool) {
	orgID, ok := getOrgID(c)
	if !ok {
		h.Unauthorized(c, "organization context required")
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "invalid job ID")
		return
	}

	job, err := h.service.SetJobActive(c.Request.Context(), orgID, id, active)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, dto.JobResponseFromDomain(job))
}
