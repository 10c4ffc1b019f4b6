package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/process-engine/internal/adapters/http/dto"
	"github.com/jsamuelsen/process-engine/internal/app/process"
	"github.com/jsamuelsen/process-engine/internal/domain"
)

// ProcessService is the engine surface used by the process API.
type ProcessService interface {
	StartProcessInstance(ctx context.Context, definitionKey, businessKey string) (*process.InstanceView, error)
	Instance(id string) (*process.InstanceView, error)
	Definitions() []*domain.ProcessDefinition
	ListJobs() []process.JobView
	PendingJobs() int
	ExecuteJobs(ctx context.Context) (int, error)
}

// jobCursorField is the sort field recorded in job list cursors.
const jobCursorField = "createdAt"

// EngineHandler serves the process API under /api/v1.
type EngineHandler struct {
	service ProcessService
}

// NewEngineHandler creates a new engine handler.
func NewEngineHandler(service ProcessService) *EngineHandler {
	return &EngineHandler{service: service}
}

// StartInstance handles POST /api/v1/process-instances.
func (h *EngineHandler) StartInstance(c *gin.Context) {
	var req dto.StartInstanceRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.HandleBindingError(c, err)
		return
	}

	view, err := h.service.StartProcessInstance(c.Request.Context(), req.DefinitionKey, req.BusinessKey)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

// GetInstance handles GET /api/v1/process-instances/:id.
func (h *EngineHandler) GetInstance(c *gin.Context) {
	req := dto.InstanceRequest{ID: c.Param("id")}
	if err := dto.Validate(&req); err != nil {
		dto.HandleBindingError(c, err)
		return
	}

	view, err := h.service.Instance(req.ID)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// ListDefinitions handles GET /api/v1/process-definitions.
func (h *EngineHandler) ListDefinitions(c *gin.Context) {
	defs := h.service.Definitions()

	out := make([]dto.DefinitionResponse, 0, len(defs))
	for _, def := range defs {
		activities := make([]string, 0, len(def.Activities))
		for _, a := range def.Activities {
			activities = append(activities, a.ID)
		}

		out = append(out, dto.DefinitionResponse{
			ID:           def.ID,
			Key:          def.Key,
			Version:      def.Version,
			DeploymentID: def.DeploymentID,
			Activities:   activities,
		})
	}

	c.JSON(http.StatusOK, gin.H{"items": out})
}

// ListJobs handles GET /api/v1/jobs. Jobs are ordered by creation time;
// the cursor records the last job returned, so jobs that ran in between
// do not shift later pages.
func (h *EngineHandler) ListJobs(c *gin.Context) {
	var req dto.PaginationRequest
	if err := dto.BindQueryAndValidate(c, &req); err != nil {
		dto.HandleBindingError(c, err)
		return
	}

	after, err := jobCursor(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrorCodeBadRequest, err.Error()).
			WithTraceID(dto.GetTraceID(c)))

		return
	}

	jobs := h.service.ListJobs()
	sort.SliceStable(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID < jobs[j].ID
		}

		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})

	if after != nil {
		jobs = jobsAfter(jobs, after)
	}

	limit := req.GetLimit()
	if len(jobs) > limit+1 {
		jobs = jobs[:limit+1]
	}

	c.JSON(http.StatusOK, dto.NewPaginatedResponse(jobs, limit, func(job process.JobView) *dto.CursorData {
		return dto.NewCursor(jobCursorField, job.CreatedAt.Format(time.RFC3339Nano), job.ID)
	}))
}

// ExecuteJobs handles POST /api/v1/jobs/execute.
func (h *EngineHandler) ExecuteJobs(c *gin.Context) {
	executed, err := h.service.ExecuteJobs(c.Request.Context())
	if err != nil && c.Request.Context().Err() != nil {
		dto.HandleError(c, err)
		return
	}

	resp := dto.ExecuteJobsResponse{
		Executed: executed,
		Pending:  h.service.PendingJobs(),
	}
	if err != nil {
		resp.LastError = err.Error()
	}

	c.JSON(http.StatusOK, resp)
}

// RegisterRoutes registers the process API on the given router group:
//   - POST /process-instances
//   - GET /process-instances/:id
//   - GET /process-definitions
//   - GET /jobs
//   - POST /jobs/execute
func (h *EngineHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/process-instances", h.StartInstance)
	rg.GET("/process-instances/:id", h.GetInstance)
	rg.GET("/process-definitions", h.ListDefinitions)
	rg.GET("/jobs", h.ListJobs)
	rg.POST("/jobs/execute", h.ExecuteJobs)
}

// jobPosition is the decoded position of a job list cursor.
type jobPosition struct {
	createdAt time.Time
	id        string
}

// jobCursor returns the position of the request cursor, or nil on the first page.
func jobCursor(req *dto.PaginationRequest) (*jobPosition, error) {
	cursor, err := req.CursorFor(jobCursorField)
	if errors.Is(err, dto.ErrNoCursor) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	at, err := time.Parse(time.RFC3339Nano, cursor.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: bad %s value", dto.ErrInvalidCursor, jobCursorField)
	}

	return &jobPosition{createdAt: at, id: cursor.ID}, nil
}

func jobsAfter(jobs []process.JobView, pos *jobPosition) []process.JobView {
	for i, job := range jobs {
		if job.CreatedAt.After(pos.createdAt) || (job.CreatedAt.Equal(pos.createdAt) && job.ID > pos.id) {
			return jobs[i:]
		}
	}

	return nil
}
