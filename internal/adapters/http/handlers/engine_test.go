package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/process-engine/internal/adapters/http/dto"
	"github.com/jsamuelsen/process-engine/internal/app/process"
	"github.com/jsamuelsen/process-engine/internal/domain"
)

func newEngineRouter(t *testing.T, activities ...domain.Activity) (*gin.Engine, *process.Service) {
	t.Helper()

	service := process.NewService(&process.ServiceConfig{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	if len(activities) == 0 {
		activities = []domain.Activity{{ID: "receive"}, {ID: "approve"}, {ID: "archive"}}
	}

	_, err := service.Deploy(t.Context(), domain.ProcessDefinition{Key: "invoice", Activities: activities})
	require.NoError(t, err)

	router := gin.New()
	NewEngineHandler(service).RegisterRoutes(router.Group("/api/v1"))

	return router, service
}

func serve(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func TestEngineHandler_StartInstance(t *testing.T) {
	router, _ := newEngineRouter(t)

	w := serve(router, http.MethodPost, "/api/v1/process-instances", `{"definitionKey":"invoice","businessKey":"order-7"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var view process.InstanceView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.True(t, view.Ended)
	assert.Equal(t, "order-7", view.BusinessKey)
	assert.Equal(t, []string{"receive", "approve", "archive"}, view.Visited)

	w = serve(router, http.MethodGet, "/api/v1/process-instances/"+view.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"`+view.ID+`"`)
}

func TestEngineHandler_StartInstanceErrors(t *testing.T) {
	router, _ := newEngineRouter(t,
		domain.Activity{ID: "receive"},
		domain.Activity{ID: "approve", Behavior: func(context.Context, *domain.Execution) error {
			return errors.New("boom")
		}},
	)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{name: "malformed body", body: `{invalid}`, wantStatus: http.StatusBadRequest, wantCode: dto.ErrorCodeBadRequest},
		{name: "missing definition key", body: `{"businessKey":"b"}`, wantStatus: http.StatusBadRequest, wantCode: dto.ErrorCodeValidation},
		{name: "unknown definition", body: `{"definitionKey":"payroll"}`, wantStatus: http.StatusNotFound, wantCode: dto.ErrorCodeNotFound},
		{name: "failing activity", body: `{"definitionKey":"invoice"}`, wantStatus: http.StatusInternalServerError, wantCode: dto.ErrorCodeEngine},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, http.MethodPost, "/api/v1/process-instances", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)

			var resp dto.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestEngineHandler_GetInstanceErrors(t *testing.T) {
	router, _ := newEngineRouter(t)

	w := serve(router, http.MethodGet, "/api/v1/process-instances/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "must be a valid UUID")

	w = serve(router, http.MethodGet, "/api/v1/process-instances/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEngineHandler_ListDefinitions(t *testing.T) {
	router, _ := newEngineRouter(t)

	w := serve(router, http.MethodGet, "/api/v1/process-definitions", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items []dto.DefinitionResponse `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "invoice", resp.Items[0].Key)
	assert.Equal(t, 1, resp.Items[0].Version)
	assert.Equal(t, []string{"receive", "approve", "archive"}, resp.Items[0].Activities)
}

func TestEngineHandler_Jobs(t *testing.T) {
	router, _ := newEngineRouter(t,
		domain.Activity{ID: "receive"},
		domain.Activity{ID: "approve", AsyncBefore: true},
		domain.Activity{ID: "archive"},
	)

	for range 3 {
		w := serve(router, http.MethodPost, "/api/v1/process-instances", `{"definitionKey":"invoice"}`)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"ended":false`)
	}

	w := serve(router, http.MethodGet, "/api/v1/jobs?limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)

	var page dto.PaginatedResponse[process.JobView]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, "approve", page.Items[0].ActivityID)

	w = serve(router, http.MethodGet, "/api/v1/jobs?limit=2&cursor="+page.NextCursor, "")
	require.Equal(t, http.StatusOK, w.Code)

	var next dto.PaginatedResponse[process.JobView]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &next))
	require.Len(t, next.Items, 1)
	assert.False(t, next.HasMore)
	assert.NotEqual(t, page.Items[0].ID, next.Items[0].ID)
	assert.NotEqual(t, page.Items[1].ID, next.Items[0].ID)

	w = serve(router, http.MethodPost, "/api/v1/jobs/execute", "")
	require.Equal(t, http.StatusOK, w.Code)

	var ran dto.ExecuteJobsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ran))
	assert.Equal(t, dto.ExecuteJobsResponse{Executed: 3, Pending: 0}, ran)
}

func TestEngineHandler_ListJobsInvalidCursor(t *testing.T) {
	router, _ := newEngineRouter(t)

	w := serve(router, http.MethodGet, "/api/v1/jobs?cursor=invalid-base64!", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), dto.ErrorCodeBadRequest)

	foreign := dto.EncodeCursor(dto.NewCursor("key", "invoice", "invoice:1"))
	w = serve(router, http.MethodGet, "/api/v1/jobs?cursor="+foreign, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `sorted by \"key\"`)

	w = serve(router, http.MethodGet, "/api/v1/jobs", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[],"hasMore":false}`, w.Body.String())
}

func TestEngineHandler_ExecuteJobsFailure(t *testing.T) {
	router, service := newEngineRouter(t,
		domain.Activity{ID: "receive"},
		domain.Activity{ID: "approve", AsyncBefore: true, Behavior: func(context.Context, *domain.Execution) error {
			return errors.New("boom")
		}},
	)

	w := serve(router, http.MethodPost, "/api/v1/process-instances", `{"definitionKey":"invoice"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = serve(router, http.MethodPost, "/api/v1/jobs/execute", "")
	require.Equal(t, http.StatusOK, w.Code)

	var ran dto.ExecuteJobsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ran))
	assert.Equal(t, 1, ran.Executed)
	assert.Equal(t, 1, ran.Pending, "job is requeued while it has retries")
	assert.Contains(t, ran.LastError, "boom")
	assert.Equal(t, 1, service.PendingJobs())
}
