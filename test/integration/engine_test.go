//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/process-engine/internal/adapters/application"
	"github.com/jsamuelsen/process-engine/internal/adapters/connector"
	httpadapter "github.com/jsamuelsen/process-engine/internal/adapters/http"
	"github.com/jsamuelsen/process-engine/internal/adapters/http/handlers"
	"github.com/jsamuelsen/process-engine/internal/app/command"
	"github.com/jsamuelsen/process-engine/internal/app/correlation"
	"github.com/jsamuelsen/process-engine/internal/app/process"
	"github.com/jsamuelsen/process-engine/internal/domain"
	"github.com/jsamuelsen/process-engine/internal/platform/config"
	"github.com/jsamuelsen/process-engine/internal/platform/logging"
	"github.com/jsamuelsen/process-engine/internal/platform/metrics"
	"github.com/jsamuelsen/process-engine/internal/ports"
)

const testApplication = "invoicing"

var testServerConfig = config.ServerConfig{
	Host:            "127.0.0.1",
	Port:            8080,
	ReadTimeout:     5 * time.Second,
	WriteTimeout:    5 * time.Second,
	IdleTimeout:     5 * time.Second,
	ShutdownTimeout: 5 * time.Second,
	MaxRequestSize:  1 << 20,
}

// syncBuffer is a log sink shared by concurrent requests.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

// engine is a fully wired engine behind an httptest server.
type engine struct {
	server   *httptest.Server
	service  *process.Service
	registry *prometheus.Registry
	logs     *syncBuffer
}

// engineOptions customizes startEngine.
type engineOptions struct {
	// connectorURL routes the approval step through a connector when set.
	connectorURL string
	jobRetries   int
}

// startEngine wires the engine the way cmd/engine does, with the invoice
// process deployed into the invoicing application.
func startEngine(t *testing.T, opts engineOptions) *engine {
	t.Helper()

	logs := &syncBuffer{}
	logger := logging.NewWithWriter(&logging.Config{Level: "debug", Format: "json", Service: "process-engine"}, logs)

	registry := prometheus.NewRegistry()
	observer, err := metrics.NewObserver(registry)
	require.NoError(t, err)

	healthRegistry := ports.NewHealthRegistry()
	applications := application.NewRegistry(logger)
	require.NoError(t, healthRegistry.Register(applications))
	require.NoError(t, applications.Register(domain.Application{Name: testApplication}))

	executor := command.NewExecutor(&command.ExecutorConfig{
		Logger:   logger,
		Switcher: applications,
		Observer: observer,
		Correlation: correlation.Names{
			correlation.ActivityID:  "activityId",
			correlation.InstanceID:  "instanceId",
			correlation.BusinessKey: "businessKey",
		},
		EngineName: "integration",
	})

	retries := opts.jobRetries
	if retries == 0 {
		retries = process.DefaultJobRetries
	}

	service := process.NewService(&process.ServiceConfig{
		Executor: executor,
		Jobs:     process.NewJobQueue(retries, logger),
		Logger:   logger,
	})
	require.NoError(t, metrics.RegisterJobsPending(registry, service.PendingJobs))

	approve := process.Log("invoice approved")

	if opts.connectorURL != "" {
		client, err := connector.New(&connector.Config{
			Name:    "billing",
			BaseURL: opts.connectorURL,
			Timeout: 2 * time.Second,
			Retry:   connector.RetryPolicy{MaxAttempts: 1},
			Logger:  logger,
		})
		require.NoError(t, err)
		require.NoError(t, healthRegistry.Register(client))

		approve = connector.Call(client, "/approvals")
	}

	def, err := service.Deploy(t.Context(), domain.ProcessDefinition{
		Key: "invoice",
		Activities: []domain.Activity{
			{ID: "receive", Name: "Receive invoice", Behavior: process.Log("invoice received")},
			{ID: "approve", Name: "Approve invoice", AsyncBefore: true, Behavior: approve},
			{ID: "archive", Name: "Archive invoice", Behavior: process.Log("invoice archived")},
		},
	})
	require.NoError(t, err)
	require.NoError(t, applications.Bind(def.DeploymentID, testApplication))

	router := httpadapter.New(&testServerConfig, logger).Engine()
	httpadapter.SetupRouter(router, httpadapter.RouterConfig{
		Logger:        logger,
		ServiceName:   "process-engine",
		HealthHandler: handlers.NewHealthHandler(healthRegistry, handlers.NewBuildInfo("test", "abc123", "now", "integration"), registry),
		EngineHandler: handlers.NewEngineHandler(service),
		Timeout:       httpadapter.DefaultRequestTimeout,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &engine{server: server, service: service, registry: registry, logs: logs}
}

// do sends a request and returns the status and body.
func (e *engine) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(t.Context(), method, e.server.URL+path, reader)
	require.NoError(t, err)

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, data
}

// start starts an invoice instance and decodes the created view.
func (e *engine) start(t *testing.T, businessKey string) process.InstanceView {
	t.Helper()

	status, body := e.do(t, http.MethodPost, "/api/v1/process-instances",
		`{"definitionKey":"invoice","businessKey":"`+businessKey+`"}`)
	require.Equal(t, http.StatusCreated, status, string(body))

	var view process.InstanceView
	require.NoError(t, json.Unmarshal(body, &view))

	return view
}

// instance fetches an instance view.
func (e *engine) instance(t *testing.T, id string) process.InstanceView {
	t.Helper()

	status, body := e.do(t, http.MethodGet, "/api/v1/process-instances/"+id, "")
	require.Equal(t, http.StatusOK, status, string(body))

	var view process.InstanceView
	require.NoError(t, json.Unmarshal(body, &view))

	return view
}
