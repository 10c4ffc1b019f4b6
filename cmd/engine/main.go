// Package main is the entry point for the process engine.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/jsamuelsen/process-engine/internal/adapters/application"
	"github.com/jsamuelsen/process-engine/internal/adapters/connector"
	"github.com/jsamuelsen/process-engine/internal/adapters/http"
	"github.com/jsamuelsen/process-engine/internal/adapters/http/handlers"
	"github.com/jsamuelsen/process-engine/internal/app/command"
	"github.com/jsamuelsen/process-engine/internal/app/correlation"
	"github.com/jsamuelsen/process-engine/internal/app/process"
	"github.com/jsamuelsen/process-engine/internal/domain"
	"github.com/jsamuelsen/process-engine/internal/platform/config"
	"github.com/jsamuelsen/process-engine/internal/platform/logging"
	"github.com/jsamuelsen/process-engine/internal/platform/metrics"
	"github.com/jsamuelsen/process-engine/internal/platform/telemetry"
	"github.com/jsamuelsen/process-engine/internal/ports"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the engine.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildTime is the timestamp when the binary was built.
	BuildTime = "unknown"
)

// demoApplication owns the demo deployment.
const demoApplication = "invoicing"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Determine profile from environment
	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	// 2. Load and validate configuration (fail fast)
	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// 3. Initialize logging
	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	logging.SetDefault(logger)

	logger.Info("starting engine",
		slog.String("engine", cfg.Engine.Name),
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
	)

	// 4. Initialize telemetry (noop if disabled)
	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
		Insecure:     cfg.Telemetry.Insecure,
		EngineName:   cfg.Engine.Name,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	instruments, err := telemetry.NewCommandInstruments()
	if err != nil {
		return fmt.Errorf("creating command instruments: %w", err)
	}

	// 5. Prometheus registry for the engine metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	observer, err := metrics.NewObserver(registry)
	if err != nil {
		return fmt.Errorf("registering engine metrics: %w", err)
	}

	// 6. Health registry and process applications
	healthRegistry := ports.NewHealthRegistry()
	applications := application.NewRegistry(logger)

	if err := healthRegistry.Register(applications); err != nil {
		return fmt.Errorf("registering application health check: %w", err)
	}

	// 7. Execution core
	executor := command.NewExecutor(&command.ExecutorConfig{
		Logger:            logger,
		Switcher:          applications,
		Observer:          observer,
		Correlation:       correlationNames(&cfg.Correlation),
		Instruments:       instruments,
		EngineName:        cfg.Engine.Name,
		VerboseStackTrace: cfg.Engine.StackTrace.Verbose,
	})

	service := process.NewService(&process.ServiceConfig{
		Executor: executor,
		Jobs:     process.NewJobQueue(cfg.Engine.Jobs.Retries, logger),
		Logger:   logger,
	})

	if err := metrics.RegisterJobsPending(registry, service.PendingJobs); err != nil {
		return fmt.Errorf("registering job metrics: %w", err)
	}

	// 8. Connector for service activities (optional)
	approve := process.Log("invoice approved")

	if cfg.Connector.Enabled {
		client, err := newConnector(&cfg.Connector, logger)
		if err != nil {
			return err
		}

		if err := healthRegistry.Register(client); err != nil {
			return fmt.Errorf("registering connector health check: %w", err)
		}

		approve = connector.Call(client, cfg.Connector.Path)
	}

	// 9. Deploy the demo process into its application
	if err := deployDemo(ctx, service, applications, approve); err != nil {
		return err
	}

	// 10. Create handlers and HTTP server
	buildInfo := handlers.NewBuildInfo(Version, Commit, BuildTime, cfg.Engine.Name)
	server := http.New(&cfg.Server, logger)

	http.SetupRouter(server.Engine(), http.RouterConfig{
		Logger:        logger,
		ServiceName:   cfg.Telemetry.ServiceName,
		HealthHandler: handlers.NewHealthHandler(healthRegistry, buildInfo, registry),
		EngineHandler: handlers.NewEngineHandler(service),
		Timeout:       http.DefaultRequestTimeout,
	})

	// 11. Run the job worker and the server until a signal arrives
	worker := process.NewJobWorker(service, cfg.Engine.Jobs.Interval, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})

	g.Go(func() error {
		if err := server.Run(gctx); err != nil {
			return fmt.Errorf("server error: %w", err)
		}

		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("shutdown complete")

	return nil
}

// correlationNames maps the configured diagnostic names onto the correlation keys.
func correlationNames(c *config.CorrelationConfig) correlation.Names {
	return correlation.Names{
		correlation.ActivityID:      c.ActivityID,
		correlation.ActivityName:    c.ActivityName,
		correlation.ApplicationName: c.ApplicationName,
		correlation.BusinessKey:     c.BusinessKey,
		correlation.DefinitionID:    c.DefinitionID,
		correlation.InstanceID:      c.InstanceID,
		correlation.TenantID:        c.TenantID,
		correlation.EngineName:      c.EngineName,
	}
}

func newConnector(c *config.ConnectorConfig, logger *slog.Logger) (*connector.Client, error) {
	client, err := connector.New(&connector.Config{
		Name:    c.Name,
		BaseURL: c.URL,
		Timeout: c.Timeout,
		Retry: connector.RetryPolicy{
			MaxAttempts:     c.Retry.Attempts,
			InitialInterval: c.Retry.Initial,
			MaxInterval:     c.Retry.Max,
			Multiplier:      c.Retry.Multiplier,
		},
		Breaker: connector.BreakerConfig{
			MaxFailures:   c.Circuit.Failures,
			Cooldown:      c.Circuit.Cooldown,
			HalfOpenLimit: c.Circuit.HalfOpen,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating connector: %w", err)
	}

	return client, nil
}

// deployDemo deploys the invoice process and binds it to its application.
// The approval step is an asynchronous continuation run by the job worker.
func deployDemo(
	ctx context.Context,
	service *process.Service,
	applications *application.Registry,
	approve domain.ActivityBehavior,
) error {
	if err := applications.Register(domain.Application{Name: demoApplication}); err != nil {
		return fmt.Errorf("registering application: %w", err)
	}

	def, err := service.Deploy(ctx, domain.ProcessDefinition{
		Key: "invoice",
		Activities: []domain.Activity{
			{ID: "receive", Name: "Receive invoice", Behavior: process.Log("invoice received")},
			{ID: "approve", Name: "Approve invoice", AsyncBefore: true, Behavior: approve},
			{ID: "archive", Name: "Archive invoice", Behavior: process.Log("invoice archived")},
		},
	})
	if err != nil {
		return fmt.Errorf("deploying invoice process: %w", err)
	}

	if err := applications.Bind(def.DeploymentID, demoApplication); err != nil {
		return fmt.Errorf("binding invoice deployment: %w", err)
	}

	return nil
}
