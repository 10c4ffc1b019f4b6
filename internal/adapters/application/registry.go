// Package application implements the context switch boundary: a registry of
// process applications, the deployments bound to them and the application
// ambient in a context.Context.
package application

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/jsamuelsen/process-engine/internal/domain"
	"github.com/jsamuelsen/process-engine/internal/platform/logging"
	"github.com/jsamuelsen/process-engine/internal/ports"
)

var (
	// ErrDuplicateApplication is returned when registering a name twice.
	ErrDuplicateApplication = errors.New("duplicate process application")

	// ErrNoApplications is reported by Check while nothing is registered.
	ErrNoApplications = errors.New("no process application registered")
)

type ctxKey struct{}

// WithApplication makes app ambient in ctx.
func WithApplication(ctx context.Context, app *domain.Application) context.Context {
	return context.WithValue(ctx, ctxKey{}, app)
}

// FromContext returns the ambient application of ctx, or nil.
func FromContext(ctx context.Context) *domain.Application {
	if ctx == nil {
		return nil
	}

	app, _ := ctx.Value(ctxKey{}).(*domain.Application)

	return app
}

// Registry implements ports.ContextSwitcher and ports.HealthChecker.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	apps     map[string]*domain.Application
	bindings map[string]string
	logger   *slog.Logger
}

// NewRegistry creates an empty registry. Defaults logger to slog.Default() if nil.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		apps:     make(map[string]*domain.Application),
		bindings: make(map[string]string),
		logger:   logger,
	}
}

// Register adds an application.
func (r *Registry) Register(app domain.Application) error {
	if app.Name == "" {
		return domain.NewValidationError("name", "cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.apps[app.Name]; exists {
		return ErrDuplicateApplication
	}

	r.apps[app.Name] = &app

	r.logger.Info("process application registered", slog.String("application", app.Name))

	return nil
}

// Unregister removes an application and every deployment bound to it.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.apps, name)

	for deployment, bound := range r.bindings {
		if bound == name {
			delete(r.bindings, deployment)
		}
	}
}

// Bind routes executions of a deployment to the named application.
func (r *Registry) Bind(deploymentID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.apps[name]; !ok {
		return domain.NewNotFoundError("process application", name)
	}

	r.bindings[deploymentID] = name

	return nil
}

// Applications returns the registered names, sorted.
func (r *Registry) Applications() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.apps))
	for name := range r.apps {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// TargetApplication implements ports.ContextSwitcher.
func (r *Registry) TargetApplication(execution ports.Execution) *domain.Application {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.bindings[execution.DeploymentID()]
	if !ok {
		return nil
	}

	return r.apps[name]
}

// CurrentApplication implements ports.ContextSwitcher.
func (r *Registry) CurrentApplication(ctx context.Context) *domain.Application {
	return FromContext(ctx)
}

// RequiresSwitch implements ports.ContextSwitcher.
func (r *Registry) RequiresSwitch(ctx context.Context, target *domain.Application) bool {
	if target == nil {
		return false
	}

	current := FromContext(ctx)

	return current == nil || current.Name != target.Name
}

// RunInApplication implements ports.ContextSwitcher. The context given to fn
// carries target as its ambient application and a logger tagged with it.
func (r *Registry) RunInApplication(
	ctx context.Context,
	target *domain.Application,
	execution ports.Execution,
	fn func(ctx context.Context) error,
) error {
	ctx = WithApplication(ctx, target)
	ctx = logging.WithApplication(ctx, target.Name)

	r.logger.Log(ctx, logging.LevelTrace, "entering process application",
		slog.String("application", target.Name),
		slog.String("execution", execution.ID()),
	)

	return fn(ctx)
}

// Name implements ports.HealthChecker.
func (r *Registry) Name() string { return "applications" }

// Check implements ports.HealthChecker. The registry is healthy once at least
// one application is registered.
func (r *Registry) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.apps) == 0 {
		return ErrNoApplications
	}

	return nil
}
