// Package command runs engine commands, each as one unit of work with its own
// invocation trampoline.
package command

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	appcontext "github.com/jsamuelsen/process-engine/internal/app/context"
	"github.com/jsamuelsen/process-engine/internal/app/correlation"
	"github.com/jsamuelsen/process-engine/internal/domain"
	"github.com/jsamuelsen/process-engine/internal/platform/logging"
	"github.com/jsamuelsen/process-engine/internal/platform/telemetry"
	"github.com/jsamuelsen/process-engine/internal/ports"
)

// Command is a unit of work. Its body reaches the trampoline through
// appcontext.FromContext(ctx).
type Command[T any] interface {
	Name() string
	Execute(ctx context.Context) (T, error)
}

// Func adapts a function to a Command.
type Func[T any] struct {
	CommandName string
	Fn          func(ctx context.Context) (T, error)
}

// Name implements Command.
func (f Func[T]) Name() string { return f.CommandName }

// Execute implements Command.
func (f Func[T]) Execute(ctx context.Context) (T, error) { return f.Fn(ctx) }

// ExecutorConfig holds the collaborators handed to every trampoline.
type ExecutorConfig struct {
	Logger      *slog.Logger
	Switcher    ports.ContextSwitcher
	Scheduler   ports.AsyncScheduler
	Observer    ports.InvocationObserver
	Correlation correlation.Names
	Instruments *telemetry.CommandInstruments

	// EngineName is published under the engineName correlation key.
	EngineName        string
	VerboseStackTrace bool
}

// Executor runs commands.
type Executor struct {
	cfg    ExecutorConfig
	logger *slog.Logger
}

// NewExecutor creates a new executor. A nil config uses defaults.
func NewExecutor(cfg *ExecutorConfig) *Executor {
	if cfg == nil {
		cfg = &ExecutorConfig{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{cfg: *cfg, logger: logger}
}

// SetScheduler sets the scheduler handed to later commands. It must be called
// before commands start running.
func (e *Executor) SetScheduler(scheduler ports.AsyncScheduler) {
	e.cfg.Scheduler = scheduler
}

// Execute runs cmd in a new unit of work and returns its result, or the
// failure of the unit of work classified by InvocationContext.Rethrow.
// A panic in the command is recovered and surfaces as a fatal error.
func Execute[T any](ctx context.Context, exec *Executor, cmd Command[T]) (result T, err error) {
	var zero T

	name := cmd.Name()
	logger := exec.logger.With(slog.String("command", name))
	start := time.Now()

	if exec.cfg.Instruments != nil {
		var end func(error)

		ctx, end = exec.cfg.Instruments.Start(ctx, name)
		defer func() { end(err) }()
	}

	outer := appcontext.FromContext(ctx)

	ic := appcontext.New(appcontext.Config{
		Command:           name,
		Logger:            logger,
		Diagnostics:       logging.MDCFromContext(ctx),
		Correlation:       exec.cfg.Correlation,
		Switcher:          exec.cfg.Switcher,
		Scheduler:         exec.cfg.Scheduler,
		Observer:          exec.cfg.Observer,
		VerboseStackTrace: exec.cfg.VerboseStackTrace,
	})
	ctx = appcontext.WithContext(ctx, ic)

	defer func() {
		if outer != nil {
			outer.UpdateCorrelation()
			return
		}

		ic.ClearCorrelation()
	}()

	if ic.Correlation().Push(correlation.EngineName, exec.cfg.EngineName) {
		defer ic.Correlation().Pop(correlation.EngineName)
	}

	logger.DebugContext(ctx, "executing command")

	result, runErr := run(ctx, cmd)
	ic.TrySetFailure(ctx, runErr)

	if err = ic.Rethrow(); err != nil {
		level := slog.LevelError
		if domain.IsNotFound(err) || domain.IsValidation(err) {
			level = slog.LevelWarn
		}

		logger.Log(ctx, level, "command failed",
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err),
		)

		return zero, err
	}

	logger.DebugContext(ctx, "command completed",
		slog.Duration("duration", time.Since(start)),
	)

	return result, nil
}

func run[T any](ctx context.Context, cmd Command[T]) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.NewFatalError(r, debug.Stack())
		}
	}()

	return cmd.Execute(ctx)
}
