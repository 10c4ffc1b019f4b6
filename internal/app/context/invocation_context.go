package context

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jsamuelsen/process-engine/internal/app/correlation"
	"github.com/jsamuelsen/process-engine/internal/app/trace"
	"github.com/jsamuelsen/process-engine/internal/domain"
	"github.com/jsamuelsen/process-engine/internal/platform/logging"
	"github.com/jsamuelsen/process-engine/internal/ports"
)

type ctxKey struct{}

// Config configures an InvocationContext. Only Command is required.
type Config struct {
	// Command names the command owning the unit of work.
	Command string

	Logger *slog.Logger

	// Diagnostics receives the correlation values. Defaults to the process MDC.
	Diagnostics ports.DiagnosticBackend

	// Correlation maps correlation keys to ambient names. Nil uses the defaults.
	Correlation correlation.Names

	StackTrace ports.StackTrace
	Switcher   ports.ContextSwitcher
	Scheduler  ports.AsyncScheduler
	Observer   ports.InvocationObserver

	// VerboseStackTrace prints every invocation instead of the activity path.
	VerboseStackTrace bool
}

// InvocationContext is the trampoline of one unit of work. It owns the pending
// invocations, the correlation stack and the failure slot.
//
// An InvocationContext is not safe for concurrent use. It is driven by the
// goroutine running its command.
type InvocationContext struct {
	command string
	logger  *slog.Logger

	// pending is used as a stack: the last element is the front.
	pending  []*Invocation
	draining bool
	failure  failureCell

	// reported is the last failure logged by invokeNext. Outer invocations
	// returning it, or an error wrapping it, do not log it again.
	reported error

	correlation *correlation.Stack
	stackTrace  ports.StackTrace
	switcher    ports.ContextSwitcher
	scheduler   ports.AsyncScheduler
	observer    ports.InvocationObserver
	verbose     bool
}

// New creates an InvocationContext.
func New(cfg Config) *InvocationContext {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	diagnostics := cfg.Diagnostics
	if diagnostics == nil {
		diagnostics = logging.MDCFromContext(context.Background())
	}

	stackTrace := cfg.StackTrace
	if stackTrace == nil {
		stackTrace = trace.New(logger)
	}

	switcher := cfg.Switcher
	if switcher == nil {
		switcher = noSwitch{}
	}

	observer := cfg.Observer
	if observer == nil {
		observer = ports.NopObserver{}
	}

	return &InvocationContext{
		command:     cfg.Command,
		logger:      logger,
		correlation: correlation.New(diagnostics, cfg.Correlation),
		stackTrace:  stackTrace,
		switcher:    switcher,
		scheduler:   cfg.Scheduler,
		observer:    observer,
		verbose:     cfg.VerboseStackTrace,
	}
}

// FromContext extracts the InvocationContext, returns nil if not present.
func FromContext(ctx context.Context) *InvocationContext {
	if ctx == nil {
		return nil
	}

	if ic, ok := ctx.Value(ctxKey{}).(*InvocationContext); ok {
		return ic
	}

	return nil
}

// WithContext stores the InvocationContext in the context.
func WithContext(ctx context.Context, ic *InvocationContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, ic)
}

// Command returns the name of the owning command.
func (ic *InvocationContext) Command() string { return ic.command }

// Correlation returns the correlation stack of the unit of work.
func (ic *InvocationContext) Correlation() *correlation.Stack { return ic.correlation }

// Pending returns the number of invocations not yet performed.
func (ic *InvocationContext) Pending() int { return len(ic.pending) }

// IsDraining reports whether the drain loop is active.
func (ic *InvocationContext) IsDraining() bool { return ic.draining }

// Failure returns the first recorded failure, or nil.
func (ic *InvocationContext) Failure() error { return ic.failure.Get() }

// PerformOperation requests operation to run on execution.
func (ic *InvocationContext) PerformOperation(ctx context.Context, operation ports.AtomicOperation, execution ports.Execution) error {
	return ic.Enqueue(ctx, operation, execution, false)
}

// PerformOperationAsync requests operation to run on execution as an
// asynchronous continuation.
func (ic *InvocationContext) PerformOperationAsync(ctx context.Context, operation ports.AtomicOperation, execution ports.Execution) error {
	return ic.Enqueue(ctx, operation, execution, true)
}

// Enqueue puts a new invocation at the front of the pending invocations and
// dispatches. The returned error is the failure of whatever operation ran,
// unchanged. It is nil when the invocation was left to an active drain loop.
func (ic *InvocationContext) Enqueue(
	ctx context.Context,
	operation ports.AtomicOperation,
	execution ports.Execution,
	async bool,
) error {
	if execution == nil {
		return domain.NewValidationError("execution", "cannot be nil")
	}

	ic.pending = append(ic.pending, newInvocation(operation, execution, async))

	return ic.dispatch(ctx)
}

func (ic *InvocationContext) front() *Invocation {
	if len(ic.pending) == 0 {
		return nil
	}

	return ic.pending[len(ic.pending)-1]
}

func (ic *InvocationContext) dispatch(ctx context.Context) error {
	next := ic.front()
	if next == nil {
		return nil
	}

	if next.operation.IsAsyncCapable() && ic.draining {
		// the active drain loop picks it up
		return nil
	}

	target := ic.switcher.TargetApplication(next.execution)
	if target != nil && ic.switcher.RequiresSwitch(ctx, target) {
		ic.observer.ContextSwitched(target.Name)
		ic.logger.DebugContext(ctx, "switching process application",
			slog.String("application", target.Name),
			slog.String("execution", next.execution.ID()),
		)

		err := ic.switcher.RunInApplication(ctx, target, next.execution, ic.dispatch)
		ic.UpdateCorrelation()

		return err
	}

	if !next.operation.IsAsyncCapable() {
		return ic.invokeNext(ctx)
	}

	return ic.drain(ctx)
}

// drain performs pending invocations until none is left. Every invocation is
// assumed to belong to the application that was ambient when the loop started.
func (ic *InvocationContext) drain(ctx context.Context) error {
	ic.draining = true
	invoked := 0

	defer func() {
		ic.draining = false
		ic.observer.DrainCompleted(invoked)
	}()

	for len(ic.pending) > 0 {
		if err := ic.invokeNext(ctx); err != nil {
			return err
		}

		invoked++
	}

	return nil
}

func (ic *InvocationContext) invokeNext(ctx context.Context) error {
	last := len(ic.pending) - 1
	inv := ic.pending[last]
	ic.pending[last] = nil
	ic.pending = ic.pending[:last]

	if ic.correlation.Push(correlation.InstanceID, inv.execution.ProcessInstanceID()) {
		defer ic.correlation.Pop(correlation.InstanceID)
	}

	if err := inv.run(ctx, ic); err != nil {
		if ic.reported == nil || !errors.Is(err, ic.reported) {
			ic.reported = err
			ic.logger.ErrorContext(ctx, "operation failed",
				slog.String("operation", inv.operation.Name()),
				slog.String("execution", inv.execution.ID()),
				slog.String("process_instance_id", inv.execution.ProcessInstanceID()),
				slog.String("activity_id", inv.activityID),
				slog.Any("error", err),
			)
			ic.stackTrace.Print(ctx, ic.verbose)
		}

		return err
	}

	return nil
}

// TrySetFailure records err as the failure of the unit of work unless one was
// recorded before, in which case err is logged as masked and dropped.
func (ic *InvocationContext) TrySetFailure(ctx context.Context, err error) {
	if err == nil {
		return
	}

	if ic.failure.Set(err) {
		ic.observer.FailureRecorded(false)
		return
	}

	ic.observer.FailureRecorded(true)
	ic.logger.WarnContext(ctx, "masked exception in command context",
		slog.String("command", ic.command),
		slog.Any("error", ic.failure.Get()),
		slog.Any("masked", err),
	)
}

// Rethrow returns the recorded failure classified for the command layer, or
// nil when the unit of work did not fail.
func (ic *InvocationContext) Rethrow() error {
	if !ic.failure.IsSet() {
		return nil
	}

	err := ic.failure.Get()

	switch {
	case domain.IsFatal(err):
		return err
	case domain.IsPersistence(err) && !domain.IsEngine(err):
		return domain.NewEngineError("process engine persistence exception", err)
	case domain.IsRecognized(err):
		return err
	default:
		return domain.NewCommandError(ic.command, err)
	}
}

// UpdateCorrelation republishes the correlation stack into the diagnostic backend.
func (ic *InvocationContext) UpdateCorrelation() {
	ic.correlation.Sync()
}

// ClearCorrelation removes every correlation value from the diagnostic backend.
func (ic *InvocationContext) ClearCorrelation() {
	ic.correlation.Clear()
}

// noSwitch keeps every execution in the ambient application.
type noSwitch struct{}

func (noSwitch) TargetApplication(ports.Execution) *domain.Application { return nil }

func (noSwitch) CurrentApplication(context.Context) *domain.Application { return nil }

func (noSwitch) RequiresSwitch(context.Context, *domain.Application) bool { return false }

func (noSwitch) RunInApplication(
	ctx context.Context,
	_ *domain.Application,
	_ ports.Execution,
	fn func(ctx context.Context) error,
) error {
	return fn(ctx)
}
