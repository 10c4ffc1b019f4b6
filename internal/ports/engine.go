// Package ports defines interfaces for the collaborators of the execution core.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter for anything that runs process logic
//   - Return domain types, never infrastructure types
//   - Error returns use domain error types (ErrNotFound, ErrPersistence, etc.)
//   - Keep interfaces small and focused (Interface Segregation Principle)
package ports

import (
	"context"

	"github.com/jsamuelsen/process-engine/internal/domain"
)

// Execution is the cursor of a running process instance that an atomic
// operation advances. Implementations are opaque to the trampoline; it only
// reads identifiers from them for correlation and diagnostics.
type Execution interface {
	ID() string
	ProcessInstanceID() string
	ProcessDefinitionID() string
	DeploymentID() string
	BusinessKey() string
	TenantID() string
	ActivityID() string
	ActivityName() string
	IsEnded() bool
	IsCanceled() bool
	String() string
}

// AtomicOperation is a single state transition applicable to an execution.
//
// Execute may call back into the invocation context found in ctx to request
// follow-up operations. Any error it returns aborts the unit of work.
type AtomicOperation interface {
	// Name is the canonical operation name used in logs and stack traces.
	Name() string

	// IsAsyncCapable reports whether the operation may be run by the
	// iterative drain loop instead of being invoked right away.
	IsAsyncCapable() bool

	// Execute performs the transition on the execution.
	Execute(ctx context.Context, execution Execution) error
}

// ConditionalOperation is an optional extension of AtomicOperation.
// When CanExecute returns false the invocation is consumed without running,
// e.g. for executions that ended or were canceled while the invocation was queued.
type ConditionalOperation interface {
	CanExecute(execution Execution) bool
}

// ContextSwitcher is the boundary that decides which process application an
// execution belongs to and runs code inside that application's environment.
type ContextSwitcher interface {
	// TargetApplication returns the application the execution must run in,
	// or nil when it is not bound to any application.
	TargetApplication(execution Execution) *domain.Application

	// CurrentApplication returns the application that is ambient in ctx, or nil.
	CurrentApplication(ctx context.Context) *domain.Application

	// RequiresSwitch reports whether target differs from the ambient application.
	RequiresSwitch(ctx context.Context, target *domain.Application) bool

	// RunInApplication invokes fn with target made ambient in the context
	// passed to it. The caller's context is left untouched.
	RunInApplication(
		ctx context.Context,
		target *domain.Application,
		execution Execution,
		fn func(ctx context.Context) error,
	) error
}

// AsyncScheduler hands an invocation that was explicitly requested to run as an
// asynchronous continuation to whatever will pick it up later (e.g. a job).
type AsyncScheduler interface {
	ScheduleAsync(ctx context.Context, operation AtomicOperation, execution Execution) error
}

// DiagnosticBackend is the ambient key/value store read by the logging subsystem.
type DiagnosticBackend interface {
	Put(key, value string)
	Remove(key string)
}

// StackTrace collects the invocations performed in a unit of work and renders
// them when an operation fails. Print must never fail.
type StackTrace interface {
	Add(record domain.InvocationRecord)
	Print(ctx context.Context, verbose bool)
}

// InvocationObserver receives notifications about the trampoline's activity.
// Implementations must be cheap; they are called on every invocation.
type InvocationObserver interface {
	OperationInvoked(operation string, async bool)
	DrainCompleted(invocations int)
	ContextSwitched(application string)
	FailureRecorded(masked bool)
}

// NopObserver is an InvocationObserver that ignores all notifications.
type NopObserver struct{}

// OperationInvoked implements InvocationObserver.
func (NopObserver) OperationInvoked(string, bool) {}

// DrainCompleted implements InvocationObserver.
func (NopObserver) DrainCompleted(int) {}

// ContextSwitched implements InvocationObserver.
func (NopObserver) ContextSwitched(string) {}

// FailureRecorded implements InvocationObserver.
func (NopObserver) FailureRecorded(bool) {}
