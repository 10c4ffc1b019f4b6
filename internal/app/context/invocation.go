package context

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen/process-engine/internal/domain"
	"github.com/jsamuelsen/process-engine/internal/platform/logging"
	"github.com/jsamuelsen/process-engine/internal/ports"
)

// Invocation pairs one atomic operation with the execution it applies to.
// The operation, execution and async flag never change after construction;
// the application and activity are recorded when the invocation runs.
type Invocation struct {
	operation ports.AtomicOperation
	execution ports.Execution
	async     bool

	applicationName string
	activityID      string
	activityName    string
}

func newInvocation(operation ports.AtomicOperation, execution ports.Execution, async bool) *Invocation {
	return &Invocation{
		operation: operation,
		execution: execution,
		async:     async,
	}
}

// Operation returns the atomic operation.
func (inv *Invocation) Operation() ports.AtomicOperation { return inv.operation }

// Execution returns the execution the operation is applied to.
func (inv *Invocation) Execution() ports.Execution { return inv.execution }

// IsAsync reports whether the invocation was requested as an asynchronous continuation.
func (inv *Invocation) IsAsync() bool { return inv.async }

// Record describes the invocation for the BPMN stack trace.
func (inv *Invocation) Record() domain.InvocationRecord {
	return domain.InvocationRecord{
		Operation:       inv.operation.Name(),
		Execution:       inv.execution.String(),
		ActivityID:      inv.activityID,
		ActivityName:    inv.activityName,
		ApplicationName: inv.applicationName,
		Async:           inv.async,
	}
}

// run performs the invocation: it is skipped when the operation cannot run on
// the execution, otherwise recorded, correlated and then either executed or
// handed to the async scheduler.
func (inv *Invocation) run(ctx context.Context, ic *InvocationContext) error {
	if cond, ok := inv.operation.(ports.ConditionalOperation); ok && !cond.CanExecute(inv.execution) {
		ic.logger.Log(ctx, logging.LevelTrace, "skipping operation",
			slog.String("operation", inv.operation.Name()),
			slog.String("execution", inv.execution.ID()),
		)

		return nil
	}

	if app := ic.switcher.CurrentApplication(ctx); app != nil {
		inv.applicationName = app.Name
	}

	inv.activityID = inv.execution.ActivityID()
	inv.activityName = inv.execution.ActivityName()

	ic.stackTrace.Add(inv.Record())

	pushed := ic.correlation.PushSection(inv.execution, inv.applicationName)
	defer ic.correlation.PopAll(pushed)

	ic.observer.OperationInvoked(inv.operation.Name(), inv.async)

	if inv.async {
		if ic.scheduler == nil {
			return fmt.Errorf("%w: %s on %s", ErrNoScheduler, inv.operation.Name(), inv.execution)
		}

		return ic.scheduler.ScheduleAsync(ctx, inv.operation, inv.execution)
	}

	ic.logger.Log(ctx, logging.LevelTrace, "invoking operation",
		slog.String("operation", inv.operation.Name()),
		slog.String("execution", inv.execution.ID()),
	)

	return inv.operation.Execute(ctx, inv.execution)
}
