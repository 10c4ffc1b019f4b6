// Package process runs linear process definitions on the invocation trampoline.
//
// Each step of an instance is an atomic operation that requests its successor
// from the trampoline instead of calling it:
//
//	process-start -> activity-start -> activity-execute -> activity-end
//	                       ^                                   |
//	                       +---------- transition-take <-------+
//	                                                           |
//	                                      process-end <--------+
//
// An activity marked AsyncBefore is entered through an asynchronous
// continuation: transition-take hands activity-start to the job queue.
package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	appcontext "github.com/jsamuelsen/process-engine/internal/app/context"
	"github.com/jsamuelsen/process-engine/internal/domain"
	"github.com/jsamuelsen/process-engine/internal/platform/logging"
	"github.com/jsamuelsen/process-engine/internal/ports"
)

// ErrNoInvocationContext is returned when an operation runs outside a command.
var ErrNoInvocationContext = errors.New("operation requires an invocation context")

// Atomic operations of a linear process.
var (
	ProcessStart    ports.AtomicOperation = processStart{}
	ActivityStart   ports.AtomicOperation = activityStart{}
	ActivityExecute ports.AtomicOperation = activityExecute{}
	ActivityEnd     ports.AtomicOperation = activityEnd{}
	TransitionTake  ports.AtomicOperation = transitionTake{}
	ProcessEnd      ports.AtomicOperation = processEnd{}
)

// unlessEnded skips operations queued for executions that ended meanwhile.
type unlessEnded struct{}

func (unlessEnded) CanExecute(execution ports.Execution) bool {
	return !execution.IsEnded()
}

func prepare(ctx context.Context, execution ports.Execution) (*appcontext.InvocationContext, *domain.Execution, error) {
	ic := appcontext.FromContext(ctx)
	if ic == nil {
		return nil, nil, ErrNoInvocationContext
	}

	cursor, ok := execution.(*domain.Execution)
	if !ok {
		return nil, nil, domain.NewEngineError(fmt.Sprintf("unsupported execution type %T", execution), nil)
	}

	return ic, cursor, nil
}

type processStart struct{ unlessEnded }

func (processStart) Name() string         { return "process-start" }
func (processStart) IsAsyncCapable() bool { return true }

func (processStart) Execute(ctx context.Context, execution ports.Execution) error {
	ic, cursor, err := prepare(ctx, execution)
	if err != nil {
		return err
	}

	cursor.Start()

	logging.FromContext(ctx).DebugContext(ctx, "process instance started",
		slog.String("process_instance_id", cursor.ProcessInstanceID()),
		slog.String("definition_id", cursor.ProcessDefinitionID()),
	)

	return ic.PerformOperation(ctx, ActivityStart, cursor)
}

type activityStart struct{ unlessEnded }

func (activityStart) Name() string         { return "activity-start" }
func (activityStart) IsAsyncCapable() bool { return true }

func (activityStart) Execute(ctx context.Context, execution ports.Execution) error {
	ic, cursor, err := prepare(ctx, execution)
	if err != nil {
		return err
	}

	cursor.Visit()

	return ic.PerformOperation(ctx, ActivityExecute, cursor)
}

type activityExecute struct{ unlessEnded }

func (activityExecute) Name() string         { return "activity-execute" }
func (activityExecute) IsAsyncCapable() bool { return false }

func (activityExecute) Execute(ctx context.Context, execution ports.Execution) error {
	ic, cursor, err := prepare(ctx, execution)
	if err != nil {
		return err
	}

	activity, ok := cursor.Activity()
	if !ok {
		return domain.NewEngineError("execution "+cursor.ID()+" is not on an activity", nil)
	}

	if activity.Behavior != nil {
		if err := activity.Behavior(ctx, cursor); err != nil {
			return err
		}
	}

	return ic.PerformOperation(ctx, ActivityEnd, cursor)
}

type activityEnd struct{ unlessEnded }

func (activityEnd) Name() string         { return "activity-end" }
func (activityEnd) IsAsyncCapable() bool { return true }

func (activityEnd) Execute(ctx context.Context, execution ports.Execution) error {
	ic, cursor, err := prepare(ctx, execution)
	if err != nil {
		return err
	}

	if _, ok := cursor.NextActivity(); ok {
		return ic.PerformOperation(ctx, TransitionTake, cursor)
	}

	return ic.PerformOperation(ctx, ProcessEnd, cursor)
}

type transitionTake struct{ unlessEnded }

func (transitionTake) Name() string         { return "transition-take" }
func (transitionTake) IsAsyncCapable() bool { return true }

func (transitionTake) Execute(ctx context.Context, execution ports.Execution) error {
	ic, cursor, err := prepare(ctx, execution)
	if err != nil {
		return err
	}

	if !cursor.Advance() {
		return domain.NewEngineError("no outgoing transition from "+cursor.ActivityID(), nil)
	}

	if activity, _ := cursor.Activity(); activity.AsyncBefore {
		return ic.PerformOperationAsync(ctx, ActivityStart, cursor)
	}

	return ic.PerformOperation(ctx, ActivityStart, cursor)
}

type processEnd struct{ unlessEnded }

func (processEnd) Name() string         { return "process-end" }
func (processEnd) IsAsyncCapable() bool { return true }

func (processEnd) Execute(ctx context.Context, execution ports.Execution) error {
	_, cursor, err := prepare(ctx, execution)
	if err != nil {
		return err
	}

	cursor.End()

	logging.FromContext(ctx).DebugContext(ctx, "process instance ended",
		slog.String("process_instance_id", cursor.ProcessInstanceID()),
		slog.Int("activities", len(cursor.Visited())),
	)

	return nil
}
