package domain

import (
	"context"
	"fmt"
)

// Application is a registered process application: the logical environment
// an execution's code must run in.
type Application struct {
	Name string
}

// ActivityBehavior is the business logic run when an activity executes.
type ActivityBehavior func(ctx context.Context, execution *Execution) error

// Activity is a single step of a linear process definition.
type Activity struct {
	ID   string
	Name string

	// AsyncBefore makes the transition into this activity an asynchronous
	// continuation instead of running it in the current unit of work.
	AsyncBefore bool

	// Behavior may be nil for pass-through activities.
	Behavior ActivityBehavior
}

// ProcessDefinition is a deployed, ordered sequence of activities.
type ProcessDefinition struct {
	ID           string
	Key          string
	Version      int
	DeploymentID string
	TenantID     string
	Activities   []Activity
}

// Validate checks the definition is runnable.
func (d *ProcessDefinition) Validate() error {
	if d.Key == "" {
		return NewValidationError("key", "cannot be empty")
	}

	if len(d.Activities) == 0 {
		return NewValidationError("activities", "definition needs at least one activity")
	}

	seen := make(map[string]struct{}, len(d.Activities))
	for i, a := range d.Activities {
		if a.ID == "" {
			return NewValidationError(fmt.Sprintf("activities[%d].id", i), "cannot be empty")
		}

		if _, dup := seen[a.ID]; dup {
			return NewValidationError(fmt.Sprintf("activities[%d].id", i), "duplicate activity id "+a.ID)
		}

		seen[a.ID] = struct{}{}
	}

	return nil
}

// InvocationRecord describes one performed atomic operation invocation, as
// collected by the BPMN stack trace.
type InvocationRecord struct {
	Operation       string
	Execution       string
	ActivityID      string
	ActivityName    string
	ApplicationName string
	Async           bool
}
