package domain

import (
	"github.com/google/uuid"
)

// Execution is the cursor of a running linear process instance.
// A linear process has a single execution, so its id doubles as the
// process instance id.
//
// Execution is not safe for concurrent use; it is only touched by the
// unit of work currently advancing it.
type Execution struct {
	id          string
	definition  *ProcessDefinition
	businessKey string
	position    int
	started     bool
	ended       bool
	canceled    bool
	visited     []string
}

// NewExecution creates a process instance positioned before its first activity.
func NewExecution(definition *ProcessDefinition, businessKey string) *Execution {
	return &Execution{
		id:          uuid.NewString(),
		definition:  definition,
		businessKey: businessKey,
		position:    -1,
	}
}

// ID returns the execution id.
func (e *Execution) ID() string { return e.id }

// ProcessInstanceID returns the id of the process instance.
func (e *Execution) ProcessInstanceID() string { return e.id }

// ProcessDefinitionID returns the id of the definition being run.
func (e *Execution) ProcessDefinitionID() string { return e.definition.ID }

// DeploymentID returns the deployment the definition belongs to.
func (e *Execution) DeploymentID() string { return e.definition.DeploymentID }

// BusinessKey returns the business key given at start.
func (e *Execution) BusinessKey() string { return e.businessKey }

// TenantID returns the tenant of the definition.
func (e *Execution) TenantID() string { return e.definition.TenantID }

// Definition returns the process definition.
func (e *Execution) Definition() *ProcessDefinition { return e.definition }

// Activity returns the current activity, if the cursor is on one.
func (e *Execution) Activity() (*Activity, bool) {
	if e.position < 0 || e.position >= len(e.definition.Activities) {
		return nil, false
	}

	return &e.definition.Activities[e.position], true
}

// ActivityID returns the current activity id, or "" when not on an activity.
func (e *Execution) ActivityID() string {
	if a, ok := e.Activity(); ok {
		return a.ID
	}

	return ""
}

// ActivityName returns the current activity name, or "".
func (e *Execution) ActivityName() string {
	if a, ok := e.Activity(); ok {
		return a.Name
	}

	return ""
}

// NextActivity returns the activity after the current one.
func (e *Execution) NextActivity() (*Activity, bool) {
	next := e.position + 1
	if next >= len(e.definition.Activities) {
		return nil, false
	}

	return &e.definition.Activities[next], true
}

// Start positions the cursor on the first activity.
func (e *Execution) Start() {
	e.started = true
	e.position = 0
}

// Advance moves the cursor to the next activity.
// It returns false when there is no next activity.
func (e *Execution) Advance() bool {
	if _, ok := e.NextActivity(); !ok {
		return false
	}

	e.position++

	return true
}

// Visit records that the current activity was entered.
func (e *Execution) Visit() {
	if id := e.ActivityID(); id != "" {
		e.visited = append(e.visited, id)
	}
}

// Visited returns the activity ids entered so far, in order.
func (e *Execution) Visited() []string {
	out := make([]string, len(e.visited))
	copy(out, e.visited)

	return out
}

// End marks the execution ended.
func (e *Execution) End() {
	e.ended = true
	e.position = len(e.definition.Activities)
}

// Cancel marks the execution canceled and ended.
func (e *Execution) Cancel() {
	e.canceled = true
	e.End()
}

// IsStarted reports whether Start was called.
func (e *Execution) IsStarted() bool { return e.started }

// IsEnded reports whether the execution ended.
func (e *Execution) IsEnded() bool { return e.ended }

// IsCanceled reports whether the execution was canceled.
func (e *Execution) IsCanceled() bool { return e.canceled }

// ExecutionState is a saved cursor position. See Snapshot.
type ExecutionState struct {
	position int
	started  bool
	ended    bool
	canceled bool
	visited  []string
}

// Snapshot saves the cursor position, flags and visited activities.
func (e *Execution) Snapshot() ExecutionState {
	return ExecutionState{
		position: e.position,
		started:  e.started,
		ended:    e.ended,
		canceled: e.canceled,
		visited:  e.Visited(),
	}
}

// Restore puts the cursor back to a state taken with Snapshot.
func (e *Execution) Restore(state ExecutionState) {
	e.position = state.position
	e.started = state.started
	e.ended = state.ended
	e.canceled = state.canceled
	e.visited = append([]string(nil), state.visited...)
}

// String implements fmt.Stringer.
func (e *Execution) String() string {
	return "ProcessInstance[" + e.id + "]"
}
