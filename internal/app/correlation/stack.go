// Package correlation keeps the diagnostic context of a unit of work in sync
// with the executions it is advancing.
//
// Each correlation key owns a LIFO stack of values. The top of every enabled
// key's stack is mirrored into a ports.DiagnosticBackend under the key's
// configured ambient name, so log records written while an operation runs carry
// the instance and activity it is working on.
package correlation

import (
	"github.com/jsamuelsen/process-engine/internal/ports"
)

// Key identifies a correlation dimension.
type Key string

// Known correlation keys.
const (
	ActivityID      Key = "activityId"
	ActivityName    Key = "activityName"
	ApplicationName Key = "applicationName"
	BusinessKey     Key = "businessKey"
	DefinitionID    Key = "definitionId"
	InstanceID      Key = "instanceId"
	TenantID        Key = "tenantId"
	EngineName      Key = "engineName"
)

// Keys lists every known key in a stable order.
var Keys = []Key{
	ActivityID,
	ActivityName,
	ApplicationName,
	BusinessKey,
	DefinitionID,
	InstanceID,
	TenantID,
	EngineName,
}

// Names maps each key to the ambient name it is published under.
// A missing or empty name disables the key.
type Names map[Key]string

// DefaultNames enables activityId and instanceId under their own names.
func DefaultNames() Names {
	return Names{
		ActivityID: string(ActivityID),
		InstanceID: string(InstanceID),
	}
}

// Stack is the correlation stack of one unit of work. It is not safe for
// concurrent use.
type Stack struct {
	backend ports.DiagnosticBackend
	names   Names
	stacks  map[Key][]string
}

// New creates a stack publishing into backend. A nil names map uses DefaultNames.
func New(backend ports.DiagnosticBackend, names Names) *Stack {
	if names == nil {
		names = DefaultNames()
	}

	return &Stack{
		backend: backend,
		names:   names,
		stacks:  make(map[Key][]string, len(Keys)),
	}
}

// Enabled reports whether key has an ambient name.
func (s *Stack) Enabled(key Key) bool {
	return s.names[key] != ""
}

// Push puts value on top of key's stack and publishes it.
// It returns false, changing nothing, when value is empty, already on top, or
// the key is disabled. Callers pop only when Push returned true.
func (s *Stack) Push(key Key, value string) bool {
	if value == "" || !s.Enabled(key) {
		return false
	}

	if top, ok := s.Top(key); ok && top == value {
		return false
	}

	s.stacks[key] = append(s.stacks[key], value)
	s.backend.Put(s.names[key], value)

	return true
}

// Pop removes the top of key's stack and publishes the new top, or removes the
// ambient value when the stack is now empty. Popping an empty stack is a no-op.
func (s *Stack) Pop(key Key) {
	values := s.stacks[key]
	if len(values) == 0 {
		return
	}

	s.stacks[key] = values[:len(values)-1]
	s.sync(key)
}

// Top returns the current value of key.
func (s *Stack) Top(key Key) (string, bool) {
	values := s.stacks[key]
	if len(values) == 0 {
		return "", false
	}

	return values[len(values)-1], true
}

// Depth returns the number of values on key's stack.
func (s *Stack) Depth(key Key) int {
	return len(s.stacks[key])
}

// Sync republishes the top of every enabled key.
func (s *Stack) Sync() {
	for _, key := range Keys {
		s.sync(key)
	}
}

// Clear removes the ambient value of every enabled key. The stacks are kept, so
// a later Sync restores them.
func (s *Stack) Clear() {
	for _, key := range Keys {
		if s.Enabled(key) {
			s.backend.Remove(s.names[key])
		}
	}
}

// PushSection pushes the activity-level keys of execution and returns the keys
// that were actually pushed, for PopAll.
func (s *Stack) PushSection(execution ports.Execution, application string) []Key {
	section := []struct {
		key   Key
		value string
	}{
		{ActivityID, execution.ActivityID()},
		{ActivityName, execution.ActivityName()},
		{ApplicationName, application},
		{BusinessKey, execution.BusinessKey()},
		{DefinitionID, execution.ProcessDefinitionID()},
		{TenantID, execution.TenantID()},
	}

	var pushed []Key

	for _, entry := range section {
		if s.Push(entry.key, entry.value) {
			pushed = append(pushed, entry.key)
		}
	}

	return pushed
}

// PopAll pops keys in reverse order.
func (s *Stack) PopAll(keys []Key) {
	for i := len(keys) - 1; i >= 0; i-- {
		s.Pop(keys[i])
	}
}

func (s *Stack) sync(key Key) {
	if !s.Enabled(key) {
		return
	}

	if top, ok := s.Top(key); ok {
		s.backend.Put(s.names[key], top)
		return
	}

	s.backend.Remove(s.names[key])
}
