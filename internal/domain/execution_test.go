package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDefinition() *ProcessDefinition {
	return &ProcessDefinition{
		ID:           "invoice:1:abc",
		Key:          "invoice",
		Version:      1,
		DeploymentID: "dep-1",
		TenantID:     "tenant-a",
		Activities: []Activity{
			{ID: "receive", Name: "Receive invoice"},
			{ID: "approve", Name: "Approve invoice", AsyncBefore: true},
			{ID: "archive", Name: "Archive"},
		},
	}
}

func TestNewExecution(t *testing.T) {
	exec := NewExecution(testDefinition(), "order-42")

	assert.NotEmpty(t, exec.ID())
	assert.Equal(t, exec.ID(), exec.ProcessInstanceID())
	assert.Equal(t, "invoice:1:abc", exec.ProcessDefinitionID())
	assert.Equal(t, "dep-1", exec.DeploymentID())
	assert.Equal(t, "tenant-a", exec.TenantID())
	assert.Equal(t, "order-42", exec.BusinessKey())
	assert.Empty(t, exec.ActivityID())
	assert.Empty(t, exec.ActivityName())
	assert.False(t, exec.IsStarted())
	assert.Equal(t, "ProcessInstance["+exec.ID()+"]", exec.String())
}

func TestExecution_Cursor(t *testing.T) {
	exec := NewExecution(testDefinition(), "")

	exec.Start()
	assert.True(t, exec.IsStarted())
	assert.Equal(t, "receive", exec.ActivityID())
	assert.Equal(t, "Receive invoice", exec.ActivityName())
	exec.Visit()

	next, ok := exec.NextActivity()
	require.True(t, ok)
	assert.True(t, next.AsyncBefore)

	require.True(t, exec.Advance())
	exec.Visit()
	require.True(t, exec.Advance())
	exec.Visit()

	assert.Equal(t, "archive", exec.ActivityID())
	assert.False(t, exec.Advance())
	assert.Equal(t, []string{"receive", "approve", "archive"}, exec.Visited())

	exec.End()
	assert.True(t, exec.IsEnded())
	assert.False(t, exec.IsCanceled())
	assert.Empty(t, exec.ActivityID())
}

func TestExecution_Cancel(t *testing.T) {
	exec := NewExecution(testDefinition(), "")
	exec.Start()
	exec.Cancel()

	assert.True(t, exec.IsCanceled())
	assert.True(t, exec.IsEnded())
	_, ok := exec.Activity()
	assert.False(t, ok)
}

func TestExecution_VisitedReturnsCopy(t *testing.T) {
	exec := NewExecution(testDefinition(), "")
	exec.Start()
	exec.Visit()

	visited := exec.Visited()
	visited[0] = "mutated"

	assert.Equal(t, []string{"receive"}, exec.Visited())
}

func TestExecution_SnapshotRestore(t *testing.T) {
	exec := NewExecution(testDefinition(), "")
	exec.Start()
	exec.Visit()
	require.True(t, exec.Advance())

	saved := exec.Snapshot()

	exec.Visit()
	require.True(t, exec.Advance())
	exec.Visit()
	exec.End()

	exec.Restore(saved)

	assert.Equal(t, "approve", exec.ActivityID())
	assert.Equal(t, []string{"receive"}, exec.Visited())
	assert.True(t, exec.IsStarted())
	assert.False(t, exec.IsEnded())

	exec.Visit()
	exec.Restore(saved)
	assert.Equal(t, []string{"receive"}, exec.Visited(), "restoring twice reuses the saved state")
}

func TestProcessDefinition_Validate(t *testing.T) {
	tests := []struct {
		name    string
		def     *ProcessDefinition
		wantErr string
	}{
		{name: "valid", def: testDefinition()},
		{name: "missing key", def: &ProcessDefinition{Activities: []Activity{{ID: "a"}}}, wantErr: "key"},
		{name: "no activities", def: &ProcessDefinition{Key: "k"}, wantErr: "activities"},
		{name: "empty activity id", def: &ProcessDefinition{Key: "k", Activities: []Activity{{}}}, wantErr: "activities[0].id"},
		{
			name:    "duplicate activity id",
			def:     &ProcessDefinition{Key: "k", Activities: []Activity{{ID: "a"}, {ID: "a"}}},
			wantErr: "duplicate activity id a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, IsValidation(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
