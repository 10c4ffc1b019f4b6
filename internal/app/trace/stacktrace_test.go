package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/process-engine/internal/domain"
	"github.com/jsamuelsen/process-engine/internal/ports"
)

var _ ports.StackTrace = (*StackTrace)(nil)

func sample() []domain.InvocationRecord {
	return []domain.InvocationRecord{
		{Operation: "process-start", Execution: "ProcessInstance[pi-1]"},
		{Operation: "activity-start", Execution: "ProcessInstance[pi-1]", ActivityID: "receive", ActivityName: "Receive invoice"},
		{Operation: "activity-execute", Execution: "ProcessInstance[pi-1]", ActivityID: "receive", ActivityName: "Receive invoice"},
		{Operation: "transition-take", Execution: "ProcessInstance[pi-1]", ActivityID: "approve"},
		{
			Operation:       "activity-execute",
			Execution:       "ProcessInstance[pi-1]",
			ActivityID:      "approve",
			ApplicationName: "invoicing",
			Async:           true,
		},
	}
}

func TestRender_Empty(t *testing.T) {
	assert.Empty(t, New(nil).Render(true))
	assert.Empty(t, New(nil).Render(false))
}

func TestRender_Condensed(t *testing.T) {
	st := New(nil)
	for _, r := range sample() {
		st.Add(r)
	}

	expected := "BPMN Stack Trace:\n" +
		"\tapprove (activity-execute, ProcessInstance[pi-1], ASYNC, pa=invoicing)\n" +
		"\t  ^\n\t  |\n" +
		"\treceive, name=Receive invoice\n"

	assert.Equal(t, expected, st.Render(false))
}

func TestRender_Verbose(t *testing.T) {
	st := New(nil)
	for _, r := range sample() {
		st.Add(r)
	}

	expected := "BPMN Stack Trace:\n" +
		"\tapprove (activity-execute, ProcessInstance[pi-1], ASYNC, pa=invoicing)\n" +
		"\tapprove (transition-take, ProcessInstance[pi-1])\n" +
		"\treceive (activity-execute, ProcessInstance[pi-1])\n" +
		"\treceive (activity-start, ProcessInstance[pi-1])\n" +
		"\t<none> (process-start, ProcessInstance[pi-1])\n"

	assert.Equal(t, expected, st.Render(true))
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	st := New(slog.New(slog.NewJSONHandler(&buf, nil)))

	st.Print(context.Background(), false)
	assert.Empty(t, buf.String())

	for _, r := range sample() {
		st.Add(r)
	}

	st.Print(context.Background(), true)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "bpmn stack trace", entry["msg"])
	assert.Contains(t, entry["trace"], "transition-take")
	assert.InDelta(t, 5, entry["invocations"], 0)

	assert.Equal(t, 0, st.Len())
}

func TestRecords_ReturnsCopy(t *testing.T) {
	st := New(nil)
	st.Add(domain.InvocationRecord{Operation: "process-start"})

	records := st.Records()
	records[0].Operation = "mutated"

	assert.Equal(t, "process-start", st.Records()[0].Operation)
}
