// Package trace collects the atomic operation invocations of a unit of work and
// renders them as a BPMN stack trace when an operation fails.
package trace

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jsamuelsen/process-engine/internal/domain"
)

const (
	header    = "BPMN Stack Trace:\n"
	separator = "\t  ^\n\t  |\n"
)

// StackTrace records invocations in the order they were started.
// It is not safe for concurrent use.
type StackTrace struct {
	logger  *slog.Logger
	records []domain.InvocationRecord
}

// New creates an empty stack trace that prints to logger.
func New(logger *slog.Logger) *StackTrace {
	if logger == nil {
		logger = slog.Default()
	}

	return &StackTrace{logger: logger}
}

// Add records a started invocation.
func (s *StackTrace) Add(record domain.InvocationRecord) {
	s.records = append(s.records, record)
}

// Len returns the number of recorded invocations.
func (s *StackTrace) Len() int {
	return len(s.records)
}

// Records returns a copy of the recorded invocations.
func (s *StackTrace) Records() []domain.InvocationRecord {
	out := make([]domain.InvocationRecord, len(s.records))
	copy(out, s.records)

	return out
}

// Print logs the rendered trace at error level and forgets the recorded
// invocations. Nothing is logged when no invocation was recorded.
func (s *StackTrace) Print(ctx context.Context, verbose bool) {
	if len(s.records) == 0 {
		return
	}

	s.logger.ErrorContext(ctx, "bpmn stack trace",
		slog.String("trace", s.Render(verbose)),
		slog.Int("invocations", len(s.records)),
	)

	s.records = nil
}

// Render formats the recorded invocations, most recent first.
//
// The verbose form lists every invocation. The condensed form shows the last
// invocation followed by the path of distinct activities that led to it.
func (s *StackTrace) Render(verbose bool) string {
	if len(s.records) == 0 {
		return ""
	}

	var b strings.Builder

	b.WriteString(header)

	if verbose {
		for i := len(s.records) - 1; i >= 0; i-- {
			writeInvocation(&b, s.records[i])
		}

		return b.String()
	}

	last := s.records[len(s.records)-1]
	writeInvocation(&b, last)

	previous := last.ActivityID

	for i := len(s.records) - 2; i >= 0; i-- {
		r := s.records[i]
		if r.ActivityID == "" || r.ActivityID == previous {
			continue
		}

		b.WriteString(separator)
		b.WriteString("\t")
		b.WriteString(r.ActivityID)

		if r.ActivityName != "" {
			b.WriteString(", name=")
			b.WriteString(r.ActivityName)
		}

		b.WriteString("\n")

		previous = r.ActivityID
	}

	return b.String()
}

func writeInvocation(b *strings.Builder, r domain.InvocationRecord) {
	b.WriteString("\t")

	if r.ActivityID != "" {
		b.WriteString(r.ActivityID)
	} else {
		b.WriteString("<none>")
	}

	b.WriteString(" (")
	b.WriteString(r.Operation)
	b.WriteString(", ")
	b.WriteString(r.Execution)

	if r.Async {
		b.WriteString(", ASYNC")
	}

	if r.ApplicationName != "" {
		b.WriteString(", pa=")
		b.WriteString(r.ApplicationName)
	}

	b.WriteString(")\n")
}
