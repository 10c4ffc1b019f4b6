package logging

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// MDC is a mapped diagnostic context: ambient key/value pairs that every log
// record written with the owning context carries.
type MDC struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMDC returns an empty diagnostic context.
func NewMDC() *MDC {
	return &MDC{values: make(map[string]string)}
}

// Put sets key to value.
func (m *MDC) Put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
}

// Remove deletes key.
func (m *MDC) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
}

// Get returns the value for key.
func (m *MDC) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]

	return v, ok
}

// Snapshot returns a copy of all entries.
func (m *MDC) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}

	return out
}

// Len returns the number of entries.
func (m *MDC) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.values)
}

type mdcKey struct{}

var processMDC = NewMDC()

// WithMDC stores a diagnostic context in ctx.
func WithMDC(ctx context.Context, mdc *MDC) context.Context {
	return context.WithValue(ctx, mdcKey{}, mdc)
}

// MDCFromContext returns the diagnostic context of ctx, falling back to the
// process-wide one.
func MDCFromContext(ctx context.Context) *MDC {
	if ctx != nil {
		if mdc, ok := ctx.Value(mdcKey{}).(*MDC); ok {
			return mdc
		}
	}

	return processMDC
}

// MDCHandler is an slog.Handler that appends the entries of the record
// context's diagnostic context, sorted by key.
type MDCHandler struct {
	next slog.Handler
}

// NewMDCHandler wraps next.
func NewMDCHandler(next slog.Handler) *MDCHandler {
	return &MDCHandler{next: next}
}

// Enabled implements slog.Handler.
func (h *MDCHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *MDCHandler) Handle(ctx context.Context, r slog.Record) error { //nolint:gocritic // slog.Handler interface requires value
	entries := MDCFromContext(ctx).Snapshot()
	if len(entries) == 0 {
		return h.next.Handle(ctx, r)
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	r = r.Clone()
	for _, k := range keys {
		r.AddAttrs(slog.String(k, entries[k]))
	}

	return h.next.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *MDCHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewMDCHandler(h.next.WithAttrs(attrs))
}

// WithGroup implements slog.Handler.
func (h *MDCHandler) WithGroup(name string) slog.Handler {
	return NewMDCHandler(h.next.WithGroup(name))
}
