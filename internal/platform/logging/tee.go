package logging

import (
	"context"
	"errors"
	"log/slog"
)

// TeeHandler fans records out to several handlers, each applying its own
// level. The console and the rolling file are teed this way.
type TeeHandler struct {
	sinks []slog.Handler
}

// NewTeeHandler returns a handler writing to every sink.
func NewTeeHandler(sinks ...slog.Handler) *TeeHandler {
	return &TeeHandler{sinks: sinks}
}

// Enabled implements slog.Handler. A level is enabled if any sink takes it.
func (h *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range h.sinks {
		if s.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

// Handle implements slog.Handler. Every sink gets its own copy of r and all
// sink errors are joined.
func (h *TeeHandler) Handle(ctx context.Context, r slog.Record) error { //nolint:gocritic // slog.Handler interface requires value
	var errs []error

	for _, s := range h.sinks {
		if !s.Enabled(ctx, r.Level) {
			continue
		}

		if err := s.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// WithAttrs implements slog.Handler.
func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.each(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

// WithGroup implements slog.Handler.
func (h *TeeHandler) WithGroup(name string) slog.Handler {
	return h.each(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}

func (h *TeeHandler) each(fn func(slog.Handler) slog.Handler) *TeeHandler {
	sinks := make([]slog.Handler, len(h.sinks))
	for i, s := range h.sinks {
		sinks[i] = fn(s)
	}

	return &TeeHandler{sinks: sinks}
}
