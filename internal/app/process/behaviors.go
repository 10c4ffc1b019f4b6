package process

import (
	"context"
	"log/slog"

	"github.com/jsamuelsen/process-engine/internal/domain"
	"github.com/jsamuelsen/process-engine/internal/platform/logging"
)

// Noop is a pass-through activity behavior.
func Noop(context.Context, *domain.Execution) error { return nil }

// Fail returns a behavior that always fails with err.
func Fail(err error) domain.ActivityBehavior {
	return func(context.Context, *domain.Execution) error { return err }
}

// Log returns a behavior that logs message at info level. The record carries
// the correlation values of the running activity.
func Log(message string) domain.ActivityBehavior {
	return func(ctx context.Context, execution *domain.Execution) error {
		logging.FromContext(ctx).InfoContext(ctx, message,
			slog.String("activity_name", execution.ActivityName()),
			slog.String("business_key", execution.BusinessKey()),
		)

		return nil
	}
}
