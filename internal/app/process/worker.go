package process

import (
	"context"
	"log/slog"
	"time"
)

// DefaultPollInterval is how often the worker looks for jobs.
const DefaultPollInterval = 500 * time.Millisecond

// JobWorker runs the service's pending jobs periodically.
type JobWorker struct {
	service  *Service
	interval time.Duration
	logger   *slog.Logger
}

// NewJobWorker creates a worker. A non-positive interval uses DefaultPollInterval.
func NewJobWorker(service *Service, interval time.Duration, logger *slog.Logger) *JobWorker {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &JobWorker{
		service:  service,
		interval: interval,
		logger:   logger.With(slog.String("component", "process.JobWorker")),
	}
}

// Run polls for jobs until ctx is done.
func (w *JobWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll runs jobs until the queue is empty or one fails. A failed job waits
// for the next tick, so its retries are spread over the poll interval.
func (w *JobWorker) poll(ctx context.Context) {
	for ctx.Err() == nil {
		ran, err := w.service.ExecuteNextJob(ctx)
		if !ran {
			return
		}

		if err != nil {
			w.logger.WarnContext(ctx, "job failed", slog.Any("error", err))
			return
		}
	}
}
