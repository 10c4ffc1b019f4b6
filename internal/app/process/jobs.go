package process

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jsamuelsen/process-engine/internal/domain"
	"github.com/jsamuelsen/process-engine/internal/platform/logging"
	"github.com/jsamuelsen/process-engine/internal/ports"
)

// DefaultJobRetries is the number of attempts a job gets before it is parked.
const DefaultJobRetries = 3

// Job is an asynchronous continuation waiting to be run in its own unit of work.
type Job struct {
	ID        string
	Operation ports.AtomicOperation
	Execution ports.Execution
	Retries   int
	LastError string
	CreatedAt time.Time

	// checkpoint is the execution as the job found it. A failed attempt is
	// rewound to it so the retry runs the operation from the same place.
	checkpoint *domain.ExecutionState
}

// rewindable executions can be put back where a job found them.
type rewindable interface {
	Snapshot() domain.ExecutionState
	Restore(state domain.ExecutionState)
}

// JobView is a read-only snapshot of a job.
type JobView struct {
	ID                string    `json:"id"`
	Operation         string    `json:"operation"`
	ProcessInstanceID string    `json:"processInstanceId"`
	ActivityID        string    `json:"activityId"`
	Retries           int       `json:"retries"`
	LastError         string    `json:"lastError,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// JobQueue is an in-memory FIFO of asynchronous continuations. It implements
// ports.AsyncScheduler. Jobs out of retries stay in the queue as failed jobs
// and are not handed out again.
type JobQueue struct {
	mu      sync.Mutex
	pending []*Job
	failed  []*Job
	retries int
	logger  *slog.Logger
}

// NewJobQueue creates an empty queue. A retries value below 1 uses
// DefaultJobRetries.
func NewJobQueue(retries int, logger *slog.Logger) *JobQueue {
	if retries < 1 {
		retries = DefaultJobRetries
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &JobQueue{retries: retries, logger: logger}
}

// ScheduleAsync implements ports.AsyncScheduler.
func (q *JobQueue) ScheduleAsync(ctx context.Context, operation ports.AtomicOperation, execution ports.Execution) error {
	if operation == nil || execution == nil {
		return domain.NewValidationError("job", "operation and execution are required")
	}

	job := &Job{
		ID:        uuid.NewString(),
		Operation: operation,
		Execution: execution,
		Retries:   q.retries,
		CreatedAt: time.Now().UTC(),
	}

	if r, ok := execution.(rewindable); ok {
		state := r.Snapshot()
		job.checkpoint = &state
	}

	q.mu.Lock()
	q.pending = append(q.pending, job)
	q.mu.Unlock()

	logging.FromContext(ctx).DebugContext(ctx, "asynchronous continuation scheduled",
		slog.String("job_id", job.ID),
		slog.String("operation", operation.Name()),
		slog.String("execution", execution.ID()),
	)

	return nil
}

// Next removes and returns the oldest pending job.
func (q *JobQueue) Next() (*Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil, false
	}

	job := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]

	return job, true
}

// Fail records a failed attempt. The job goes back to the end of the queue
// while it has retries left. It reports whether the job was requeued.
func (q *JobQueue) Fail(job *Job, err error) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	job.Retries--
	if err != nil {
		job.LastError = err.Error()
	}

	if job.Retries > 0 {
		q.pending = append(q.pending, job)
		return true
	}

	q.failed = append(q.failed, job)
	q.logger.Warn("job out of retries",
		slog.String("job_id", job.ID),
		slog.String("execution", job.Execution.ID()),
		slog.String("last_error", job.LastError),
	)

	return false
}

// Pending returns the number of jobs waiting to run.
func (q *JobQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.pending)
}

// Jobs returns snapshots of the pending jobs followed by the failed ones.
func (q *JobQueue) Jobs() []JobView {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]JobView, 0, len(q.pending)+len(q.failed))
	for _, job := range q.pending {
		out = append(out, job.view())
	}

	for _, job := range q.failed {
		out = append(out, job.view())
	}

	return out
}

// rewind undoes what a failed attempt did to the job's execution.
func (j *Job) rewind() {
	if r, ok := j.Execution.(rewindable); ok && j.checkpoint != nil {
		r.Restore(*j.checkpoint)
	}
}

func (j *Job) view() JobView {
	return JobView{
		ID:                j.ID,
		Operation:         j.Operation.Name(),
		ProcessInstanceID: j.Execution.ProcessInstanceID(),
		ActivityID:        j.Execution.ActivityID(),
		Retries:           j.Retries,
		LastError:         j.LastError,
		CreatedAt:         j.CreatedAt,
	}
}
