package process

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jsamuelsen/process-engine/internal/app/command"
	appcontext "github.com/jsamuelsen/process-engine/internal/app/context"
	"github.com/jsamuelsen/process-engine/internal/domain"
	"github.com/jsamuelsen/process-engine/internal/platform/logging"
)

// InstanceView is a snapshot of a process instance.
type InstanceView struct {
	ID              string   `json:"id"`
	DefinitionID    string   `json:"definitionId"`
	BusinessKey     string   `json:"businessKey,omitempty"`
	CurrentActivity string   `json:"currentActivity,omitempty"`
	Ended           bool     `json:"ended"`
	Canceled        bool     `json:"canceled"`
	Visited         []string `json:"visited"`
}

// Service deploys definitions and runs the engine commands against them.
//
// Commands touching executions run one at a time; executions are not safe for
// concurrent use and this engine does not schedule instances across goroutines.
type Service struct {
	mu       sync.Mutex
	executor *command.Executor
	repo     *Repository
	jobs     *JobQueue
	logger   *slog.Logger
}

// ServiceConfig holds the dependencies of the service.
type ServiceConfig struct {
	Executor   *command.Executor
	Repository *Repository
	Jobs       *JobQueue
	Logger     *slog.Logger
}

// NewService creates a process service. Missing collaborators get in-memory
// defaults, and the executor is wired to schedule on the job queue.
func NewService(cfg *ServiceConfig) *Service {
	if cfg == nil {
		cfg = &ServiceConfig{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	repo := cfg.Repository
	if repo == nil {
		repo = NewRepository()
	}

	jobs := cfg.Jobs
	if jobs == nil {
		jobs = NewJobQueue(DefaultJobRetries, logger)
	}

	executor := cfg.Executor
	if executor == nil {
		executor = command.NewExecutor(&command.ExecutorConfig{Logger: logger})
	}

	executor.SetScheduler(jobs)

	return &Service{
		executor: executor,
		repo:     repo,
		jobs:     jobs,
		logger:   logger.With(slog.String("component", "process.Service")),
	}
}

// Repository returns the definition and instance store.
func (s *Service) Repository() *Repository { return s.repo }

// Jobs returns the job queue.
func (s *Service) Jobs() *JobQueue { return s.jobs }

// Definitions returns every deployed definition version.
func (s *Service) Definitions() []*domain.ProcessDefinition { return s.repo.Definitions() }

// ListJobs returns pending jobs, oldest first, then jobs out of retries.
func (s *Service) ListJobs() []JobView { return s.jobs.Jobs() }

// PendingJobs returns the number of jobs waiting to run.
func (s *Service) PendingJobs() int { return s.jobs.Pending() }

// Deploy stores a new version of a definition.
func (s *Service) Deploy(ctx context.Context, def domain.ProcessDefinition) (*domain.ProcessDefinition, error) {
	stored, err := s.repo.Deploy(def)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).InfoContext(ctx, "process definition deployed",
		slog.String("definition_id", stored.ID),
		slog.String("deployment_id", stored.DeploymentID),
		slog.Int("version", stored.Version),
	)

	return stored, nil
}

// StartProcessInstance starts the latest version of the definition with the
// given key and runs it until it ends or reaches an asynchronous continuation.
func (s *Service) StartProcessInstance(ctx context.Context, definitionKey, businessKey string) (*InstanceView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	execution, err := command.Execute(ctx, s.executor, startProcessInstance{
		repo:          s.repo,
		definitionKey: definitionKey,
		businessKey:   businessKey,
	})
	if err != nil {
		return nil, err
	}

	return snapshot(execution), nil
}

// Instance returns a snapshot of a process instance.
func (s *Service) Instance(id string) (*InstanceView, error) {
	execution, err := s.repo.Instance(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return snapshot(execution), nil
}

// ExecuteNextJob runs the oldest pending job in its own command. It reports
// whether a job was found. A failed job is requeued while it has retries left.
func (s *Service) ExecuteNextJob(ctx context.Context) (bool, error) {
	job, ok := s.jobs.Next()
	if !ok {
		return false, nil
	}

	s.mu.Lock()
	_, err := command.Execute(ctx, s.executor, executeJob{job: job})
	if err != nil {
		job.rewind()
	}
	s.mu.Unlock()

	if err != nil {
		s.jobs.Fail(job, err)
		return true, err
	}

	return true, nil
}

// ExecuteJobs runs pending jobs until the queue is empty, ctx is done or a job
// fails. It returns the number of jobs run.
func (s *Service) ExecuteJobs(ctx context.Context) (int, error) {
	count := 0

	for ctx.Err() == nil {
		ran, err := s.ExecuteNextJob(ctx)
		if !ran {
			return count, nil
		}

		count++

		if err != nil {
			return count, err
		}
	}

	return count, ctx.Err()
}

type startProcessInstance struct {
	repo          *Repository
	definitionKey string
	businessKey   string
}

func (startProcessInstance) Name() string { return "StartProcessInstance" }

func (c startProcessInstance) Execute(ctx context.Context) (*domain.Execution, error) {
	if c.definitionKey == "" {
		return nil, domain.NewValidationError("definitionKey", "cannot be empty")
	}

	def, err := c.repo.LatestByKey(c.definitionKey)
	if err != nil {
		return nil, err
	}

	execution := domain.NewExecution(def, c.businessKey)

	if err := appcontext.FromContext(ctx).PerformOperation(ctx, ProcessStart, execution); err != nil {
		return nil, err
	}

	c.repo.SaveInstance(execution)

	return execution, nil
}

type executeJob struct {
	job *Job
}

func (executeJob) Name() string { return "ExecuteJob" }

func (c executeJob) Execute(ctx context.Context) (struct{}, error) {
	return struct{}{}, appcontext.FromContext(ctx).PerformOperation(ctx, c.job.Operation, c.job.Execution)
}

func snapshot(execution *domain.Execution) *InstanceView {
	return &InstanceView{
		ID:              execution.ID(),
		DefinitionID:    execution.ProcessDefinitionID(),
		BusinessKey:     execution.BusinessKey(),
		CurrentActivity: execution.ActivityID(),
		Ended:           execution.IsEnded(),
		Canceled:        execution.IsCanceled(),
		Visited:         execution.Visited(),
	}
}
