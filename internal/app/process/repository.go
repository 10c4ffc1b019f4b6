package process

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jsamuelsen/process-engine/internal/domain"
)

// Repository is an in-memory store of deployed definitions and the
// instances started from them.
type Repository struct {
	mu          sync.RWMutex
	definitions map[string]*domain.ProcessDefinition
	latest      map[string]*domain.ProcessDefinition
	instances   map[string]*domain.Execution
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{
		definitions: make(map[string]*domain.ProcessDefinition),
		latest:      make(map[string]*domain.ProcessDefinition),
		instances:   make(map[string]*domain.Execution),
	}
}

// Deploy validates def and stores it as the next version of its key.
// The stored copy gets a fresh deployment id and an id of the form
// key:version:deployment.
func (r *Repository) Deploy(def domain.ProcessDefinition) (*domain.ProcessDefinition, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	def.Version = 1
	if prev, ok := r.latest[def.Key]; ok {
		def.Version = prev.Version + 1
	}

	def.DeploymentID = uuid.NewString()
	def.ID = fmt.Sprintf("%s:%d:%s", def.Key, def.Version, def.DeploymentID)
	def.Activities = append([]domain.Activity(nil), def.Activities...)

	stored := &def
	r.definitions[stored.ID] = stored
	r.latest[stored.Key] = stored

	return stored, nil
}

// LatestByKey returns the most recent version deployed under key.
func (r *Repository) LatestByKey(key string) (*domain.ProcessDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.latest[key]
	if !ok {
		return nil, domain.NewNotFoundError("process definition", key)
	}

	return def, nil
}

// DefinitionByID returns a deployed definition.
func (r *Repository) DefinitionByID(id string) (*domain.ProcessDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.definitions[id]
	if !ok {
		return nil, domain.NewNotFoundError("process definition", id)
	}

	return def, nil
}

// Definitions returns the latest version of every key, ordered by key.
func (r *Repository) Definitions() []*domain.ProcessDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.ProcessDefinition, 0, len(r.latest))
	for _, def := range r.latest {
		out = append(out, def)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	return out
}

// SaveInstance stores a started instance.
func (r *Repository) SaveInstance(execution *domain.Execution) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.instances[execution.ID()] = execution
}

// Instance returns a stored instance.
func (r *Repository) Instance(id string) (*domain.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	execution, ok := r.instances[id]
	if !ok {
		return nil, domain.NewNotFoundError("process instance", id)
	}

	return execution, nil
}
