package dto

// StartInstanceRequest is the body of POST /api/v1/process-instances.
type StartInstanceRequest struct {
	DefinitionKey string `json:"definitionKey" validate:"required,notempty,processkey,max=255"`
	BusinessKey   string `json:"businessKey"   validate:"max=255"`
}

// InstanceRequest identifies a process instance in the path.
type InstanceRequest struct {
	ID string `json:"id" validate:"required,uuid"`
}

// DefinitionResponse describes a deployed process definition.
type DefinitionResponse struct {
	ID           string   `json:"id"`
	Key          string   `json:"key"`
	Version      int      `json:"version"`
	DeploymentID string   `json:"deploymentId"`
	Activities   []string `json:"activities"`
}

// ExecuteJobsResponse is returned by POST /api/v1/jobs/execute. A job
// failure stops the run and is reported in LastError.
type ExecuteJobsResponse struct {
	Executed  int    `json:"executed"`
	Pending   int    `json:"pending"`
	LastError string `json:"lastError,omitempty"`
}
