package connector

import (
	"context"
	"net/http"

	"github.com/jsamuelsen/process-engine/internal/domain"
)

// Headers carrying the calling execution.
const (
	HeaderProcessInstanceID = "X-Process-Instance-Id"
	HeaderActivityID        = "X-Activity-Id"
	HeaderBusinessKey       = "X-Business-Key"
)

// CallPayload is the body posted by a connector activity.
type CallPayload struct {
	ProcessInstanceID string `json:"processInstanceId"`
	DefinitionID      string `json:"definitionId"`
	ActivityID        string `json:"activityId"`
	BusinessKey       string `json:"businessKey,omitempty"`
	TenantID          string `json:"tenantId,omitempty"`
}

// Call returns an activity behavior that posts the execution to path. A 4xx
// or 5xx response fails the activity with a *StatusError.
func Call(client *Client, path string) domain.ActivityBehavior {
	return func(ctx context.Context, execution *domain.Execution) error {
		header := http.Header{}
		header.Set(HeaderProcessInstanceID, execution.ProcessInstanceID())
		header.Set(HeaderActivityID, execution.ActivityID())

		if bk := execution.BusinessKey(); bk != "" {
			header.Set(HeaderBusinessKey, bk)
		}

		resp, err := client.PostJSON(ctx, path, CallPayload{
			ProcessInstanceID: execution.ProcessInstanceID(),
			DefinitionID:      execution.ProcessDefinitionID(),
			ActivityID:        execution.ActivityID(),
			BusinessKey:       execution.BusinessKey(),
			TenantID:          execution.TenantID(),
		}, header)
		if err != nil {
			return err
		}

		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode >= http.StatusBadRequest {
			return newStatusError(client.name, resp.StatusCode, resp.Body)
		}

		return nil
	}
}
