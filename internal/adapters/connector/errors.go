// Package connector calls external HTTP services from activity behaviors.
// Requests are retried with backoff, guarded by a circuit breaker, traced with
// OpenTelemetry and carry the execution's identifiers as headers.
package connector

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrCircuitOpen is returned while the breaker blocks calls to the service.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrRetriesExhausted is returned after every attempt failed. The last
	// attempt's error is wrapped.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// StatusError reports a non-2xx response from the called service. Code and
// Message come from the service's error envelope when it sent one.
type StatusError struct {
	Connector string
	Status    int
	Code      string
	Message   string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("connector %s responded %d: %s", e.Connector, e.Status, e.Message)
	}

	return fmt.Sprintf("connector %s responded %d", e.Connector, e.Status)
}

// envelope accepts both the nested {"error":{"code","message"}} shape and a
// flat {"code","message"} body.
type envelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newStatusError(connector string, status int, body io.Reader) *StatusError {
	err := &StatusError{Connector: connector, Status: status}

	var env envelope
	if body == nil || json.NewDecoder(io.LimitReader(body, maxErrorBody)).Decode(&env) != nil {
		return err
	}

	err.Code, err.Message = env.Error.Code, env.Error.Message
	if err.Code == "" {
		err.Code = env.Code
	}

	if err.Message == "" {
		err.Message = env.Message
	}

	return err
}
