package dto

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/process-engine/internal/domain"
	"github.com/jsamuelsen/process-engine/internal/platform/logging"
)

// contextKeyTraceID is the gin.Context key checked for a trace ID when no span is active.
const contextKeyTraceID = "trace_id"

// MapDomainError maps a domain error to an HTTP status code and error response.
// Fatal and unknown errors are mapped to 500 Internal Server Error with a generic message.
func MapDomainError(err error) (int, *ErrorResponse) {
	if err == nil {
		return http.StatusOK, nil
	}

	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound, NewErrorResponse(ErrorCodeNotFound, err.Error())

	case domain.IsValidation(err):
		resp := NewErrorResponse(ErrorCodeValidation, err.Error())

		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) && validationErr.Field != "" {
			resp.Error.Details = map[string]string{
				validationErr.Field: validationErr.Message,
			}
		}

		return http.StatusBadRequest, resp

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, NewErrorResponse(ErrorCodeTimeout, "request timeout exceeded")

	case domain.IsFatal(err):
		return http.StatusInternalServerError, NewErrorResponse(ErrorCodeInternal, "an internal error occurred")

	case domain.IsEngine(err):
		return http.StatusInternalServerError, NewErrorResponse(ErrorCodeEngine, err.Error())

	default:
		// Unknown errors get a generic message to avoid leaking internals
		return http.StatusInternalServerError, NewErrorResponse(ErrorCodeInternal, "an internal error occurred")
	}
}

// GetTraceID returns the trace ID of the request: the active span's trace ID,
// then a trace_id set on the gin.Context, then the X-Request-ID header.
func GetTraceID(c *gin.Context) string {
	if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}

	if v, ok := c.Get(contextKeyTraceID); ok {
		id, _ := v.(string)
		return id
	}

	return c.GetHeader("X-Request-ID")
}

// HandleError writes the error envelope for err. Server errors are logged
// with the request's context logger.
func HandleError(c *gin.Context, err error) {
	status, resp := MapDomainError(err)
	resp.TraceID = GetTraceID(c)

	if status >= http.StatusInternalServerError {
		ctx := c.Request.Context()
		logging.FromContext(ctx).ErrorContext(ctx, "request failed",
			slog.Any("error", err),
			slog.String("trace_id", resp.TraceID),
		)
	}

	c.JSON(status, resp)
}

// HandleBindingError writes a 400 response for a BindAndValidate failure,
// with field-level details for validation failures.
func HandleBindingError(c *gin.Context, err error) {
	if errors.Is(err, ErrValidation) {
		c.JSON(http.StatusBadRequest, NewErrorResponseWithDetails(
			ErrorCodeValidation,
			"request validation failed",
			ValidationErrors(err),
		).WithTraceID(GetTraceID(c)))

		return
	}

	c.JSON(http.StatusBadRequest, NewErrorResponse(
		ErrorCodeBadRequest,
		"malformed request body",
	).WithTraceID(GetTraceID(c)))
}
