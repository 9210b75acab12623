package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/twentyq/pkg/types"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string          `json:"error"`
	State *types.Response `json:"state,omitempty"`
}

// statusFor maps a domain error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidInput),
		errors.Is(err, types.ErrMalformedQuestion),
		errors.Is(err, types.ErrInvalidName),
		errors.Is(err, types.ErrInvalidValue):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrSessionNotFound),
		errors.Is(err, types.ErrUnknownEntity):
		return http.StatusNotFound
	case errors.Is(err, types.ErrInvalidState),
		errors.Is(err, types.ErrNoHistory),
		errors.Is(err, types.ErrDuplicateEntity),
		errors.Is(err, types.ErrQuestionRequired):
		return http.StatusConflict
	case errors.Is(err, types.ErrSessionLimit):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// handleServiceError aborts the request with the status for err. state, when
// non-nil, is the session as it stands after the failed call.
func handleServiceError(c *gin.Context, log *zap.Logger, err error, state *types.Response) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("unhandled error", zap.Error(err))
		msg = "internal error"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg, State: state})
}
