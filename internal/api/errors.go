package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/2001Abhinav/job-posting-platform/internal/domain"
)

// statusFor maps a service error to its HTTP status and client message.
// Unclassified errors are reported as 500 without detail.
func statusFor(err error) (int, string) {
	var ve domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "Conflict"
	case errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusBadRequest, "Invalid payment signature"
	case errors.Is(err, domain.ErrPaymentNotCaptured):
		return http.StatusBadRequest, "Payment not captured"
	case errors.Is(err, domain.ErrGateway):
		return http.StatusBadGateway, "Upstream service unavailable"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// abortWithError writes the mapped error response. The error is attached
// to the context so the request logger records it.
func abortWithError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, MessageResponse{Message: msg})
}

func writeMessage(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, MessageResponse{Message: msg})
}
