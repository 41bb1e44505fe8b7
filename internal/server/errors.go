package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/inmoflow/inmoflow/internal/invoice/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// ErrorHandlingMiddleware maps domain errors onto HTTP responses after the
// handler chain runs. Callers always learn which kind of invariant failed
// (validation, state, conflict, infrastructure) so they can decide whether
// to fix input, retry, or escalate.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, invoicedomain.ErrInvalidTenant):
		return http.StatusUnauthorized, errorPayload{Type: "unauthorized", Message: err.Error()}
	case errors.Is(err, invoicedomain.ErrInvoiceNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: "invoice not found"}
	case invoicedomain.IsValidation(err):
		return http.StatusBadRequest, errorPayload{Type: "validation", Message: err.Error()}
	case invoicedomain.IsState(err):
		return http.StatusUnprocessableEntity, errorPayload{Type: "state", Message: err.Error()}
	case errors.Is(err, invoicedomain.ErrDuplicateCharge):
		return http.StatusConflict, errorPayload{Type: "conflict", Message: err.Error()}
	case errors.Is(err, invoicedomain.ErrSequenceBusy):
		return http.StatusServiceUnavailable, errorPayload{Type: "conflict", Message: err.Error(), Retryable: true}
	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal", Message: "internal error"}
	}
}

func classifyError(err error) string {
	switch {
	case invoicedomain.IsValidation(err):
		return "validation"
	case invoicedomain.IsState(err):
		return "state"
	case invoicedomain.IsConflict(err):
		return "conflict"
	default:
		return "internal"
	}
}
