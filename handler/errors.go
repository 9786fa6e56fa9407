package handler

import (
	"errors"
	"net/http"

	"github.com/dannmaldonado/midiacore/workflow"
	"github.com/gin-gonic/gin"
)

// respondError maps workflow validation failures to HTTP status codes.
// Blocked actions always surface with a reason; nothing is silently ignored.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, workflow.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, workflow.ErrInvalidTemplate):
		status = http.StatusBadRequest
	case errors.Is(err, workflow.ErrAlreadyInitiated),
		errors.Is(err, workflow.ErrNotPending),
		errors.Is(err, workflow.ErrConflictingUpdate):
		status = http.StatusConflict
	case errors.Is(err, workflow.ErrUnauthorized),
		errors.Is(err, workflow.ErrTenantMismatch):
		status = http.StatusForbidden
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
