// Package httperr translates the domain error taxonomy of spec.md §7
// (ValidationError, NotFound, InvalidState, StoreUnavailable, Internal)
// into the HTTP envelope, grounded on
// internal/http/response's RespondError pattern.
package httperr

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qualgent/job-orchestrator/internal/store/storeerr"
	"github.com/qualgent/job-orchestrator/internal/submission/submiterr"
	"github.com/qualgent/job-orchestrator/internal/transport/http/response"
)

// Write picks the status/code for err and writes the response envelope.
func Write(c *gin.Context, err error) {
	switch {
	case submiterr.IsValidation(err):
		response.RespondError(c, http.StatusBadRequest, "validation_error", err)
	case storeerr.IsNotFound(err):
		response.RespondError(c, http.StatusNotFound, "not_found", err)
	case storeerr.IsInvalidState(err):
		response.RespondError(c, http.StatusBadRequest, "invalid_state", err)
	case storeerr.IsUnavailable(err):
		response.RespondError(c, http.StatusInternalServerError, "store_unavailable", err)
	default:
		response.RespondError(c, http.StatusInternalServerError, "internal_error", err)
	}
}
