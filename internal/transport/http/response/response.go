// Package response is the HTTP envelope shared by every handler.
// Adapted from the teacher's internal/http/response/response.go.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIError is the machine-readable error body.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorEnvelope wraps APIError with the request's trace/request ids.
type ErrorEnvelope struct {
	Error     APIError `json:"error"`
	TraceID   string   `json:"trace_id,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

// RespondError writes status with code and err's message, stamping
// whatever trace/request id middleware attached to the context.
func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error:     APIError{Message: msg, Code: code},
		TraceID:   c.GetString("trace_id"),
		RequestID: c.GetString("request_id"),
	})
}

// RespondOK writes payload as 200 JSON.
func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondCreated writes payload as 201 JSON.
func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
