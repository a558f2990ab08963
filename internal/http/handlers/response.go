// Package handlers maps the admin list and storefront services onto Gin.
//
// Every failure is written as an ErrorResponse with a stable code from
// errors.go. Success bodies are the service results serialized as-is:
//
//	HTTP/1.1 409 Conflict
//	{"request_id":"7c1e…","code":"stale_action","message":"pending action was replaced"}
//
//	HTTP/1.1 200 OK
//	{"resource":"reviews","items":[…],"pagination":{…}}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-backoffice/internal/http/middleware"
)

// ErrorResponse is the error envelope shared by all endpoints.
type ErrorResponse struct {
	// Echo of X-Request-ID, for matching a client error to server logs
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable machine-readable code
	Code string `json:"code" example:"stale_action"`
	// Message safe to show an operator
	Message string `json:"message" example:"pending action was replaced"`
	// Per-field messages, only with code validation_failed
	Fields map[string]string `json:"fields,omitempty"`
}

func requestID(c *gin.Context) string {
	if rid := middleware.RequestIDFrom(c); rid != "" {
		return rid
	}
	return c.Writer.Header().Get("X-Request-ID")
}

// fail aborts with the error envelope. Server errors are logged with the
// request-scoped logger. Client errors only at debug.
func fail(c *gin.Context, status int, code, msg string) {
	lg := middleware.LoggerFrom(c)
	ev := lg.Debug()
	if status >= http.StatusInternalServerError {
		ev = lg.Error()
	}
	ev.Int("status", status).Str("code", code).Str("message", msg).Msg("api error")

	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: requestID(c),
		Code:      code,
		Message:   msg,
	})
}

// failFields aborts with 422 and the field errors of a rejected form.
func failFields(c *gin.Context, fields map[string]string) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ErrorResponse{
		RequestID: requestID(c),
		Code:      ErrCodeValidation,
		Message:   "validation failed",
		Fields:    fields,
	})
}

// Fail lets the router write NoRoute and NoMethod errors in the same envelope.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
