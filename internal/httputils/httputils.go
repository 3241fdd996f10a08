// Package httputils provides utilities for HTTP requests.
package httputils

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type httputilsContextKey string

const contextKeyMachine httputilsContextKey = "httputils:machine"

// MachineMiddleware puts the User-Agent header into the context.
func MachineMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		newCtx := context.WithValue(c.Request.Context(), contextKeyMachine, c.GetHeader("User-Agent"))
		c.Request = c.Request.WithContext(newCtx)
		c.Next()
	}
}

// GetMachineName returns the machine name from the context.
func GetMachineName(ctx context.Context) string {
	if machine, ok := ctx.Value(contextKeyMachine).(string); ok && machine != "" {
		return machine
	}

	return "!not-standard-path!"
}

// ErrorResponse is the body of every failed API request.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Error code values.
const (
	CodeInvalidRequest = "invalid_request"
	CodeUnauthorized   = "unauthorized"
	CodeForbidden      = "forbidden"
	CodeNotFound       = "not_found"
	CodeConflict       = "conflict"
	CodeTooLarge       = "too_large"
	CodeUnprocessable  = "unprocessable"
	CodeRateLimited    = "rate_limited"
	CodeUnavailable    = "unavailable"
	CodeServerError    = "server_error"
)

// Abort writes an error response and stops the handler chain.
func Abort(c *gin.Context, status int, code, description string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:            code,
		ErrorDescription: description,
	})
}

// IDParam parses the positive integer path parameter name.
//
// It writes a 400 response and returns false when the parameter is malformed.
func IDParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		Abort(c, http.StatusBadRequest, CodeInvalidRequest, "invalid "+name)
		return 0, false
	}

	return id, true
}
