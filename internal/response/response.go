package response

import (
	"github.com/gin-gonic/gin"
)

// Error codes shared by every endpoint
const (
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeInternal     = "INTERNAL"
)

// AppError is the error type returned across the service boundary.
type AppError struct {
	Code    string
	Message string
	Details interface{}
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates an AppError. details is sent to the client as-is and may be nil.
func NewAppError(code, message string, details interface{}) *AppError {
	return &AppError{Code: code, Message: message, Details: details}
}

// Wrap attaches the underlying cause, which is logged but never sent to the client.
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

// ErrorBody is the payload under the "error" key.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse is the envelope of every failed request.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// SendError writes the error envelope and aborts the chain.
func SendError(c *gin.Context, status int, code, message string) {
	SendErrorWithDetails(c, status, code, message, nil)
}

func SendErrorWithDetails(c *gin.Context, status int, code, message string, details interface{}) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{Code: code, Message: message, Details: details},
	})
}
