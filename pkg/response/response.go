package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

// APIResponse is the envelope every endpoint returns.
type APIResponse[T any] struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	Data       T         `json:"data"`
	StatusCode int       `json:"statusCode"`
	RequestID  string    `json:"requestId"`
	Timestamp  time.Time `json:"timestamp"`
	Error      any       `json:"error,omitempty"`
}

func Success[T any](ctx *gin.Context, status int, data T, message string) APIResponse[T] {
	if status == 0 {
		status = http.StatusOK
	}
	return APIResponse[T]{
		Success:    true,
		Message:    message,
		Data:       data,
		StatusCode: status,
		RequestID:  ctx.GetString(RequestIDKey),
		Timestamp:  time.Now().UTC(),
	}
}

func Error(ctx *gin.Context, status int, message string, data any, err any) APIResponse[any] {
	if status == 0 {
		status = http.StatusBadRequest
	}
	return APIResponse[any]{
		Success:    false,
		Message:    message,
		Data:       data,
		StatusCode: status,
		RequestID:  ctx.GetString(RequestIDKey),
		Timestamp:  time.Now().UTC(),
		Error:      err,
	}
}

// OK writes a success envelope.
func OK[T any](ctx *gin.Context, status int, data T, message string) {
	if status == 0 {
		status = http.StatusOK
	}
	ctx.JSON(status, Success(ctx, status, data, message))
}

// Abort writes an error envelope and stops the handler chain.
func Abort(ctx *gin.Context, status int, message string, data any, err any) {
	ctx.AbortWithStatusJSON(status, Error(ctx, status, message, data, err))
}
