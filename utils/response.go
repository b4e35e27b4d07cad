package utils

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Standard Response Structure
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// RespondSuccess sends a standard success response
func RespondSuccess(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// RespondError sends a standard error response. The message must be safe
// for the client; err is only logged.
func RespondError(c *gin.Context, code int, message string, err error) {
	if err != nil {
		Logger.Error(message, zap.Error(err), zap.String("path", c.FullPath()))
	}
	c.JSON(code, APIResponse{
		Success: false,
		Message: message,
	})
}

// RespondFailure is RespondError with a data payload, used when the client
// needs partial results alongside the failure (e.g. the failed checkout step).
func RespondFailure(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, APIResponse{
		Success: false,
		Message: message,
		Data:    data,
	})
}
