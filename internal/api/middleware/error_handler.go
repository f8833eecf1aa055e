package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"transcribe4all/internal/api/errors"
)

// ErrorHandler middleware handles errors consistently across the API
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		requestID := c.GetString(RequestIDKey)

		var apiErr *errors.APIError

		switch err := recovered.(type) {
		case *errors.APIError:
			apiErr = err
		case error:
			apiErr = errors.FromError(err)
			if apiErr.Kind == errors.KindInternal {
				logger.Error("Internal server error",
					zap.Error(err),
					zap.String("request_id", requestID),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
				)
			}
		default:
			logger.Error("Unknown panic occurred",
				zap.Any("recovered", recovered),
				zap.String("request_id", requestID),
			)
			apiErr = errors.NewInternalError("Internal server error")
		}

		respond(c, apiErr, requestID)
	})
}

// HandleError is a helper function for handlers to return errors
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	if apiErr, ok := err.(*errors.APIError); ok {
		respond(c, apiErr, c.GetString(RequestIDKey))
		return
	}

	// Anything else goes through ErrorHandler's mapping.
	panic(err)
}

func respond(c *gin.Context, apiErr *errors.APIError, requestID string) {
	out := *apiErr
	out.RequestID = requestID
	c.Header("Content-Type", "application/json")
	c.AbortWithStatusJSON(out.HTTPStatus(), &out)
}
