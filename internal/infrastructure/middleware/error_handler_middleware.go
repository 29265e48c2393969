package middleware

import (
	"net/http"

	"coursebundler/pkg/errors"
	"coursebundler/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const internalErrorMessage = "Internal Server Error"

func writeError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
	})
}

// ErrorHandlerMiddleware renders the last error pushed by a handler as
// {success:false, message}. Non-AppErrors become a generic 500.
func ErrorHandlerMiddleware(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		appErr := errors.GetAppError(err)
		if appErr == nil {
			appErr = errors.NewInternalError(internalErrorMessage)
			appErr.Cause = err
		}

		requestID := logger.RequestIDFrom(c.Request.Context())
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			log.Errorw("request failed",
				"code", appErr.Code,
				"error", err.Error(),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"request_id", requestID,
				"context", appErr.Context,
			)
		} else {
			log.Debugw("request rejected",
				"code", appErr.Code,
				"status", appErr.HTTPStatus,
				"path", c.Request.URL.Path,
				"request_id", requestID,
			)
		}
		writeError(c, appErr.HTTPStatus, appErr.Message)
	}
}

// RecoveryMiddleware recovers from panics and returns the generic 500 body.
func RecoveryMiddleware(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Errorw("panic recovered",
					"error", err,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)
				writeError(c, http.StatusInternalServerError, internalErrorMessage)
			}
		}()

		c.Next()
	}
}
