package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-ecommerce/pkg/apperror"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/response"
)

const internalMessage = "internal server error"

// ErrorHandler turns the last error pushed with c.Error into the response envelope.
// It must be registered before any middleware that can push errors.
func ErrorHandler(logger *logrus.Logger, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		ae := apperror.From(err)
		status := ae.Kind.Status()

		msg := ae.Message
		var detail any
		if status >= http.StatusInternalServerError {
			logger.WithError(err).
				WithField("request_id", c.GetString(response.RequestIDKey)).
				WithField("path", c.Request.URL.Path).
				Error("request failed")
			if production {
				msg = internalMessage
			} else {
				detail = err.Error()
			}
		}
		response.Abort(c, status, msg, ae.Details, detail)
	}
}

// Recovery converts a panic into a 500 envelope.
func Recovery(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		logger.WithField("panic", rec).
			WithField("request_id", c.GetString(response.RequestIDKey)).
			WithField("path", c.Request.URL.Path).
			Error("panic recovered")
		response.Abort(c, http.StatusInternalServerError, internalMessage, nil, nil)
	})
}
