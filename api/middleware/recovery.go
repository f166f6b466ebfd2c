package middleware

import (
	"net/http"
	"runtime/debug"

	"tdr-review/api/response"
	"tdr-review/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Recovery turns a handler panic into a 500 and logs the stack.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error(c.Request.Context(), "panic recovered",
					"error", err,
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"stack", string(debug.Stack()),
				)
				c.Abort()
				response.Fail(c, http.StatusInternalServerError, "internal server error")
			}
		}()

		c.Next()
	}
}
