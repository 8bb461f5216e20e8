package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Recovery turns a panic into a generic 500. Outside production the stack is
// echoed back to the caller.
func Recovery(log zerolog.Logger, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				log.Error().
					Interface("error", r).
					Str("stack", stack).
					Str("request_id", c.Writer.Header().Get(requestIDHeader)).
					Msg("panic recovered")

				body := gin.H{
					"success": false,
					"message": "Internal server error",
				}
				if !production {
					body["stack"] = stack
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, body)
			}
		}()
		c.Next()
	}
}
