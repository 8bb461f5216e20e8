package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"cashcraft/api/internal/metrics"
	"cashcraft/api/internal/security"
)

const accountIDKey = "account_id"

// TokenVerifier resolves a session token to an account ID.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Auth guards protected routes. It reads "Authorization: Bearer <token>",
// verifies it and stores the account ID on the context. Every verification
// failure is reported as the same "Invalid token".
func Auth(verifier TokenVerifier, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c.GetHeader("Authorization"))
		if tokenStr == "" {
			metrics.RecordAuth("verify", "missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "No token provided",
			})
			return
		}

		accountID, err := verifier.Verify(tokenStr)
		if err != nil {
			metrics.RecordAuth("verify", outcome(err))
			log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid token",
			})
			return
		}

		c.Set(accountIDKey, accountID)
		c.Next()
	}
}

// AccountID returns the identity attached by Auth.
func AccountID(c *gin.Context) (string, bool) {
	id := c.GetString(accountIDKey)
	return id, id != ""
}

// bearerToken strips the first "Bearer " from the header. Whatever remains is
// treated as the token, so a bare or differently prefixed value is still
// verified and fails as an invalid token.
func bearerToken(header string) string {
	return strings.TrimSpace(strings.Replace(header, "Bearer ", "", 1))
}

func outcome(err error) string {
	switch {
	case errors.Is(err, security.ErrTokenExpired):
		return "expired"
	case errors.Is(err, security.ErrTokenSignature):
		return "bad_signature"
	default:
		return "malformed"
	}
}
