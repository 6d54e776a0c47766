package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"datacopilot/internal/pkg/jwtutil"
	"datacopilot/internal/transport/http/response"
)

const (
	ContextUserIDKey   = "user_id"
	ContextUsernameKey = "username"
)

// AuthJWT authenticates every request behind it. The token normally arrives as
// a bearer header; EventSource clients cannot set headers, so an access_token
// query parameter is accepted as a fallback.
func AuthJWT(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractToken(c)
		if !ok {
			response.Error(c, 401, response.CodeUnauthorized, "missing or malformed credentials")
			c.Abort()
			return
		}

		claims, err := jwtutil.ParseToken(secret, token)
		if err != nil {
			response.Error(c, 401, response.CodeUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextUsernameKey, claims.Username)
		c.Next()
	}
}

func extractToken(c *gin.Context) (string, bool) {
	const prefix = "Bearer "

	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if strings.HasPrefix(header, prefix) {
		token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
		return token, token != ""
	}
	if header != "" {
		return "", false
	}

	if token := strings.TrimSpace(c.Query("access_token")); token != "" {
		return token, true
	}
	return "", false
}
