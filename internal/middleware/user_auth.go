package middleware

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"vidstream/internal/token"
)

// UserAuth validates the access token and injects the caller's identity
// into the context. The token is taken from the Authorization header or,
// failing that, the access_token cookie set at login.
func UserAuth(cfg token.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			log.Println("[AUTH] [ERROR] missing access token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, err := token.VerifyAccess(cfg, raw)
		if err != nil {
			if errors.Is(err, token.ErrTokenExpired) {
				log.Println("[AUTH] [ERROR] access token expired")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token expired"})
				return
			}
			log.Println("[AUTH] [ERROR] access token validation failed:", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set("userId", claims.UserID)
		c.Set("userName", claims.UserName)
		c.Set("email", claims.Email)
		c.Set("fullName", claims.FullName)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	raw := strings.TrimSpace(c.GetHeader("Authorization"))
	if raw != "" {
		parts := strings.Split(raw, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}

	cookie, err := c.Cookie("access_token")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie)
}
