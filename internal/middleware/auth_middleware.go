package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"taskboard/internal/auth"
	"taskboard/internal/response"
)

// UserIDKey is the gin context key holding the authenticated principal as uuid.UUID.
const UserIDKey = "userID"

// JWTAuthMiddleware rejects requests without a valid bearer token and stores the
// principal under UserIDKey.
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "Authorization header is required")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "Authorization header format must be Bearer {token}")
			return
		}

		subject, err := auth.ParseToken(strings.TrimSpace(parts[1]), secret)
		if err != nil {
			response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "Invalid or expired token")
			return
		}

		userID, err := uuid.Parse(subject)
		if err != nil {
			response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "Invalid user ID in token")
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}
