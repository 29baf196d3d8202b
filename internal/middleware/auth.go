package middleware

import (
	"strings"

	"github.com/dimitrije/playdate-api/internal/services"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

const (
	GuardianIDKey    = "guardian_id"
	GuardianEmailKey = "guardian_email"
)

func Auth(jwtService *services.JWTService) drift.HandlerFunc {
	return func(c *drift.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Unauthorized("missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.Unauthorized("invalid authorization header format")
			return
		}

		claims, err := jwtService.ValidateAccessToken(parts[1])
		if err != nil {
			c.Unauthorized("invalid or expired token")
			return
		}

		c.Set(GuardianIDKey, claims.GuardianID)
		c.Set(GuardianEmailKey, claims.Email)

		c.Next()
	}
}

func GetGuardianID(c *drift.Context) uuid.UUID {
	if id, ok := c.Get(GuardianIDKey); ok {
		if gid, ok := id.(uuid.UUID); ok {
			return gid
		}
	}
	return uuid.Nil
}

func GetGuardianEmail(c *drift.Context) string {
	if email, ok := c.Get(GuardianEmailKey); ok {
		if e, ok := email.(string); ok {
			return e
		}
	}
	return ""
}
