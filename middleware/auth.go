// middleware/auth.go
package middleware

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Role identifies what kind of account holds the session. Staff roles
// map to the office dashboards; patients only reach the portal routes.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCashier Role = "cashier"
	RoleDoctor  Role = "doctor"
	RoleNurse   Role = "nurse"
	RoleLabTech Role = "lab"
	RolePatient Role = "patient"
)

// StaffRoles lists every role that gets a dashboard.
var StaffRoles = []Role{RoleAdmin, RoleCashier, RoleDoctor, RoleNurse, RoleLabTech}

type AuthMiddleware struct {
	logger     *zap.Logger
	redis      *redis.Client
	cookieName string
}

type SessionData struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Role        Role      `json:"role"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewAuthMiddleware(logger *zap.Logger, redis *redis.Client, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{
		logger:     logger,
		redis:      redis,
		cookieName: cookieName,
	}
}

// SessionKey builds the redis key for a session id.
func SessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

func (m *AuthMiddleware) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var sessionID string

		// Try Authorization header first
		auth := c.Get("Authorization")
		if auth != "" && strings.HasPrefix(auth, "Bearer ") {
			sessionID = strings.TrimPrefix(auth, "Bearer ")
		}

		// Fall back to cookie
		if sessionID == "" {
			sessionID = c.Cookies(m.cookieName)
		}

		if sessionID == "" {
			m.logger.Debug("no authentication found",
				zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
				"code":  "NO_SESSION",
			})
		}

		sessionData, err := m.validateSession(c, SessionKey(sessionID))
		if err != nil {
			m.logger.Debug("invalid session",
				zap.String("path", c.Path()),
				zap.Error(err))

			// Clear invalid cookie
			c.Cookie(&fiber.Cookie{
				Name:     m.cookieName,
				Value:    "",
				Expires:  time.Now().Add(-1 * time.Hour),
				HTTPOnly: true,
				Secure:   true,
				SameSite: "Lax",
				Path:     "/",
			})

			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired session",
				"code":  "SESSION_INVALID",
			})
		}

		// Store session data in context
		c.Locals("userID", sessionData.UserID)
		c.Locals("name", sessionData.Name)
		c.Locals("role", sessionData.Role)
		c.Locals("sessionID", sessionID)

		return c.Next()
	}
}

// RequireRoles guards a route group behind an allow-list of roles. It
// must run after Handler so the role is already in the context.
func (m *AuthMiddleware) RequireRoles(roles ...Role) fiber.Handler {
	allowed := make(map[Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals("role").(Role)
		if !ok || !allowed[role] {
			m.logger.Debug("role not permitted",
				zap.String("path", c.Path()),
				zap.String("role", string(role)))
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "You do not have access to this resource",
				"code":  "FORBIDDEN",
			})
		}
		return c.Next()
	}
}

func (m *AuthMiddleware) validateSession(c *fiber.Ctx, sessionKey string) (*SessionData, error) {
	sessionBytes, err := m.redis.Get(c.Context(), sessionKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("session not found")
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var sessionData SessionData
	if err := json.Unmarshal(sessionBytes, &sessionData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	if time.Now().After(sessionData.ExpiresAt) {
		m.redis.Del(c.Context(), sessionKey)
		return nil, fmt.Errorf("session expired")
	}

	return &sessionData, nil
}
