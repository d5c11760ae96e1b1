package handlers

import (
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mchoapp/backend/config"
	"github.com/mchoapp/backend/middleware"
	"github.com/mchoapp/backend/utils"
)

// AuthHandler signs staff and patients in against the local account
// tables, issuing a redis-backed session plus a JWT access token.
type AuthHandler struct {
	config      *config.Config
	logger      *zap.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	tokens      *utils.JwtTokenGenerator
	cookieName  string
}

func NewAuthHandler(cfg *config.Config, logger *zap.Logger, pgPool *pgxpool.Pool, redisClient *redis.Client, cookieName string) *AuthHandler {
	return &AuthHandler{
		config:      cfg,
		logger:      logger,
		pgPool:      pgPool,
		redisClient: redisClient,
		tokens:      utils.NewJwtTokenGenerator(redisClient, cfg.SessionSecret),
		cookieName:  cookieName,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type account struct {
	ID           uuid.UUID
	Name         string
	Role         middleware.Role
	PasswordHash string
}

// Login verifies credentials and creates a session. Staff accounts are
// checked first, then the patient portal accounts.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Error("failed to parse login request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request data",
		})
	}
	if req.Username == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Username and password are required",
		})
	}

	acct, err := h.findAccount(c, req.Username)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid username or password",
			})
		}
		h.logger.Error("failed to look up account", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Database error",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(req.Password)); err != nil {
		h.logger.Debug("password mismatch",
			zap.String("username", req.Username))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid username or password",
		})
	}

	ttl := time.Duration(h.config.SessionDuration) * time.Hour
	accessToken, err := h.tokens.GenerateJWT(c.Context(), acct.ID, string(acct.Role), ttl)
	if err != nil {
		h.logger.Error("failed to generate access token", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create session",
		})
	}

	sessionID := uuid.New().String()
	sessionData := middleware.SessionData{
		AccessToken: accessToken,
		UserID:      acct.ID.String(),
		Name:        acct.Name,
		Role:        acct.Role,
		ExpiresAt:   time.Now().Add(ttl),
		CreatedAt:   time.Now(),
	}

	sessionBytes, err := json.Marshal(sessionData)
	if err != nil {
		h.logger.Error("failed to marshal session", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create session",
		})
	}
	if err := h.redisClient.Set(c.Context(), middleware.SessionKey(sessionID), sessionBytes, ttl).Err(); err != nil {
		h.logger.Error("failed to store session", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create session",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    sessionID,
		Expires:  sessionData.ExpiresAt,
		HTTPOnly: true,
		Secure:   !h.config.IsDevelopment(),
		SameSite: "Lax",
		Domain:   h.config.CookieDomain,
		Path:     "/",
	})

	h.logger.Info("user logged in",
		zap.String("user_id", acct.ID.String()),
		zap.String("role", string(acct.Role)))

	return c.JSON(fiber.Map{
		"message":      "Logged in successfully",
		"access_token": accessToken,
		"role":         acct.Role,
		"name":         acct.Name,
	})
}

// Logout destroys the current session.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sessionID := c.Cookies(h.cookieName)
	if sessionID == "" {
		sessionID, _ = c.Locals("sessionID").(string)
	}
	if sessionID != "" {
		if err := h.redisClient.Del(c.Context(), middleware.SessionKey(sessionID)).Err(); err != nil {
			h.logger.Error("failed to delete session", zap.Error(err))
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Expires:  time.Now().Add(-1 * time.Hour),
		HTTPOnly: true,
		Secure:   !h.config.IsDevelopment(),
		SameSite: "Lax",
		Path:     "/",
	})

	return c.JSON(fiber.Map{
		"message": "Logged out successfully",
	})
}

func (h *AuthHandler) findAccount(c *fiber.Ctx, username string) (*account, error) {
	var acct account
	var role string

	err := h.pgPool.QueryRow(c.Context(),
		`SELECT id, COALESCE(name, '') as name, role, password_hash
		 FROM staff WHERE username = $1`,
		username).Scan(&acct.ID, &acct.Name, &role, &acct.PasswordHash)
	if err == nil {
		acct.Role = middleware.Role(role)
		return &acct, nil
	}
	if !stderrors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// Patient portal accounts sign in with their registered email.
	err = h.pgPool.QueryRow(c.Context(),
		`SELECT id, COALESCE(first_name, '') || ' ' || COALESCE(last_name, '') as name, password_hash
		 FROM patients WHERE username = $1 OR email = $1`,
		username).Scan(&acct.ID, &acct.Name, &acct.PasswordHash)
	if err != nil {
		return nil, err
	}
	acct.Role = middleware.RolePatient
	return &acct, nil
}
