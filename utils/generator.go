package utils

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mchoapp/backend/cache"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// JwtTokenGenerator mints the access tokens handed out at login and
// tracks their identifiers in redis so logout can invalidate them.
type JwtTokenGenerator struct {
	usedTokens map[string]bool
	mutex      sync.Mutex
	cache      *cache.Cache
	secretKey  []byte
}

// NewJwtTokenGenerator creates a new JwtTokenGenerator
func NewJwtTokenGenerator(redisClient *redis.Client, secretKey string) *JwtTokenGenerator {
	return &JwtTokenGenerator{
		usedTokens: make(map[string]bool),
		cache:      cache.NewCache(redisClient, "jwt:"),
		secretKey:  []byte(secretKey),
	}
}

// GenerateJWT creates a signed token for the given account and role.
func (g *JwtTokenGenerator) GenerateJWT(ctx context.Context, userID uuid.UUID, role string, ttl time.Duration) (string, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	// Generate unique token identifier
	jti := uuid.New().String()
	for g.usedTokens[jti] {
		jti = uuid.New().String()
	}
	g.usedTokens[jti] = true

	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"role": role,
		"exp":  time.Now().Add(ttl).Unix(),
		"iat":  time.Now().Unix(),
		"jti":  jti,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString(g.secretKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}

	// Cache the token with expiration
	if err := g.cache.Set(ctx, jti, claims, ttl); err != nil {
		return "", errors.Wrap(err, "failed to cache token")
	}

	return signedToken, nil
}

// VerifyJWT verifies and parses a token, checking it is still live in
// the cache.
func (g *JwtTokenGenerator) VerifyJWT(ctx context.Context, tokenString string) (*jwt.Token, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return g.secretKey, nil
	})

	if err != nil {
		return nil, errors.Wrap(err, "failed to parse token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	jti, ok := claims["jti"].(string)
	if !ok {
		return nil, errors.New("invalid token identifier")
	}

	var cachedClaims jwt.MapClaims
	if err := g.cache.Get(ctx, jti, &cachedClaims); err != nil {
		return nil, errors.Wrap(err, "token not found in cache")
	}

	return token, nil
}

// InvalidateToken removes a token from the cache and used tokens
func (g *JwtTokenGenerator) InvalidateToken(ctx context.Context, jti string) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	delete(g.usedTokens, jti)
	return g.cache.Delete(ctx, jti)
}
