// Package middleware provides authentication, logging and tracing middleware for the application.
package middleware

import (
	"errors"
	"strings"
	"time"

	"docroute/internal/authz"
	"docroute/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

const actorLocal = "actor"

// Claims carries the identity collaborator's view of the acting user.
type Claims struct {
	Name           string `json:"name"`
	Role           string `json:"role,omitempty"`
	Level          string `json:"level"`
	UnitUIC        string `json:"unit_uic,omitempty"`
	InstallationID string `json:"installation_id,omitempty"`
	Division       string `json:"division,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts the claims into an authorization actor.
func (c *Claims) Actor() authz.Actor {
	return authz.Actor{
		ID:             c.Subject,
		Name:           c.Name,
		Role:           c.Role,
		Level:          authz.ParseLevel(c.Level),
		UnitUIC:        c.UnitUIC,
		InstallationID: c.InstallationID,
		Division:       c.Division,
	}
}

// IssueToken signs an HS256 token for actor. Used by the seed and routewatch
// tools and by tests.
func IssueToken(secret, issuer string, actor authz.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Name:           actor.Name,
		Role:           actor.Role,
		Level:          string(actor.Level),
		UnitUIC:        actor.UnitUIC,
		InstallationID: actor.InstallationID,
		Division:       actor.Division,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates tokenString and returns its claims.
func ParseToken(tokenString string) (*Claims, error) {
	if cfg == nil {
		return nil, errors.New("auth middleware not initialized")
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.JWTIssuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}
	if claims.Subject == "" {
		return nil, errors.New("invalid token structure - missing subject")
	}
	if authz.ParseLevel(claims.Level) == "" {
		return nil, errors.New("invalid token level")
	}
	return claims, nil
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("Authorization header required")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("Invalid authorization header format")
	}
	return parts[1], nil
}

func authenticate(c *fiber.Ctx, token string) error {
	claims, err := ParseToken(token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	c.Locals("userID", claims.Subject)
	c.Locals(actorLocal, claims.Actor())
	return c.Next()
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(c *fiber.Ctx) error {
	token, err := bearerToken(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return authenticate(c, token)
}

// WebSocketAuthRequired accepts the token from the "token" query parameter,
// falling back to the Authorization header.
func WebSocketAuthRequired(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		var err error
		if token, err = bearerToken(c); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Token required",
			})
		}
	}
	return authenticate(c, token)
}

// ActorFrom returns the authenticated actor stored by AuthRequired.
func ActorFrom(c *fiber.Ctx) (authz.Actor, bool) {
	actor, ok := c.Locals(actorLocal).(authz.Actor)
	return actor, ok
}
