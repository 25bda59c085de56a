package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"docroute/internal/authz"
	"docroute/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

var companyReviewer = authz.Actor{
	ID:       "u-123",
	Name:     "Capt Reyes",
	Role:     "company_commander",
	Level:    authz.LevelUnit,
	UnitUIC:  "M12345",
	Division: "",
}

func mustToken(t *testing.T, actor authz.Actor, ttl time.Duration) string {
	t.Helper()
	s, err := IssueToken(testSecret, "docroute", actor, ttl)
	require.NoError(t, err)
	return s
}

func TestAuthRequired(t *testing.T) {
	app := fiber.New()
	InitMiddleware(&config.Config{JWTSecret: testSecret, JWTIssuer: "docroute"})

	app.Get("/test", AuthRequired, func(c *fiber.Ctx) error {
		actor, ok := ActorFrom(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.JSON(fiber.Map{"userID": c.Locals("userID"), "actor": actor})
	})

	noLevel := companyReviewer
	noLevel.Level = ""

	hs512 := func() string {
		claims := Claims{Level: "unit", RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			Issuer:    "docroute",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		s, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
		return s
	}

	wrongIssuer, err := IssueToken(testSecret, "someone-else", companyReviewer, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{"Happy Path", "Bearer " + mustToken(t, companyReviewer, time.Hour), http.StatusOK},
		{"Missing Header", "", http.StatusUnauthorized},
		{"Invalid Format", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"Malformed Token", "Bearer malformed.token.here", http.StatusUnauthorized},
		{"Expired Token", "Bearer " + mustToken(t, companyReviewer, -time.Hour), http.StatusUnauthorized},
		{"Unknown Level", "Bearer " + mustToken(t, noLevel, time.Hour), http.StatusUnauthorized},
		{"Wrong Algorithm", "Bearer " + hs512(), http.StatusUnauthorized},
		{"Wrong Issuer", "Bearer " + wrongIssuer, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusOK {
				var body struct {
					UserID string      `json:"userID"`
					Actor  authz.Actor `json:"actor"`
				}
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, "u-123", body.UserID)
				assert.Equal(t, companyReviewer, body.Actor)
			}
		})
	}
}

func TestWebSocketAuthRequired(t *testing.T) {
	app := fiber.New()
	InitMiddleware(&config.Config{JWTSecret: testSecret})

	app.Get("/ws-test", WebSocketAuthRequired, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	token := mustToken(t, companyReviewer, time.Hour)

	tests := []struct {
		name           string
		tokenParam     string
		authHeader     string
		expectedStatus int
	}{
		{name: "Token via Query Param", tokenParam: token, expectedStatus: http.StatusOK},
		{name: "Token via Header", authHeader: "Bearer " + token, expectedStatus: http.StatusOK},
		{name: "Missing Token", expectedStatus: http.StatusUnauthorized},
		{name: "Invalid Token", tokenParam: "invalid-token", expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := "/ws-test"
			if tt.tokenParam != "" {
				path += "?token=" + tt.tokenParam
			}
			req := httptest.NewRequest(http.MethodGet, path, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestClaimsActor(t *testing.T) {
	claims := &Claims{
		Name:           "Col Hart",
		Level:          "installation",
		InstallationID: "camp-lejeune",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "u-9",
		},
	}
	actor := claims.Actor()
	assert.Equal(t, "u-9", actor.ID)
	assert.Equal(t, authz.LevelInstallation, actor.Level)
	assert.Equal(t, "camp-lejeune", actor.InstallationID)
}
