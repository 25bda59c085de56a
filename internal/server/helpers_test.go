package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"docroute/internal/authz"
	"docroute/internal/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupMockDB creates a GORM *gorm.DB backed by sqlmock with ping monitoring.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)
	return gormDB, mock
}

// --- parsePagination ---

func TestParsePagination_Defaults(t *testing.T) {
	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		p := parsePagination(c, 25)
		return c.JSON(fiber.Map{"limit": p.Limit, "offset": p.Offset})
	})

	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var body map[string]float64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Equal(t, float64(25), body["limit"])
	assert.Equal(t, float64(0), body["offset"])
}

func TestParsePagination_Bounds(t *testing.T) {
	tests := []struct {
		query          string
		expectedLimit  float64
		expectedOffset float64
	}{
		{"?limit=10&offset=30", 10, 30},
		{"?limit=5000", maxPaginationLimit, 0},
		{"?limit=-3&offset=-9", 25, 0},
		{"?limit=abc", 25, 0},
	}

	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		p := parsePagination(c, 25)
		return c.JSON(fiber.Map{"limit": p.Limit, "offset": p.Offset})
	})

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items"+tt.query, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			var body map[string]float64
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.expectedLimit, body["limit"])
			assert.Equal(t, tt.expectedOffset, body["offset"])
		})
	}
}

// --- parseVersion ---

func TestParseVersion(t *testing.T) {
	app := fiber.New()
	app.Get("/v", func(c *fiber.Ctx) error {
		v, err := parseVersion(c)
		if err != nil {
			return nil
		}
		return c.JSON(fiber.Map{"version": v})
	})

	tests := []struct {
		query          string
		expectedStatus int
	}{
		{"", http.StatusOK},
		{"?version=4", http.StatusOK},
		{"?version=-1", http.StatusBadRequest},
		{"?version=latest", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/v"+tt.query, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

// --- requireActor / AdminRequired ---

func withActor(actor *authz.Actor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if actor != nil {
			c.Locals("actor", *actor)
		}
		return c.Next()
	}
}

func TestRequireActor(t *testing.T) {
	handler := func(c *fiber.Ctx) error {
		actor, err := requireActor(c)
		if err != nil {
			return nil
		}
		return c.SendString(actor.ID)
	}

	app := fiber.New()
	app.Get("/anon", withActor(nil), handler)
	app.Get("/known", withActor(&authz.Actor{ID: "u-1", Level: authz.LevelUnit}), handler)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/anon", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/known", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdminRequired(t *testing.T) {
	s := &Server{}
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }

	app := fiber.New()
	app.Get("/admin", withActor(&authz.Actor{ID: "u-1", Role: "admin", Level: authz.LevelUnit}), s.AdminRequired(), ok)
	app.Get("/user", withActor(&authz.Actor{ID: "u-2", Level: authz.LevelUnit}), s.AdminRequired(), ok)
	app.Get("/anon", withActor(nil), s.AdminRequired(), ok)

	for path, want := range map[string]int{
		"/admin": http.StatusOK,
		"/user":  http.StatusForbidden,
		"/anon":  http.StatusUnauthorized,
	} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, want, resp.StatusCode, path)
	}
}

// --- ReadinessCheck ---

func TestReadinessCheck_DatabaseDown(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	s := &Server{config: &config.Config{}, db: db}
	app := fiber.New()
	app.Get("/health/ready", s.ReadinessCheck)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "unhealthy", body.Checks["database"])
	assert.Equal(t, "unavailable", body.Checks["redis"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadinessCheck_DegradedWithoutRedis(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectPing()

	s := &Server{config: &config.Config{}, db: db}
	app := fiber.New()
	app.Get("/health/ready", s.ReadinessCheck)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "degraded", body["status"])
}
