package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProduction() *Config {
	return &Config{
		Env:                      "production",
		DBDriver:                 "postgres",
		DBSchemaMode:             "sql",
		DBSSLMode:                "require",
		JWTSecret:                "secure-secret-at-least-32-chars-long",
		DBPassword:               "secure-password",
		Port:                     "8080",
		DBConnMaxLifetimeMinutes: 1,
		RedisURL:                 "redis://localhost:6379",
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with disable SSL mode", "prod", "disable", true},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validProduction()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateProductionStrictness(t *testing.T) {
	mutations := map[string]func(*Config){
		"default secret":   func(c *Config) { c.JWTSecret = defaultJWTSecret },
		"short secret":     func(c *Config) { c.JWTSecret = "short" },
		"sqlite driver":    func(c *Config) { c.DBDriver = "sqlite" },
		"weak db password": func(c *Config) { c.DBPassword = "password" },
		"auto schema":      func(c *Config) { c.DBSchemaMode = "auto" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			c := validProduction()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
	assert.NoError(t, validProduction().Validate())
}

func TestConfig_ValidateRejectsUnknownModes(t *testing.T) {
	c := validProduction()
	c.Env = "development"
	c.DBDriver = "mysql"
	assert.Error(t, c.Validate())

	c.DBDriver = "sqlite"
	c.DBSchemaMode = "yolo"
	assert.Error(t, c.Validate())
}

func TestLoadConfig_Normalization(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_SSLMODE")
	defer os.Unsetenv("DB_DRIVER")
	defer viper.Reset()

	os.Setenv("APP_ENV", "development")
	os.Setenv("DB_SSLMODE", "  DISABLE  ")
	os.Setenv("DB_DRIVER", " SQLite ")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, "hybrid", c.DBSchemaMode)
	assert.Equal(t, 300, c.CacheTTLSeconds)
}

func TestConfig_DSNs(t *testing.T) {
	c := &Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "docroute", DBSSLMode: "require"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=docroute sslmode=require", c.PostgresDSN())
	assert.Equal(t, "pgx5://u:p@db:5432/docroute?sslmode=require", c.MigrateURL())

	assert.Empty(t, c.ReadReplicaDSN())
	c.DBDriver = "postgres"
	c.DBReadHost = "replica"
	assert.Equal(t, "host=replica port=5432 user=u password=p dbname=docroute sslmode=require", c.ReadReplicaDSN())
	assert.Equal(t, "db", c.DBHost)
}
