// Package bootstrap wires the runtime dependencies shared by the API server
// and the command-line tools.
package bootstrap

import (
	"fmt"
	"log/slog"
	"time"

	"docroute/internal/cache"
	"docroute/internal/config"
	"docroute/internal/database"
	"docroute/internal/middleware"
	"docroute/internal/ssic"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SkipSchema opens the database without running migrations.
	SkipSchema bool
	// SkipReplica leaves reads on the primary even when a replica is configured.
	SkipReplica bool
}

// Runtime holds the connections a process needs.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// InitRuntime connects to the database, the optional read replica and Redis.
// Redis is nil when unreachable.
func InitRuntime(cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: !opts.SkipSchema})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if !opts.SkipReplica {
		if err := database.ConnectReadReplica(cfg); err != nil {
			middleware.Logger.Warn("read replica unavailable, reads use the primary",
				slog.String("error", err.Error()))
		}
	}

	r := cache.InitRedis(cfg.RedisURL)
	cache.SetRequestTTL(time.Duration(cfg.CacheTTLSeconds) * time.Second)

	return &Runtime{DB: db, Redis: r}, nil
}

// Close releases every connection held by rt.
func (rt *Runtime) Close() {
	if rt == nil {
		return
	}
	if rt.DB != nil {
		if sqlDB, err := rt.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if replica := database.GetReadDB(); replica != nil && replica != rt.DB {
		if sqlDB, err := replica.DB(); err == nil {
			_ = sqlDB.Close()
		}
		database.SetReadDB(nil)
	}
	if rt.Redis != nil {
		_ = rt.Redis.Close()
	}
}

// LoadCatalog reads the configured SSIC catalog, or the built-in one when no
// path is set, and fronts it with the lookup cache.
func LoadCatalog(cfg *config.Config) (*ssic.Catalog, error) {
	var (
		catalog *ssic.Catalog
		err     error
	)
	if cfg.SSICCatalogPath != "" {
		catalog, err = ssic.Load(cfg.SSICCatalogPath)
	} else {
		catalog, err = ssic.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("load SSIC catalog: %w", err)
	}
	return catalog.WithLookupCache(cfg.SSICLookupCacheSize, time.Duration(cfg.CacheTTLSeconds)*time.Second), nil
}
