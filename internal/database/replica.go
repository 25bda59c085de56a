package database

import (
	"fmt"
	"log/slog"
	"sync"

	"docroute/internal/config"
	"docroute/internal/middleware"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	readMu sync.RWMutex
	readDB *gorm.DB
)

// GetReadDB returns the read replica, or nil when reads go to the primary.
func GetReadDB() *gorm.DB {
	readMu.RLock()
	defer readMu.RUnlock()
	return readDB
}

// SetReadDB installs db as the read replica. Passing nil routes reads back
// to the primary.
func SetReadDB(db *gorm.DB) {
	readMu.Lock()
	defer readMu.Unlock()
	readDB = db
}

// ConnectReadReplica opens DB_READ_HOST when configured and installs it.
// It is a no-op for sqlite and when no replica host is set.
func ConnectReadReplica(cfg *config.Config) error {
	dsn := cfg.ReadReplicaDSN()
	if dsn == "" {
		return nil
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: NewGormLogger(middleware.Logger),
	})
	if err != nil {
		return fmt.Errorf("connect read replica: %w", err)
	}
	if err := configurePool(db, cfg); err != nil {
		return err
	}
	SetReadDB(db)
	middleware.Logger.Info("Read replica connected", slog.String("host", cfg.DBReadHost))
	return nil
}
