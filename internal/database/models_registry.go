package database

import "docroute/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Request{},
		&models.ActivityEntry{},
	}
}
