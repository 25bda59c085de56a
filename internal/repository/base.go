package repository

import (
	"docroute/internal/database"

	"gorm.io/gorm"
)

// readDB routes reads to the replica when one is connected.
func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil {
		return db
	}
	return primary
}
