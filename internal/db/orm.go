package db

import (
	"fmt"
	"log"

	gormModels "infinite-experiment/edigate/internal/models/gorm"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var PgDB *gorm.DB

func InitPostgresORM(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	PgDB = db
	log.Println("Connected to Postgres via GORM")
	return db, nil
}

// Migrate creates or updates every table the engine owns, plus the
// transaction number sequence on Postgres.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(gormModels.AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("CREATE SEQUENCE IF NOT EXISTS " + TransactionSequenceName).Error; err != nil {
			return fmt.Errorf("failed to create transaction sequence: %w", err)
		}
	}
	log.Println("Database schema migrated")
	return nil
}
