package database

import (
	"fmt"

	"github.com/vladimiradmaev/therapy-overrides/internal/config"
	"github.com/vladimiradmaev/therapy-overrides/internal/database/migrations"
	"github.com/vladimiradmaev/therapy-overrides/internal/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func NewPostgresDB(cfg config.DBConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Tables first, so SQL migrations can index them
	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	if err := migrations.LoadSQLMigrations(migrations.Files); err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	if err := migrations.RunMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Database connection established and migrations completed", "host", cfg.Host, "db", cfg.DBName)
	return db, nil
}
