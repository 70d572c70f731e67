package config

import (
	"fmt"

	"github.com/elcascavel/tassi-frontend/models"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the local database: postgres when DB_URL is set, otherwise
// a sqlite file.
func Connect(env Environment) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if env.DBURL != "" {
		dialector = postgres.Open(env.DBURL)
	} else {
		dialector = sqlite.Open(env.SQLitePath)
	}

	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	if env.IsDevelopment {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}
	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: connect %s: %w", dialector.Name(), err)
	}

	if err := db.AutoMigrate(&models.UserLink{}); err != nil {
		return nil, fmt.Errorf("config: auto migrate: %w", err)
	}
	log.Info().Str("driver", dialector.Name()).Msg("database ready")
	return db, nil
}
