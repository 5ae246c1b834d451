package db

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Init opens a GORM connection for the given URL. The scheme selects the
// driver: "postgres://<dsn>" or "sqlite://<path>".
func Init(dbURL string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch {
	case strings.HasPrefix(dbURL, "postgres://"):
		dialector = postgres.Open(strings.TrimPrefix(dbURL, "postgres://"))
		slog.Info("connecting to PostgreSQL database")
	case strings.HasPrefix(dbURL, "sqlite://"):
		dsn := strings.TrimPrefix(dbURL, "sqlite://")
		dialector = sqlite.Open(dsn)
		slog.Info("connecting to SQLite database", "path", dsn)
	default:
		return nil, fmt.Errorf("invalid DATABASE_URL %q: must start with postgres:// or sqlite://", dbURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	return db, nil
}
