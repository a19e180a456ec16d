package db

import (
	"os"
	"path/filepath"
	"strings"

	"beststore/config"
	"beststore/models"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the sqlite database at cfg.Path, creating the file and its
// directory when missing, and migrates the schema.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dbPath := cfg.Path

	if !inMemory(dbPath) {
		// Ensure the directory exists (create if it doesn't)
		dir := filepath.Dir(dbPath)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, errors.Wrap(err, "failed to create database directory")
			}
		}

		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			zap.L().Info("database file does not exist, creating", zap.String("path", dbPath))
			file, err := os.Create(dbPath)
			if err != nil {
				return nil, errors.Wrap(err, "failed to create database file")
			}
			file.Close()
		}
	}

	logLevel := gormlogger.Warn
	if cfg.Debug {
		logLevel = gormlogger.Info
	}

	gdb, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	zap.L().Info("database connected", zap.String("path", dbPath))

	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(&models.Product{}); err != nil {
		return errors.Wrap(err, "failed to migrate schema")
	}
	return nil
}

func inMemory(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file:")
}
