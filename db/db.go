package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"devdeck/models"

	_ "modernc.org/sqlite" // Use pure Go SQLite driver (no CGO required)
)

// DB is the durable local medium: one SQLite file with a key/value blob
// table and a settings table.
type DB struct {
	gorm *gorm.DB
	sql  *sql.DB
}

// Open opens (creating if needed) the SQLite database at dbPath with WAL
// journaling and a single connection.
func Open(dbPath string) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	config := &gorm.Config{
		Logger:      logger.Default.LogMode(logger.Silent),
		PrepareStmt: true,
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_time_format=sqlite"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	g, err := gorm.Open(sqlite.Dialector{Conn: sqlDB}, config)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := g.Exec("PRAGMA journal_mode = WAL;").Error; err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	// NORMAL is safe in WAL mode
	if err := g.Exec("PRAGMA synchronous = NORMAL;").Error; err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	// SQLite only supports one writer at a time
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := g.AutoMigrate(&models.Blob{}, &models.Setting{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &DB{gorm: g, sql: sqlDB}, nil
}

// GetBlob returns the value stored under key. ok is false when no row exists.
func (d *DB) GetBlob(key string) (value []byte, ok bool, err error) {
	var blob models.Blob
	result := d.gorm.Where(&models.Blob{Key: key}).Limit(1).Find(&blob)
	if result.Error != nil {
		return nil, false, fmt.Errorf("failed to read blob %s: %w", key, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, false, nil
	}
	return blob.Value, true, nil
}

// PutBlob replaces the value stored under key.
func (d *DB) PutBlob(key string, value []byte) error {
	blob := models.Blob{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	result := d.gorm.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&blob)
	if result.Error != nil {
		return fmt.Errorf("failed to write blob %s: %w", key, result.Error)
	}
	return nil
}

// BlobKeys returns the keys starting with prefix in sorted order.
func (d *DB) BlobKeys(prefix string) ([]string, error) {
	var keys []string
	err := d.gorm.Model(&models.Blob{}).
		Where("substr(`key`, 1, ?) = ?", len(prefix), prefix).
		Order("`key`").
		Pluck("key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}
	return keys, nil
}

// DeleteBlob removes key. Missing keys are not an error.
func (d *DB) DeleteBlob(key string) error {
	if err := d.gorm.Delete(&models.Blob{Key: key}).Error; err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	return nil
}

// GetSetting retrieves a setting value by key, "" when unset.
func (d *DB) GetSetting(key string) (string, error) {
	var s models.Setting
	err := d.gorm.Where(&models.Setting{Key: key}).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return s.Value, nil
}

// SetSetting creates or updates a setting.
func (d *DB) SetSetting(key, value string) error {
	s := models.Setting{Key: key, Value: value}
	err := d.gorm.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&s).Error
	if err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}
