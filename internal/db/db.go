// Package db provides database connectivity and operations
package db

import (
	"errors"
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/orionsurvey/cutouts/internal/db/models"
)

// Database configuration constants
const (
	// DefaultHost is the default database host
	DefaultHost = "localhost"
	// DefaultPort is the default database port
	DefaultPort = 5432
	// DefaultUser is the default database user
	DefaultUser = "postgres"
	// DefaultPassword is the default database password
	DefaultPassword = "postgres"
	// DefaultDBName is the default database name
	DefaultDBName     = "cutouts"
	DefaultSSLEnabled = false

	// SchemaVersion is the schema version this build understands. A
	// process refuses to start against any other on-disk version.
	SchemaVersion = 1
)

// ErrSchemaMismatch is returned when the on-disk schema version does
// not match SchemaVersion. This is fatal at startup.
var ErrSchemaMismatch = errors.New("job database schema version mismatch")

// Options represents database connection configuration options
type Options struct {
	Host       string
	User       string
	Password   string
	DBName     string
	Port       int
	SSLEnabled *bool
	LogLevel   logger.LogLevel
	// SkipSchemaCheck connects without verifying the recorded schema
	// version. Only the migrate command should set this.
	SkipSchemaCheck bool
}

// New creates a new database connection with the given options and
// verifies the schema version. Migrations are run separately by the
// migrate command; New fails fast on a version it does not understand.
func New(opts Options) (*gorm.DB, error) {
	opts = setDefaults(opts)
	sslMode := "disable"
	if opts.SSLEnabled != nil && *opts.SSLEnabled {
		sslMode = "enable"
	}
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		opts.Host, opts.User, opts.Password, opts.DBName, opts.Port, sslMode)

	// Configure custom logger to ignore record not found errors
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			LogLevel:                  opts.LogLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: newLogger})
	if err != nil {
		return nil, err
	}
	if !opts.SkipSchemaCheck {
		if err := VerifySchema(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// Migrate applies the schema and records the schema version. Intended
// for the migrate command, not for serving processes.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Job{}, &models.SchemaInfo{}); err != nil {
		return err
	}
	var info models.SchemaInfo
	err := db.First(&info).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return db.Create(&models.SchemaInfo{Version: SchemaVersion}).Error
	case err != nil:
		return err
	case info.Version != SchemaVersion:
		info.Version = SchemaVersion
		return db.Save(&info).Error
	}
	return nil
}

// VerifySchema checks the recorded schema version against the version
// this build expects.
func VerifySchema(db *gorm.DB) error {
	var info models.SchemaInfo
	if err := db.First(&info).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: no schema version recorded, run migrations first", ErrSchemaMismatch)
		}
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if info.Version != SchemaVersion {
		return fmt.Errorf("%w: have %d, want %d", ErrSchemaMismatch, info.Version, SchemaVersion)
	}
	return nil
}

func setDefaults(opts Options) Options {
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.User == "" {
		opts.User = DefaultUser
	}
	if opts.Password == "" {
		opts.Password = DefaultPassword
	}
	if opts.DBName == "" {
		opts.DBName = DefaultDBName
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	if opts.SSLEnabled == nil {
		sslMode := DefaultSSLEnabled
		opts.SSLEnabled = &sslMode
	}
	if opts.LogLevel == 0 {
		opts.LogLevel = logger.Warn
	}
	return opts
}
