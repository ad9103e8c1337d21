package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/emilythestrangee/hasker/backend/internal/config"
	"github.com/emilythestrangee/hasker/backend/internal/models"
)

// Service represents a service that interacts with a database.
type Service interface {
	// Health returns a map of health status information.
	// The keys and values in the map are service-specific.
	Health() map[string]string

	// Close terminates the database connection.
	// It returns an error if the connection cannot be closed.
	Close() error
	GetDB() *gorm.DB
}

type service struct {
	db     *gorm.DB
	driver string
}

// Options selects the driver and connection parameters.
type Options struct {
	Driver   string // "postgres" or "sqlite"
	DSN      string
	LogLevel logger.LogLevel
}

// OptionsFromConfig derives connection options from the app config.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{Driver: cfg.DBDriver, LogLevel: logger.Warn}
	if cfg.DBDriver == "sqlite" {
		opts.DSN = cfg.SQLitePath + "?_foreign_keys=on&_busy_timeout=5000"
	} else {
		opts.DSN = cfg.PostgresDSN()
	}
	if cfg.LogLevel == "debug" {
		opts.LogLevel = logger.Info
	}
	return opts
}

// New opens the database, migrates the schema and configures the pool.
func New(opts Options) (Service, error) {
	dialector, err := dialectorFor(opts)
	if err != nil {
		return nil, err
	}

	// gorm's logger writes through zerolog.
	gormLogger := logger.New(
		gormWriter{log.Logger.With().Str("component", "gorm").Logger()},
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  opts.LogLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	log.Info().Str("driver", opts.Driver).Msg("Database connected successfully")

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("error getting database instance: %w", err)
	}

	if opts.Driver == "sqlite" {
		// SQLite allows a single writer, and an in-memory database lives
		// only as long as its one connection.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return &service{db: db, driver: opts.Driver}, nil
}

func dialectorFor(opts Options) (gorm.Dialector, error) {
	switch opts.Driver {
	case "postgres":
		sqlDB, err := sql.Open("pgx", opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("error opening database: %w", err)
		}
		return postgres.New(postgres.Config{Conn: sqlDB}), nil
	case "sqlite":
		return sqlite.Open(opts.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Tag{},
		&models.Question{},
		&models.Answer{},
		&models.QuestionVote{},
		&models.AnswerVote{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info().Msg("Database migrations completed")
	return nil
}

func (s *service) GetDB() *gorm.DB {
	return s.db
}

// Health checks the health of the database connection by pinging the database.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats := make(map[string]string)

	sqlDB, err := s.db.DB()
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db error: %v", err)
		return stats
	}

	err = sqlDB.PingContext(ctx)
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"
	stats["driver"] = s.driver

	dbStats := sqlDB.Stats()
	stats["open_connections"] = fmt.Sprintf("%d", dbStats.OpenConnections)
	stats["in_use"] = fmt.Sprintf("%d", dbStats.InUse)
	stats["idle"] = fmt.Sprintf("%d", dbStats.Idle)

	return stats
}

// Close closes the database connection.
func (s *service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	log.Info().Str("driver", s.driver).Msg("Disconnected from database")
	return sqlDB.Close()
}

// gormWriter adapts a zerolog.Logger to gorm's logger.Writer.
type gormWriter struct {
	l zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.l.Debug().Msgf(format, args...)
}
