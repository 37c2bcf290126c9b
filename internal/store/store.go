package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Giuseph66/neurelix-nexus/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store is the persistence layer for projects, git connections and their mirrors.
type Store struct {
	db *gorm.DB
}

// newGormLogger reports slow queries and real failures. Missing rows are
// ordinary lookups here and stay quiet.
func newGormLogger(w logger.Writer) logger.Interface {
	return logger.New(w, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// New opens the database and migrates every table the service owns.
func New(ctx context.Context, driver, dsn string) (*Store, error) {
	dialector, err := GetDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(log.New(os.Stderr, "\r\n", log.LstdFlags)),
	})
	if err != nil {
		return nil, err
	}

	// A shared in-memory sqlite database only lives as long as its single connection
	if driver == DriverSQLite && dsn == ":memory:" {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	if err := db.WithContext(ctx).AutoMigrate(
		&models.Project{},
		&models.ProjectMember{},
		&models.Tarefa{},
		&models.ConnectionState{},
		&models.GitConnection{},
		&models.Repository{},
		&models.Branch{},
		&models.Commit{},
		&models.PullRequest{},
		&models.PullRequestReview{},
		&models.TarefaGitLink{},
		&models.AuditLog{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// Health pings the underlying connection pool.
func (s *Store) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// DB exposes the gorm handle for callers that need raw access (tests, seeding).
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// notFound maps gorm's sentinel onto ErrRecordNotFound so callers never import gorm.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRecordNotFound
	}
	return err
}
