package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/repopulse/repopulse/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store defines the interface for snapshot persistence
type Store interface {
	// Monitored repository operations
	ListMonitoredRepositories(ctx context.Context) ([]*models.MonitoredRepository, error)
	AddMonitoredRepository(ctx context.Context, owner, name string, sortOrder int) error
	RemoveMonitoredRepository(ctx context.Context, owner, name string) error

	// Snapshot operations
	SaveSnapshot(ctx context.Context, repo *models.Repository) error
	GetSnapshot(ctx context.Context, owner, name string) (*models.Repository, error)
	ListSnapshots(ctx context.Context) ([]*models.Repository, error)

	Close() error
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Migrate() error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
