package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/repopulse/repopulse/internal/models"
)

// ListMonitoredRepositories returns all repositories the refresh service
// keeps synced, in display order.
func (s *PostgresStore) ListMonitoredRepositories(ctx context.Context) ([]*models.MonitoredRepository, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT owner, name, sort_order, added_at FROM monitored_repositories
		ORDER BY sort_order, owner, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query monitored repositories: %w", err)
	}
	defer rows.Close()

	var repos []*models.MonitoredRepository
	for rows.Next() {
		var repo models.MonitoredRepository
		if err := rows.Scan(&repo.Owner, &repo.Name, &repo.SortOrder, &repo.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan monitored repository: %w", err)
		}
		repos = append(repos, &repo)
	}
	return repos, rows.Err()
}

// AddMonitoredRepository registers a repository for refresh cycles.
func (s *PostgresStore) AddMonitoredRepository(ctx context.Context, owner, name string, sortOrder int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO monitored_repositories (owner, name, sort_order, added_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (owner, name) DO UPDATE SET
			sort_order = EXCLUDED.sort_order
	`, owner, name, sortOrder)
	if err != nil {
		return fmt.Errorf("failed to add monitored repository: %w", err)
	}
	return nil
}

// RemoveMonitoredRepository unregisters a repository and drops its
// snapshot.
func (s *PostgresStore) RemoveMonitoredRepository(ctx context.Context, owner, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM repository_snapshots WHERE owner = $1 AND name = $2
	`, owner, name); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM monitored_repositories WHERE owner = $1 AND name = $2
	`, owner, name); err != nil {
		return fmt.Errorf("failed to delete monitored repository: %w", err)
	}
	return tx.Commit()
}

// SaveSnapshot upserts the latest aggregate snapshot for a repository.
// Only the newest snapshot per repository is retained.
func (s *PostgresStore) SaveSnapshot(ctx context.Context, repo *models.Repository) error {
	if repo == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}

	snapshotJSON, err := json.Marshal(repo)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO repository_snapshots (owner, name, snapshot_json, fetched_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner, name) DO UPDATE SET
			snapshot_json = EXCLUDED.snapshot_json,
			fetched_at = EXCLUDED.fetched_at
	`, repo.Owner, repo.Name, snapshotJSON, repo.FetchedAt)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// GetSnapshot returns the latest stored snapshot for a repository, or nil
// when none exists.
func (s *PostgresStore) GetSnapshot(ctx context.Context, owner, name string) (*models.Repository, error) {
	var snapshotJSON []byte

	err := s.db.QueryRowContext(ctx, `
		SELECT snapshot_json FROM repository_snapshots
		WHERE owner = $1 AND name = $2
	`, owner, name).Scan(&snapshotJSON)

	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var repo models.Repository
	if err := json.Unmarshal(snapshotJSON, &repo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &repo, nil
}

// ListSnapshots returns the latest snapshot of every monitored repository
// in display order.
func (s *PostgresStore) ListSnapshots(ctx context.Context) ([]*models.Repository, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.snapshot_json
		FROM repository_snapshots s
		JOIN monitored_repositories m ON m.owner = s.owner AND m.name = s.name
		ORDER BY m.sort_order, m.owner, m.name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var repos []*models.Repository
	for rows.Next() {
		var snapshotJSON []byte
		if err := rows.Scan(&snapshotJSON); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		var repo models.Repository
		if err := json.Unmarshal(snapshotJSON, &repo); err != nil {
			return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
		}
		repos = append(repos, &repo)
	}
	return repos, rows.Err()
}
