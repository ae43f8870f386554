// internal/infra/database/postgres_state_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"daily_report_bot/internal/domain/report"
)

// PostgresStateRepository persists the single tracker state row.
// The table is keyed by a constant id so Save is an upsert.
type PostgresStateRepository struct {
	db *sql.DB
}

func NewPostgresStateRepository(db *sql.DB) *PostgresStateRepository {
	return &PostgresStateRepository{db: db}
}

func (r *PostgresStateRepository) Load(ctx context.Context) (*report.TrackerState, error) {
	query := `SELECT status, force_unlock, current_day, updated_at FROM report_tracker_state WHERE id = 1`
	s := report.TrackerState{}
	err := r.db.QueryRowContext(ctx, query).Scan(&s.Status, &s.ForceUnlock, &s.CurrentDay, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("error loading report tracker state: %w", err)
	}
	return &s, nil
}

func (r *PostgresStateRepository) Save(ctx context.Context, s *report.TrackerState) error {
	query := `INSERT INTO report_tracker_state (id, status, force_unlock, current_day, updated_at)
               VALUES (1, $1, $2, $3, NOW())
               ON CONFLICT (id) DO UPDATE
               SET status = EXCLUDED.status, force_unlock = EXCLUDED.force_unlock,
                   current_day = EXCLUDED.current_day, updated_at = NOW()
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, s.Status, s.ForceUnlock, truncateToDate(s.CurrentDay)).Scan(&s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error saving report tracker state: %w", err)
	}
	return nil
}
