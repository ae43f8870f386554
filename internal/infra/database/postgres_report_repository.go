// internal/infra/database/postgres_report_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"daily_report_bot/internal/domain/report"

	"github.com/lib/pq" // For pq.Array and driver registration
)

// Custom errors specific to report repositories
var ErrReportNotFound = fmt.Errorf("report not found")
var ErrDuplicateReportDate = fmt.Errorf("a report for this date already exists")
var ErrStateNotFound = fmt.Errorf("report tracker state not found")

type PostgresReportRepository struct {
	db *sql.DB
}

func NewPostgresReportRepository(db *sql.DB) *PostgresReportRepository {
	return &PostgresReportRepository{db: db}
}

func (r *PostgresReportRepository) Create(ctx context.Context, rep *report.Report) error {
	query := `INSERT INTO reports (report_date, report_type, body, voice_paths, published, is_evaluated, evaluation_results)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               RETURNING id, created_at, updated_at`
	dateOnly := truncateToDate(rep.ReportDate)
	err := r.db.QueryRowContext(ctx, query,
		dateOnly, rep.Type, rep.Body, pq.Array(rep.VoicePaths),
		rep.Published, rep.IsEvaluated, rep.EvaluationResults,
	).Scan(&rep.ID, &rep.CreatedAt, &rep.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "reports_report_date_unique") { // Check for unique constraint violation
			return ErrDuplicateReportDate
		}
		return fmt.Errorf("error creating report: %w", err)
	}
	return nil
}

func (r *PostgresReportRepository) GetByDate(ctx context.Context, date time.Time) (*report.Report, error) {
	query := `SELECT id, report_date, report_type, body, voice_paths, published, is_evaluated, evaluation_results, created_at, updated_at
               FROM reports WHERE report_date = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, truncateToDate(date)))
}

func (r *PostgresReportRepository) scanOne(row *sql.Row) (*report.Report, error) {
	rep := report.Report{}
	var voicePaths pq.StringArray
	err := row.Scan(
		&rep.ID, &rep.ReportDate, &rep.Type, &rep.Body, &voicePaths,
		&rep.Published, &rep.IsEvaluated, &rep.EvaluationResults,
		&rep.CreatedAt, &rep.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("error scanning report row: %w", err)
	}
	rep.VoicePaths = voicePaths
	return &rep, nil
}

func (r *PostgresReportRepository) Exists(ctx context.Context, date time.Time) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM reports WHERE report_date = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, truncateToDate(date)).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking report existence: %w", err)
	}
	return exists, nil
}

func (r *PostgresReportRepository) Update(ctx context.Context, rep *report.Report) error {
	query := `UPDATE reports
               SET report_type = $1, body = $2, voice_paths = $3, is_evaluated = $4, evaluation_results = $5, updated_at = NOW()
               WHERE id = $6
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		rep.Type, rep.Body, pq.Array(rep.VoicePaths), rep.IsEvaluated, rep.EvaluationResults, rep.ID,
	).Scan(&rep.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrReportNotFound
		}
		return fmt.Errorf("error updating report: %w", err)
	}
	return nil
}

func (r *PostgresReportRepository) MarkPublished(ctx context.Context, id int64) error {
	query := `UPDATE reports SET published = TRUE, updated_at = NOW() WHERE id = $1 RETURNING updated_at`
	var updatedAt time.Time
	err := r.db.QueryRowContext(ctx, query, id).Scan(&updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrReportNotFound
		}
		return fmt.Errorf("error marking report published: %w", err)
	}
	return nil
}

func (r *PostgresReportRepository) DeleteByDate(ctx context.Context, date time.Time) error {
	query := `DELETE FROM reports WHERE report_date = $1`
	res, err := r.db.ExecContext(ctx, query, truncateToDate(date))
	if err != nil {
		return fmt.Errorf("error deleting report: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading delete result: %w", err)
	}
	if affected == 0 {
		return ErrReportNotFound
	}
	return nil
}

// truncateToDate normalizes a timestamp to the date part for DATE columns.
func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
