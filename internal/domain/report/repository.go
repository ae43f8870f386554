// internal/domain/report/repository.go
package report

import (
	"context"
	"time"
)

// Repository defines the operations for persisting and retrieving Report entities.
type Repository interface {
	Create(ctx context.Context, r *Report) error
	GetByDate(ctx context.Context, date time.Time) (*Report, error)
	Exists(ctx context.Context, date time.Time) (bool, error)
	Update(ctx context.Context, r *Report) error // body, type, voice paths, evaluation fields
	MarkPublished(ctx context.Context, id int64) error
	DeleteByDate(ctx context.Context, date time.Time) error
}

// StateRepository persists the tracker state: status, force-unlock flag and
// the last-seen calendar day. There is exactly one state record.
type StateRepository interface {
	Load(ctx context.Context) (*TrackerState, error)
	Save(ctx context.Context, s *TrackerState) error
}
