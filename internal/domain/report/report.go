// internal/domain/report/report.go
package report

import (
	"database/sql"
	"time"
)

// Status is the daily lifecycle state of the report.
// It is a closed enumeration, not a linear progression: which value applies
// depends on the window phase and on whether today's report exists and was
// published, recomputed by the status manager on every trigger.
type Status string

const (
	StatusNotStarted Status = "NOT_STARTED" // window not reached, or nothing created yet
	StatusInProgress Status = "IN_PROGRESS" // inside window, draft exists, not published
	StatusNotCreated Status = "NOT_CREATED" // window closed, no report was ever created
	StatusNotSent    Status = "NOT_SENT"    // window closed, report exists but was never published
	StatusSent       Status = "SENT"        // today's report was delivered successfully
)

// Type distinguishes how a report came to be.
type Type string

const (
	TypeRegular  Type = "REGULAR"
	TypeCustom   Type = "CUSTOM"
	TypeExternal Type = "EXTERNAL"
	TypeCloud    Type = "CLOUD"
)

// Report is the journal entry for a single calendar day.
// Corresponds to the 'reports' table; ReportDate is unique per day.
type Report struct {
	ID                int64
	ReportDate        time.Time // date part only, midnight local
	Type              Type
	Body              string
	VoicePaths        []string // local paths of attached voice notes
	Published         bool
	IsEvaluated       bool           // custom variant only
	EvaluationResults sql.NullString // custom variant only
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TrackerState is the persisted day-scoped tracking record: the authoritative
// status, the force-unlock override, and the last calendar day seen.
// Corresponds to the single-row 'report_tracker_state' table.
type TrackerState struct {
	Status      Status
	ForceUnlock bool
	CurrentDay  time.Time // date part only, midnight local
	UpdatedAt   time.Time
}
