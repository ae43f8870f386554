// internal/app/status_service.go
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"daily_report_bot/internal/domain/report"
	"daily_report_bot/internal/domain/window"
	idb "daily_report_bot/internal/infra/database" // Alias for your DB errors

	"github.com/sirupsen/logrus"
)

// StatusEvent is broadcast to subscribers whenever the manager commits a
// status or force-unlock change. Subscribers observe, they never mutate.
type StatusEvent struct {
	NewStatus   report.Status
	ForceUnlock bool
}

// StatusRecomputer is the trigger surface the scheduler and handlers need.
type StatusRecomputer interface {
	Recompute(ctx context.Context, now time.Time) (report.Status, error)
}

// WindowProvider exposes the currently effective report window.
type WindowProvider interface {
	Window() window.Config
}

// ReportStatusManager owns the authoritative report status, the force-unlock
// flag and the tracked calendar day. It is the sole writer of all three:
// every other component reads the latest committed value or subscribes to
// StatusEvent.
type ReportStatusManager struct {
	reportRepo report.Repository
	stateRepo  report.StateRepository
	logger     *logrus.Entry

	mu          sync.Mutex
	windowCfg   window.Config
	state       report.TrackerState
	subscribers []func(StatusEvent)
}

func NewReportStatusManager(
	rr report.Repository,
	sr report.StateRepository,
	windowCfg window.Config,
	logger *logrus.Entry,
) *ReportStatusManager {
	return &ReportStatusManager{
		reportRepo: rr,
		stateRepo:  sr,
		windowCfg:  windowCfg,
		logger:     logger,
	}
}

// Init loads the persisted tracker state, falling back to a fresh
// not-started state for today's date when none has ever been saved.
func (m *ReportStatusManager) Init(ctx context.Context, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	persisted, err := m.stateRepo.Load(ctx)
	if err != nil {
		if err != idb.ErrStateNotFound {
			return fmt.Errorf("failed to load report tracker state: %w", err)
		}
		m.logger.Info("No persisted tracker state found, starting fresh")
		m.state = report.TrackerState{
			Status:     report.StatusNotStarted,
			CurrentDay: window.DayOf(now),
		}
		if err := m.stateRepo.Save(ctx, &m.state); err != nil {
			return fmt.Errorf("failed to save initial tracker state: %w", err)
		}
		return nil
	}
	m.state = *persisted
	m.logger.WithFields(logrus.Fields{
		"status":       m.state.Status,
		"force_unlock": m.state.ForceUnlock,
		"current_day":  m.state.CurrentDay.Format("2006-01-02"),
	}).Info("Tracker state loaded")
	return nil
}

// Subscribe registers a callback invoked after every committed change, and
// immediately delivers the last committed state: a subscriber attaching
// after Init must not wait for the next change to learn a persisted status.
// Callbacks run synchronously on the committing goroutine and must be cheap.
func (m *ReportStatusManager) Subscribe(fn func(StatusEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
	fn(StatusEvent{NewStatus: m.state.Status, ForceUnlock: m.state.ForceUnlock})
}

// Status returns the last committed status and force-unlock flag.
func (m *ReportStatusManager) Status() (report.Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Status, m.state.ForceUnlock
}

// Window returns the currently effective window configuration.
func (m *ReportStatusManager) Window() window.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.windowCfg
}

// SetWindow replaces the report window. An invalid config is rejected and
// the previous valid window stays in effect.
func (m *ReportStatusManager) SetWindow(cfg window.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windowCfg = cfg
	m.logger.WithFields(logrus.Fields{
		"start_hour": cfg.StartHour,
		"end_hour":   cfg.EndHour,
	}).Info("Report window updated")
	return nil
}

// Recompute re-derives the status from the window phase, day rollover and
// the presence/publication of today's report, in that priority order:
//
//  1. Day rollover: a new calendar day resets day-scoped signals and the
//     tracked day before anything else. The persisted force-unlock value is
//     left alone; a new day already unlocks normally.
//  2. Force-unlock escape: a published report under force unlock is treated
//     as recreatable, so the phase rules' SENT outcome is bypassed.
//  3. Phase rules per window classification.
//
// If the report store read fails, the previously committed state is left
// untouched and the error is surfaced to the caller.
func (m *ReportStatusManager) Recompute(ctx context.Context, now time.Time) (report.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	today := window.DayOf(now)
	rolledOver := !window.SameDay(m.state.CurrentDay, today)

	rep, err := m.reportRepo.GetByDate(ctx, today)
	if err != nil && err != idb.ErrReportNotFound {
		m.logger.WithError(err).Error("Report store read failed during recompute")
		return m.state.Status, fmt.Errorf("failed to read today's report: %w", err)
	}
	exists := err == nil
	published := exists && rep.Published

	if rolledOver {
		m.logger.WithFields(logrus.Fields{
			"previous_day": m.state.CurrentDay.Format("2006-01-02"),
			"new_day":      today.Format("2006-01-02"),
		}).Info("Day rollover detected")
	}

	cls := window.Classify(now, m.windowCfg)
	next := m.deriveStatus(cls.Phase, exists, published, rolledOver)

	changed := next != m.state.Status || rolledOver
	if !changed {
		return m.state.Status, nil
	}

	previous := m.state
	m.state.Status = next
	m.state.CurrentDay = today
	if err := m.stateRepo.Save(ctx, &m.state); err != nil {
		m.state = previous // keep the committed state authoritative
		m.logger.WithError(err).Error("Failed to persist tracker state")
		return previous.Status, fmt.Errorf("failed to persist tracker state: %w", err)
	}

	m.logger.WithFields(logrus.Fields{
		"previous_status": previous.Status,
		"new_status":      next,
		"phase":           cls.Phase,
	}).Info("Report status committed")
	m.notifyLocked()
	return next, nil
}

// deriveStatus applies the transition rules. The force-unlock escape keys on
// the published flag rather than on the previous status so that repeated
// recomputes with the same inputs are idempotent: a published report under
// force unlock maps to NOT_STARTED (recreatable) every time, not just on the
// first evaluation after SENT. A rollover suppresses the escape for that
// evaluation; the new day unlocks normally on its own.
func (m *ReportStatusManager) deriveStatus(phase window.Phase, exists, published, rolledOver bool) report.Status {
	if m.state.ForceUnlock && published && !rolledOver {
		return report.StatusNotStarted
	}

	switch phase {
	case window.PhaseBeforeWindow:
		return report.StatusNotStarted
	case window.PhaseInWindow:
		switch {
		case !exists:
			return report.StatusNotStarted
		case !published:
			return report.StatusInProgress
		default:
			return report.StatusSent
		}
	default: // PhaseAfterWindow
		switch {
		case !exists:
			return report.StatusNotCreated
		case !published:
			return report.StatusNotSent
		default:
			return report.StatusSent
		}
	}
}

// SetForceUnlock flips the override flag and persists it. The status itself
// is not recomputed here; the next recompute trigger applies the escape.
func (m *ReportStatusManager) SetForceUnlock(ctx context.Context, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.ForceUnlock == enabled {
		return nil
	}
	previous := m.state
	m.state.ForceUnlock = enabled
	if err := m.stateRepo.Save(ctx, &m.state); err != nil {
		m.state = previous
		return fmt.Errorf("failed to persist force unlock: %w", err)
	}
	m.logger.WithField("force_unlock", enabled).Info("Force unlock changed")
	m.notifyLocked()
	return nil
}

// MarkPublished records a successful delivery of today's report: the store
// row is flagged published and the status advances directly to SENT. This is
// the only transition into SENT.
func (m *ReportStatusManager) MarkPublished(ctx context.Context, reportID int64, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.reportRepo.MarkPublished(ctx, reportID); err != nil {
		return fmt.Errorf("failed to mark report %d published: %w", reportID, err)
	}

	previous := m.state
	m.state.Status = report.StatusSent
	m.state.CurrentDay = window.DayOf(now)
	if err := m.stateRepo.Save(ctx, &m.state); err != nil {
		m.state = previous
		return fmt.Errorf("failed to persist tracker state: %w", err)
	}
	m.logger.WithField("report_id", reportID).Info("Report marked published, status SENT")
	m.notifyLocked()
	return nil
}

// IsEditable derives whether report creation/editing is currently permitted:
// inside the window while the report is not yet sent, or any time a sent
// report is force-unlocked.
func (m *ReportStatusManager) IsEditable(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	cls := window.Classify(now, m.windowCfg)
	inWindow := cls.Phase == window.PhaseInWindow
	status := m.state.Status

	if inWindow && (status == report.StatusNotStarted || status == report.StatusInProgress) {
		return true
	}
	return m.state.ForceUnlock && status == report.StatusSent
}

// notifyLocked broadcasts the committed state. Caller holds m.mu.
func (m *ReportStatusManager) notifyLocked() {
	ev := StatusEvent{NewStatus: m.state.Status, ForceUnlock: m.state.ForceUnlock}
	for _, fn := range m.subscribers {
		fn(ev)
	}
}
