// internal/app/timer_service.go
package app

import (
	"fmt"
	"sync"
	"time"

	"daily_report_bot/internal/domain/report"
	"daily_report_bot/internal/domain/window"

	"github.com/sirupsen/logrus"
)

// TimerLabel names what the countdown is counting toward.
type TimerLabel string

const (
	LabelBeforeStart TimerLabel = "BEFORE_START" // counting down to the next window opening
	LabelToEnd       TimerLabel = "TO_END"       // counting down to the window closing
	LabelNewDay      TimerLabel = "NEW_DAY"      // one-tick marker when the calendar day changes
)

// TimerSnapshot is the per-tick countdown view. It is recomputed every tick
// and never persisted.
type TimerSnapshot struct {
	Label     TimerLabel
	Remaining time.Duration
	Progress  float64 // fraction of the window elapsed, in [0,1]
}

// RemainingString renders the countdown as HH:MM:SS.
func (s TimerSnapshot) RemainingString() string {
	d := s.Remaining
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	sec := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
}

// TimerEvaluator turns the shared window classification into a countdown
// snapshot once per tick and notifies subscribers when the in-window flag
// flips. All countdown/progress math for every consumer lives here; the
// presentation layers are thin subscribers.
type TimerEvaluator struct {
	windows WindowProvider
	logger  *logrus.Entry

	tickMu sync.Mutex // guards against reentrant ticks

	mu            sync.Mutex
	status        report.Status
	trackedDay    time.Time
	lastActive    bool
	activityKnown bool
	lastSnapshot  TimerSnapshot
	activitySubs  []func(active bool)
}

func NewTimerEvaluator(windows WindowProvider, logger *logrus.Entry) *TimerEvaluator {
	return &TimerEvaluator{
		windows: windows,
		logger:  logger,
		status:  report.StatusNotStarted,
	}
}

// SubscribeActivity registers a callback fired exactly once per flip of the
// "now is inside the window" boolean, carrying the new value.
func (e *TimerEvaluator) SubscribeActivity(fn func(active bool)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.activitySubs = append(e.activitySubs, fn)
}

// OnStatusChange keeps the evaluator's view of the report status current.
// Wire it as a subscriber of the status manager.
func (e *TimerEvaluator) OnStatusChange(ev StatusEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = ev.NewStatus
}

// Snapshot returns the last computed snapshot without recomputing.
func (e *TimerEvaluator) Snapshot() TimerSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSnapshot
}

// Tick computes the snapshot for now. Ticks are not reentrant: if a tick is
// still running when the next arrives, the late tick is skipped and the last
// snapshot returned unchanged.
func (e *TimerEvaluator) Tick(now time.Time) TimerSnapshot {
	if !e.tickMu.TryLock() {
		return e.Snapshot()
	}
	defer e.tickMu.Unlock()

	cfg := e.windows.Window()
	cls := window.Classify(now, cfg)
	active := cls.Phase == window.PhaseInWindow

	e.mu.Lock()

	today := window.DayOf(now)
	newDay := e.activityKnown && !e.trackedDay.Equal(today)
	e.trackedDay = today

	var snap TimerSnapshot
	switch {
	case newDay:
		// One-tick marker; the regular label resumes next tick.
		snap = TimerSnapshot{
			Label:     LabelNewDay,
			Remaining: window.NextStart(now, cfg).Sub(now),
			Progress:  0,
		}
	case e.status == report.StatusSent:
		// A sent report never shows window progress; count to the next opening.
		snap = TimerSnapshot{
			Label:     LabelBeforeStart,
			Remaining: window.NextStart(now, cfg).Sub(now),
			Progress:  0,
		}
	case cls.Phase == window.PhaseBeforeWindow:
		snap = TimerSnapshot{
			Label:     LabelBeforeStart,
			Remaining: cls.BoundaryStart.Sub(now),
			Progress:  0,
		}
	case cls.Phase == window.PhaseInWindow:
		snap = TimerSnapshot{
			Label:     LabelToEnd,
			Remaining: cls.BoundaryEnd.Sub(now),
			Progress:  windowProgress(now, cls),
		}
	default: // PhaseAfterWindow: count down to tomorrow's opening
		snap = TimerSnapshot{
			Label:     LabelBeforeStart,
			Remaining: window.NextStart(now, cfg).Sub(now),
			Progress:  0,
		}
	}
	e.lastSnapshot = snap

	flipped := e.activityKnown && e.lastActive != active
	e.lastActive = active
	e.activityKnown = true
	subs := e.activitySubs
	e.mu.Unlock()

	if flipped {
		e.logger.WithField("active", active).Info("Window activity changed")
		for _, fn := range subs {
			fn(active)
		}
	}
	return snap
}

func windowProgress(now time.Time, cls window.Classification) float64 {
	total := cls.BoundaryEnd.Sub(cls.BoundaryStart)
	if total <= 0 {
		return 0
	}
	p := float64(now.Sub(cls.BoundaryStart)) / float64(total)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
