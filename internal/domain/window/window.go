// internal/domain/window/window.go
package window

import (
	"fmt"
	"time"
)

// Phase classifies "now" relative to the configured daily report window.
type Phase string

const (
	PhaseBeforeWindow Phase = "BEFORE_WINDOW"
	PhaseInWindow     Phase = "IN_WINDOW"
	PhaseAfterWindow  Phase = "AFTER_WINDOW"
)

// ErrInvalidWindow is returned when a window configuration cannot be accepted.
var ErrInvalidWindow = fmt.Errorf("invalid report window configuration")

// Config is the daily [StartHour, EndHour) interval during which report
// creation and editing is permitted. Hours are local wall-clock hours;
// minutes and seconds play no role in the boundaries themselves.
type Config struct {
	StartHour int
	EndHour   int
}

// Validate rejects out-of-range hours and empty or inverted windows.
// An invalid config must never reach Classify; callers keep their previous
// valid window when Validate fails.
func (c Config) Validate() error {
	if c.StartHour < 0 || c.StartHour > 23 {
		return fmt.Errorf("%w: start hour %d out of range [0,23]", ErrInvalidWindow, c.StartHour)
	}
	if c.EndHour < 0 || c.EndHour > 23 {
		return fmt.Errorf("%w: end hour %d out of range [0,23]", ErrInvalidWindow, c.EndHour)
	}
	if c.StartHour >= c.EndHour {
		return fmt.Errorf("%w: start hour %d must be before end hour %d", ErrInvalidWindow, c.StartHour, c.EndHour)
	}
	return nil
}

// Classification is the result of placing an instant against a window.
// BoundaryStart and BoundaryEnd are the instant's own day combined with the
// configured hours at minute and second zero.
type Classification struct {
	Phase         Phase
	BoundaryStart time.Time
	BoundaryEnd   time.Time
}

// Classify places now against cfg. It is total for any instant: the start
// boundary is inclusive, the end boundary exclusive, so the three phases
// partition the day with no gaps or overlaps.
func Classify(now time.Time, cfg Config) Classification {
	start := time.Date(now.Year(), now.Month(), now.Day(), cfg.StartHour, 0, 0, 0, now.Location())
	end := time.Date(now.Year(), now.Month(), now.Day(), cfg.EndHour, 0, 0, 0, now.Location())

	cls := Classification{BoundaryStart: start, BoundaryEnd: end}
	switch {
	case now.Before(start):
		cls.Phase = PhaseBeforeWindow
	case now.Before(end):
		cls.Phase = PhaseInWindow
	default:
		cls.Phase = PhaseAfterWindow
	}
	return cls
}

// NextStart returns the next window opening at or after now: today's start if
// it is still ahead, otherwise tomorrow's.
func NextStart(now time.Time, cfg Config) time.Time {
	start := time.Date(now.Year(), now.Month(), now.Day(), cfg.StartHour, 0, 0, 0, now.Location())
	if now.Before(start) {
		return start
	}
	return start.AddDate(0, 0, 1)
}

// DayOf truncates an instant to midnight of its calendar day, in the
// instant's own location. All day-rollover comparisons go through this.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether two instants fall on the same calendar day.
// It compares date components, not instants, so a DATE loaded from the store
// in UTC still matches the local wall-clock day it names.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
