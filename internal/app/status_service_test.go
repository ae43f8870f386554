package app

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"daily_report_bot/internal/domain/report"
	"daily_report_bot/internal/domain/window"
	idb "daily_report_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("component", "test")
}

// fakeReportRepo serves a single report for one date, like the store does
// when queried for "today".
type fakeReportRepo struct {
	rep     *report.Report
	getErr  error
	markErr error
}

func (f *fakeReportRepo) Create(ctx context.Context, r *report.Report) error {
	f.rep = r
	return nil
}

func (f *fakeReportRepo) GetByDate(ctx context.Context, date time.Time) (*report.Report, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.rep == nil || !window.SameDay(f.rep.ReportDate, date) {
		return nil, idb.ErrReportNotFound
	}
	return f.rep, nil
}

func (f *fakeReportRepo) Exists(ctx context.Context, date time.Time) (bool, error) {
	_, err := f.GetByDate(ctx, date)
	if err == idb.ErrReportNotFound {
		return false, nil
	}
	return err == nil, err
}

func (f *fakeReportRepo) Update(ctx context.Context, r *report.Report) error {
	f.rep = r
	return nil
}

func (f *fakeReportRepo) MarkPublished(ctx context.Context, id int64) error {
	if f.markErr != nil {
		return f.markErr
	}
	if f.rep == nil || f.rep.ID != id {
		return idb.ErrReportNotFound
	}
	f.rep.Published = true
	return nil
}

func (f *fakeReportRepo) DeleteByDate(ctx context.Context, date time.Time) error {
	if f.rep == nil {
		return idb.ErrReportNotFound
	}
	f.rep = nil
	return nil
}

type fakeStateRepo struct {
	state     *report.TrackerState
	loadErr   error
	saveErr   error
	saveCount int
}

func (f *fakeStateRepo) Load(ctx context.Context) (*report.TrackerState, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.state == nil {
		return nil, idb.ErrStateNotFound
	}
	copied := *f.state
	return &copied, nil
}

func (f *fakeStateRepo) Save(ctx context.Context, s *report.TrackerState) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	copied := *s
	f.state = &copied
	f.saveCount++
	return nil
}

func at(h, m, s int) time.Time {
	return time.Date(2025, 6, 12, h, m, s, 0, time.UTC)
}

func newTestManager(t *testing.T, reports *fakeReportRepo, states *fakeStateRepo, initAt time.Time) *ReportStatusManager {
	t.Helper()
	m := NewReportStatusManager(reports, states, window.Config{StartHour: 9, EndHour: 18}, testLogger())
	require.NoError(t, m.Init(context.Background(), initAt))
	return m
}

func draftFor(day time.Time) *report.Report {
	return &report.Report{ID: 1, ReportDate: window.DayOf(day), Type: report.TypeRegular, Body: "draft"}
}

func publishedFor(day time.Time) *report.Report {
	r := draftFor(day)
	r.Published = true
	return r
}

func TestRecompute_PhaseRules(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		rep  func(time.Time) *report.Report
		want report.Status
	}{
		{name: "before window, no report", now: at(8, 0, 0), want: report.StatusNotStarted},
		{name: "before window, draft exists", now: at(8, 0, 0), rep: draftFor, want: report.StatusNotStarted},
		{name: "window start, no report", now: at(9, 0, 0), want: report.StatusNotStarted},
		{name: "in window, draft exists", now: at(12, 0, 0), rep: draftFor, want: report.StatusInProgress},
		{name: "in window, published", now: at(12, 0, 0), rep: publishedFor, want: report.StatusSent},
		{name: "window end, published", now: at(18, 0, 0), rep: publishedFor, want: report.StatusSent},
		{name: "after window, no report", now: at(20, 0, 0), want: report.StatusNotCreated},
		{name: "after window, draft never published", now: at(20, 0, 0), rep: draftFor, want: report.StatusNotSent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reports := &fakeReportRepo{}
			if tt.rep != nil {
				reports.rep = tt.rep(tt.now)
			}
			m := newTestManager(t, reports, &fakeStateRepo{}, tt.now)

			got, err := m.Recompute(context.Background(), tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecompute_Idempotent(t *testing.T) {
	reports := &fakeReportRepo{rep: draftFor(at(12, 0, 0))}
	states := &fakeStateRepo{}
	m := newTestManager(t, reports, states, at(12, 0, 0))

	first, err := m.Recompute(context.Background(), at(12, 0, 0))
	require.NoError(t, err)
	savesAfterFirst := states.saveCount

	second, err := m.Recompute(context.Background(), at(12, 0, 0))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, savesAfterFirst, states.saveCount, "unchanged recompute must not persist again")
}

func TestRecompute_DayRollover(t *testing.T) {
	yesterday := at(12, 0, 0)
	reports := &fakeReportRepo{rep: publishedFor(yesterday)}
	states := &fakeStateRepo{}
	m := newTestManager(t, reports, states, yesterday)

	_, err := m.Recompute(context.Background(), yesterday)
	require.NoError(t, err)
	status, _ := m.Status()
	require.Equal(t, report.StatusSent, status)

	// Next morning, before the window: yesterday's report no longer counts.
	nextMorning := yesterday.AddDate(0, 0, 1).Add(-4 * time.Hour) // 08:00 next day
	got, err := m.Recompute(context.Background(), nextMorning)
	require.NoError(t, err)
	assert.Equal(t, report.StatusNotStarted, got)
	assert.Equal(t, window.DayOf(nextMorning), states.state.CurrentDay)
}

func TestRecompute_RolloverKeepsForceUnlockValue(t *testing.T) {
	day1 := at(12, 0, 0)
	reports := &fakeReportRepo{rep: publishedFor(day1)}
	states := &fakeStateRepo{}
	m := newTestManager(t, reports, states, day1)
	require.NoError(t, m.SetForceUnlock(context.Background(), true))

	day2 := day1.AddDate(0, 0, 1)
	_, err := m.Recompute(context.Background(), day2)
	require.NoError(t, err)

	_, forceUnlock := m.Status()
	assert.True(t, forceUnlock, "rollover must not reset the persisted force-unlock flag")
}

func TestRecompute_ForceUnlockEscape(t *testing.T) {
	now := at(12, 0, 0)
	reports := &fakeReportRepo{rep: publishedFor(now)}
	states := &fakeStateRepo{}
	m := newTestManager(t, reports, states, now)

	_, err := m.Recompute(context.Background(), now)
	require.NoError(t, err)
	status, _ := m.Status()
	require.Equal(t, report.StatusSent, status)

	require.NoError(t, m.SetForceUnlock(context.Background(), true))

	got, err := m.Recompute(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, report.StatusNotStarted, got, "sent + force unlock + no draft escapes to not started")

	// And stays there on repeated evaluation.
	got, err = m.Recompute(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, report.StatusNotStarted, got)
}

func TestRecompute_StoreErrorLeavesStatusUntouched(t *testing.T) {
	now := at(12, 0, 0)
	reports := &fakeReportRepo{rep: draftFor(now)}
	states := &fakeStateRepo{}
	m := newTestManager(t, reports, states, now)

	_, err := m.Recompute(context.Background(), now)
	require.NoError(t, err)
	before, _ := m.Status()
	require.Equal(t, report.StatusInProgress, before)
	savesBefore := states.saveCount

	reports.getErr = fmt.Errorf("connection refused")
	_, err = m.Recompute(context.Background(), now.Add(time.Minute))
	require.Error(t, err)

	after, _ := m.Status()
	assert.Equal(t, before, after)
	assert.Equal(t, savesBefore, states.saveCount, "failed recompute must not persist")
}

func TestMarkPublished(t *testing.T) {
	now := at(12, 0, 0)
	reports := &fakeReportRepo{rep: draftFor(now)}
	states := &fakeStateRepo{}
	m := newTestManager(t, reports, states, now)

	var events []StatusEvent
	m.Subscribe(func(ev StatusEvent) { events = append(events, ev) })
	require.Len(t, events, 1, "current state delivered on subscribe")
	assert.Equal(t, report.StatusNotStarted, events[0].NewStatus)

	require.NoError(t, m.MarkPublished(context.Background(), 1, now))

	status, _ := m.Status()
	assert.Equal(t, report.StatusSent, status)
	assert.True(t, reports.rep.Published)
	require.Len(t, events, 2)
	assert.Equal(t, report.StatusSent, events[1].NewStatus)
}

func TestSetWindow_InvalidRejected(t *testing.T) {
	m := newTestManager(t, &fakeReportRepo{}, &fakeStateRepo{}, at(12, 0, 0))

	err := m.SetWindow(window.Config{StartHour: 10, EndHour: 10})
	require.Error(t, err)
	assert.ErrorIs(t, err, window.ErrInvalidWindow)
	assert.Equal(t, window.Config{StartHour: 9, EndHour: 18}, m.Window(), "previous window stays in effect")

	require.NoError(t, m.SetWindow(window.Config{StartHour: 8, EndHour: 20}))
	assert.Equal(t, window.Config{StartHour: 8, EndHour: 20}, m.Window())
}

func TestIsEditable(t *testing.T) {
	tests := []struct {
		name        string
		now         time.Time
		rep         func(time.Time) *report.Report
		forceUnlock bool
		want        bool
	}{
		{name: "in window, nothing created", now: at(12, 0, 0), want: true},
		{name: "in window, draft", now: at(12, 0, 0), rep: draftFor, want: true},
		{name: "in window, sent", now: at(12, 0, 0), rep: publishedFor, want: false},
		{name: "before window", now: at(8, 0, 0), want: false},
		{name: "after window, missed", now: at(20, 0, 0), want: false},
		{name: "sent but force unlocked", now: at(12, 0, 0), rep: publishedFor, forceUnlock: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reports := &fakeReportRepo{}
			if tt.rep != nil {
				reports.rep = tt.rep(tt.now)
			}
			states := &fakeStateRepo{}
			m := newTestManager(t, reports, states, tt.now)
			_, err := m.Recompute(context.Background(), tt.now)
			require.NoError(t, err)
			if tt.forceUnlock {
				// Flip the flag without recomputing, as the settings action does.
				require.NoError(t, m.SetForceUnlock(context.Background(), true))
			}

			assert.Equal(t, tt.want, m.IsEditable(tt.now))
		})
	}
}

func TestInit_FreshStateWhenNonePersisted(t *testing.T) {
	states := &fakeStateRepo{}
	m := NewReportStatusManager(&fakeReportRepo{}, states, window.Config{StartHour: 9, EndHour: 18}, testLogger())
	require.NoError(t, m.Init(context.Background(), at(7, 0, 0)))

	status, forceUnlock := m.Status()
	assert.Equal(t, report.StatusNotStarted, status)
	assert.False(t, forceUnlock)
	require.NotNil(t, states.state)
	assert.Equal(t, window.DayOf(at(7, 0, 0)), states.state.CurrentDay)
}

func TestInit_LoadsPersistedState(t *testing.T) {
	states := &fakeStateRepo{state: &report.TrackerState{
		Status:      report.StatusNotSent,
		ForceUnlock: true,
		CurrentDay:  window.DayOf(at(0, 0, 0)),
	}}
	m := NewReportStatusManager(&fakeReportRepo{}, states, window.Config{StartHour: 9, EndHour: 18}, testLogger())
	require.NoError(t, m.Init(context.Background(), at(7, 0, 0)))

	status, forceUnlock := m.Status()
	assert.Equal(t, report.StatusNotSent, status)
	assert.True(t, forceUnlock)
}
