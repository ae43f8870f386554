package scheduler

import (
	"context"
	"time"

	"daily_report_bot/internal/app" // For TimerEvaluator and StatusRecomputer

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ReportScheduler drives the report lifecycle from wall-clock time: a
// second-cadence job ticks the timer evaluator, and a midnight job forces a
// status recompute so the day rollover is never left to the next user action.
// Boundary crossings inside the day are handled by the evaluator's activity
// event, to which the recomputer is subscribed in main.
type ReportScheduler struct {
	cronEngine       *cron.Cron
	timer            *app.TimerEvaluator
	statuses         app.StatusRecomputer
	logger           *logrus.Entry
	cronSpecTick     string
	cronSpecRollover string
}

func NewReportScheduler(
	timer *app.TimerEvaluator,
	statuses app.StatusRecomputer,
	logger *logrus.Entry,
	cronSpecTick string, // e.g., "* * * * * *" (every second)
	cronSpecRollover string, // e.g., "0 0 0 * * *" (midnight)
) *ReportScheduler {
	return &ReportScheduler{
		// Seconds-enabled specs; cron runs in the server's local time,
		// the same clock the window is evaluated against.
		cronEngine:       cron.New(cron.WithSeconds(), cron.WithLocation(time.Local)),
		timer:            timer,
		statuses:         statuses,
		logger:           logger,
		cronSpecTick:     cronSpecTick,
		cronSpecRollover: cronSpecRollover,
	}
}

func (s *ReportScheduler) Start() error {
	s.logger.Info("Starting report scheduler")

	// Evaluator tick. The evaluator itself skips a tick that arrives while
	// the previous one is still running.
	_, err := s.cronEngine.AddFunc(s.cronSpecTick, func() {
		s.timer.Tick(time.Now())
	})
	if err != nil {
		return err
	}

	// Midnight rollover recompute.
	_, err = s.cronEngine.AddFunc(s.cronSpecRollover, func() {
		s.logger.Info("Cron job triggered for day rollover recompute")
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute) // Context for the job
		defer cancel()
		if _, err := s.statuses.Recompute(ctx, time.Now()); err != nil {
			s.logger.WithError(err).Error("Day rollover recompute failed")
		}
	})
	if err != nil {
		return err
	}

	s.cronEngine.Start()
	s.logger.Info("Report scheduler started with jobs")
	return nil
}

func (s *ReportScheduler) Stop() {
	s.logger.Info("Stopping report scheduler")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()               // Wait for graceful shutdown
	s.logger.Info("Report scheduler gracefully stopped")
}
