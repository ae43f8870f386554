package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"daily_report_bot/internal/app"
	"daily_report_bot/internal/infra/config"
	idb "daily_report_bot/internal/infra/database"
	"daily_report_bot/internal/infra/fsys"
	"daily_report_bot/internal/infra/logger"
	"daily_report_bot/internal/infra/scheduler"
	"daily_report_bot/internal/infra/telegram"

	"gopkg.in/telebot.v3"
)

func main() {
	fmt.Println("Daily Report Bot starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Could not load application configuration: %v", err)
	}

	logger.Init(cfg)
	mainLogger := logger.Log.WithField("component", "main")
	mainLogger.WithField("environment", cfg.Environment).Info("Configuration loaded")

	if err := os.MkdirAll(cfg.MediaDir, 0o755); err != nil {
		mainLogger.WithError(err).Fatal("Could not create media directory")
	}

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	mainLogger.Info("Database connection established successfully")

	// Initialize Repositories
	reportRepo := idb.NewPostgresReportRepository(db)
	stateRepo := idb.NewPostgresStateRepository(db)
	mainLogger.Info("Repositories initialized")

	ctx := context.Background()

	// Initialize ReportStatusManager
	statusManager := app.NewReportStatusManager(
		reportRepo,
		stateRepo,
		cfg.ReportWindow,
		logger.Log.WithField("component", "status_manager"),
	)
	if err := statusManager.Init(ctx, time.Now()); err != nil {
		mainLogger.WithError(err).Fatal("Could not initialize report status manager")
	}

	// Initialize TimerEvaluator and wire the event subscriptions: the timer
	// learns status changes from the manager, and window edge crossings
	// trigger a status recompute.
	timerEvaluator := app.NewTimerEvaluator(statusManager, logger.Log.WithField("component", "timer"))
	statusManager.Subscribe(timerEvaluator.OnStatusChange)
	timerEvaluator.SubscribeActivity(func(active bool) {
		recomputeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if _, err := statusManager.Recompute(recomputeCtx, time.Now()); err != nil {
			mainLogger.WithError(err).Error("Status recompute failed on window edge")
		}
	})

	// Initialize Telegram Bot
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) { // Global error handler
			entry := logger.Log.WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithField("sender_id", c.Sender().ID).WithField("chat_id", c.Chat().ID)
			}
			entry.Error("Telebot error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}

	// Initialize DeliveryPipeline
	deliveryPipeline := app.NewDeliveryPipeline(
		telegram.NewTelebotAdapter(bot),
		fsys.NewChecker(),
		cfg.ReportChatID,
		logger.Log.WithField("component", "delivery"),
	)

	// Initialize ReportScheduler
	reportScheduler := scheduler.NewReportScheduler(
		timerEvaluator,
		statusManager,
		logger.Log.WithField("component", "scheduler"),
		cfg.CronSpecTick,
		cfg.CronSpecRollover,
	)
	if err := reportScheduler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start report scheduler")
	}

	// Register Handlers
	handlerLogger := logger.Log.WithField("component", "handlers")
	telegram.RegisterBotCommands(bot, cfg.AdminTelegramID, handlerLogger)
	telegram.RegisterReportHandlers(ctx, bot, cfg, reportRepo, statusManager, timerEvaluator, deliveryPipeline, handlerLogger)
	telegram.RegisterAdminHandlers(ctx, bot, statusManager, cfg.AdminTelegramID, handlerLogger)
	mainLogger.Info("Command handlers registered")

	// Initial recompute so the persisted status reflects the current day and
	// window before the first tick or command arrives.
	if _, err := statusManager.Recompute(ctx, time.Now()); err != nil {
		mainLogger.WithError(err).Error("Initial status recompute failed")
	}

	mainLogger.Info("Application setup complete. Bot and scheduler are starting...")

	// Start bot in a goroutine so it doesn't block graceful shutdown handling
	go bot.Start()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	mainLogger.Info("Shutting down application...")
	reportScheduler.Stop()
	bot.Stop()
	mainLogger.Info("Application shut down gracefully")
}
