package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization

	"daily_report_bot/internal/domain/window"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken    string
	DatabaseURL      string
	AdminTelegramID  int64
	ReportChatID     int64 // recipient of published reports
	LogLevel         string
	Environment      string
	ReportWindow     window.Config
	MediaDir         string // where incoming voice notes are stored
	CronSpecTick     string // second-cadence evaluator tick
	CronSpecRollover string // midnight recompute
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID")
	if adminIDStr == "" {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
	}
	cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
	}

	chatIDStr := os.Getenv("REPORT_CHAT_ID")
	if chatIDStr == "" {
		return nil, fmt.Errorf("REPORT_CHAT_ID is not set")
	}
	cfg.ReportChatID, err = strconv.ParseInt(chatIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_CHAT_ID: %w", err)
	}

	cfg.ReportWindow, err = loadWindow()
	if err != nil {
		return nil, err
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.MediaDir = os.Getenv("MEDIA_DIR")
	if cfg.MediaDir == "" {
		cfg.MediaDir = "./media"
	}

	cfg.CronSpecTick = os.Getenv("CRON_SPEC_TICK")
	if cfg.CronSpecTick == "" {
		cfg.CronSpecTick = "* * * * * *" // Default: every second (seconds-enabled spec)
	}

	cfg.CronSpecRollover = os.Getenv("CRON_SPEC_ROLLOVER")
	if cfg.CronSpecRollover == "" {
		cfg.CronSpecRollover = "0 0 0 * * *" // Default: midnight
	}

	return cfg, nil
}

// loadWindow reads and validates the report window hours. An invalid window
// is a configuration error rejected here, never a runtime state.
func loadWindow() (window.Config, error) {
	cfg := window.Config{StartHour: 9, EndHour: 18} // Defaults

	if startStr := os.Getenv("REPORT_WINDOW_START_HOUR"); startStr != "" {
		start, err := strconv.Atoi(startStr)
		if err != nil {
			return window.Config{}, fmt.Errorf("invalid REPORT_WINDOW_START_HOUR: %w", err)
		}
		cfg.StartHour = start
	}
	if endStr := os.Getenv("REPORT_WINDOW_END_HOUR"); endStr != "" {
		end, err := strconv.Atoi(endStr)
		if err != nil {
			return window.Config{}, fmt.Errorf("invalid REPORT_WINDOW_END_HOUR: %w", err)
		}
		cfg.EndHour = end
	}

	if err := cfg.Validate(); err != nil {
		return window.Config{}, err
	}
	return cfg, nil
}
