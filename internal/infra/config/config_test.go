package config

import (
	"testing"

	"daily_report_bot/internal/domain/window"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_TOKEN", "test-token")
	t.Setenv("DATABASE_URL", "postgres://localhost/reports_test")
	t.Setenv("ADMIN_TELEGRAM_ID", "100")
	t.Setenv("REPORT_CHAT_ID", "200")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(100), cfg.AdminTelegramID)
	assert.Equal(t, int64(200), cfg.ReportChatID)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, window.Config{StartHour: 9, EndHour: 18}, cfg.ReportWindow)
	assert.Equal(t, "* * * * * *", cfg.CronSpecTick)
	assert.Equal(t, "0 0 0 * * *", cfg.CronSpecRollover)
	assert.Equal(t, "./media", cfg.MediaDir)
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name string
		omit string
	}{
		{name: "missing token", omit: "TELEGRAM_TOKEN"},
		{name: "missing database url", omit: "DATABASE_URL"},
		{name: "missing admin id", omit: "ADMIN_TELEGRAM_ID"},
		{name: "missing chat id", omit: "REPORT_CHAT_ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.omit, "")

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_WindowFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REPORT_WINDOW_START_HOUR", "7")
	t.Setenv("REPORT_WINDOW_END_HOUR", "21")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, window.Config{StartHour: 7, EndHour: 21}, cfg.ReportWindow)
}

func TestLoad_InvalidWindowRejected(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
	}{
		{name: "equal hours", start: "10", end: "10"},
		{name: "inverted", start: "18", end: "9"},
		{name: "start out of range", start: "25", end: "18"},
		{name: "not a number", start: "nine", end: "18"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv("REPORT_WINDOW_START_HOUR", tt.start)
			t.Setenv("REPORT_WINDOW_END_HOUR", tt.end)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_InvalidAdminID(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ADMIN_TELEGRAM_ID", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}
