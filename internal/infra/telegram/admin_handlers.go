// internal/infra/telegram/admin_handlers.go
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"daily_report_bot/internal/app"
	"daily_report_bot/internal/domain/window"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterAdminHandlers registers the settings commands: the force-unlock
// override and runtime changes of the report window.
func RegisterAdminHandlers(
	ctx context.Context,
	b *telebot.Bot,
	statuses *app.ReportStatusManager,
	adminTelegramID int64,
	baseLogger *logrus.Entry,
) {
	b.Handle("/unlock", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/unlock",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send("Ошибка: У вас нет прав для выполнения этой команды.")
		}

		args := c.Args()
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			handlerLogger.WithField("args_count", len(args)).Warn("Invalid command format")
			return c.Send("Неверный формат команды. Используйте: /unlock on|off")
		}
		enabled := args[0] == "on"

		if err := statuses.SetForceUnlock(ctx, enabled); err != nil {
			handlerLogger.WithError(err).Error("Failed to set force unlock")
			return c.Send("Произошла ошибка при изменении настройки.")
		}
		if _, err := statuses.Recompute(ctx, time.Now()); err != nil {
			handlerLogger.WithError(err).Error("Status recompute failed after unlock change")
		}

		handlerLogger.WithField("force_unlock", enabled).Info("Force unlock changed")
		if enabled {
			return c.Send("Принудительная разблокировка включена: отправленный отчёт можно пересоздать.")
		}
		return c.Send("Принудительная разблокировка выключена.")
	})

	b.Handle("/window", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/window",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send("Ошибка: У вас нет прав для выполнения этой команды.")
		}

		args := c.Args()
		// Expected format: /window <StartHour> <EndHour>
		if len(args) != 2 {
			handlerLogger.WithField("args_count", len(args)).Warn("Invalid command format")
			return c.Send("Неверный формат команды. Используйте: /window <час начала> <час конца>")
		}

		startHour, err := strconv.Atoi(args[0])
		if err != nil {
			return c.Send("Ошибка: Час начала должен быть числом.")
		}
		endHour, err := strconv.Atoi(args[1])
		if err != nil {
			return c.Send("Ошибка: Час конца должен быть числом.")
		}

		newWindow := window.Config{StartHour: startHour, EndHour: endHour}
		if err := statuses.SetWindow(newWindow); err != nil {
			// The previous valid window stays in effect.
			handlerLogger.WithError(err).Warn("Window rejected")
			return c.Send(fmt.Sprintf("Недопустимое окно: %v. Прежнее окно остаётся в силе.", err))
		}
		if _, err := statuses.Recompute(ctx, time.Now()); err != nil {
			handlerLogger.WithError(err).Error("Status recompute failed after window change")
		}

		handlerLogger.WithFields(logrus.Fields{
			"start_hour": startHour,
			"end_hour":   endHour,
		}).Info("Window updated")
		return c.Send(fmt.Sprintf("Окно отчёта обновлено: %02d:00–%02d:00.", startHour, endHour))
	})
}
