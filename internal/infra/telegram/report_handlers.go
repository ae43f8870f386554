// internal/infra/telegram/report_handlers.go
package telegram

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"daily_report_bot/internal/app"
	"daily_report_bot/internal/domain/report"
	"daily_report_bot/internal/domain/window"
	"daily_report_bot/internal/infra/config"
	idb "daily_report_bot/internal/infra/database" // For ErrReportNotFound

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterReportHandlers registers the owner-facing report commands: creating
// and editing today's draft, attaching voice notes, publishing, and checking
// the current status and countdown.
func RegisterReportHandlers(
	ctx context.Context,
	b *telebot.Bot,
	cfg *config.AppConfig,
	reports report.Repository,
	statuses *app.ReportStatusManager,
	timer *app.TimerEvaluator,
	pipeline *app.DeliveryPipeline,
	baseLogger *logrus.Entry,
) {
	b.Handle("/report", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/report",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		if c.Sender().ID != cfg.AdminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send("Ошибка: У вас нет прав для выполнения этой команды.")
		}

		body := strings.TrimSpace(strings.TrimPrefix(c.Text(), "/report"))
		if body == "" {
			return c.Send("Неверный формат команды. Используйте: /report <текст отчёта>")
		}

		now := time.Now()
		if !statuses.IsEditable(now) {
			handlerLogger.Info("Report not editable at this time")
			return c.Send("Сейчас отчёт нельзя редактировать: окно закрыто или отчёт уже отправлен.")
		}

		existing, err := reports.GetByDate(ctx, now)
		if err != nil && err != idb.ErrReportNotFound {
			handlerLogger.WithError(err).Error("Failed to fetch today's report")
			return c.Send("Произошла ошибка при чтении отчёта. Пожалуйста, попробуйте позже.")
		}

		if err == idb.ErrReportNotFound {
			newReport := &report.Report{
				ReportDate: window.DayOf(now),
				Type:       report.TypeRegular,
				Body:       body,
			}
			if err := reports.Create(ctx, newReport); err != nil {
				handlerLogger.WithError(err).Error("Failed to create report")
				return c.Send("Произошла ошибка при создании отчёта.")
			}
			handlerLogger.WithField("report_id", newReport.ID).Info("Report created")
		} else {
			if existing.Published {
				// Force-unlock "create new" semantics: the published report
				// is replaced by a fresh draft.
				if err := reports.DeleteByDate(ctx, now); err != nil {
					handlerLogger.WithError(err).Error("Failed to replace published report")
					return c.Send("Произошла ошибка при пересоздании отчёта.")
				}
				newReport := &report.Report{
					ReportDate: window.DayOf(now),
					Type:       report.TypeRegular,
					Body:       body,
				}
				if err := reports.Create(ctx, newReport); err != nil {
					handlerLogger.WithError(err).Error("Failed to create replacement report")
					return c.Send("Произошла ошибка при пересоздании отчёта.")
				}
				handlerLogger.WithField("report_id", newReport.ID).Info("Published report replaced with new draft")
			} else {
				existing.Body = body
				if err := reports.Update(ctx, existing); err != nil {
					handlerLogger.WithError(err).Error("Failed to update report")
					return c.Send("Произошла ошибка при обновлении отчёта.")
				}
				handlerLogger.WithField("report_id", existing.ID).Info("Report updated")
			}
		}

		if _, err := statuses.Recompute(ctx, now); err != nil {
			handlerLogger.WithError(err).Error("Status recompute failed after report edit")
		}
		return c.Send("Черновик отчёта сохранён.")
	})

	b.Handle("/delete", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/delete",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		if c.Sender().ID != cfg.AdminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send("Ошибка: У вас нет прав для выполнения этой команды.")
		}

		now := time.Now()
		if err := reports.DeleteByDate(ctx, now); err != nil {
			if err == idb.ErrReportNotFound {
				return c.Send("Отчёт за сегодня не найден.")
			}
			handlerLogger.WithError(err).Error("Failed to delete report")
			return c.Send("Произошла ошибка при удалении отчёта.")
		}
		if _, err := statuses.Recompute(ctx, now); err != nil {
			handlerLogger.WithError(err).Error("Status recompute failed after report delete")
		}
		handlerLogger.Info("Report deleted")
		return c.Send("Отчёт за сегодня удалён.")
	})

	b.Handle("/publish", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/publish",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		if c.Sender().ID != cfg.AdminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send("Ошибка: У вас нет прав для выполнения этой команды.")
		}

		now := time.Now()
		rep, err := reports.GetByDate(ctx, now)
		if err != nil {
			if err == idb.ErrReportNotFound {
				return c.Send("Отчёт за сегодня ещё не создан. Используйте /report <текст>.")
			}
			handlerLogger.WithError(err).Error("Failed to fetch today's report")
			return c.Send("Произошла ошибка при чтении отчёта. Пожалуйста, попробуйте позже.")
		}

		result, err := pipeline.Publish(ctx, rep.ID, rep.Body, rep.VoicePaths)
		if err != nil {
			if err == app.ErrPublishInFlight {
				return c.Send("Отправка этого отчёта уже выполняется. Подождите её завершения.")
			}
			handlerLogger.WithError(err).Error("Publish failed")
			return c.Send("Произошла ошибка при отправке отчёта.")
		}
		if !result.Delivered {
			handlerLogger.WithFields(logrus.Fields{
				"text_sent":           result.TextSent,
				"attachments_sent":    len(result.Attachments),
				"attachments_skipped": len(result.Skipped),
			}).Warn("Delivery incomplete")
			return c.Send("Не удалось доставить отчёт полностью. Отчёт не отмечен отправленным, попробуйте ещё раз.")
		}

		if err := statuses.MarkPublished(ctx, rep.ID, now); err != nil {
			handlerLogger.WithError(err).Error("Failed to mark report published")
			return c.Send("Отчёт доставлен, но его статус не удалось обновить.")
		}

		handlerLogger.WithField("report_id", rep.ID).Info("Report published")
		return c.Send(fmt.Sprintf("Отчёт отправлен (голосовых сообщений: %d, пропущено: %d).",
			len(result.Attachments), len(result.Skipped)))
	})

	b.Handle("/status", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/status",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		now := time.Now()
		status, forceUnlock := statuses.Status()
		win := statuses.Window()
		snap := timer.Tick(now)

		var msg strings.Builder
		msg.WriteString(fmt.Sprintf("Статус отчёта: %s\n", statusText(status)))
		msg.WriteString(fmt.Sprintf("Окно отчёта: %02d:00–%02d:00\n", win.StartHour, win.EndHour))
		switch snap.Label {
		case app.LabelToEnd:
			msg.WriteString(fmt.Sprintf("До закрытия окна: %s (%.0f%%)\n", snap.RemainingString(), snap.Progress*100))
		default:
			msg.WriteString(fmt.Sprintf("До открытия окна: %s\n", snap.RemainingString()))
		}
		if forceUnlock {
			msg.WriteString("Принудительная разблокировка: включена\n")
		}
		if statuses.IsEditable(now) {
			msg.WriteString("Отчёт сейчас можно редактировать.")
		} else {
			msg.WriteString("Редактирование сейчас недоступно.")
		}
		return c.Send(msg.String())
	})

	b.Handle(telebot.OnVoice, func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "voice",
			"sender_id": c.Sender().ID,
		})

		if c.Sender().ID != cfg.AdminTelegramID {
			return nil // Ignore voice notes from strangers
		}
		handlerLogger.Info("Voice note received")

		now := time.Now()
		if !statuses.IsEditable(now) {
			return c.Send("Сейчас отчёт нельзя редактировать: окно закрыто или отчёт уже отправлен.")
		}

		rep, err := reports.GetByDate(ctx, now)
		if err != nil {
			if err != idb.ErrReportNotFound {
				handlerLogger.WithError(err).Error("Failed to fetch today's report")
				return c.Send("Произошла ошибка при чтении отчёта.")
			}
			rep = &report.Report{
				ReportDate: window.DayOf(now),
				Type:       report.TypeRegular,
			}
			if err := reports.Create(ctx, rep); err != nil {
				handlerLogger.WithError(err).Error("Failed to create report for voice note")
				return c.Send("Произошла ошибка при создании отчёта.")
			}
		}

		voice := c.Message().Voice
		localPath := filepath.Join(cfg.MediaDir, fmt.Sprintf("%s.ogg", voice.FileID))
		if err := b.Download(&voice.File, localPath); err != nil {
			handlerLogger.WithError(err).Error("Failed to download voice note")
			return c.Send("Не удалось сохранить голосовое сообщение.")
		}

		rep.VoicePaths = append(rep.VoicePaths, localPath)
		if err := reports.Update(ctx, rep); err != nil {
			handlerLogger.WithError(err).Error("Failed to attach voice note to report")
			return c.Send("Не удалось прикрепить голосовое сообщение к отчёту.")
		}

		if _, err := statuses.Recompute(ctx, now); err != nil {
			handlerLogger.WithError(err).Error("Status recompute failed after voice attach")
		}
		handlerLogger.WithField("path", localPath).Info("Voice note attached")
		return c.Send("Голосовое сообщение прикреплено к отчёту.")
	})
}

func statusText(s report.Status) string {
	switch s {
	case report.StatusNotStarted:
		return "не начат"
	case report.StatusInProgress:
		return "в процессе"
	case report.StatusNotCreated:
		return "не создан"
	case report.StatusNotSent:
		return "не отправлен"
	case report.StatusSent:
		return "отправлен"
	default:
		return string(s)
	}
}
