// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func RegisterBotCommands(
	b *telebot.Bot,
	adminTelegramID int64,
	baseLogger *logrus.Entry, // For contextual logging
) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		if senderID == adminTelegramID {
			return c.Send("Привет! Я слежу за вашим ежедневным отчётом: напомню про окно, посчитаю время и отправлю отчёт адресату. Используйте /help для списка команд.")
		}

		logCtx.Info("User is unknown")
		return c.Send("Привет! Это личный бот ежедневных отчётов. Доступ к нему есть только у владельца.")
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")

		if senderID != adminTelegramID {
			logCtx.Info("User is unknown, sending restricted help.")
			return c.Send("Доступных команд для вас нет.")
		}

		var helpText strings.Builder
		helpText.WriteString("Доступные команды:\n\n")
		helpText.WriteString("`/report <текст>`\n - Создать или обновить черновик отчёта за сегодня.\n\n")
		helpText.WriteString("`/publish`\n - Отправить сегодняшний отчёт (текст и голосовые сообщения).\n\n")
		helpText.WriteString("`/status`\n - Текущий статус отчёта и отсчёт времени окна.\n\n")
		helpText.WriteString("`/delete`\n - Удалить сегодняшний отчёт.\n\n")
		helpText.WriteString("`/window <час начала> <час конца>`\n - Изменить окно отчёта.\n\n")
		helpText.WriteString("`/unlock on|off`\n - Разрешить пересоздание уже отправленного отчёта.\n\n")
		helpText.WriteString("Голосовое сообщение в чат прикрепляется к сегодняшнему отчёту.\n\n")
		helpText.WriteString("`/help`\n - Показать это справочное сообщение.")
		return c.Send(helpText.String(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
}
