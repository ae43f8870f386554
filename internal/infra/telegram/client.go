// internal/infra/telegram/client.go
package telegram

import (
	"gopkg.in/telebot.v3"
)

// TelebotAdapter implements the Client interface using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage sends a text message to the specified recipient.
func (tba *TelebotAdapter) SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error {
	if options == nil {
		options = &telebot.SendOptions{}
	}

	recipient := &telebot.User{ID: recipientChatID}
	_, err := tba.bot.Send(recipient, text, options)
	return err
}

// SendVoice uploads and sends a voice note from a local file path.
func (tba *TelebotAdapter) SendVoice(recipientChatID int64, filePath string) error {
	recipient := &telebot.User{ID: recipientChatID}
	voice := &telebot.Voice{File: telebot.FromDisk(filePath)}
	_, err := tba.bot.Send(recipient, voice)
	return err
}
