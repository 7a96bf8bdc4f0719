package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// telegramTextLimit is the Bot API's maximum message length.
const telegramTextLimit = 4096

// telegramMessage is the sendMessage request body.
type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// TelegramSender delivers notifications to one chat via the Telegram Bot
// API.
type TelegramSender struct {
	endpoint string
	chatID   string
	client   *http.Client
}

// NewTelegramSender creates a TelegramSender for the given bot token and
// chat ID.
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{
		endpoint: fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", token),
		chatID:   chatID,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the notification with the title as a bold first line. Bodies
// over the Bot API limit are clipped.
func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	return postJSON(ctx, t.client, "telegram", t.endpoint, telegramMessage{
		ChatID:    t.chatID,
		Text:      clip(fmt.Sprintf("*%s*\n%s", title, message), telegramTextLimit),
		ParseMode: "Markdown",
	})
}

// Name returns the sender identifier.
func (t *TelegramSender) Name() string {
	return "telegram"
}
