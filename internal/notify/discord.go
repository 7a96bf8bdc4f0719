package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// discordContentLimit is the webhook API's maximum content length.
const discordContentLimit = 2000

// discordMessage is the webhook request body.
type discordMessage struct {
	Content string `json:"content"`
}

// DiscordSender delivers notifications through a Discord webhook.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordSender creates a DiscordSender for the given webhook URL.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the notification with the title as a bold first line. Discord
// answers 204 No Content on success; bodies over the content limit are
// clipped.
func (d *DiscordSender) Send(ctx context.Context, title, message string) error {
	return postJSON(ctx, d.client, "discord", d.webhookURL, discordMessage{
		Content: clip(fmt.Sprintf("**%s**\n%s", title, message), discordContentLimit),
	})
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string {
	return "discord"
}
