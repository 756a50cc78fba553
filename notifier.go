package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramNotifier sends alert messages to a preconfigured chat. Delivery is
// fire-and-forget: transport failures are logged and swallowed, since a lost
// notification must never abort the monitor loop or leave an item
// unprocessed.
type TelegramNotifier struct {
	token   string
	chatID  string
	apiBase string
	client  *http.Client
}

// NewTelegramNotifier creates a notifier. With an empty token or chat ID the
// notifier logs alerts locally instead of sending them.
func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		token:   token,
		chatID:  chatID,
		apiBase: telegramAPIBase,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// Notify sends one plain-text message.
func (n *TelegramNotifier) Notify(message string) {
	if n.token == "" || n.chatID == "" {
		slog.Info("Telegram not configured, logging alert instead", "message", message)
		return
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.token)
	resp, err := n.client.PostForm(endpoint, url.Values{
		"chat_id": {n.chatID},
		"text":    {message},
	})
	if err != nil {
		slog.Warn("Failed to send Telegram notification", "error", err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("Telegram API error", "status", resp.StatusCode)
		return
	}
	slog.Debug("Notification sent")
}

// formatDealAlert builds the hot-deal alert message.
func formatDealAlert(item ListingItem, verdict Verdict) string {
	return fmt.Sprintf("🔥 [Hot deal / 💬%d]\nTitle: %s\nReaction: %s\nLink: %s",
		item.CommentCount, item.Title, verdict.Reason, item.Link)
}

// formatFailureAlert builds the degraded manual-review message sent when
// classification failed.
func formatFailureAlert(item ListingItem) string {
	return fmt.Sprintf("⚠️ [Analysis failed / 💬%d] %s\nCould not analyze, manual review needed.\n%s",
		item.CommentCount, item.Title, item.Link)
}
