// Package notify delivers the digest message to a Telegram chat via the bot
// API. Delivery failures are surfaced to the caller, which decides whether
// the daily cooldown should be recorded.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-pkgz/repeater/v2"
)

// Telegram sends messages to a chat via the bot API
type Telegram struct {
	botToken string
	chatID   string
	client   *http.Client
	apiBase  string // override for tests
}

// NewTelegram creates a notifier for the given bot token and chat
func NewTelegram(botToken, chatID string, timeout time.Duration) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: timeout},
		apiBase:  "https://api.telegram.org",
	}
}

// Enabled reports whether the notifier has credentials to deliver anything
func (t *Telegram) Enabled() bool {
	return t.botToken != "" && t.chatID != ""
}

// Send delivers a single message, retrying transient failures with backoff
func (t *Telegram) Send(ctx context.Context, text string) error {
	if !t.Enabled() {
		return fmt.Errorf("telegram notifier is not configured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)
	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", text)
	form.Set("disable_web_page_preview", "true")
	payload := form.Encode()

	retrier := repeater.NewBackoff(3, 250*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
	return retrier.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := t.client.Do(req)
		if err != nil {
			return fmt.Errorf("send telegram message: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("telegram api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return nil
	})
}
