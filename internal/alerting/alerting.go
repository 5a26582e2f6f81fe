package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Config holds alerting configuration. Alerts fire when consecutive source
// fetch failures reach MinFailures; both channels are optional.
type Config struct {
	// WebhookURL is a generic webhook endpoint (Slack, Discord, or custom).
	WebhookURL string
	// WebhookType determines the payload format: "slack", "discord", or
	// "generic". Empty auto-detects from the URL.
	WebhookType string

	// SendgridAPIKey, EmailFrom and EmailTo enable email alerts.
	SendgridAPIKey string
	EmailFrom      string
	EmailTo        string

	MinFailures int
	Timeout     time.Duration
}

// Notifier sends fetch-failure alerts. A zero-config Notifier is disabled.
type Notifier struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) *Notifier {
	if cfg.MinFailures <= 0 {
		cfg.MinFailures = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.WebhookType == "" && cfg.WebhookURL != "" {
		switch {
		case strings.Contains(cfg.WebhookURL, "slack.com"):
			cfg.WebhookType = "slack"
		case strings.Contains(cfg.WebhookURL, "discord.com"):
			cfg.WebhookType = "discord"
		default:
			cfg.WebhookType = "generic"
		}
	}
	return &Notifier{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

// SourceFailure reports a fetch failure streak. Below the threshold, or
// with no channel configured, it is a no-op.
func (n *Notifier) SourceFailure(ctx context.Context, streak int, cause error) {
	if streak < n.cfg.MinFailures {
		return
	}
	msg := fmt.Sprintf("cnbrates: daily rate list fetch failed %d times in a row, serving from cache (last error: %v)", streak, cause)

	if n.cfg.WebhookURL != "" {
		if err := n.postWebhook(ctx, msg); err != nil {
			slog.Error("alerting: webhook post failed", "error", err)
		}
	}
	if n.cfg.SendgridAPIKey != "" && n.cfg.EmailTo != "" {
		if err := n.sendEmail(msg); err != nil {
			slog.Error("alerting: email send failed", "error", err)
		}
	}
}

func (n *Notifier) postWebhook(ctx context.Context, msg string) error {
	var payload any
	switch n.cfg.WebhookType {
	case "slack":
		payload = map[string]string{"text": msg}
	case "discord":
		payload = map[string]string{"content": msg}
	default:
		payload = map[string]string{
			"id":      uuid.New().String(),
			"source":  "cnbrates",
			"message": msg,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}

func (n *Notifier) sendEmail(msg string) error {
	from := mail.NewEmail("cnbrates", n.cfg.EmailFrom)
	to := mail.NewEmail("", n.cfg.EmailTo)
	m := mail.NewSingleEmail(from, "cnbrates: rate source unavailable", to, msg, msg)

	client := sendgrid.NewSendClient(n.cfg.SendgridAPIKey)
	resp, err := client.Send(m)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned %d", resp.StatusCode)
	}
	return nil
}
