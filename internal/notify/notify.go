// Package notify posts the run outcome to a webhook. Notification is
// fire-and-forget: a failed delivery is logged, never surfaced to the run.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lumenmedi/lumen/internal/retry"
)

type Status string

const (
	StatusSuccess    Status = "success"
	StatusNoArticles Status = "no_articles"
	StatusError      Status = "error"
)

type Message struct {
	Status       Status    `json:"status"`
	ArticleCount int       `json:"article_count"`
	Detail       string    `json:"detail,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

type Notifier struct {
	webhookURL string
	client     *http.Client
	retryCfg   retry.Config
}

func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		retryCfg:   retry.Config{MaxAttempts: 3, Delay: time.Second, Backoff: true},
	}
}

// Enabled reports whether a webhook URL is configured.
func (n *Notifier) Enabled() bool {
	return n.webhookURL != ""
}

// Send posts the message, retrying transient failures. Errors are logged and
// swallowed.
func (n *Notifier) Send(ctx context.Context, msg Message) {
	if !n.Enabled() {
		return
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	body, err := json.Marshal(msg)
	if err != nil {
		slog.Warn("notification not encodable", "error", err)
		return
	}

	err = retry.WithRetry(ctx, n.retryCfg, func() error {
		return n.post(ctx, body)
	})
	if err != nil {
		slog.Warn("notification not delivered", "status", msg.Status, "error", err)
		return
	}

	slog.Info("notification sent", "status", msg.Status, "articles", msg.ArticleCount)
}

func (n *Notifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
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
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}
