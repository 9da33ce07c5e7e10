// Package notify delivers kudos notifications by email.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"example.com/lazywalker/internal/domain"
)

// ErrNoRecipient is returned when a notification has no email address.
var ErrNoRecipient = errors.New("notification has no recipient")

// ResendConfig configures the Resend email client.
type ResendConfig struct {
	APIKey  string
	BaseURL string
	From    string
	AppURL  string
}

// ResendNotifier sends kudos emails through the Resend HTTP API.
type ResendNotifier struct {
	cfg    ResendConfig
	client *http.Client
}

// NewResendNotifier constructs a notifier. The caller bounds each send with
// the context deadline.
func NewResendNotifier(cfg ResendConfig, client *http.Client) *ResendNotifier {
	if client == nil {
		client = &http.Client{}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &ResendNotifier{cfg: cfg, client: client}
}

type sendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
}

type sendEmailResponse struct {
	ID string `json:"id"`
}

type apiError struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Name       string `json:"name"`
}

// Notify sends one kudos email.
func (r *ResendNotifier) Notify(ctx context.Context, n domain.Notification) error {
	if n.Email == "" {
		return ErrNoRecipient
	}
	html, err := RenderKudos(n, r.cfg.AppURL)
	if err != nil {
		return fmt.Errorf("render kudos email: %w", err)
	}

	body, err := json.Marshal(sendEmailRequest{
		From:    r.cfg.From,
		To:      []string{n.Email},
		Subject: Subject(n),
		HTML:    html,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("resend: %s (%d): %s", apiErr.Name, resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("resend: unexpected status %d", resp.StatusCode)
	}

	var out sendEmailResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("resend: decode response: %w", err)
	}
	return nil
}

// LogNotifier logs the email it would have sent. It is used when no Resend
// API key is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the simulated email.
func (l *LogNotifier) Notify(ctx context.Context, n domain.Notification) error {
	if n.Email == "" {
		return ErrNoRecipient
	}
	l.logger.InfoContext(ctx, "simulated kudos email", "to", n.Email, "subject", Subject(n), "kudos", n.KudosType)
	return nil
}
