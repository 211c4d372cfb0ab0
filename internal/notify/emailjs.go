// internal/notify/emailjs.go
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	custom_errors "ghost-vault/internal/errors"
)

const defaultEmailJSURL = "https://api.emailjs.com/api/v1.0/email/send"

// EmailJSConfig holds the EmailJS account identifiers.
type EmailJSConfig struct {
	URL        string
	ServiceID  string
	TemplateID string
	PublicKey  string
	HTTPClient *http.Client
}

// EmailJS sends notifications through the EmailJS REST API.
type EmailJS struct {
	cfg EmailJSConfig
}

// NewEmailJS creates an EmailJS sender.
func NewEmailJS(cfg EmailJSConfig) *EmailJS {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = defaultEmailJSURL
	}
	return &EmailJS{cfg: cfg}
}

type emailJSRequest struct {
	ServiceID      string       `json:"service_id"`
	TemplateID     string       `json:"template_id"`
	UserID         string       `json:"user_id"`
	TemplateParams Notification `json:"template_params"`
}

// Name implements Sender.
func (e *EmailJS) Name() string { return "emailjs" }

// Send posts the notification as template parameters.
func (e *EmailJS) Send(ctx context.Context, n Notification) error {
	body, err := json.Marshal(emailJSRequest{
		ServiceID:      e.cfg.ServiceID,
		TemplateID:     e.cfg.TemplateID,
		UserID:         e.cfg.PublicKey,
		TemplateParams: n,
	})
	if err != nil {
		return fmt.Errorf("marshal emailjs request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build emailjs request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", custom_errors.ErrNotificationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: emailjs status %d: %s", custom_errors.ErrNotificationFailed, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
