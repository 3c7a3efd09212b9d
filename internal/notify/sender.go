// Package notify renders transactional emails and sends them from a
// bounded background queue.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"produce-market/internal/config"

	"go.uber.org/zap"
)

var ErrProviderRejected = errors.New("email provider rejected message")

type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a rendered message
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// HTTPSender posts messages to a Resend-style email API
type HTTPSender struct {
	baseURL string
	apiKey  string
	from    string
	client  *http.Client
}

func NewHTTPSender(cfg config.EmailConfig) *HTTPSender {
	return &HTTPSender{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		from:    cfg.From,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (s *HTTPSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(sendRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("failed to encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach email provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: HTTP %d %s", ErrProviderRejected, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

// LogSender writes messages to the log instead of sending them. Used when
// no provider key is configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("Email not sent, no provider configured",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("html_bytes", len(msg.HTML)),
	)
	return nil
}
