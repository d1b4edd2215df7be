package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Sender delivers a notification text to a channel.
type Sender interface {
	Send(ctx context.Context, chatID, text string) error
}

// TelegramSender posts messages through the Telegram Bot API.
type TelegramSender struct {
	client  *http.Client
	apiBase string
	token   string
}

// NewTelegramSender creates a sender for the given bot token. apiBase is the
// API root, normally https://api.telegram.org.
func NewTelegramSender(apiBase, token string, timeout time.Duration) *TelegramSender {
	return &TelegramSender{
		client:  &http.Client{Timeout: timeout},
		apiBase: apiBase,
		token:   token,
	}
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// Send posts text to the given chat via the sendMessage method.
func (s *TelegramSender) Send(ctx context.Context, chatID, text string) error {
	payload, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		return fmt.Errorf("failed to marshal sendMessage request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sendMessage request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sendMessage returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
