package notifications

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const telegramAPI = "https://api.telegram.org"

type TelegramNotifier struct {
	client *resty.Client
	token  string
	chatID string
}

func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return NewTelegramNotifierWithURL(telegramAPI, token, chatID)
}

// NewTelegramNotifierWithURL targets a different Bot API host.
func NewTelegramNotifierWithURL(baseURL, token, chatID string) *TelegramNotifier {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(10 * time.Second)
	client.SetRetryCount(2)

	return &TelegramNotifier{
		client: client,
		token:  token,
		chatID: chatID,
	}
}

func (t *TelegramNotifier) SendAlert(level, message string) error {
	emoji := "ℹ️"
	switch level {
	case LevelWarning:
		emoji = "⚠️"
	case LevelError:
		emoji = "🚨"
	case LevelSuccess:
		emoji = "✅"
	}

	resp, err := t.client.R().
		SetFormData(map[string]string{
			"chat_id":    t.chatID,
			"text":       fmt.Sprintf("%s *Paper Trading Bot*\n\n%s", emoji, message),
			"parse_mode": "Markdown",
		}).
		Post("/bot" + t.token + "/sendMessage")
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode())
	}
	return nil
}
