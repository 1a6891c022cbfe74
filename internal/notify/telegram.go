package notify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const defaultTelegramTimeout = 30 * time.Second

// TelegramDispatcher sends reminders to a telegram chat. Destination is the
// numeric chat ID as a string. The bot API client has no per-call context
// support, so the HTTP client's own timeout bounds every request instead.
type TelegramDispatcher struct {
	bot *tgbotapi.BotAPI
}

func NewTelegramDispatcher(token string, timeout time.Duration) (*TelegramDispatcher, error) {
	if timeout <= 0 {
		timeout = defaultTelegramTimeout
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return &TelegramDispatcher{bot: bot}, nil
}

func (d *TelegramDispatcher) Send(ctx context.Context, destination, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID, err := strconv.ParseInt(destination, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram destination %q is not a chat id: %w", destination, err)
	}
	if _, err := d.bot.Send(tgbotapi.NewMessage(chatID, message)); err != nil {
		return fmt.Errorf("telegram send to %d: %w", chatID, err)
	}
	return nil
}
