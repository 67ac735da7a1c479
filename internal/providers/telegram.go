package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"

	"fuelwatch/internal/logging"
	"fuelwatch/internal/models"
	"fuelwatch/internal/utils"
)

// telegramConfig holds bot token and chat ID for a Telegram contact point.
type telegramConfig struct {
	BotToken string `json:"bot_token"`
	ChatID   int64  `json:"chat_id"`
}

// telegramLimiter is the global rate limiter for Telegram messages
var telegramLimiter *rate.Limiter

// InitTelegramLimiter sets the global Telegram send rate; call once at
// startup before the first dispatch.
func InitTelegramLimiter(ratePerSecond int) {
	telegramLimiter = rate.NewLimiter(rate.Limit(float64(ratePerSecond)), ratePerSecond)
}

// SendTelegram sends a notification via the go-telegram/bot library.
func SendTelegram(ctx context.Context, notif models.Notification, cp models.ContactPoint, logger *logging.Logger) error {
	if telegramLimiter == nil {
		InitTelegramLimiter(20)
	}
	if err := telegramLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit exceeded: %w", err)
	}

	configBytes, err := json.Marshal(cp.Configuration)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration for contact point %s: %w", cp.ID, err)
	}
	var tCfg telegramConfig
	if err := json.Unmarshal(configBytes, &tCfg); err != nil {
		return fmt.Errorf("invalid Telegram configuration for contact point %s: %w", cp.ID, err)
	}
	if tCfg.BotToken == "" {
		return fmt.Errorf("missing bot_token in Telegram configuration for contact point %s", cp.ID)
	}
	if tCfg.ChatID == 0 {
		return fmt.Errorf("missing chat_id in Telegram configuration for contact point %s", cp.ID)
	}

	text := fmt.Sprintf("*%s*\n%s", notif.Subject, notif.Body)

	return utils.Retry(ctx, logger, 3, time.Second, func() error {
		b, err := bot.New(tCfg.BotToken)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram bot for contact point %s: %w", cp.ID, err)
		}
		params := &bot.SendMessageParams{
			ChatID:    tCfg.ChatID,
			Text:      text,
			ParseMode: "Markdown",
		}
		if _, err := b.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("failed to send Telegram message to chat_id %d: %w", tCfg.ChatID, err)
		}
		return nil
	})
}
