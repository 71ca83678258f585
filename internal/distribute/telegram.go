package distribute

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram/bot"

	"github.com/curatehub/curatehub/internal/model"
)

// Telegram sends content to the chat named by the distributor config
// ("chatId" key). One bot instance is shared across feeds.
type Telegram struct {
	bot *tgbot.Bot
}

func NewTelegram(token string) (*Telegram, error) {
	b, err := tgbot.New(token)
	if err != nil {
		return nil, fmt.Errorf("telegram distributor: %w", err)
	}
	return &Telegram{bot: b}, nil
}

func (t *Telegram) Distribute(ctx context.Context, cfg map[string]any, c model.PipelineContent) error {
	chatID := chatIDFromConfig(cfg)
	if chatID == nil {
		return fmt.Errorf("telegram distributor: missing chatId config")
	}
	_, err := t.bot.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: chatID,
		Text:   c.Text,
	})
	if err != nil {
		return fmt.Errorf("telegram distributor: %w", err)
	}
	return nil
}

// chatIDFromConfig accepts both "@channel" strings and numeric chat ids
// (decoded JSON numbers arrive as float64).
func chatIDFromConfig(cfg map[string]any) any {
	switch v := cfg["chatId"].(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return int64(v)
	case int64:
		return v
	}
	return nil
}
