package services

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// TelegramAPI is the part of *tgbotapi.BotAPI we use.
type TelegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramSender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

type TelegramService struct {
	api    TelegramAPI
	logger *zap.Logger
}

func NewTelegramService(api TelegramAPI, logger *zap.Logger) *TelegramService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelegramService{api: api, logger: logger.Named("telegram")}
}

// NewTelegramBot connects to the Bot API with token.
func NewTelegramBot(token string, logger *zap.Logger) (*TelegramService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return NewTelegramService(bot, logger), nil
}

func (t *TelegramService) SendText(ctx context.Context, chatID int64, text string) error {
	if chatID == 0 {
		return fmt.Errorf("telegram: empty chat id")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.api.Send(msg); err != nil {
		t.logger.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	return nil
}
