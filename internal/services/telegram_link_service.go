package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"cesde/internal/models"
	"cesde/internal/repositories"
	"cesde/internal/utils"
)

const DefaultLinkTTL = 30 * time.Minute

var ErrLinkCodeInvalid = errors.New("link code invalid or expired")

// TelegramLinkService ties Telegram chats to identities so codes can be sent
// through the bot.
type TelegramLinkService struct {
	links  repositories.TelegramLinkRepository
	users  repositories.UserRepository
	ttl    time.Duration
	clock  Clock
	logger *zap.Logger
}

func NewTelegramLinkService(links repositories.TelegramLinkRepository, users repositories.UserRepository, clock Clock, logger *zap.Logger) *TelegramLinkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelegramLinkService{links: links, users: users, ttl: DefaultLinkTTL, clock: clock, logger: logger.Named("telegram_link")}
}

func (s *TelegramLinkService) RequestLink(ctx context.Context, identification string) (*models.TelegramLink, error) {
	code, err := utils.NewLinkCode(16)
	if err != nil {
		return nil, err
	}
	now := s.clock.now()
	link := &models.TelegramLink{
		Identification: identification,
		Code:           code,
		ExpiresAt:      now.Add(s.ttl),
		CreatedAt:      now,
	}
	if err := s.links.Create(ctx, link); err != nil {
		return nil, storeErr("telegram link create", err)
	}
	return link, nil
}

// Link consumes raw (as typed by the user) and stores chatID on its owner.
func (s *TelegramLinkService) Link(ctx context.Context, raw string, chatID int64) (string, error) {
	code, ok := NormalizeLinkCode(raw)
	if !ok {
		return "", ErrLinkCodeInvalid
	}
	link, err := s.links.UseByCode(ctx, code, s.clock.now())
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", ErrLinkCodeInvalid
		}
		return "", storeErr("telegram link use", err)
	}
	if err := s.users.SetTelegramChatID(ctx, link.Identification, chatID); err != nil {
		return "", storeErr("telegram link save chat", err)
	}
	s.logger.Info("chat linked", zap.String("identification", link.Identification), zap.Int64("chat_id", chatID))
	return link.Identification, nil
}

// NormalizeLinkCode strips quotes and punctuation users paste around a code.
func NormalizeLinkCode(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		if unicode.Is(unicode.Hex_Digit, r) {
			b.WriteRune(r)
		}
	}
	code := b.String()
	if len(code) != 32 {
		return "", false
	}
	return code, true
}
