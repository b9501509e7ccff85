package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cesde/internal/models"
)

// CodeDeliverer picks a channel for an identity and sends a code through it.
type CodeDeliverer interface {
	ChannelFor(identity *models.Identity) string
	Deliver(ctx context.Context, channel string, identity *models.Identity, code string, ttl time.Duration) error
}

type CodeDelivery struct {
	mailer   Mailer
	telegram TelegramSender
	prefer   string
}

// NewCodeDelivery sends by email unless prefer is telegram, a sender is
// configured and the identity has a linked chat.
func NewCodeDelivery(mailer Mailer, telegram TelegramSender, prefer string) *CodeDelivery {
	if prefer == "" {
		prefer = models.OTPChannelEmail
	}
	return &CodeDelivery{mailer: mailer, telegram: telegram, prefer: prefer}
}

func (d *CodeDelivery) ChannelFor(identity *models.Identity) string {
	if d.prefer == models.OTPChannelTelegram && d.telegram != nil && identity.TelegramChatID != 0 {
		return models.OTPChannelTelegram
	}
	return models.OTPChannelEmail
}

func (d *CodeDelivery) Deliver(ctx context.Context, channel string, identity *models.Identity, code string, ttl time.Duration) error {
	minutes := int(ttl.Minutes())
	switch channel {
	case models.OTPChannelTelegram:
		if d.telegram == nil {
			return errors.New("telegram channel not configured")
		}
		text := fmt.Sprintf("Your CESDE verification code: <b>%s</b>\nIt expires in %d minutes. Do not share it.", code, minutes)
		return d.telegram.SendText(ctx, identity.TelegramChatID, text)
	default:
		if d.mailer == nil {
			return errors.New("mailer not configured")
		}
		if identity.Email == "" {
			return errors.New("identity has no email address")
		}
		subject, html, text := otpEmail(identity.FullName, code, minutes)
		return d.mailer.Send(ctx, identity.Email, subject, html, text)
	}
}
