package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"cesde/internal/middleware"
	"cesde/internal/services"
)

// webhookSecretHeader carries the secret_token given to setWebhook.
const webhookSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

type IntegrationsHandler struct {
	tg            services.TelegramSender
	links         *services.TelegramLinkService
	webhookSecret string
	logger        *zap.Logger
}

// NewIntegrationsHandler builds the Telegram handlers. With a non-empty
// webhookSecret, updates without the matching secret header are refused.
func NewIntegrationsHandler(tg services.TelegramSender, links *services.TelegramLinkService, webhookSecret string, logger *zap.Logger) *IntegrationsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntegrationsHandler{tg: tg, links: links, webhookSecret: webhookSecret, logger: logger.Named("telegram")}
}

// Webhook handles bot updates. Telegram retries on non-2xx, so accepted
// updates always get 200.
func (h *IntegrationsHandler) Webhook(c *gin.Context) {
	if h.webhookSecret != "" {
		got := c.GetHeader(webhookSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) != 1 {
			h.logger.Warn("webhook secret mismatch", zap.String("ip", c.ClientIP()))
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
	}

	var up tgbotapi.Update
	if err := c.ShouldBindJSON(&up); err != nil || up.Message == nil || up.Message.Chat == nil {
		c.Status(http.StatusOK)
		return
	}

	ctx := c.Request.Context()
	chatID := up.Message.Chat.ID
	reply := func(text string) {
		if err := h.tg.SendText(ctx, chatID, text); err != nil {
			h.logger.Warn("reply failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}

	switch up.Message.Command() {
	case "start":
		reply("Hi! To receive your CESDE sign-in codes here, send:\n<code>/link &lt;code&gt;</code>\nGet the code from your account page.")
	case "link":
		_, err := h.links.Link(ctx, up.Message.CommandArguments(), chatID)
		switch {
		case err == nil:
			reply("Done! Your account is linked. Sign-in codes will arrive in this chat.")
		case errors.Is(err, services.ErrLinkCodeInvalid):
			reply("The code is invalid or expired. Generate a new one from your account page.")
		default:
			h.logger.Error("link chat", zap.Int64("chat_id", chatID), zap.Error(err))
			reply("Could not link the account, please try later.")
		}
	default:
		if strings.TrimSpace(up.Message.Text) != "" {
			reply("Unknown command. Use <code>/link &lt;code&gt;</code>.")
		}
	}
	c.Status(http.StatusOK)
}

// @Summary      Request a Telegram link code
// @Tags         Integrations
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  ErrorResponse
// @Router       /integrations/telegram/link [post]
func (h *IntegrationsHandler) RequestTelegramLink(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	link, err := h.links.RequestLink(c.Request.Context(), user.Identification)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":       link.Code,
		"expires_at": link.ExpiresAt,
		"hint":       "Open the bot chat and send: /link " + link.Code,
	})
}
