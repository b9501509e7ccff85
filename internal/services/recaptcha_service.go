package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	BotCodeNetworkError = "network-error"
	BotCodeBadResponse  = "bad-response"
	BotCodeMissingToken = "missing-input-response"
	BotCodeTimeout      = "timeout-or-duplicate"
	BotCodeInvalidInput = "invalid-input-response"
)

type BotCheckResult struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// BotVerifier never returns an error: transport failures come back as an
// unsuccessful result with a synthetic reason code.
type BotVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) BotCheckResult
}

// BotCheckMessage maps reason codes to the text shown to the user.
func BotCheckMessage(codes []string) string {
	for _, c := range codes {
		switch c {
		case BotCodeTimeout:
			return "Verification expired, please retry."
		case BotCodeInvalidInput:
			return "Invalid verification, please retry."
		}
	}
	return "Bot verification failed. Please try again."
}

type RecaptchaService struct {
	secret    string
	verifyURL string
	client    *http.Client
	logger    *zap.Logger
}

func NewRecaptchaService(secret, verifyURL string, timeout time.Duration, logger *zap.Logger) *RecaptchaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RecaptchaService{
		secret:    secret,
		verifyURL: verifyURL,
		client:    &http.Client{Timeout: timeout},
		logger:    logger.Named("recaptcha"),
	}
}

func (s *RecaptchaService) Verify(ctx context.Context, token, remoteIP string) BotCheckResult {
	if token == "" {
		return BotCheckResult{ErrorCodes: []string{BotCodeMissingToken}}
	}

	form := url.Values{}
	form.Set("secret", s.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		s.logger.Error("build request", zap.Error(err))
		return BotCheckResult{ErrorCodes: []string{BotCodeNetworkError}}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("verify request failed", zap.Error(err))
		return BotCheckResult{ErrorCodes: []string{BotCodeNetworkError}}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		s.logger.Warn("read verify response", zap.Error(err))
		return BotCheckResult{ErrorCodes: []string{BotCodeNetworkError}}
	}
	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("verify endpoint status", zap.Int("status", resp.StatusCode))
		return BotCheckResult{ErrorCodes: []string{BotCodeBadResponse}}
	}

	var out BotCheckResult
	if err := json.Unmarshal(body, &out); err != nil {
		s.logger.Warn("decode verify response", zap.Error(fmt.Errorf("%w: %s", err, truncate(body, 200))))
		return BotCheckResult{ErrorCodes: []string{BotCodeBadResponse}}
	}
	if !out.Success {
		s.logger.Info("bot check rejected", zap.Strings("codes", out.ErrorCodes))
	}
	return out
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
