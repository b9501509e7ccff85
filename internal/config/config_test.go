package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Session.Secret)
	assert.Equal(t, 6, cfg.OTP.Length)
	assert.Equal(t, 10*time.Minute, cfg.OTP.TTL)
	assert.Equal(t, 5, cfg.OTP.MaxAttempts)
	assert.Equal(t, time.Minute, cfg.OTP.ResendCooldown)
	assert.Equal(t, "email", cfg.OTP.Channel)
	assert.Equal(t, 5, cfg.Throttle.MaxFailures)
	assert.Equal(t, 15*time.Minute, cfg.Throttle.Window)
	assert.Equal(t, 15*time.Minute, cfg.Session.PendingTTL)
	assert.Equal(t, "cesde_session", cfg.Session.CookieName)
	assert.Equal(t, 5*time.Second, cfg.Recaptcha.Timeout)
	assert.Contains(t, cfg.Recaptcha.VerifyURL, "recaptcha/api/siteverify")
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
session:
  secret: from-file
otp:
  ttl: 5m
  resend_cooldown: 30s
throttle:
  max_failures: 3
database:
  url: postgres://file
`)
	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("TELEGRAM_WEBHOOK_SECRET", "hook")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "from-file", cfg.Session.Secret)
	assert.Equal(t, "postgres://env", cfg.Database.DSN)
	assert.Equal(t, "hook", cfg.Telegram.WebhookSecret)
	assert.Equal(t, 5*time.Minute, cfg.OTP.TTL)
	assert.Equal(t, 30*time.Second, cfg.OTP.ResendCooldown)
	assert.Equal(t, 3, cfg.Throttle.MaxFailures)
}

func TestValidate(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	_, err := Load(writeConfig(t, "server:\n  dev_mode: false\n"))
	assert.ErrorContains(t, err, "session secret")

	cfg, err := Load(writeConfig(t, "server:\n  dev_mode: true\n"))
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Session.Secret)

	_, err = Load(writeConfig(t, "session:\n  secret: x\notp:\n  length: 3\n"))
	assert.ErrorContains(t, err, "otp.length")

	_, err = Load(writeConfig(t, "session:\n  secret: x\notp:\n  channel: sms\n"))
	assert.ErrorContains(t, err, "otp.channel")

	_, err = Load(writeConfig(t, "session:\n  secret: x\notp:\n  channel: telegram\n"))
	assert.ErrorContains(t, err, "bot_token")
}

func TestLoadRejectsBadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [port"))
	assert.Error(t, err)
}

func TestLoadConfigPanics(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t, "server: [port"))
	assert.Panics(t, func() { LoadConfig() })
}
