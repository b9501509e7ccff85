package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yaml"

type ServerConfig struct {
	Port           int      `yaml:"port"`
	TrustedProxies []string `yaml:"trusted_proxies"`
	DevMode        bool     `yaml:"dev_mode"`
}

type DatabaseConfig struct {
	DSN           string `yaml:"url"`
	MaxOpenConns  int    `yaml:"max_open_conns"`
	RunMigrations bool   `yaml:"run_migrations"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	FromEmail    string `yaml:"from_email"`
}

type TelegramConfig struct {
	BotToken      string `yaml:"bot_token"`
	WebhookSecret string `yaml:"webhook_secret"`
}

type RecaptchaConfig struct {
	SecretKey string        `yaml:"secret_key"`
	VerifyURL string        `yaml:"verify_url"`
	Timeout   time.Duration `yaml:"timeout"`
}

type SessionConfig struct {
	Secret     string        `yaml:"secret"`
	CookieName string        `yaml:"cookie_name"`
	PendingTTL time.Duration `yaml:"pending_ttl"`
	TTL        time.Duration `yaml:"ttl"`
	Secure     bool          `yaml:"secure"`
}

type OTPConfig struct {
	Length         int           `yaml:"length"`
	TTL            time.Duration `yaml:"ttl"`
	MaxAttempts    int           `yaml:"max_attempts"`
	ResendCooldown time.Duration `yaml:"resend_cooldown"`
	Channel        string        `yaml:"channel"`
	PurgeInterval  time.Duration `yaml:"purge_interval"`
}

type ThrottleConfig struct {
	MaxFailures int           `yaml:"max_failures"`
	Window      time.Duration `yaml:"window"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type SentryConfig struct {
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Email     EmailConfig     `yaml:"email"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Recaptcha RecaptchaConfig `yaml:"recaptcha"`
	Session   SessionConfig   `yaml:"session"`
	OTP       OTPConfig       `yaml:"otp"`
	Throttle  ThrottleConfig  `yaml:"throttle"`
	Log       LogConfig       `yaml:"log"`
	Sentry    SentryConfig    `yaml:"sentry"`
}

// LoadConfig reads the YAML file at CONFIG_PATH (or DefaultPath) and panics
// when it cannot be used.
func LoadConfig() *Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = DefaultPath
	}
	cfg, err := Load(path)
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}
	return cfg
}

// Load decodes the file at path, applies defaults and environment overrides.
// A missing file is not an error: defaults and the environment are enough to
// boot a dev instance.
func Load(path string) (*Config, error) {
	// .env is optional, same as in local development
	_ = godotenv.Load()

	var cfg Config
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Email.SMTPHost == "" {
		c.Email.SMTPHost = "smtp.gmail.com"
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Email.FromEmail == "" {
		c.Email.FromEmail = c.Email.SMTPUser
	}
	if c.Email.FromEmail == "" {
		c.Email.FromEmail = "noreply@cesde.edu.co"
	}
	if c.Recaptcha.VerifyURL == "" {
		c.Recaptcha.VerifyURL = "https://www.google.com/recaptcha/api/siteverify"
	}
	if c.Recaptcha.Timeout == 0 {
		c.Recaptcha.Timeout = 5 * time.Second
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "cesde_session"
	}
	if c.Session.PendingTTL == 0 {
		c.Session.PendingTTL = 15 * time.Minute
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 24 * time.Hour
	}
	if c.OTP.Length == 0 {
		c.OTP.Length = 6
	}
	if c.OTP.TTL == 0 {
		c.OTP.TTL = 10 * time.Minute
	}
	if c.OTP.MaxAttempts == 0 {
		c.OTP.MaxAttempts = 5
	}
	if c.OTP.ResendCooldown == 0 {
		c.OTP.ResendCooldown = 60 * time.Second
	}
	if c.OTP.Channel == "" {
		c.OTP.Channel = "email"
	}
	if c.OTP.PurgeInterval == 0 {
		c.OTP.PurgeInterval = time.Hour
	}
	if c.Throttle.MaxFailures == 0 {
		c.Throttle.MaxFailures = 5
	}
	if c.Throttle.Window == 0 {
		c.Throttle.Window = 15 * time.Minute
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Sentry.Environment == "" {
		c.Sentry.Environment = "production"
	}
}

func (c *Config) applyEnv() {
	setString(&c.Database.DSN, "DATABASE_URL")
	setString(&c.Email.SMTPHost, "SMTP_HOST")
	setInt(&c.Email.SMTPPort, "SMTP_PORT")
	setString(&c.Email.SMTPUser, "SMTP_USER")
	setString(&c.Email.SMTPPassword, "SMTP_PASS")
	setString(&c.Recaptcha.SecretKey, "RECAPTCHA_SECRET_KEY")
	setString(&c.Session.Secret, "SESSION_SECRET")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.Telegram.WebhookSecret, "TELEGRAM_WEBHOOK_SECRET")
	setString(&c.Sentry.DSN, "SENTRY_DSN")
	setInt(&c.Server.Port, "PORT")
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Session.Secret == "" {
		if !c.Server.DevMode {
			return errors.New("session secret is required (session.secret or SESSION_SECRET)")
		}
		c.Session.Secret = "dev-session-secret"
	}
	if c.OTP.Length < 4 || c.OTP.Length > 10 {
		return fmt.Errorf("otp.length must be between 4 and 10, got %d", c.OTP.Length)
	}
	switch c.OTP.Channel {
	case "email", "telegram":
	default:
		return fmt.Errorf("otp.channel must be email or telegram, got %q", c.OTP.Channel)
	}
	if c.OTP.Channel == "telegram" && c.Telegram.BotToken == "" {
		return errors.New("otp.channel telegram requires telegram.bot_token")
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
