package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "cesde/docs"
	"cesde/internal/config"
	"cesde/internal/handlers"
	"cesde/internal/logging"
	"cesde/internal/middleware"
	"cesde/internal/migrations"
	"cesde/internal/repositories"
	"cesde/internal/routes"
	"cesde/internal/services"
	"cesde/internal/session"
)

// App is the wired server. Close releases what New opened.
type App struct {
	Router  *gin.Engine
	Janitor *services.Janitor

	cfg     *config.Config
	logger  *zap.Logger
	closers []func() error
}

// Run loads the config at path, serves until SIGINT/SIGTERM and shuts down.
func Run(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Server.DevMode)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return err
	}
	defer a.Close()

	go a.Janitor.Run(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           a.Router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// New wires repositories, services and the router from cfg.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			AttachStacktrace: true,
		}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		} else {
			a.closers = append(a.closers, func() error { sentry.Flush(2 * time.Second); return nil })
		}
	}

	// === Repos ===
	var (
		userRepo  repositories.UserRepository
		otpRepo   repositories.OTPRepository
		linksRepo repositories.TelegramLinkRepository
	)
	if cfg.Database.DSN != "" {
		db, err := openDB(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		userRepo = repositories.NewUserRepository(db)
		otpRepo = repositories.NewOTPRepository(db)
		linksRepo = repositories.NewTelegramLinkRepository(db)
	} else {
		logger.Warn("database.url is empty, using in-memory storage")
		userRepo = repositories.NewMemoryUserRepository()
		otpRepo = repositories.NewMemoryOTPRepository()
		linksRepo = repositories.NewMemoryTelegramLinkRepository()
	}

	var (
		throttleStore repositories.ThrottleStore
		cleaner       services.ThrottleCleaner
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		throttleStore = repositories.NewRedisThrottleStore(rdb)
	} else {
		mem := repositories.NewMemoryThrottleStore()
		throttleStore, cleaner = mem, mem
	}

	// === Services ===
	mailer := services.NewEmailService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromEmail,
	)

	var tg *services.TelegramService
	if cfg.Telegram.BotToken != "" {
		bot, err := services.NewTelegramBot(cfg.Telegram.BotToken, logger)
		if err != nil {
			logger.Warn("telegram disabled", zap.Error(err))
		} else {
			tg = bot
		}
	}
	var sender services.TelegramSender
	if tg != nil {
		sender = tg
	}

	bot := services.NewRecaptchaService(cfg.Recaptcha.SecretKey, cfg.Recaptcha.VerifyURL, cfg.Recaptcha.Timeout, logger)
	throttle := services.NewAttemptThrottle(throttleStore, logger,
		services.WithThrottleLimits(cfg.Throttle.MaxFailures, cfg.Throttle.Window))
	otp := services.NewOTPService(otpRepo,
		services.NewCodeDelivery(mailer, sender, cfg.OTP.Channel),
		services.OTPSettings{
			Length:         cfg.OTP.Length,
			TTL:            cfg.OTP.TTL,
			MaxAttempts:    cfg.OTP.MaxAttempts,
			ResendCooldown: cfg.OTP.ResendCooldown,
		}, nil, logger)
	userService := services.NewUserService(userRepo, bot, mailer, 0, logger)
	flow := services.NewLoginFlow(throttle, bot, services.NewCredentialService(userRepo), otp, userService, logger)
	a.Janitor = services.NewJanitor(otp, cleaner, cfg.Throttle.Window, cfg.OTP.PurgeInterval, logger)

	// === Handlers ===
	sessions := middleware.NewSessionManager(
		session.NewCodec(cfg.Session.Secret, cfg.Session.PendingTTL, cfg.Session.TTL),
		cfg.Session.CookieName, cfg.Session.Secure, logger,
	)
	authHandler := handlers.NewAuthHandler(flow, sessions, logger)
	userHandler := handlers.NewUserHandler(userService, services.NewUserAdminService(userRepo, 0, logger), logger)
	passwordHandler := handlers.NewPasswordHandler(services.NewPasswordResetService(userRepo, otp, bot, 0, logger), logger)
	var integrationsHandler *handlers.IntegrationsHandler
	if sender != nil {
		links := services.NewTelegramLinkService(linksRepo, userRepo, nil, logger)
		integrationsHandler = handlers.NewIntegrationsHandler(sender, links, cfg.Telegram.WebhookSecret, logger)
		if cfg.Telegram.WebhookSecret == "" {
			logger.Warn("telegram webhook accepts unauthenticated updates; set telegram.webhook_secret")
		}
	}

	// === Gin ===
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	if cfg.Sentry.DSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true, WaitForDelivery: false, Timeout: 2 * time.Second}))
	}
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	routes.SetupRoutes(router, sessions, authHandler, userHandler, passwordHandler, integrationsHandler)

	a.Router = router
	return a, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close", zap.Error(err))
		}
	}
	a.closers = nil
}

func openDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if cfg.RunMigrations {
		if err := migrations.Up(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	return db, nil
}
