package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"cesde/internal/authz"
	"cesde/internal/models"
	"cesde/internal/repositories"
	"cesde/internal/utils"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type UserService interface {
	// Register creates an active identity. actor is the authenticated
	// principal, nil for self-registration.
	Register(ctx context.Context, req models.RegisterRequest, actor *models.Identity, remoteIP string) (*models.Identity, error)
	GetByIdentification(ctx context.Context, identification string) (*models.Identity, error)
}

type userService struct {
	repo       repositories.UserRepository
	bot        BotVerifier
	mailer     Mailer
	bcryptCost int
	logger     *zap.Logger
}

func NewUserService(repo repositories.UserRepository, bot BotVerifier, mailer Mailer, bcryptCost int, logger *zap.Logger) UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &userService{
		repo:       repo,
		bot:        bot,
		mailer:     mailer,
		bcryptCost: bcryptCost,
		logger:     logger.Named("users"),
	}
}

func (s *userService) Register(ctx context.Context, req models.RegisterRequest, actor *models.Identity, remoteIP string) (*models.Identity, error) {
	if req.BotToken == "" {
		return nil, ErrBotCheckMissing
	}
	if res := s.bot.Verify(ctx, req.BotToken, remoteIP); !res.Success {
		return nil, &BotCheckFailedError{Reasons: res.ErrorCodes}
	}

	if req.Password != req.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}
	email := strings.TrimSpace(req.Email)
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}

	role, err := authz.ParseRole(req.Role)
	if err != nil {
		return nil, ErrRoleNotAllowed
	}
	if authz.IsElevated(role) && (actor == nil || !authz.IsSuperAdmin(actor.Role)) {
		return nil, ErrRoleNotAllowed
	}

	identification := strings.TrimSpace(req.Identification)
	exists, err := s.repo.ExistsByIdentification(ctx, identification)
	if err != nil {
		return nil, storeErr("register check identification", err)
	}
	if exists {
		return nil, ErrIdentityExists
	}
	exists, err = s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, storeErr("register check email", err)
	}
	if exists {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt generate: %w", err)
	}

	u := &models.Identity{
		Identification: identification,
		FullName:       strings.TrimSpace(req.FullName),
		Email:          email,
		PasswordHash:   string(hash),
		Active:         true,
		Role:           role,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, storeErr("register create", err)
	}

	s.logger.Info("identity registered",
		zap.String("identification", u.Identification),
		zap.String("email", utils.MaskEmail(u.Email)),
		zap.String("role", string(u.Role)),
	)

	if s.mailer != nil {
		subject, html, text := welcomeEmail(u.FullName)
		if err := s.mailer.Send(ctx, u.Email, subject, html, text); err != nil {
			// warn but do not fail registration
			s.logger.Warn("welcome email failed", zap.String("email", utils.MaskEmail(u.Email)), zap.Error(err))
		}
	}
	return u.Public(), nil
}

func (s *userService) GetByIdentification(ctx context.Context, identification string) (*models.Identity, error) {
	u, err := s.repo.GetByIdentification(ctx, identification)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, storeErr("user lookup", err)
	}
	return u.Public(), nil
}

func welcomeEmail(fullName string) (subject, htmlBody, textBody string) {
	subject = "Welcome to CESDE"
	htmlBody = fmt.Sprintf(`
		<h2>Welcome, %s!</h2>
		<p>Your account has been successfully created.</p>
		<p>Each sign-in will ask for a one-time code sent to this address.</p>
	`, fullName)
	textBody = fmt.Sprintf("Welcome, %s!\n\nYour account has been successfully created.\n", fullName)
	return subject, htmlBody, textBody
}
