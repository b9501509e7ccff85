package services

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"cesde/internal/authz"
	"cesde/internal/models"
	"cesde/internal/repositories"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sentMail struct {
	To, Subject, HTML, Text string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, html, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, HTML: html, Text: text})
	return nil
}

var codeInMail = regexp.MustCompile(`code is: (\d+)`)

func (m *fakeMailer) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no mail sent")
	match := codeInMail.FindStringSubmatch(m.sent[len(m.sent)-1].Text)
	require.Len(t, match, 2)
	return match[1]
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// fakeBot accepts only the token "valid".
type fakeBot struct {
	calls int
}

func (b *fakeBot) Verify(_ context.Context, token, _ string) BotCheckResult {
	b.calls++
	if token == "valid" {
		return BotCheckResult{Success: true}
	}
	return BotCheckResult{ErrorCodes: []string{BotCodeTimeout}}
}

type failingUserRepo struct {
	repositories.UserRepository
}

func (failingUserRepo) GetByIdentification(context.Context, string) (*models.Identity, error) {
	return nil, errors.New("connection refused")
}

type harness struct {
	clock    *fakeClock
	users    *repositories.MemoryUserRepository
	otpRepo  *repositories.MemoryOTPRepository
	store    *repositories.MemoryThrottleStore
	mailer   *fakeMailer
	bot      *fakeBot
	throttle *AttemptThrottle
	otp      *OTPService
	userSvc  UserService
	flow     *LoginFlow
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:   newFakeClock(),
		users:   repositories.NewMemoryUserRepository(),
		otpRepo: repositories.NewMemoryOTPRepository(),
		store:   repositories.NewMemoryThrottleStore(),
		mailer:  &fakeMailer{},
		bot:     &fakeBot{},
	}
	clock := Clock(h.clock.Now)
	h.throttle = NewAttemptThrottle(h.store, nil, WithThrottleClock(clock))
	h.otp = NewOTPService(h.otpRepo, NewCodeDelivery(h.mailer, nil, models.OTPChannelEmail),
		OTPSettings{BcryptCost: bcrypt.MinCost}, clock, nil)
	h.userSvc = NewUserService(h.users, h.bot, nil, bcrypt.MinCost, nil)
	h.flow = NewLoginFlow(h.throttle, h.bot, NewCredentialService(h.users), h.otp, h.userSvc, nil)
	return h
}

func (h *harness) addIdentity(t *testing.T, identification, password string, active bool, role authz.Role) *models.Identity {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.Identity{
		Identification: identification,
		FullName:       "Ana Gomez",
		Email:          identification + "@cesde.edu.co",
		PasswordHash:   string(hash),
		Active:         active,
		Role:           role,
	}
	require.NoError(t, h.users.Create(context.Background(), u))
	return u
}

func (h *harness) activeRecords(identification string) []models.OTPRecord {
	var out []models.OTPRecord
	for _, r := range h.otpRepo.All() {
		if r.Identification == identification && !r.Used {
			out = append(out, r)
		}
	}
	return out
}
