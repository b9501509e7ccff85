// Package session keeps the login state of a browser in a signed cookie.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"cesde/internal/authz"
	"cesde/internal/models"
)

type Stage string

const (
	StageAnonymous     Stage = "anonymous"
	StagePending       Stage = "pending_2fa"
	StageAuthenticated Stage = "authenticated"
)

// State is one of Anonymous, Pending or Authenticated.
type State interface {
	Stage() Stage
}

type Anonymous struct{}

// Pending means the password stage passed and a code was sent.
type Pending struct {
	Identification string
	Email          string
}

type Authenticated struct {
	User *models.Identity
}

func (Anonymous) Stage() Stage     { return StageAnonymous }
func (Pending) Stage() Stage       { return StagePending }
func (Authenticated) Stage() Stage { return StageAuthenticated }

type Claims struct {
	Stage  Stage      `json:"stage"`
	Email  string     `json:"email,omitempty"`
	Name   string     `json:"name,omitempty"`
	Role   authz.Role `json:"role,omitempty"`
	UserID int        `json:"uid,omitempty"`
	jwt.RegisteredClaims
}

var ErrInvalidToken = errors.New("invalid session token")

// Codec signs and parses session tokens with HS256.
type Codec struct {
	key        []byte
	pendingTTL time.Duration
	ttl        time.Duration
	now        func() time.Time
}

func NewCodec(secret string, pendingTTL, ttl time.Duration) *Codec {
	return &Codec{key: []byte(secret), pendingTTL: pendingTTL, ttl: ttl, now: time.Now}
}

// TTL is the lifetime of a token for state.
func (c *Codec) TTL(state State) time.Duration {
	if state.Stage() == StagePending {
		return c.pendingTTL
	}
	return c.ttl
}

func (c *Codec) Encode(state State) (string, error) {
	now := c.now()
	claims := Claims{
		Stage: state.Stage(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.TTL(state))),
		},
	}
	switch s := state.(type) {
	case Pending:
		claims.Subject = s.Identification
		claims.Email = s.Email
	case Authenticated:
		claims.Subject = s.User.Identification
		claims.Email = s.User.Email
		claims.Name = s.User.FullName
		claims.Role = s.User.Role
		claims.UserID = s.User.ID
	default:
		return "", fmt.Errorf("cannot encode %s session", state.Stage())
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

func (c *Codec) Decode(token string) (State, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return c.key, nil
	}, jwt.WithTimeFunc(c.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return Anonymous{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Anonymous{}, ErrInvalidToken
	}

	switch claims.Stage {
	case StagePending:
		return Pending{Identification: claims.Subject, Email: claims.Email}, nil
	case StageAuthenticated:
		if !claims.Role.Valid() {
			return Anonymous{}, ErrInvalidToken
		}
		return Authenticated{User: &models.Identity{
			ID:             claims.UserID,
			Identification: claims.Subject,
			FullName:       claims.Name,
			Email:          claims.Email,
			Role:           claims.Role,
			Active:         true,
		}}, nil
	}
	return Anonymous{}, ErrInvalidToken
}
