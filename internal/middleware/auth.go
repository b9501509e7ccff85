package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cesde/internal/models"
	"cesde/internal/session"
)

const sessionStateKey = "session_state"

// SessionManager moves session state between the cookie and the gin context.
type SessionManager struct {
	codec      *session.Codec
	cookieName string
	secure     bool
	logger     *zap.Logger
}

func NewSessionManager(codec *session.Codec, cookieName string, secure bool, logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{codec: codec, cookieName: cookieName, secure: secure, logger: logger.Named("session")}
}

// Load decodes the session cookie. A missing or invalid cookie is anonymous.
func (m *SessionManager) Load() gin.HandlerFunc {
	return func(c *gin.Context) {
		var state session.State = session.Anonymous{}
		if raw, err := c.Cookie(m.cookieName); err == nil && raw != "" {
			st, err := m.codec.Decode(raw)
			if err != nil {
				if !errors.Is(err, session.ErrInvalidToken) {
					m.logger.Warn("decode session", zap.Error(err))
				}
				m.Clear(c)
			} else {
				state = st
			}
		}
		c.Set(sessionStateKey, state)
		c.Next()
	}
}

// Save replaces the session with state.
func (m *SessionManager) Save(c *gin.Context, state session.State) error {
	if state.Stage() == session.StageAnonymous {
		m.Clear(c)
		c.Set(sessionStateKey, state)
		return nil
	}
	tok, err := m.codec.Encode(state)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, tok, int(m.codec.TTL(state).Seconds()), "/", "", m.secure, true)
	c.Set(sessionStateKey, state)
	return nil
}

func (m *SessionManager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, "", -1, "/", "", m.secure, true)
}

func CurrentState(c *gin.Context) session.State {
	if v, ok := c.Get(sessionStateKey); ok {
		if st, ok := v.(session.State); ok {
			return st
		}
	}
	return session.Anonymous{}
}

// CurrentUser returns the authenticated principal, if any.
func CurrentUser(c *gin.Context) (*models.Identity, bool) {
	if st, ok := CurrentState(c).(session.Authenticated); ok && st.User != nil {
		return st.User, true
	}
	return nil, false
}

// CurrentPending returns the pending second-factor marker, if any.
func CurrentPending(c *gin.Context) (session.Pending, bool) {
	st, ok := CurrentState(c).(session.Pending)
	return st, ok
}
