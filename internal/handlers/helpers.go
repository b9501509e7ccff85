package handlers

import (
	"errors"
	"net/http"
	"strings"
	"unicode"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"cesde/internal/services"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code"`
	Field    string `json:"field,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

type errorMapping struct {
	status int
	code   string
	field  string
	msg    string
}

var errorTable = []struct {
	err error
	errorMapping
}{
	{services.ErrBlocked, errorMapping{http.StatusTooManyRequests, "blocked", "", "Too many failed attempts. Try again in 15 minutes."}},
	{services.ErrBotCheckMissing, errorMapping{http.StatusBadRequest, "bot_check_missing", "bot_token", "Please complete the human verification."}},
	{services.ErrIdentityNotFound, errorMapping{http.StatusUnauthorized, "not_found", "identification", "User not found."}},
	{services.ErrInactive, errorMapping{http.StatusForbidden, "inactive", "identification", "This account is inactive."}},
	{services.ErrBadSecret, errorMapping{http.StatusUnauthorized, "bad_secret", "password", "Incorrect password."}},
	{services.ErrOTPNotFound, errorMapping{http.StatusBadRequest, "otp_not_found", "code", "No active code. Request a new one."}},
	{services.ErrOTPExpired, errorMapping{http.StatusBadRequest, "otp_expired", "code", "The code has expired. Request a new one."}},
	{services.ErrOTPExhausted, errorMapping{http.StatusBadRequest, "otp_exhausted", "code", "Too many incorrect codes. Request a new one."}},
	{services.ErrOTPMismatch, errorMapping{http.StatusBadRequest, "otp_mismatch", "code", "Incorrect code."}},
	{services.ErrOTPTooSoon, errorMapping{http.StatusTooManyRequests, "otp_too_soon", "", "Please wait a minute before requesting another code."}},
	{services.ErrDeliveryFailed, errorMapping{http.StatusBadGateway, "delivery_failed", "", "The code could not be delivered. Try resending it."}},
	{services.ErrPasswordMismatch, errorMapping{http.StatusBadRequest, "password_mismatch", "confirm_password", "Passwords do not match."}},
	{services.ErrInvalidEmail, errorMapping{http.StatusBadRequest, "invalid_email", "email", "Invalid email address."}},
	{services.ErrIdentityExists, errorMapping{http.StatusConflict, "identity_exists", "identification", "This identification is already registered."}},
	{services.ErrEmailExists, errorMapping{http.StatusConflict, "email_exists", "email", "This email is already registered."}},
	{services.ErrRoleNotAllowed, errorMapping{http.StatusForbidden, "role_not_allowed", "role", "You cannot assign this role."}},
	{services.ErrUserNotFound, errorMapping{http.StatusNotFound, "user_not_found", "", "User not found."}},
	{services.ErrPasswordRequired, errorMapping{http.StatusBadRequest, "password_required", "password", "Password is required."}},
	{services.ErrPasswordTooShort, errorMapping{http.StatusBadRequest, "password_too_short", "password", "Password must have at least 6 characters."}},
	{services.ErrSelfDelete, errorMapping{http.StatusBadRequest, "self_delete", "", "You cannot delete your own account."}},
	{services.ErrLinkCodeInvalid, errorMapping{http.StatusBadRequest, "link_code_invalid", "code", "Link code invalid or expired."}},
}

// respondError maps a service error to its HTTP status and body. Anything
// unknown is an infrastructure failure: logged, reported, and hidden.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var botErr *services.BotCheckFailedError
	if errors.As(err, &botErr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: botErr.Message(), Code: "bot_check_failed", Field: "bot_token"})
		return
	}
	if errors.Is(err, services.ErrNotPending) {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "No login pending verification.", Code: "not_pending", Redirect: "/login"})
		return
	}
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			c.JSON(e.status, ErrorResponse{Error: e.msg, Code: e.code, Field: e.field})
			return
		}
	}

	logger.Error("request failed",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error.", Code: "server_error"})
}

// badRequest answers a body that failed to bind. Validation failures name the
// first offending field; anything else is a malformed body.
func badRequest(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Malformed request body.", Code: "invalid_request"})
		return
	}

	fe := verrs[0]
	field := snakeCase(fe.Field())
	resp := ErrorResponse{Code: "invalid_field", Field: field}
	switch fe.Tag() {
	case "required":
		resp.Code = "missing_field"
		resp.Error = field + " is required."
	case "min":
		resp.Error = field + " must have at least " + fe.Param() + " characters."
	case "email":
		resp.Error = field + " must be a valid email address."
	default:
		resp.Error = field + " is invalid."
	}
	c.JSON(http.StatusBadRequest, resp)
}

// snakeCase turns a Go field name into its JSON key (ConfirmPassword -> confirm_password).
func snakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
