package auth

import (
	"errors"
	"net/http"
	"strings"
)

const (
	DefaultCookieName     = "linkhub_session"
	accessTokenQueryParam = "access_token"
	bearerPrefix          = "bearer "
)

var (
	ErrMissingSessionCookieName = errors.New("session reader: cookie name required")
	ErrMissingTokenValidator    = errors.New("session reader: token validator required")
	ErrMissingSessionToken      = errors.New("session reader: token required")
)

// TokenValidator resolves a session token to the account id it was issued for.
type TokenValidator interface {
	ValidateToken(tokenString string) (string, error)
}

// SessionReaderConfig describes where session tokens are read from.
type SessionReaderConfig struct {
	Validator  TokenValidator
	CookieName string
}

// SessionReader authenticates requests. The token is taken from the
// Authorization header, then the session cookie, then the access_token query
// parameter used by EventSource clients.
type SessionReader struct {
	validator  TokenValidator
	cookieName string
}

func NewSessionReader(cfg SessionReaderConfig) (*SessionReader, error) {
	if cfg.Validator == nil {
		return nil, ErrMissingTokenValidator
	}
	cookieName := strings.TrimSpace(cfg.CookieName)
	if cookieName == "" {
		return nil, ErrMissingSessionCookieName
	}
	return &SessionReader{
		validator:  cfg.Validator,
		cookieName: cookieName,
	}, nil
}

// CookieName returns the cookie name configured for session lookups.
func (r *SessionReader) CookieName() string {
	return r.cookieName
}

// TokenFromRequest returns the first non-empty session token carried by the request.
func (r *SessionReader) TokenFromRequest(request *http.Request) string {
	if request == nil {
		return ""
	}
	header := strings.TrimSpace(request.Header.Get("Authorization"))
	if len(header) > len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		if token := strings.TrimSpace(header[len(bearerPrefix):]); token != "" {
			return token
		}
	}
	if cookie, err := request.Cookie(r.cookieName); err == nil && cookie != nil {
		if token := strings.TrimSpace(cookie.Value); token != "" {
			return token
		}
	}
	return strings.TrimSpace(request.URL.Query().Get(accessTokenQueryParam))
}

// Authenticate validates the request's session token and returns the account id.
func (r *SessionReader) Authenticate(request *http.Request) (string, error) {
	token := r.TokenFromRequest(request)
	if token == "" {
		return "", ErrMissingSessionToken
	}
	return r.validator.ValidateToken(token)
}
