// Package session carries the identity login outcome between the consent
// callback and the prefill request. The access token travels in a signed
// http-only cookie and may be spent exactly once.
package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "formgate/pkg/domain-errors"
)

// CookieName is the cookie holding the signed login outcome.
const CookieName = "identity.session"

// State records whether the consent flow succeeded.
type State string

const (
	StateSuccess State = "success"
	StateError   State = "error"
)

// Payload is the signed cookie body. UsedCount enforces single use of the
// access token: a replayed cookie carries a spent token.
type Payload struct {
	State       State  `json:"state"`
	AccessToken string `json:"accessToken,omitempty"`
	UsedCount   int    `json:"usedCount"`
}

type cookieClaims struct {
	jwt.RegisteredClaims
	Payload Payload `json:"payload"`
}

// Manager signs and reads the login cookie. Secure is disabled only for
// local development over plain HTTP.
type Manager struct {
	secret []byte
	ttl    time.Duration
	secure bool
}

type Option func(*Manager)

func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

func WithSecure(secure bool) Option {
	return func(m *Manager) { m.secure = secure }
}

func NewManager(secret []byte, opts ...Option) *Manager {
	m := &Manager{secret: secret, ttl: 5 * time.Minute, secure: true}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetSuccess writes a fresh, unspent login cookie after a successful token
// exchange.
func (m *Manager) SetSuccess(w http.ResponseWriter, accessToken string) error {
	return m.set(w, Payload{State: StateSuccess, AccessToken: accessToken}, m.ttl)
}

// SetSuccessFor is SetSuccess with the form's own session window, carried in
// from the relay state.
func (m *Manager) SetSuccessFor(w http.ResponseWriter, accessToken string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.ttl
	}
	return m.set(w, Payload{State: StateSuccess, AccessToken: accessToken}, ttl)
}

// SetError records a failed consent flow so the form can show the login
// failure instead of silently restarting.
func (m *Manager) SetError(w http.ResponseWriter) error {
	return m.set(w, Payload{State: StateError}, m.ttl)
}

func (m *Manager) set(w http.ResponseWriter, payload Payload, ttl time.Duration) error {
	now := time.Now()
	claims := cookieClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Payload: payload,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "sign session cookie")
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the cookie.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Read verifies the cookie signature and returns its payload. A missing
// cookie is CodeMissingAccessToken; a cookie that fails verification or has
// expired is CodeCookieState.
func (m *Manager) Read(r *http.Request) (Payload, error) {
	claims, err := m.read(r)
	if err != nil {
		return Payload{}, err
	}
	return claims.Payload, nil
}

func (m *Manager) read(r *http.Request) (cookieClaims, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return cookieClaims{}, dErrors.New(dErrors.CodeMissingAccessToken, "no identity session cookie")
	}

	var claims cookieClaims
	_, err = jwt.ParseWithClaims(cookie.Value, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return cookieClaims{}, dErrors.Wrap(err, dErrors.CodeCookieState, "session cookie failed verification")
	}
	return claims, nil
}

// Consume returns the access token and marks it spent by rewriting the
// cookie with an incremented use count. The rewrite keeps the cookie's own
// remaining lifetime so spending it never shortens the login window. A
// second consume of the same login fails with CodeCookieState.
func (m *Manager) Consume(w http.ResponseWriter, r *http.Request) (string, error) {
	claims, err := m.read(r)
	if err != nil {
		return "", err
	}
	payload := claims.Payload
	if payload.State != StateSuccess {
		return "", dErrors.New(dErrors.CodeCookieState, "identity login did not succeed")
	}
	if payload.UsedCount > 0 {
		return "", dErrors.New(dErrors.CodeCookieState, "access token already spent")
	}

	remaining := m.ttl
	if claims.ExpiresAt != nil {
		remaining = time.Until(claims.ExpiresAt.Time)
	}

	spent := payload
	spent.UsedCount++
	if err := m.set(w, spent, remaining); err != nil {
		return "", err
	}
	return payload.AccessToken, nil
}
