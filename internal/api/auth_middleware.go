package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
)

// AuthFailFunc is function that is called when authentication failed
type AuthFailFunc func(w http.ResponseWriter, r *http.Request, err error)

// AuthHandler is optional handler for mocking in tests
type AuthHandler func(next http.Handler) http.Handler

var (
	xAuth             = http.CanonicalHeaderKey("X-Auth")
	ErrEmptyAuthToken = errors.New("empty auth token")
	ErrBadAuthToken   = errors.New("auth token mismatch")
)

// SharedSecretAuth lets through requests whose X-Auth header equals the configured token.
// Application backends hold the token; browsers never do.
type SharedSecretAuth struct {
	Token        string
	AuthFailFunc AuthFailFunc
	StubHandler  AuthHandler
}

func NewSharedSecretAuth(token string) *SharedSecretAuth {
	return &SharedSecretAuth{Token: token}
}

func (m *SharedSecretAuth) Middleware() AuthHandler {
	if m.StubHandler != nil {
		return m.StubHandler
	}

	return m.defaultMiddleware()
}

func (m *SharedSecretAuth) defaultMiddleware() AuthHandler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// no token configured: development mode, checked in App.Start
			if m.Token == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := r.Header.Get(xAuth)
			if token == "" {
				m.authFailed(w, r, ErrEmptyAuthToken)
				return
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(m.Token)) != 1 {
				m.authFailed(w, r, ErrBadAuthToken)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (m *SharedSecretAuth) authFailed(w http.ResponseWriter, r *http.Request, err error) {
	if m.AuthFailFunc != nil {
		m.AuthFailFunc(w, r, err)
	} else {
		w.WriteHeader(http.StatusUnauthorized)
	}
}
