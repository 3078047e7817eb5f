package middleware

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/hugh/inkpress/internal/api/respond"
	"github.com/hugh/inkpress/internal/apperr"
)

const (
	csrfTokenLength = 32
	csrfCookieName  = "csrf_token"
	csrfHeaderName  = "X-CSRF-Token"
	csrfTokenExpiry = 24 * time.Hour
)

type csrfToken struct {
	value     string
	expiresAt time.Time
}

// CSRFStore holds one token per cookie session, in memory.
type CSRFStore struct {
	mu     sync.Mutex
	tokens map[string]csrfToken
	now    func() time.Time
}

func NewCSRFStore() *CSRFStore {
	s := &CSRFStore{
		tokens: make(map[string]csrfToken),
		now:    time.Now,
	}
	go s.cleanup()
	return s
}

func (s *CSRFStore) cleanup() {
	ticker := time.NewTicker(time.Hour)
	for range ticker.C {
		s.mu.Lock()
		now := s.now()
		for session, tok := range s.tokens {
			if now.After(tok.expiresAt) {
				delete(s.tokens, session)
			}
		}
		s.mu.Unlock()
	}
}

// Issue returns the live token for session, minting a new one if there is
// none or it expired.
func (s *CSRFStore) Issue(session string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if tok, ok := s.tokens[session]; ok && now.Before(tok.expiresAt) {
		return tok.value, nil
	}

	buf := make([]byte, csrfTokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	value := base64.RawURLEncoding.EncodeToString(buf)
	s.tokens[session] = csrfToken{value: value, expiresAt: now.Add(csrfTokenExpiry)}
	return value, nil
}

func (s *CSRFStore) Validate(session, provided string) bool {
	s.mu.Lock()
	tok, ok := s.tokens[session]
	s.mu.Unlock()

	if !ok || s.now().After(tok.expiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(tok.value), []byte(provided)) == 1
}

// CSRF protects cookie-authenticated writes. Requests carrying an
// Authorization header are passed through.
func CSRF(store *CSRFStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				setCSRFCookie(w, r, store)
				next.ServeHTTP(w, r)
				return
			}

			if r.Header.Get("Authorization") != "" {
				next.ServeHTTP(w, r)
				return
			}

			session := cookieSession(r)
			if session == "" {
				respond.Error(w, r, apperr.Forbidden("Session required"))
				return
			}

			provided := r.Header.Get(csrfHeaderName)
			if provided == "" {
				respond.Error(w, r, apperr.Forbidden("CSRF token missing"))
				return
			}
			if !store.Validate(session, provided) {
				respond.Error(w, r, apperr.Forbidden("Invalid CSRF token"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// setCSRFCookie hands a readable token to browser sessions that lack one.
func setCSRFCookie(w http.ResponseWriter, r *http.Request, store *CSRFStore) {
	session := cookieSession(r)
	if session == "" {
		return
	}
	if _, err := r.Cookie(csrfCookieName); err == nil {
		return
	}

	token, err := store.Issue(session)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(csrfTokenExpiry.Seconds()),
	})
}

// cookieSession keys the CSRF token on a digest of the whole token cookie.
// JWT prefixes are shared by every token, so a prefix is not a session id.
func cookieSession(r *http.Request) string {
	cookie, err := r.Cookie(TokenCookie)
	if err != nil || cookie.Value == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(cookie.Value))
	return hex.EncodeToString(sum[:])
}
