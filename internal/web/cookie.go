package web

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
)

const (
	// CookieName is the session cookie.
	CookieName = "rl_session"
	// CookieLifetime is how long a browser keeps its session id. The
	// session itself expires earlier when idle.
	CookieLifetime = 30 * 24 * time.Hour

	keySalt = "rapidlisting session cookie v1"
	issuer  = "rapidlisting"
)

var errInvalidCookie = errors.New("invalid session cookie")

// Cookies signs and verifies session cookies. The cookie is an HS256 JWT
// whose ID claim is the session id.
type Cookies struct {
	key    []byte
	secure bool
}

// DeriveKey stretches a configured secret into a 32 byte signing key with
// argon2id. An empty secret yields a random key, so cookies only survive as
// long as the process.
func DeriveKey(secret string) ([]byte, error) {
	if secret == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate session key: %w", err)
		}
		return key, nil
	}
	return argon2.IDKey([]byte(secret), []byte(keySalt), 1, 64*1024, 4, 32), nil
}

// NewCookies creates a cookie codec. secure sets the Secure attribute.
func NewCookies(key []byte, secure bool) *Cookies {
	return &Cookies{key: key, secure: secure}
}

// NewSessionID returns a fresh random session id.
func NewSessionID() string {
	return uuid.NewString()
}

// Sign returns the cookie value for a session id.
func (c *Cookies) Sign(sessionID string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        sessionID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(CookieLifetime)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("signing session cookie: %w", err)
	}
	return signed, nil
}

// Verify parses a cookie value and returns the session id.
func (c *Cookies) Verify(value string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(value, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.key, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", errInvalidCookie, err)
	}
	if !token.Valid || claims.ID == "" {
		return "", errInvalidCookie
	}
	return claims.ID, nil
}

// Set writes the session cookie.
func (c *Cookies) Set(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(CookieLifetime / time.Second),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
