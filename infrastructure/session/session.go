package session

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"
)

const CookieName = "X-Session-Token"

// DefaultTTL applies when configuration gives none.
const DefaultTTL = 12 * time.Hour

// Cookies builds session cookies with a shared secure flag.
type Cookies struct {
	TTL    time.Duration
	Secure bool
}

func (c Cookies) ttl() time.Duration {
	if c.TTL <= 0 {
		return DefaultTTL
	}
	return c.TTL
}

// Issue returns a cookie carrying token for the configured lifetime.
func (c Cookies) Issue(token string) *http.Cookie {
	return c.cookie(token, int(c.ttl().Seconds()))
}

// Clear returns an expired cookie that removes the session on the client.
func (c Cookies) Clear() *http.Cookie {
	return c.cookie("", -1)
}

// Expiry is the server-side expiry for a session created now.
func (c Cookies) Expiry() time.Time {
	return time.Now().Add(c.ttl())
}

func (c Cookies) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   c.Secure,
	}
}

// NewToken returns a random 256-bit hex token.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
