package session

import (
	"testing"
	"time"
)

func TestIssueAndClear(t *testing.T) {
	c := Cookies{TTL: time.Hour, Secure: true}

	issued := c.Issue("abc")
	if issued.Name != CookieName || issued.Value != "abc" || issued.MaxAge != 3600 || !issued.Secure || !issued.HttpOnly {
		t.Fatalf("unexpected issued cookie: %+v", issued)
	}
	cleared := c.Clear()
	if cleared.Value != "" || cleared.MaxAge >= 0 {
		t.Fatalf("unexpected cleared cookie: %+v", cleared)
	}
}

func TestDefaultTTL(t *testing.T) {
	exp := Cookies{}.Expiry()
	if d := time.Until(exp); d < DefaultTTL-time.Minute || d > DefaultTTL {
		t.Fatalf("unexpected default expiry in %s", d)
	}
}

func TestNewTokenIsRandomHex(t *testing.T) {
	a, err := NewToken()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	b, _ := NewToken()
	if len(a) != 64 || a == b {
		t.Fatalf("unexpected tokens %q %q", a, b)
	}
}
