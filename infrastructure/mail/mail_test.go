package mail

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestPasswordResetMessage(t *testing.T) {
	msg := PasswordReset("ana@example.com", "https://stock.example.com", "a b", time.Hour)
	if msg.To != "ana@example.com" {
		t.Fatalf("unexpected recipient %q", msg.To)
	}
	if !strings.Contains(msg.Body, "https://stock.example.com/reset-password?token=a+b") {
		t.Fatalf("missing escaped link in body: %s", msg.Body)
	}
	if !strings.Contains(msg.Body, "1h0m0s") {
		t.Fatalf("missing expiry in body: %s", msg.Body)
	}
}

func TestLogMailerWritesMessage(t *testing.T) {
	var buf bytes.Buffer
	m := LogMailer{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	if err := m.Send(context.Background(), Message{To: "x@example.com", Subject: "hi"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(buf.String(), "to=x@example.com") {
		t.Fatalf("expected recipient in log, got %s", buf.String())
	}
}
