package html

import (
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"

	"stockmaster/frontend/shared/nav"
)

func TestLayoutEscapesAndInjectsCSRFScript(t *testing.T) {
	var b strings.Builder
	body := Alert(`<script>alert(1)</script>`)
	topNav := &nav.TopNavData{Name: "Ana & Co", Role: "admin", Protected: true}

	if err := Layout("Dashboard", topNav, body).Render(context.Background(), &b); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := b.String()
	if strings.Contains(out, "<script>alert(1)</script>") {
		t.Fatalf("alert text was not escaped")
	}
	if !strings.Contains(out, "Ana &amp; Co") || !strings.Contains(out, "(supreme)") {
		t.Fatalf("nav not rendered: %s", out)
	}
	if !strings.Contains(out, `X-CSRF-Token`) {
		t.Fatalf("csrf script missing")
	}
}

func TestAlertEmptyRendersNothing(t *testing.T) {
	var b strings.Builder
	if err := Alert("").Render(context.Background(), &b); err != nil {
		t.Fatal(err)
	}
	if b.Len() != 0 {
		t.Fatalf("expected empty output, got %q", b.String())
	}
	var _ templ.Component = Alert("")
}
