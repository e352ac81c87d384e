package mailer

import (
	"strings"
	"testing"
)

func TestNewRequiresHostAndFrom(t *testing.T) {
	if _, err := New(Config{From: "me@example.com"}); err == nil {
		t.Fatal("expected error without host")
	}
	if _, err := New(Config{Host: "smtp.example.com"}); err == nil {
		t.Fatal("expected error without from address")
	}
}

func TestMessageHeaders(t *testing.T) {
	m, err := New(Config{Host: "smtp.example.com", From: "me@example.com", SenderName: "Job Ops"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	msg := m.message("you@example.com", "Daily Digest 2026-03-02", "Focus on Acme today.")
	for _, want := range []string{
		"From: Job Ops <me@example.com>\r\n",
		"To: you@example.com\r\n",
		"Subject: Daily Digest 2026-03-02\r\n",
		"\r\n\r\nFocus on Acme today.",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}
