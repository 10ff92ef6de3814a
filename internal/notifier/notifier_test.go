package notifier

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pfrederiksen/visa-bulletin/internal/digest"
	"github.com/pfrederiksen/visa-bulletin/internal/logger"
	"github.com/wneessen/go-mail"
)

var testDigest = digest.Digest{
	Title: "Visa Bulletin - September,2024",
	HTML:  "<html><body><table><tbody><tr><td>F1</td></tr></tbody></table></body></html>",
	Text:  "Sponsor Type  Date Type\nFamily        Final\n",
}

func testSMTPConfig() SMTPConfig {
	return SMTPConfig{
		Host:      "smtp.example.com",
		Port:      587,
		Sender:    "bulletin@example.com",
		Recipient: "me@example.com",
		Password:  "secret",
	}
}

func TestDryRunNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewDryRunNotifier(&buf)

	if err := n.Notify(context.Background(), testDigest); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "--- Visa Bulletin - September,2024 ---") {
		t.Errorf("expected title in output, got %q", out)
	}
	if !strings.Contains(out, "Family        Final") {
		t.Errorf("expected text body in output, got %q", out)
	}
}

func TestSMTPConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*SMTPConfig)
		wantErr string
	}{
		{"valid", func(*SMTPConfig) {}, ""},
		{"missing host", func(c *SMTPConfig) { c.Host = "" }, "smtp host is required"},
		{"bad port", func(c *SMTPConfig) { c.Port = 0 }, "out of range"},
		{"missing sender", func(c *SMTPConfig) { c.Sender = "" }, "smtp sender is required"},
		{"missing recipient", func(c *SMTPConfig) { c.Recipient = "" }, "smtp recipient is required"},
		{"missing password", func(c *SMTPConfig) { c.Password = "" }, "smtp password is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testSMTPConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}

	err := SMTPConfig{}.Validate()
	if err == nil || strings.Count(err.Error(), "\n") != 4 {
		t.Errorf("expected all five problems reported, got %v", err)
	}
}

func TestNewSMTPNotifierInvalid(t *testing.T) {
	if _, err := NewSMTPNotifier(SMTPConfig{}, logger.Nop()); err == nil {
		t.Error("expected error for empty settings")
	}
}

func TestSMTPNotifierMessage(t *testing.T) {
	n, err := NewSMTPNotifier(testSMTPConfig(), logger.Nop())
	if err != nil {
		t.Fatalf("NewSMTPNotifier failed: %v", err)
	}
	if n.cfg.Timeout != DefaultTimeout {
		t.Errorf("expected default timeout, got %v", n.cfg.Timeout)
	}

	var sent []*mail.Msg
	n.send = func(_ context.Context, msg *mail.Msg) error {
		sent = append(sent, msg)
		return nil
	}

	if err := n.Notify(context.Background(), testDigest); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if len(sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sent))
	}

	var buf bytes.Buffer
	if _, err := sent[0].WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	raw := buf.String()

	for _, want := range []string{
		"Subject: Visa Bulletin - September,2024",
		"bulletin@example.com",
		"me@example.com",
		"multipart/alternative",
		"text/html",
		"text/plain",
	} {
		if !strings.Contains(raw, want) {
			t.Errorf("expected message to contain %q:\n%s", want, raw)
		}
	}
}

func TestSMTPNotifierSendError(t *testing.T) {
	n, err := NewSMTPNotifier(testSMTPConfig(), logger.Nop())
	if err != nil {
		t.Fatalf("NewSMTPNotifier failed: %v", err)
	}

	transportErr := errors.New("connection refused")
	n.send = func(context.Context, *mail.Msg) error { return transportErr }

	err = n.Notify(context.Background(), testDigest)
	if !errors.Is(err, transportErr) {
		t.Errorf("expected transport error to be wrapped, got %v", err)
	}
}
