package notify

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func newDiscardMailer() *DevMailer {
	return &DevMailer{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestDevMailerSendVerificationDoesNotError(t *testing.T) {
	m := newDiscardMailer()
	if err := m.SendVerification(context.Background(), "alice@example.com", "tok-1", "https://app.example.com"); err != nil {
		t.Fatalf("SendVerification returned an error: %v", err)
	}
}

func TestDevMailerSendPasswordResetDoesNotError(t *testing.T) {
	m := newDiscardMailer()
	if err := m.SendPasswordReset(context.Background(), "alice@example.com", "tok-1", "https://app.example.com"); err != nil {
		t.Fatalf("SendPasswordReset returned an error: %v", err)
	}
}

func TestDevMailerSendRecoveryCodesIssuedDoesNotError(t *testing.T) {
	m := newDiscardMailer()
	if err := m.SendRecoveryCodesIssued(context.Background(), "alice@example.com", 8); err != nil {
		t.Fatalf("SendRecoveryCodesIssued returned an error: %v", err)
	}
}

func TestDevMailerSendTokenReuseAlertDoesNotError(t *testing.T) {
	m := newDiscardMailer()
	if err := m.SendTokenReuseAlert(context.Background(), "alice@example.com", "203.0.113.7"); err != nil {
		t.Fatalf("SendTokenReuseAlert returned an error: %v", err)
	}
}

func TestNoopMailerDiscardsEverything(t *testing.T) {
	var m EmailSender = NoopMailer{}
	if err := m.SendVerification(context.Background(), "a@b.com", "tok", "https://app.example.com"); err != nil {
		t.Fatalf("unexpected error from NoopMailer: %v", err)
	}
	if err := m.SendPasswordReset(context.Background(), "a@b.com", "tok", "https://app.example.com"); err != nil {
		t.Fatalf("unexpected error from NoopMailer: %v", err)
	}
	if err := m.SendRecoveryCodesIssued(context.Background(), "a@b.com", 5); err != nil {
		t.Fatalf("unexpected error from NoopMailer: %v", err)
	}
	if err := m.SendTokenReuseAlert(context.Background(), "a@b.com", "203.0.113.7"); err != nil {
		t.Fatalf("unexpected error from NoopMailer: %v", err)
	}
}
