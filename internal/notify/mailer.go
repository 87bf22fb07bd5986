// Package notify sends the account-lifecycle emails the token engine
// triggers on its own: verification for a freshly federated user,
// password reset, freshly issued MFA recovery codes, and a security
// alert when refresh-token reuse is detected.
package notify

import (
	"context"
	"log/slog"
)

// EmailSender is the narrow outbound-mail contract the engine depends
// on; the SMTP/template implementation itself is an external
// collaborator consumed only through this interface.
type EmailSender interface {
	SendVerification(ctx context.Context, to, token, appURL string) error
	SendPasswordReset(ctx context.Context, to, token, appURL string) error
	SendRecoveryCodesIssued(ctx context.Context, to string, remaining int) error
	SendTokenReuseAlert(ctx context.Context, to string, ipAddress string) error
}

// DevMailer prints every email to stdout; safe for local development and
// the default until a realm configures a real mail collaborator.
type DevMailer struct {
	Logger *slog.Logger
}

func (m *DevMailer) SendVerification(ctx context.Context, to, token, appURL string) error {
	link := appURL + "/auth/verify?token=" + token
	m.Logger.InfoContext(ctx, "📧 EMAIL SENT",
		"to", to,
		"type", "verification",
		"link", link,
	)
	return nil
}

func (m *DevMailer) SendPasswordReset(ctx context.Context, to, token, appURL string) error {
	link := appURL + "/auth/reset?token=" + token
	m.Logger.InfoContext(ctx, "📧 EMAIL SENT",
		"to", to,
		"type", "password_reset",
		"link", link,
	)
	return nil
}

func (m *DevMailer) SendRecoveryCodesIssued(ctx context.Context, to string, remaining int) error {
	m.Logger.InfoContext(ctx, "📧 EMAIL SENT",
		"to", to,
		"type", "mfa_recovery_codes_issued",
		"remaining", remaining,
	)
	return nil
}

func (m *DevMailer) SendTokenReuseAlert(ctx context.Context, to, ipAddress string) error {
	m.Logger.InfoContext(ctx, "📧 EMAIL SENT",
		"to", to,
		"type", "token_reuse_alert",
		"ip", ipAddress,
	)
	return nil
}

// NoopMailer discards every email; used by tests and by realms that
// haven't configured a mail collaborator.
type NoopMailer struct{}

func (NoopMailer) SendVerification(context.Context, string, string, string) error  { return nil }
func (NoopMailer) SendPasswordReset(context.Context, string, string, string) error { return nil }
func (NoopMailer) SendRecoveryCodesIssued(context.Context, string, int) error      { return nil }
func (NoopMailer) SendTokenReuseAlert(context.Context, string, string) error       { return nil }
