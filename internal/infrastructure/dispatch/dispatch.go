// Package dispatch adapts the outbound channels (SMTP mail, SNS SMS) to the
// single "deliver this code to this identifier" operation the OTP lifecycle
// needs. Delivery failures are the caller's to log; nothing here retries.
package dispatch

import (
	"context"
	"fmt"

	"github.com/homehive/homehive-api/internal/domain"
	"github.com/homehive/homehive-api/internal/infrastructure/smtp"
	"github.com/homehive/homehive-api/internal/infrastructure/sns"
)

// EmailSender delivers one-time codes over email.
type EmailSender struct {
	mailer smtp.Mailer
}

func NewEmailSender(mailer smtp.Mailer) *EmailSender {
	return &EmailSender{mailer: mailer}
}

func (s *EmailSender) Send(_ context.Context, identifier, code, roleHint string) error {
	subject := "Your HomeHive verification code"
	body := fmt.Sprintf("%s\n\nYour verification code is %s. It expires in 3 minutes.", greeting(roleHint), code)
	return s.mailer.SendEmail(identifier, subject, body)
}

// SMSSender delivers one-time codes over SMS.
type SMSSender struct {
	sms sns.SMSSender
}

func NewSMSSender(sms sns.SMSSender) *SMSSender {
	return &SMSSender{sms: sms}
}

func (s *SMSSender) Send(ctx context.Context, identifier, code, _ string) error {
	return s.sms.SendSMS(ctx, identifier, fmt.Sprintf("HomeHive code: %s (valid 3 minutes)", code))
}

// greeting personalizes email copy by the account's role hint. Cosmetic only;
// the hint carries no security weight.
func greeting(roleHint string) string {
	switch roleHint {
	case domain.RoleHelper:
		return "Welcome to HomeHive, helper!"
	case domain.RoleBusiness:
		return "Welcome to HomeHive for business."
	default:
		return "Welcome to HomeHive."
	}
}
