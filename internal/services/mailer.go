package services

import "context"

// Mailer delivers one-time passwords to an email address.
type Mailer interface {
	SendOTP(ctx context.Context, recipient, code string) error
}
