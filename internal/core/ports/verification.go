package ports

import (
	"context"

	"github.com/shopsence/user-service/internal/core/domain"
)

// VerificationJob identifies the recipient of a verification email.
type VerificationJob struct {
	UserID   string
	Email    string
	FullName string
}

// Mailer delivers a rendered verification email through the email provider.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, msg domain.VerificationEmail) error
}

// VerificationSender issues a verification token and mails the link.
type VerificationSender interface {
	SendVerification(ctx context.Context, job VerificationJob) error
}

// VerificationQueue accepts jobs for background delivery. Enqueue never
// blocks and reports false when the job could not be queued.
type VerificationQueue interface {
	Enqueue(job VerificationJob) bool
}
