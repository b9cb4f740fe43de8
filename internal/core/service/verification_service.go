package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/shopsence/user-service/internal/core/domain"
	"github.com/shopsence/user-service/internal/core/ports"
)

// VerifyEmailPath is the route prefix the verification link points to.
const VerifyEmailPath = "/api/v1/users/verify-email"

// VerificationService issues a verification token and mails the link.
type VerificationService struct {
	tokens       ports.TokenService
	mailer       ports.Mailer
	publicDomain string
	log          zerolog.Logger
}

func NewVerificationService(tokens ports.TokenService, mailer ports.Mailer, publicDomain string, log zerolog.Logger) *VerificationService {
	return &VerificationService{
		tokens:       tokens,
		mailer:       mailer,
		publicDomain: strings.TrimRight(publicDomain, "/"),
		log:          log,
	}
}

// SendVerification satisfies ports.VerificationSender.
func (s *VerificationService) SendVerification(ctx context.Context, job ports.VerificationJob) error {
	token, err := s.tokens.IssueVerificationToken(job.UserID)
	if err != nil {
		return fmt.Errorf("issue verification token: %w", err)
	}

	msg := domain.VerificationEmail{
		To:       job.Email,
		FullName: job.FullName,
		Link:     s.Link(job.UserID, token),
	}
	if err := s.mailer.SendVerificationEmail(ctx, msg); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}

	s.log.Info().Str("user_id", job.UserID).Msg("verification email sent")
	return nil
}

// Link builds {domain}/api/v1/users/verify-email/{id}/{token}.
func (s *VerificationService) Link(userID, token string) string {
	return fmt.Sprintf("%s%s/%s/%s", s.publicDomain, VerifyEmailPath, url.PathEscape(userID), url.PathEscape(token))
}
