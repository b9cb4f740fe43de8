package ports

import "github.com/shopsence/user-service/internal/core/domain"

// TokenVerifier checks signature, expiry and purpose of a token. It never
// consults the credential store.
type TokenVerifier interface {
	Verify(token string, purpose domain.TokenPurpose) (*domain.TokenClaims, error)
}

// TokenService issues and verifies the three token families.
type TokenService interface {
	TokenVerifier
	IssueAccessToken(user *domain.User) (string, error)
	IssueRefreshToken(userID string) (string, error)
	IssueVerificationToken(userID string) (string, error)
}
