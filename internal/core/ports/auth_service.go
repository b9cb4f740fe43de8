package ports

import (
	"context"
	"time"

	"github.com/shopsence/user-service/internal/core/domain"
)

// RegisterInput is the DTO passed from the transport layer to AuthService.Register.
type RegisterInput struct {
	Username string
	Password string
	FullName string
	Email    string
	PhoneNo  string
	About    string
	Avatar   *domain.UploadFile
}

// RegisterResult reports the created user and what happened to its
// verification email.
type RegisterResult struct {
	User         *domain.User
	Verification domain.DeliveryStatus
}

// LoginResult carries the sanitized user and the freshly issued token pair.
type LoginResult struct {
	User   *domain.User
	Tokens domain.TokenPair
}

// ChangePasswordInput holds the three password fields of the change form.
type ChangePasswordInput struct {
	OldPassword     string
	NewPassword     string
	ConfirmPassword string
}

// Session identifies the authenticated caller of a request.
type Session struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}

// AuthService drives the authentication and session lifecycle.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*RegisterResult, error)
	VerifyEmail(ctx context.Context, userID, token string) error
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	Logout(ctx context.Context, session Session) error
	ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) error
}
