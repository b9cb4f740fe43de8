package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/shopsence/user-service/internal/core/domain"
	"github.com/shopsence/user-service/internal/core/ports"
)

// AuthDeps bundles the collaborators of AuthService. Revoker and Queue are
// optional: without a revoker logout only clears the refresh token, without
// a queue registration mails are sent inline.
type AuthDeps struct {
	Repo     ports.UserRepository
	Tokens   ports.TokenService
	Media    ports.MediaStore
	Sender   ports.VerificationSender
	Queue    ports.VerificationQueue
	Revoker  ports.TokenRevoker
	HashCost int
	Log      zerolog.Logger
}

// AuthService implements registration, email verification, login, token
// refresh, logout and password change.
type AuthService struct {
	repo     ports.UserRepository
	tokens   ports.TokenService
	media    ports.MediaStore
	sender   ports.VerificationSender
	queue    ports.VerificationQueue
	revoker  ports.TokenRevoker
	hashCost int
	log      zerolog.Logger
}

func NewAuthService(deps AuthDeps) *AuthService {
	cost := deps.HashCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{
		repo:     deps.Repo,
		tokens:   deps.Tokens,
		media:    deps.Media,
		sender:   deps.Sender,
		queue:    deps.Queue,
		revoker:  deps.Revoker,
		hashCost: cost,
		log:      deps.Log,
	}
}

// validateRegistration is evaluated before any store or media call.
func validateRegistration(in ports.RegisterInput) error {
	if in.Username == "" || in.Password == "" || in.FullName == "" {
		return domain.NewValidationError("full name, username, and password are required")
	}
	if in.Email == "" && in.PhoneNo == "" {
		return domain.NewValidationError("either email or phone number is required")
	}
	if in.Avatar == nil || in.Avatar.Body == nil {
		return domain.NewValidationError("avatar file is required")
	}
	return nil
}

func normalizeRegistration(in ports.RegisterInput) ports.RegisterInput {
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.PhoneNo = strings.TrimSpace(in.PhoneNo)
	in.FullName = strings.TrimSpace(in.FullName)
	in.About = strings.TrimSpace(in.About)
	if strings.TrimSpace(in.Password) == "" {
		in.Password = ""
	}
	return in
}

// Register creates an unverified account. Uniqueness is checked before the
// avatar is uploaded, so a rejected registration never reaches the media host.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.RegisterResult, error) {
	in = normalizeRegistration(in)
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByUsernameOrContact(ctx, domain.IdentityCandidates{
		Username: in.Username,
		Email:    in.Email,
		PhoneNo:  in.PhoneNo,
	})
	switch {
	case err == nil && existing != nil:
		return nil, domain.ErrUserExists
	case err != nil && !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("register: lookup: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	asset, err := s.media.Upload(ctx, in.Avatar)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMediaUpload, err)
	}

	now := time.Now().UTC()
	created, err := s.repo.Create(ctx, &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PhoneNo:      in.PhoneNo,
		FullName:     in.FullName,
		About:        in.About,
		AvatarURL:    asset.URL,
		AvatarID:     asset.ID,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		s.releaseAsset(ctx, asset.ID, "register")
		return nil, fmt.Errorf("register: create user: %w", err)
	}

	result := &ports.RegisterResult{User: created.Sanitized(), Verification: domain.DeliveryNotRequired}
	if created.Email != "" {
		result.Verification = s.queueVerification(ctx, created)
	}

	s.log.Info().
		Str("user_id", created.ID).
		Str("verification", string(result.Verification)).
		Msg("user registered")

	return result, nil
}

// VerifyEmail flips the verified flag. Verifying twice is an error.
func (s *AuthService) VerifyEmail(ctx context.Context, userID, token string) error {
	claims, err := s.tokens.Verify(token, domain.PurposeVerification)
	if err != nil {
		if errors.Is(err, domain.ErrTokenConfig) {
			return err
		}
		return domain.ErrInvalidLink
	}
	if claims.UserID != userID {
		return domain.ErrInvalidLink
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return domain.ErrAlreadyVerified
	}

	verified := true
	if _, err := s.repo.UpdateFields(ctx, user.ID, domain.UserPatch{IsVerified: &verified}); err != nil {
		return fmt.Errorf("verify email: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("email verified")
	return nil
}

// Login checks credentials and issues a token pair. An unverified account gets
// a fresh verification email and a NotVerifiedError describing its delivery.
func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return nil, domain.NewValidationError("username and password are required")
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrBadCredentials
	}

	if user.RequiresVerification() {
		return nil, &domain.NotVerifiedError{Delivery: s.sendVerification(ctx, user)}
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	// Overwriting the stored refresh token ends any other active session.
	updated, err := s.repo.UpdateFields(ctx, user.ID, domain.UserPatch{RefreshToken: &pair.RefreshToken})
	if err != nil {
		return nil, fmt.Errorf("login: store refresh token: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("user logged in")
	return &ports.LoginResult{User: updated.Sanitized(), Tokens: *pair}, nil
}

// Refresh rotates the token pair. The presented token must equal the stored
// one; the swap is conditional so only one of two concurrent refreshes wins.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, domain.ErrUnauthorized
	}

	claims, err := s.tokens.Verify(refreshToken, domain.PurposeRefresh)
	if err != nil {
		if errors.Is(err, domain.ErrTokenConfig) {
			return nil, err
		}
		return nil, domain.ErrTokenInvalid
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrInvalidID) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("refresh: %w", err)
	}

	if user.RefreshToken == "" || subtle.ConstantTimeCompare([]byte(user.RefreshToken), []byte(refreshToken)) != 1 {
		return nil, domain.ErrStaleRefresh
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.SwapRefreshToken(ctx, user.ID, refreshToken, pair.RefreshToken); err != nil {
		if errors.Is(err, domain.ErrStaleRefresh) || errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrStaleRefresh
		}
		return nil, fmt.Errorf("refresh: rotate: %w", err)
	}

	s.log.Debug().Str("user_id", user.ID).Msg("refresh token rotated")
	return pair, nil
}

// Logout clears the stored refresh token and revokes the access token that
// authenticated the request.
func (s *AuthService) Logout(ctx context.Context, session ports.Session) error {
	if session.UserID == "" {
		return domain.ErrNoSession
	}

	if _, err := s.repo.UpdateFields(ctx, session.UserID, domain.UserPatch{ClearRefreshToken: true}); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrNoSession
		}
		return fmt.Errorf("logout: %w", err)
	}

	if s.revoker != nil && session.TokenID != "" {
		if ttl := time.Until(session.ExpiresAt); ttl > 0 {
			if err := s.revoker.Revoke(ctx, session.TokenID, ttl); err != nil {
				s.log.Warn().Err(err).Str("user_id", session.UserID).Msg("failed to revoke access token")
			}
		}
	}

	s.log.Info().Str("user_id", session.UserID).Msg("user logged out")
	return nil
}

// ChangePassword replaces the password hash. Existing sessions stay valid.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, in ports.ChangePasswordInput) error {
	if in.OldPassword == "" || in.NewPassword == "" || in.ConfirmPassword == "" {
		return domain.NewValidationError("please fill all fields")
	}
	if in.NewPassword != in.ConfirmPassword {
		return domain.NewValidationError("passwords do not match")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.OldPassword)) != nil {
		return domain.ErrBadCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), s.hashCost)
	if err != nil {
		return fmt.Errorf("change password: hash: %w", err)
	}
	hashed := string(hash)
	if _, err := s.repo.UpdateFields(ctx, user.ID, domain.UserPatch{PasswordHash: &hashed}); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("password changed")
	return nil
}

func (s *AuthService) issuePair(user *domain.User) (*domain.TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func verificationJob(user *domain.User) ports.VerificationJob {
	return ports.VerificationJob{UserID: user.ID, Email: user.Email, FullName: user.FullName}
}

// queueVerification hands the mail to the background queue so registration
// does not wait on the email provider.
func (s *AuthService) queueVerification(ctx context.Context, user *domain.User) domain.DeliveryStatus {
	if s.queue == nil {
		return s.sendVerification(ctx, user)
	}
	if !s.queue.Enqueue(verificationJob(user)) {
		s.log.Warn().Str("user_id", user.ID).Msg("verification queue full")
		return domain.DeliveryFailed
	}
	return domain.DeliveryQueued
}

func (s *AuthService) sendVerification(ctx context.Context, user *domain.User) domain.DeliveryStatus {
	if err := s.sender.SendVerification(ctx, verificationJob(user)); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("verification email failed")
		return domain.DeliveryFailed
	}
	return domain.DeliverySent
}

func (s *AuthService) releaseAsset(ctx context.Context, assetID, op string) {
	if assetID == "" {
		return
	}
	if err := s.media.Delete(ctx, assetID); err != nil {
		s.log.Warn().Err(err).Str("asset_id", assetID).Str("op", op).Msg("failed to release avatar")
	}
}
