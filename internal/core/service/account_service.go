package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/shopsence/user-service/internal/core/domain"
	"github.com/shopsence/user-service/internal/core/ports"
)

// AccountService serves profile reads and edits for the authenticated user.
type AccountService struct {
	repo  ports.UserRepository
	media ports.MediaStore
	log   zerolog.Logger
}

func NewAccountService(repo ports.UserRepository, media ports.MediaStore, log zerolog.Logger) *AccountService {
	return &AccountService{repo: repo, media: media, log: log}
}

// Current returns the sanitized profile of userID.
func (s *AccountService) Current(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

func (s *AccountService) UpdateDetails(ctx context.Context, userID string, in ports.UpdateDetailsInput) (*domain.User, error) {
	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		return nil, domain.NewValidationError("full name is required")
	}

	patch := domain.UserPatch{FullName: &fullName}
	if in.About != nil {
		about := strings.TrimSpace(*in.About)
		patch.About = &about
	}

	updated, err := s.repo.UpdateFields(ctx, userID, patch)
	if err != nil {
		return nil, err
	}
	return updated.Sanitized(), nil
}

// Delete removes the account and then releases its avatar. A failed release
// leaves an orphaned asset and is only logged.
func (s *AccountService) Delete(ctx context.Context, userID string) error {
	deleted, err := s.repo.Delete(ctx, userID)
	if err != nil {
		return err
	}

	if deleted.AvatarID != "" {
		if err := s.media.Delete(ctx, deleted.AvatarID); err != nil {
			s.log.Warn().Err(err).Str("user_id", deleted.ID).Str("asset_id", deleted.AvatarID).Msg("failed to release avatar of deleted user")
		}
	}

	s.log.Info().Str("user_id", deleted.ID).Msg("account deleted")
	return nil
}

// UpdateAvatar uploads the new file, stores its reference and releases the
// previous asset. If the record cannot be updated the new upload is released.
func (s *AccountService) UpdateAvatar(ctx context.Context, userID string, avatar *domain.UploadFile) (*domain.User, error) {
	if avatar == nil || avatar.Body == nil {
		return nil, domain.NewValidationError("avatar file is required")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	asset, err := s.media.Upload(ctx, avatar)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMediaUpload, err)
	}

	updated, err := s.repo.UpdateFields(ctx, user.ID, domain.UserPatch{AvatarURL: &asset.URL, AvatarID: &asset.ID})
	if err != nil {
		if delErr := s.media.Delete(ctx, asset.ID); delErr != nil {
			s.log.Warn().Err(delErr).Str("asset_id", asset.ID).Msg("failed to release unused avatar")
		}
		return nil, fmt.Errorf("update avatar: %w", err)
	}

	if user.AvatarID != "" && user.AvatarID != asset.ID {
		if err := s.media.Delete(ctx, user.AvatarID); err != nil {
			s.log.Warn().Err(err).Str("asset_id", user.AvatarID).Msg("failed to release previous avatar")
		}
	}

	return updated.Sanitized(), nil
}
