package ports

import (
	"context"

	"github.com/shopsence/user-service/internal/core/domain"
)

// UpdateDetailsInput holds editable profile fields. About is optional.
type UpdateDetailsInput struct {
	FullName string
	About    *string
}

// AccountService covers profile reads and changes for an authenticated user.
type AccountService interface {
	Current(ctx context.Context, userID string) (*domain.User, error)
	UpdateDetails(ctx context.Context, userID string, in UpdateDetailsInput) (*domain.User, error)
	Delete(ctx context.Context, userID string) error
	UpdateAvatar(ctx context.Context, userID string, avatar *domain.UploadFile) (*domain.User, error)
}
