package ports

import (
	"context"

	"github.com/shopsence/user-service/internal/core/domain"
)

// UserRepository is the credential store. Every call touches a single user
// document and relies on document-level atomicity only.
type UserRepository interface {
	// FindByUsernameOrContact returns the first user matching any non-empty
	// candidate field, or domain.ErrUserNotFound.
	FindByUsernameOrContact(ctx context.Context, candidates domain.IdentityCandidates) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	UpdateFields(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error)
	// SwapRefreshToken replaces the stored refresh token only if it still
	// equals current. A lost race yields domain.ErrStaleRefresh.
	SwapRefreshToken(ctx context.Context, id, current, next string) (*domain.User, error)
	Delete(ctx context.Context, id string) (*domain.User, error)
}
