package ports

import (
	"context"

	"github.com/shopsence/user-service/internal/core/domain"
)

// MediaStore is the external host for avatar files.
type MediaStore interface {
	Upload(ctx context.Context, file *domain.UploadFile) (domain.Asset, error)
	Delete(ctx context.Context, assetID string) error
}
