package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"

	"github.com/shopsence/user-service/internal/core/domain"
)

const avatarField = "avatar"

// formAvatar opens the "avatar" multipart file. It returns (nil, no-op, nil)
// when the field is absent so the service can report the missing file. The
// returned closer must always be called. The content type comes from the file
// bytes, not from the part header the client sent.
func formAvatar(c echo.Context, maxBytes int64) (*domain.UploadFile, func(), error) {
	noop := func() {}

	fh, err := c.FormFile(avatarField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, noop, nil
		}
		return nil, noop, echo.NewHTTPError(http.StatusBadRequest, "invalid multipart form")
	}

	if maxBytes > 0 && fh.Size > maxBytes {
		return nil, noop, domain.NewValidationError(fmt.Sprintf("avatar must be at most %d bytes", maxBytes))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, noop, fmt.Errorf("open avatar: %w", err)
	}
	closer := func() { _ = f.Close() }

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		closer()
		return nil, noop, fmt.Errorf("detect avatar type: %w", err)
	}
	if !strings.HasPrefix(mtype.String(), "image/") {
		closer()
		return nil, noop, domain.NewValidationError("avatar must be an image")
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		closer()
		return nil, noop, fmt.Errorf("rewind avatar: %w", err)
	}

	return &domain.UploadFile{
		Name:        fh.Filename,
		ContentType: mtype.String(),
		Size:        fh.Size,
		Body:        f,
	}, closer, nil
}
