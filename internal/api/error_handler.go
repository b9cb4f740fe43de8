package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/shopsence/user-service/internal/core/domain"
)

// ErrorReporter receives errors that end in a 500.
type ErrorReporter interface {
	CaptureException(err error, tags map[string]string)
}

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status codes.
//   - Logs and reports unexpected errors without leaking details to the client.
//   - Renders {"success": false, "message": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger, reporter ErrorReporter) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err)
		if code >= http.StatusInternalServerError {
			log.Error().
				Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Msg("unhandled error")
			if reporter != nil {
				reporter.CaptureException(err, map[string]string{
					"method": c.Request().Method,
					"route":  c.Path(),
				})
			}
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Success: false, Message: msg})
	}
}

func resolveError(err error) (int, string) {
	// Echo's own errors (bind failures, 404 from router, middleware rejections).
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code >= http.StatusInternalServerError {
			return he.Code, http.StatusText(he.Code)
		}
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ve.Reason
	}

	var nv *domain.NotVerifiedError
	if errors.As(err, &nv) {
		return http.StatusForbidden, notVerifiedMessage(nv.Delivery)
	}

	switch {
	case errors.Is(err, domain.ErrInvalidID):
		return http.StatusBadRequest, "invalid user id"
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, "user with this username, email or phone number already exists"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, domain.ErrBadCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domain.ErrInvalidLink):
		return http.StatusBadRequest, "invalid or expired verification link"
	case errors.Is(err, domain.ErrAlreadyVerified):
		return http.StatusBadRequest, "user is already verified"
	case errors.Is(err, domain.ErrNoSession):
		return http.StatusBadRequest, "user not found or already logged out"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized request"
	case errors.Is(err, domain.ErrTokenInvalid):
		return http.StatusUnauthorized, "invalid or expired token"
	case errors.Is(err, domain.ErrStaleRefresh):
		return http.StatusUnauthorized, "refresh token is expired or used"
	case errors.Is(err, domain.ErrMediaUpload):
		return http.StatusInternalServerError, "avatar upload failed"
	}

	return http.StatusInternalServerError, "internal server error"
}

func notVerifiedMessage(delivery domain.DeliveryStatus) string {
	if delivery == domain.DeliverySent {
		return "email not verified, a new verification link has been sent to your email"
	}
	return "email not verified and the verification email could not be sent, please try again later"
}
