package domain

import "errors"

var (
	ErrValidation       = errors.New("validation failed")
	ErrInvalidID        = errors.New("invalid id")
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user already exists")
	ErrBadCredentials   = errors.New("invalid credentials")
	ErrNotVerified      = errors.New("account not verified")
	ErrAlreadyVerified  = errors.New("user is already verified")
	ErrInvalidLink      = errors.New("invalid or expired verification token")
	ErrUnauthorized     = errors.New("unauthorized request")
	ErrTokenInvalid     = errors.New("invalid or expired token")
	ErrStaleRefresh     = errors.New("refresh token expired or used")
	ErrNoSession        = errors.New("user not found or already logged out")
	ErrTokenConfig      = errors.New("token secret is not configured")
	ErrMediaUpload      = errors.New("avatar upload failed")
	ErrDeliveryRejected = errors.New("email provider rejected the message")
)

// ValidationError describes invalid input. It matches ErrValidation.
type ValidationError struct {
	Reason string
}

func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotVerifiedError is returned by login for an unverified account. A fresh
// verification email was attempted and Delivery records how that went.
type NotVerifiedError struct {
	Delivery DeliveryStatus
}

func (e *NotVerifiedError) Error() string {
	return "account not verified: verification email " + string(e.Delivery)
}

func (e *NotVerifiedError) Is(target error) bool { return target == ErrNotVerified }
