package domain

import "time"

// User is the account record. PasswordHash and RefreshToken never leave the
// service boundary: both are excluded from JSON and cleared by Sanitized.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PhoneNo      string    `json:"phoneNo,omitempty"`
	FullName     string    `json:"fullName"`
	About        string    `json:"about"`
	AvatarURL    string    `json:"avatar"`
	AvatarID     string    `json:"avatarId,omitempty"`
	PasswordHash string    `json:"-"`
	RefreshToken string    `json:"-"`
	IsVerified   bool      `json:"isVerified"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// RequiresVerification reports whether the user still has to confirm an email
// address before logging in. Phone-only accounts never go through the email flow.
func (u *User) RequiresVerification() bool {
	return u.Email != "" && !u.IsVerified
}

// Sanitized returns a copy with credential material removed.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.PasswordHash = ""
	clone.RefreshToken = ""
	return &clone
}

// IdentityCandidates carries the identity fields checked for uniqueness in a
// single combined lookup. Empty fields are ignored.
type IdentityCandidates struct {
	Username string
	Email    string
	PhoneNo  string
}

// UserPatch lists the fields an update may touch. Nil pointers are left as is.
type UserPatch struct {
	FullName     *string
	About        *string
	PasswordHash *string
	AvatarURL    *string
	AvatarID     *string
	IsVerified   *bool
	RefreshToken *string
	// ClearRefreshToken removes the stored refresh token; it wins over RefreshToken.
	ClearRefreshToken bool
}
