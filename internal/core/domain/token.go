package domain

import "time"

// TokenPurpose separates the three token families. Each purpose is signed
// with its own secret.
type TokenPurpose string

const (
	PurposeAccess       TokenPurpose = "access"
	PurposeRefresh      TokenPurpose = "refresh"
	PurposeVerification TokenPurpose = "verification"
)

// TokenClaims is the decoded content of a verified token.
type TokenClaims struct {
	UserID    string
	TokenID   string
	Purpose   TokenPurpose
	Username  string
	Email     string
	FullName  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenPair is what login and refresh hand back to the client.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
