package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/shopsence/user-service/internal/core/domain"
)

const (
	defaultAccessTTL       = 15 * time.Minute
	defaultRefreshTTL      = 7 * 24 * time.Hour
	defaultVerificationTTL = 24 * time.Hour
)

// TokenConfig holds the secret and lifetime of every token family. It is
// built once at startup and never mutated.
type TokenConfig struct {
	AccessSecret       string
	AccessTTL          time.Duration
	RefreshSecret      string
	RefreshTTL         time.Duration
	VerificationSecret string
	VerificationTTL    time.Duration
	Issuer             string
}

type tokenClaims struct {
	Purpose  domain.TokenPurpose `json:"purpose"`
	Username string              `json:"username,omitempty"`
	Email    string              `json:"email,omitempty"`
	FullName string              `json:"fullName,omitempty"`
	jwt.RegisteredClaims
}

type signingKey struct {
	secret []byte
	ttl    time.Duration
}

// TokenService signs HS256 JWTs for access, refresh and email verification.
type TokenService struct {
	keys   map[domain.TokenPurpose]signingKey
	issuer string
	now    func() time.Time
}

// NewTokenService validates cfg and returns a ready service. A missing secret
// is a configuration error and must stop startup.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	s := newTokenService(cfg)
	for _, p := range []domain.TokenPurpose{domain.PurposeAccess, domain.PurposeRefresh, domain.PurposeVerification} {
		if len(s.keys[p].secret) == 0 {
			return nil, fmt.Errorf("%w: %s", domain.ErrTokenConfig, p)
		}
	}
	return s, nil
}

func newTokenService(cfg TokenConfig) *TokenService {
	return &TokenService{
		keys: map[domain.TokenPurpose]signingKey{
			domain.PurposeAccess:       {secret: []byte(cfg.AccessSecret), ttl: orDefault(cfg.AccessTTL, defaultAccessTTL)},
			domain.PurposeRefresh:      {secret: []byte(cfg.RefreshSecret), ttl: orDefault(cfg.RefreshTTL, defaultRefreshTTL)},
			domain.PurposeVerification: {secret: []byte(cfg.VerificationSecret), ttl: orDefault(cfg.VerificationTTL, defaultVerificationTTL)},
		},
		issuer: cfg.Issuer,
		now:    time.Now,
	}
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// IssueAccessToken carries the identity claims used to authorize requests.
func (s *TokenService) IssueAccessToken(user *domain.User) (string, error) {
	return s.sign(domain.PurposeAccess, user.ID, func(c *tokenClaims) {
		c.Username = user.Username
		c.Email = user.Email
		c.FullName = user.FullName
	})
}

// IssueRefreshToken carries only the user id.
func (s *TokenService) IssueRefreshToken(userID string) (string, error) {
	return s.sign(domain.PurposeRefresh, userID, nil)
}

func (s *TokenService) IssueVerificationToken(userID string) (string, error) {
	return s.sign(domain.PurposeVerification, userID, nil)
}

func (s *TokenService) sign(purpose domain.TokenPurpose, userID string, extra func(*tokenClaims)) (string, error) {
	key, ok := s.keys[purpose]
	if !ok || len(key.secret) == 0 {
		return "", fmt.Errorf("%w: %s", domain.ErrTokenConfig, purpose)
	}

	now := s.now()
	claims := tokenClaims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(key.ttl)),
		},
	}
	if extra != nil {
		extra(&claims)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", purpose, err)
	}
	return signed, nil
}

// Verify checks signature, expiry and purpose. Any failure is reported as
// domain.ErrTokenInvalid.
func (s *TokenService) Verify(token string, purpose domain.TokenPurpose) (*domain.TokenClaims, error) {
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}
	key, ok := s.keys[purpose]
	if !ok || len(key.secret) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrTokenConfig, purpose)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	claims := &tokenClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return key.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: expired", domain.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	if !parsed.Valid || claims.Purpose != purpose || claims.Subject == "" {
		return nil, domain.ErrTokenInvalid
	}

	out := &domain.TokenClaims{
		UserID:   claims.Subject,
		TokenID:  claims.ID,
		Purpose:  claims.Purpose,
		Username: claims.Username,
		Email:    claims.Email,
		FullName: claims.FullName,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
