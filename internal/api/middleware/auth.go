package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/shopsence/user-service/internal/core/domain"
	"github.com/shopsence/user-service/internal/core/ports"
)

const (
	// AccessTokenCookie carries the access token for browser clients.
	AccessTokenCookie = "accessToken"

	ctxUserKey    = "auth.user"
	ctxSessionKey = "auth.session"
)

// UserResolver loads the sanitized user a token belongs to.
type UserResolver interface {
	Current(ctx context.Context, userID string) (*domain.User, error)
}

// AuthConfig wires the Auth middleware. Revoker is optional.
type AuthConfig struct {
	Verifier ports.TokenVerifier
	Users    UserResolver
	Revoker  ports.TokenRevoker
	Log      zerolog.Logger
}

// Auth validates the access token from the accessToken cookie or the
// Authorization header, loads the user and injects user and session into
// the context.
func Auth(cfg AuthConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractToken(c)
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized request")
			}

			claims, err := cfg.Verifier.Verify(token, domain.PurposeAccess)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired access token")
			}

			ctx := c.Request().Context()

			if cfg.Revoker != nil {
				revoked, err := cfg.Revoker.IsRevoked(ctx, claims.TokenID)
				if err != nil {
					// Redis unavailable: the token is otherwise valid.
					cfg.Log.Warn().Err(err).Str("user_id", claims.UserID).Msg("revocation check failed")
				} else if revoked {
					return echo.NewHTTPError(http.StatusUnauthorized, "access token has been revoked")
				}
			}

			user, err := cfg.Users.Current(ctx, claims.UserID)
			if err != nil {
				if errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrInvalidID) {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired access token")
				}
				return err
			}

			SetIdentity(c, user, ports.Session{
				UserID:    user.ID,
				TokenID:   claims.TokenID,
				ExpiresAt: claims.ExpiresAt,
			})
			return next(c)
		}
	}
}

func extractToken(c echo.Context) string {
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	parts := strings.SplitN(c.Request().Header.Get(echo.HeaderAuthorization), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// SetIdentity stores the authenticated user and session on the context.
func SetIdentity(c echo.Context, user *domain.User, session ports.Session) {
	c.Set(ctxUserKey, user)
	c.Set(ctxSessionKey, session)
}

// UserFrom returns the user injected by Auth.
func UserFrom(c echo.Context) (*domain.User, bool) {
	u, ok := c.Get(ctxUserKey).(*domain.User)
	return u, ok && u != nil
}

// SessionFrom returns the session injected by Auth.
func SessionFrom(c echo.Context) (ports.Session, bool) {
	s, ok := c.Get(ctxSessionKey).(ports.Session)
	return s, ok
}
