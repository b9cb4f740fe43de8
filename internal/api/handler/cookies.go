package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shopsence/user-service/internal/api/middleware"
	"github.com/shopsence/user-service/internal/core/domain"
)

// RefreshTokenCookie carries the refresh token for browser clients.
const RefreshTokenCookie = "refreshToken"

// CookiePolicy is applied to every auth cookie the service sets or clears.
type CookiePolicy struct {
	Secure   bool
	SameSite http.SameSite
}

// NewCookiePolicy returns Secure + SameSite=None in production (the frontend
// is served from another origin) and SameSite=Lax otherwise.
func NewCookiePolicy(production bool) CookiePolicy {
	if production {
		return CookiePolicy{Secure: true, SameSite: http.SameSiteNoneMode}
	}
	return CookiePolicy{SameSite: http.SameSiteLaxMode}
}

func (p CookiePolicy) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: p.SameSite,
	}
}

func (p CookiePolicy) setTokens(c echo.Context, pair domain.TokenPair) {
	c.SetCookie(p.cookie(middleware.AccessTokenCookie, pair.AccessToken))
	c.SetCookie(p.cookie(RefreshTokenCookie, pair.RefreshToken))
}

func (p CookiePolicy) clearTokens(c echo.Context) {
	for _, name := range []string{middleware.AccessTokenCookie, RefreshTokenCookie} {
		ck := p.cookie(name, "")
		ck.MaxAge = -1
		c.SetCookie(ck)
	}
}
