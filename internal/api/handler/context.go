package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shopsence/user-service/internal/api/middleware"
	"github.com/shopsence/user-service/internal/core/domain"
	"github.com/shopsence/user-service/internal/core/ports"
)

// ctxUser returns the user injected by the Auth middleware. A missing value
// means the route was mounted without the middleware.
func ctxUser(c echo.Context) (*domain.User, error) {
	user, ok := middleware.UserFrom(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized request")
	}
	return user, nil
}

// ctxSession returns the session of the authenticated caller, or the zero
// Session when none is present.
func ctxSession(c echo.Context) ports.Session {
	s, _ := middleware.SessionFrom(c)
	return s
}
