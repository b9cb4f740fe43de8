package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shopsence/user-service/internal/core/ports"
)

// AccountHandler serves the authenticated profile routes.
type AccountHandler struct {
	accounts       ports.AccountService
	cookies        CookiePolicy
	maxAvatarBytes int64
}

func NewAccountHandler(accounts ports.AccountService, cookies CookiePolicy, maxAvatarBytes int64) *AccountHandler {
	return &AccountHandler{accounts: accounts, cookies: cookies, maxAvatarBytes: maxAvatarBytes}
}

// Me returns the authenticated user.
//
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userResponse
// @Failure      401  {object}  messageResponse
// @Router       /api/v1/users/me [get]
func (h *AccountHandler) Me(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok("Current user fetched successfully", user))
}

// UpdateDetails edits full name and about.
//
// @Summary      Update account details
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateDetailsRequest  true  "New details"
// @Success      200   {object}  userResponse
// @Failure      400   {object}  messageResponse
// @Failure      401   {object}  messageResponse
// @Router       /api/v1/users/update-account-details [post]
func (h *AccountHandler) UpdateDetails(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	var req updateDetailsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	updated, err := h.accounts.UpdateDetails(c.Request().Context(), user.ID, ports.UpdateDetailsInput{
		FullName: req.FullName,
		About:    req.About,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok("Account details updated successfully", updated))
}

// Delete removes the caller's account and clears the auth cookies.
//
// @Summary      Delete account
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  messageResponse
// @Failure      404  {object}  messageResponse
// @Router       /api/v1/users/delete-me [get]
func (h *AccountHandler) Delete(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}
	if err := h.accounts.Delete(c.Request().Context(), user.ID); err != nil {
		return err
	}

	h.cookies.clearTokens(c)
	return c.JSON(http.StatusOK, ok("Account deleted successfully", nil))
}

// UpdateAvatar replaces the profile image.
//
// @Summary      Update avatar
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        avatar  formData  file  true  "Avatar image"
// @Success      200     {object}  userResponse
// @Failure      400     {object}  messageResponse
// @Failure      401     {object}  messageResponse
// @Failure      500     {object}  messageResponse
// @Router       /api/v1/users/update-avatar [post]
func (h *AccountHandler) UpdateAvatar(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	avatar, closeAvatar, err := formAvatar(c, h.maxAvatarBytes)
	if err != nil {
		return err
	}
	defer closeAvatar()

	updated, err := h.accounts.UpdateAvatar(c.Request().Context(), user.ID, avatar)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok("Profile image updated successfully", updated))
}
