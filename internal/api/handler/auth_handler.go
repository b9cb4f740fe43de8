package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shopsence/user-service/internal/api/metrics"
	"github.com/shopsence/user-service/internal/core/domain"
	"github.com/shopsence/user-service/internal/core/ports"
)

type AuthHandler struct {
	auth           ports.AuthService
	cookies        CookiePolicy
	maxAvatarBytes int64
}

func NewAuthHandler(auth ports.AuthService, cookies CookiePolicy, maxAvatarBytes int64) *AuthHandler {
	return &AuthHandler{auth: auth, cookies: cookies, maxAvatarBytes: maxAvatarBytes}
}

func observe(operation string, err error) {
	metrics.AuthOperationsTotal.WithLabelValues(operation, metrics.Outcome(err)).Inc()
}

// Register creates a new, unverified account.
//
// @Summary      Register a new user
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Param        username  formData  string  true   "Username"
// @Param        password  formData  string  true   "Password"
// @Param        fullName  formData  string  true   "Full name"
// @Param        email     formData  string  false  "Email (email or phoneNo required)"
// @Param        phoneNo   formData  string  false  "Phone number (email or phoneNo required)"
// @Param        about     formData  string  false  "About"
// @Param        avatar    formData  file    true   "Avatar image"
// @Success      201       {object}  registerResponse
// @Failure      400       {object}  messageResponse
// @Failure      409       {object}  messageResponse
// @Failure      500       {object}  messageResponse
// @Router       /api/v1/users/register [post]
func (h *AuthHandler) Register(c echo.Context) (err error) {
	defer func() { observe("register", err) }()

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	req.trim()
	if err := c.Validate(&req); err != nil {
		return err
	}

	avatar, closeAvatar, err := formAvatar(c, h.maxAvatarBytes)
	if err != nil {
		return err
	}
	defer closeAvatar()

	res, err := h.auth.Register(c.Request().Context(), ports.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
		Email:    req.Email,
		PhoneNo:  req.PhoneNo,
		About:    req.About,
		Avatar:   avatar,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, ok(registerMessage(res.Verification), registerData{
		User:         res.User,
		Verification: res.Verification,
	}))
}

func registerMessage(status domain.DeliveryStatus) string {
	switch status {
	case domain.DeliveryNotRequired:
		return "Phone number registration successful"
	case domain.DeliveryFailed:
		return "Registration successful, but the verification email could not be sent. Log in to receive a new link"
	default:
		return "Verification email sent to your email address"
	}
}

// VerifyEmail confirms the email address behind a verification link.
//
// @Summary      Verify email
// @Tags         users
// @Produce      json
// @Param        id     path      string  true  "User id"
// @Param        token  path      string  true  "Verification token"
// @Success      200    {object}  messageResponse
// @Failure      400    {object}  messageResponse
// @Failure      404    {object}  messageResponse
// @Router       /api/v1/users/verify-email/{id}/{token} [get]
func (h *AuthHandler) VerifyEmail(c echo.Context) (err error) {
	defer func() { observe("verify_email", err) }()

	if err := h.auth.VerifyEmail(c.Request().Context(), c.Param("id"), c.Param("token")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok("Email verification successful", nil))
}

// Login authenticates a user, sets the auth cookies and returns both tokens.
//
// @Summary      Login
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  messageResponse
// @Failure      401   {object}  messageResponse
// @Failure      403   {object}  messageResponse
// @Failure      404   {object}  messageResponse
// @Router       /api/v1/users/login [post]
func (h *AuthHandler) Login(c echo.Context) (err error) {
	defer func() { observe("login", err) }()

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	h.cookies.setTokens(c, res.Tokens)
	return c.JSON(http.StatusOK, ok("User logged in successfully", loginData{
		User:         res.User,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	}))
}

// RefreshToken rotates the token pair. The refresh token is read from the
// refreshToken cookie, falling back to the JSON body.
//
// @Summary      Refresh tokens
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  false  "Refresh token when no cookie is sent"
// @Success      200   {object}  tokenResponse
// @Failure      401   {object}  messageResponse
// @Router       /api/v1/users/refresh-token [post]
func (h *AuthHandler) RefreshToken(c echo.Context) (err error) {
	defer func() {
		observe("refresh", err)
		if errors.Is(err, domain.ErrStaleRefresh) {
			metrics.RefreshRejectedTotal.Inc()
		}
	}()

	token := ""
	if ck, cerr := c.Cookie(RefreshTokenCookie); cerr == nil {
		token = ck.Value
	}
	if token == "" {
		var req refreshRequest
		if err := c.Bind(&req); err == nil {
			token = req.RefreshToken
		}
	}

	pair, err := h.auth.Refresh(c.Request().Context(), token)
	if err != nil {
		return err
	}

	h.cookies.setTokens(c, *pair)
	return c.JSON(http.StatusOK, ok("Access token refreshed successfully", pair))
}

// Logout ends the caller's session and clears the auth cookies.
//
// @Summary      Logout
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      400  {object}  messageResponse
// @Failure      401  {object}  messageResponse
// @Router       /api/v1/users/logout [get]
func (h *AuthHandler) Logout(c echo.Context) (err error) {
	defer func() { observe("logout", err) }()

	if err := h.auth.Logout(c.Request().Context(), ctxSession(c)); err != nil {
		return err
	}

	h.cookies.clearTokens(c)
	return c.JSON(http.StatusOK, ok("User logged out successfully", nil))
}

// UpdatePassword changes the caller's password.
//
// @Summary      Change password
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      changePasswordRequest  true  "Old and new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  messageResponse
// @Failure      401   {object}  messageResponse
// @Router       /api/v1/users/update-password [post]
func (h *AuthHandler) UpdatePassword(c echo.Context) (err error) {
	defer func() { observe("change_password", err) }()

	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.auth.ChangePassword(c.Request().Context(), user.ID, ports.ChangePasswordInput{
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	}); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok("Password changed successfully", nil))
}
