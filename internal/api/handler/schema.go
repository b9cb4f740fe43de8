package handler

import (
	"strings"

	"github.com/shopsence/user-service/internal/core/domain"
)

// envelope is the body of every response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func ok(message string, data any) envelope {
	return envelope{Success: true, Message: message, Data: data}
}

// --- Requests ---

// registerRequest only checks the email syntax here; required fields are
// enforced by the auth service so every client sees the same messages.
type registerRequest struct {
	Username string `form:"username"`
	Password string `form:"password"`
	FullName string `form:"fullName"`
	Email    string `form:"email"    validate:"omitempty,email"`
	PhoneNo  string `form:"phoneNo"`
	About    string `form:"about"`
}

// trim strips surrounding whitespace from every field except the password,
// so a padded or blank email is judged the same way the service stores it.
func (r *registerRequest) trim() {
	r.Username = strings.TrimSpace(r.Username)
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = strings.TrimSpace(r.Email)
	r.PhoneNo = strings.TrimSpace(r.PhoneNo)
	r.About = strings.TrimSpace(r.About)
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword     string `json:"oldPassword"     validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type updateDetailsRequest struct {
	FullName string  `json:"fullName" validate:"required"`
	About    *string `json:"about"`
}

// --- Responses ---

type registerData struct {
	User         *domain.User          `json:"user"`
	Verification domain.DeliveryStatus `json:"verification"`
}

type loginData struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

type registerResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    registerData `json:"data"`
}

type loginResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Data    loginData `json:"data"`
}

type tokenResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Data    domain.TokenPair `json:"data"`
}

type userResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    *domain.User `json:"data"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
