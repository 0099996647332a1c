package models

import "time"

// Auth providers.
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// User represents a row in the PostgreSQL users table.
type User struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Password  string     `json:"-"` // bcrypt hash, never serialize
	Provider  string     `json:"provider"`
	GoogleID  string     `json:"-"`
	Avatar    string     `json:"avatar,omitempty"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// PublicUser is the projection of a user returned to clients.
type PublicUser struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Public returns the client-safe projection of the user.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Name: u.Name, Avatar: u.Avatar}
}

// SignupRequest is the JSON body for POST /api/auth/signup.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest is the JSON body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileRequest is the JSON body for PUT /api/auth/profile.
type UpdateProfileRequest struct {
	Name string `json:"name"`
}

// ChangePasswordRequest is the JSON body for PUT /api/auth/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ForgotPasswordRequest is the JSON body for POST /api/auth/forgot.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the JSON body for POST /api/auth/reset.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}
