package model

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered citizen
type User struct {
	ID             int64      `json:"id"`
	CitizenID      string     `json:"citizen_id"`
	Email          string     `json:"email"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	PhoneNumber    string     `json:"phone_number"`
	CurrentAddress string     `json:"current_address"`
	PasswordHash   string     `json:"-"` // Do not expose password hash in JSON responses
	Role           string     `json:"role"`
	RegisterDate   time.Time  `json:"register_date"`
	UpdatedDate    time.Time  `json:"updated_date"`
	LastLoginDate  *time.Time `json:"last_login_date"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// RegisterUserRequest is the registration payload
type RegisterUserRequest struct {
	Email          string `json:"email" binding:"required,email"`
	CitizenID      string `json:"citizen_id" binding:"required,citizenid"`
	FirstName      string `json:"first_name" binding:"required"`
	LastName       string `json:"last_name" binding:"required"`
	PhoneNumber    string `json:"phone_number" binding:"required,min=9,max=15"`
	CurrentAddress string `json:"current_address" binding:"required"`
	Password       string `json:"password" binding:"required,min=6"`
}

// UpdateUserRequest carries profile changes; nil fields are left untouched.
type UpdateUserRequest struct {
	Email          *string `json:"email,omitempty" binding:"omitempty,email"`
	CitizenID      *string `json:"citizen_id,omitempty" binding:"omitempty,citizenid"`
	FirstName      *string `json:"first_name,omitempty" binding:"omitempty,min=1"`
	LastName       *string `json:"last_name,omitempty" binding:"omitempty,min=1"`
	PhoneNumber    *string `json:"phone_number,omitempty" binding:"omitempty,min=9,max=15"`
	CurrentAddress *string `json:"current_address,omitempty" binding:"omitempty,min=1"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

// LoginRequest mirrors the OAuth2 password form; JSON bodies are accepted too.
type LoginRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Token is returned by the token endpoints
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"` // minutes
	ExpiresAt    time.Time `json:"expires_at"`
	Scope        string    `json:"scope"`
	IssuedAt     time.Time `json:"issued_at"`
	UserID       int64     `json:"user_id"`
}
