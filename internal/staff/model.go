package staff

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

type Staff struct {
	ID          string     `json:"id" yaml:"id"`
	Email       string     `json:"email" yaml:"email"`
	FirstName   string     `json:"first_name" yaml:"first_name"`
	LastName    string     `json:"last_name" yaml:"last_name"`
	Department  string     `json:"department" yaml:"department"`
	Institution string     `json:"institution" yaml:"institution"`
	Role        Role       `json:"role" yaml:"role"`
	Status      Status     `json:"status" yaml:"status"`
	Avatar      string     `json:"avatar,omitempty" yaml:"avatar,omitempty"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
	LastLogin   *time.Time `json:"last_login,omitempty" yaml:"last_login,omitempty"`
	Password    string     `json:"-" yaml:"password"` // plaintext in fixtures, never persisted
}

func (s Staff) FullName() string {
	return s.FirstName + " " + s.LastName
}

// Active treats records stored before statuses existed as active.
func (s Staff) Active() bool {
	return s.Status != StatusInactive
}

func (s Staff) IsAdmin() bool {
	return s.Role == RoleAdmin
}

type Department struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Code        string    `json:"code" yaml:"code"`
	Institution string    `json:"institution" yaml:"institution"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

type Institution struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	ShortName string `json:"short_name" yaml:"short_name"`
	Location  string `json:"location" yaml:"location"`
}

// Credential is a stored bcrypt hash for one account.
type Credential struct {
	StaffID string `json:"staff_id"`
	Email   string `json:"email"`
	Hash    []byte `json:"hash"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Staff       Staff     `json:"staff"`
}

// Session is the server-side record of an issued token, kept so a token can
// be revoked before it expires.
type Session struct {
	ID        string     `json:"id"`
	StaffID   string     `json:"staff_id"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

type Claims struct {
	StaffID string `json:"staff_id"`
	Name    string `json:"name"`
	jwt.RegisteredClaims
}

// ---------------------------------------------
// 🛠️ Admin requests
// ---------------------------------------------

type CreateStaffRequest struct {
	FirstName  string `json:"first_name" validate:"required"`
	LastName   string `json:"last_name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Department string `json:"department" validate:"required"`
	Role       Role   `json:"role" validate:"omitempty,oneof=staff admin"`
	// Password is optional; without it the account cannot log in yet.
	Password string `json:"password" validate:"omitempty,min=8"`
}

type DepartmentRequest struct {
	Name        string `json:"name" validate:"required"`
	Code        string `json:"code"`
	Institution string `json:"institution"`
	Description string `json:"description"`
}
