package entity

import (
	"time"
)

// User is the aggregate root for the identity domain.
// PasswordHash is a bcrypt hash; MFA secrets and backup code hashes never leave the service layer.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Role           Role      `json:"role"`
	IsActive       bool      `json:"isActive"`
	RefreshToken   string    `json:"-"`
	MFAEnabled     bool      `json:"mfaEnabled"`
	MFASecret      string    `json:"-"`
	MFABackupCodes []string  `json:"-"`
	LastActive     time.Time `json:"lastActive"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }
