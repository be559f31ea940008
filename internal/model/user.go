package model

import "time"

const (
	RoleAdmin      = "admin"
	RoleDoctor     = "doctor"
	RoleManagement = "management"
)

type User struct {
	UUID         string    `db:"uuid" json:"uuid"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	Role         string    `db:"role" json:"role"`
	IsVerified   bool      `db:"is_verified" json:"is_verified"`
	PasswordHash string    `db:"password_hash" json:"-"`
	OTP          *string   `db:"otp" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// HasPendingLoginCode : true, если для пользователя выписан и ещё не погашен код входа
func (u *User) HasPendingLoginCode() bool {
	return u.OTP != nil && *u.OTP != ""
}
