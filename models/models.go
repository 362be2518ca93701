package models

import (
	"time"
)

// Role is the capability a caller carries in its access token.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User is the local projection of an account owned by the auth service. Only the
// fields the wallet needs for notifications are kept here.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Name      string    `json:"name"`
	Role      Role      `gorm:"type:varchar(16);not null;default:'USER'" json:"role"`
	IsBlocked bool      `json:"is_blocked" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// All returns every persisted model, in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Wallet{},
		&LedgerEntry{},
		&TopupRequest{},
		&NotificationEvent{},
	}
}
