package models

import "time"

// OTPCode is the one-time password issued to an email address. Only the
// bcrypt hash of the code is stored.
type OTPCode struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	CodeHash  string    `gorm:"type:varchar(255);not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the code is past its expiry. A code expiring
// exactly at now is still valid.
func (o OTPCode) Expired(now time.Time) bool {
	return o.ExpiresAt.Before(now)
}
