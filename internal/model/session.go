package model

import "time"

// Session is the server-side record behind the signed session cookie.
type Session struct {
	ID              string  `gorm:"primaryKey"`
	UserID          string  `gorm:"index;not null"`
	TwoFactorPassed bool    `gorm:"not null;default:false"`
	BoardID         *string // currently selected board

	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
}

// TrustedDevice lets a returning device skip the TOTP prompt. Only the
// sha256 of the cookie token is stored.
type TrustedDevice struct {
	ID         string `gorm:"primaryKey"`
	UserID     string `gorm:"index;not null"`
	TokenHash  string `gorm:"uniqueIndex;not null"`
	ExpiresAt  time.Time
	LastUsedAt time.Time
	CreatedAt  time.Time
}

// PasswordResetToken is single-use and short-lived. Redeeming it kills
// every session and trusted device of the user.
type PasswordResetToken struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index;not null"`
	TokenHash string `gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}
