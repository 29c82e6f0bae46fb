// Package model defines database models
package model

import "time"

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

func ValidRole(r Role) bool {
	return r == RoleAdmin || r == RoleMember
}

type User struct {
	ID           string `gorm:"primaryKey" json:"id"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Name         string `gorm:"not null" json:"name"`
	PasswordHash string `gorm:"not null" json:"-"`
	Role         Role   `gorm:"not null;default:MEMBER" json:"role"`

	// Exactly one bootstrap admin carries this flag. It can never be
	// deleted and its role can never change.
	IsSystem bool `gorm:"not null;default:false" json:"isSystem"`

	TotpEnabled bool `gorm:"not null;default:false" json:"totpEnabled"`
	// TotpSecret is the confirmed secret, TotpPendingSecret only exists
	// between setup and enable
	TotpSecret        string `json:"-"`
	TotpPendingSecret string `json:"-"`

	MustChangePassword bool    `gorm:"not null;default:false" json:"mustChangePassword"`
	DefaultBoardID     *string `json:"defaultBoardId"`
	AvatarPath         string  `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
