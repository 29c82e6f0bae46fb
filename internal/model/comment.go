package model

import "time"

type Comment struct {
	ID       string  `gorm:"primaryKey" json:"id"`
	CardID   string  `gorm:"index;not null" json:"cardId"`
	AuthorID *string `json:"authorId"`
	Body     string  `gorm:"not null" json:"body"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Attachment struct {
	ID       string  `gorm:"primaryKey" json:"id"`
	CardID   string  `gorm:"index;not null" json:"cardId"`
	AuthorID *string `json:"authorId"`
	FileName string  `gorm:"not null" json:"fileName"`
	// FilePath is where the payload lives on disk, relative to the data dir
	FilePath string `gorm:"not null" json:"-"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`

	CreatedAt time.Time `json:"createdAt"`
}

// CardParticipant subscribes a user to change notifications for a card,
// independent of board membership.
type CardParticipant struct {
	ID     uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	CardID string `gorm:"uniqueIndex:idx_card_user;not null" json:"cardId"`
	UserID string `gorm:"uniqueIndex:idx_card_user;not null" json:"userId"`

	CreatedAt time.Time `json:"-"`
}
