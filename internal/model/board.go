package model

import "time"

// DefaultBoardID is the permanent board created at bootstrap. It can
// never be deleted.
const DefaultBoardID = "board-main"

type Board struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// BoardMembership grants a non-admin user access to a board. Admins are
// implicitly members of every board and never get rows here. The
// autoincrement id doubles as creation order, which decides a user's
// "earliest" membership when their default board goes away.
type BoardMembership struct {
	ID      uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	BoardID string `gorm:"uniqueIndex:idx_board_user;not null" json:"boardId"`
	UserID  string `gorm:"uniqueIndex:idx_board_user;not null" json:"userId"`

	CreatedAt time.Time `json:"-"`
}
