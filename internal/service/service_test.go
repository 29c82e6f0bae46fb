package service

import (
	"path/filepath"
	"testing"

	"github.com/ioterra-ru/kanban/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		model.User{},
		model.Board{},
		model.BoardMembership{},
		model.Card{},
		model.Comment{},
		model.Attachment{},
		model.CardParticipant{},
		model.Session{},
		model.TrustedDevice{},
		model.PasswordResetToken{},
	))

	return db
}

func seedBoard(t *testing.T, db *gorm.DB, id string) {
	t.Helper()
	require.NoError(t, db.Create(&model.Board{ID: id, Name: id}).Error)
}

func seedCard(t *testing.T, db *gorm.DB, id, boardID string, col model.Column, pos int) *model.Card {
	t.Helper()

	card := &model.Card{
		ID:          id,
		BoardID:     boardID,
		Description: id,
		Column:      col,
		Position:    pos,
		Importance:  model.ImportanceMedium,
	}
	require.NoError(t, db.Create(card).Error)

	return card
}

// columnOrder returns card ids of a (board, column) partition sorted by
// position.
func columnOrder(t *testing.T, db *gorm.DB, boardID string, col model.Column) []string {
	t.Helper()

	var ids []string
	err := db.Model(&model.Card{}).
		Where("board_id = ? AND stage = ?", boardID, col).
		Order("position asc").
		Pluck("id", &ids).
		Error
	require.NoError(t, err)

	return ids
}

// positions returns the raw position values of a partition in order.
func positions(t *testing.T, db *gorm.DB, boardID string, col model.Column) []int {
	t.Helper()

	var out []int
	err := db.Model(&model.Card{}).
		Where("board_id = ? AND stage = ?", boardID, col).
		Order("position asc").
		Pluck("position", &out).
		Error
	require.NoError(t, err)

	return out
}
