package service

import (
	"testing"

	"github.com/ioterra-ru/kanban/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendPosition(t *testing.T) {
	db := openTestDB(t)
	seedBoard(t, db, "b1")

	pos, err := AppendPosition(db, "b1", model.ColumnTodo)
	require.NoError(t, err)
	assert.Equal(t, 0, pos)

	seedCard(t, db, "a", "b1", model.ColumnTodo, 0)
	seedCard(t, db, "b", "b1", model.ColumnTodo, 1)

	pos, err = AppendPosition(db, "b1", model.ColumnTodo)
	require.NoError(t, err)
	assert.Equal(t, 2, pos)

	// Other partitions don't leak in
	pos, err = AppendPosition(db, "b1", model.ColumnDone)
	require.NoError(t, err)
	assert.Equal(t, 0, pos)
}

func TestMoveCardWithinColumn(t *testing.T) {
	db := openTestDB(t)
	seedBoard(t, db, "b1")

	seedCard(t, db, "a", "b1", model.ColumnTodo, 0)
	card := seedCard(t, db, "b", "b1", model.ColumnTodo, 1)
	seedCard(t, db, "c", "b1", model.ColumnTodo, 2)
	seedCard(t, db, "d", "b1", model.ColumnTodo, 3)

	moved, err := MoveCard(db, card, model.ColumnTodo, 2)
	require.NoError(t, err)
	assert.True(t, moved)

	assert.Equal(t, []string{"a", "c", "b", "d"}, columnOrder(t, db, "b1", model.ColumnTodo))
	assert.Equal(t, []int{0, 1, 2, 3}, positions(t, db, "b1", model.ColumnTodo))
	assert.Equal(t, 2, card.Position)
}

func TestMoveCardAcrossColumns(t *testing.T) {
	db := openTestDB(t)
	seedBoard(t, db, "b1")

	card := seedCard(t, db, "a", "b1", model.ColumnTodo, 0)
	seedCard(t, db, "b", "b1", model.ColumnTodo, 1)
	seedCard(t, db, "x", "b1", model.ColumnInProgress, 0)
	seedCard(t, db, "y", "b1", model.ColumnInProgress, 1)

	moved, err := MoveCard(db, card, model.ColumnInProgress, 1)
	require.NoError(t, err)
	assert.True(t, moved)

	// Source closed the gap, destination took the card at index 1
	assert.Equal(t, []string{"b"}, columnOrder(t, db, "b1", model.ColumnTodo))
	assert.Equal(t, []int{0}, positions(t, db, "b1", model.ColumnTodo))
	assert.Equal(t, []string{"x", "a", "y"}, columnOrder(t, db, "b1", model.ColumnInProgress))
	assert.Equal(t, []int{0, 1, 2}, positions(t, db, "b1", model.ColumnInProgress))

	assert.Equal(t, model.ColumnInProgress, card.Column)
	assert.Equal(t, 1, card.Position)
}

func TestMoveCardClampsIndex(t *testing.T) {
	db := openTestDB(t)
	seedBoard(t, db, "b1")

	card := seedCard(t, db, "a", "b1", model.ColumnTodo, 0)
	seedCard(t, db, "x", "b1", model.ColumnDone, 0)

	moved, err := MoveCard(db, card, model.ColumnDone, 999)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, []string{"x", "a"}, columnOrder(t, db, "b1", model.ColumnDone))

	moved, err = MoveCard(db, card, model.ColumnDone, -5)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, []string{"a", "x"}, columnOrder(t, db, "b1", model.ColumnDone))
}

func TestMoveCardNoop(t *testing.T) {
	db := openTestDB(t)
	seedBoard(t, db, "b1")

	seedCard(t, db, "a", "b1", model.ColumnTodo, 0)
	card := seedCard(t, db, "b", "b1", model.ColumnTodo, 1)

	moved, err := MoveCard(db, card, model.ColumnTodo, 1)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, []string{"a", "b"}, columnOrder(t, db, "b1", model.ColumnTodo))
}

func TestDeleteCardRenumbers(t *testing.T) {
	db := openTestDB(t)
	seedBoard(t, db, "b1")

	seedCard(t, db, "a", "b1", model.ColumnTodo, 0)
	card := seedCard(t, db, "b", "b1", model.ColumnTodo, 1)
	seedCard(t, db, "c", "b1", model.ColumnTodo, 2)

	require.NoError(t, db.Create(&model.Comment{ID: "cm1", CardID: "b", Body: "hi"}).Error)
	require.NoError(t, db.Create(&model.CardParticipant{CardID: "b", UserID: "u1"}).Error)

	require.NoError(t, DeleteCard(db, card))

	assert.Equal(t, []string{"a", "c"}, columnOrder(t, db, "b1", model.ColumnTodo))
	assert.Equal(t, []int{0, 1}, positions(t, db, "b1", model.ColumnTodo))

	var comments int64
	require.NoError(t, db.Model(&model.Comment{}).Where("card_id = ?", "b").Count(&comments).Error)
	assert.Zero(t, comments)
}

func TestMoveCardIgnoresOtherBoards(t *testing.T) {
	db := openTestDB(t)
	seedBoard(t, db, "b1")
	seedBoard(t, db, "b2")

	card := seedCard(t, db, "a", "b1", model.ColumnTodo, 0)
	seedCard(t, db, "other", "b2", model.ColumnTodo, 0)

	moved, err := MoveCard(db, card, model.ColumnTodo, 5)
	require.NoError(t, err)
	assert.False(t, moved, "clamped back onto its own position, nothing else in the partition")

	assert.Equal(t, []int{0}, positions(t, db, "b2", model.ColumnTodo))
}
