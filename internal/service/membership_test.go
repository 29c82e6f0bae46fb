package service

import (
	"testing"
	"time"

	"github.com/ioterra-ru/kanban/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanAccessBoard(t *testing.T) {
	db := openTestDB(t)
	seedBoard(t, db, "b1")

	admin := &model.User{ID: "admin", Email: "a@x", Name: "a", Role: model.RoleAdmin}
	member := &model.User{ID: "m1", Email: "m@x", Name: "m", Role: model.RoleMember}
	outsider := &model.User{ID: "m2", Email: "o@x", Name: "o", Role: model.RoleMember}
	require.NoError(t, db.Create(admin).Error)
	require.NoError(t, db.Create(member).Error)
	require.NoError(t, db.Create(outsider).Error)
	require.NoError(t, db.Create(&model.BoardMembership{BoardID: "b1", UserID: "m1"}).Error)

	ok, err := CanAccessBoard(db, admin, "b1")
	require.NoError(t, err)
	assert.True(t, ok, "admins can access every board")

	ok, err = CanAccessBoard(db, member, "b1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CanAccessBoard(db, outsider, "b1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSyncBoardMembersReassignsDefault(t *testing.T) {
	db := openTestDB(t)
	seedBoard(t, db, "b1")
	seedBoard(t, db, "b2")

	b1 := "b1"
	user := &model.User{ID: "u1", Email: "u@x", Name: "u", Role: model.RoleMember, DefaultBoardID: &b1}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&model.BoardMembership{BoardID: "b1", UserID: "u1"}).Error)
	require.NoError(t, db.Create(&model.BoardMembership{BoardID: "b2", UserID: "u1"}).Error)

	// Kick u1 off b1, add u2
	require.NoError(t, db.Create(&model.User{ID: "u2", Email: "u2@x", Name: "u2", Role: model.RoleMember}).Error)
	require.NoError(t, SyncBoardMembers(db, "b1", []string{"u2"}))

	var members []string
	require.NoError(t, db.Model(&model.BoardMembership{}).
		Where("board_id = ?", "b1").Pluck("user_id", &members).Error)
	assert.Equal(t, []string{"u2"}, members)

	var fresh model.User
	require.NoError(t, db.First(&fresh, "id = ?", "u1").Error)
	require.NotNil(t, fresh.DefaultBoardID)
	assert.Equal(t, "b2", *fresh.DefaultBoardID, "default board falls back to the remaining membership")
}

func TestReassignDefaultBoardClearsWhenNothingLeft(t *testing.T) {
	db := openTestDB(t)
	seedBoard(t, db, "b1")

	b1 := "b1"
	require.NoError(t, db.Create(&model.User{
		ID: "u1", Email: "u@x", Name: "u", Role: model.RoleMember, DefaultBoardID: &b1,
	}).Error)

	require.NoError(t, ReassignDefaultBoard(db, "u1", "b1"))

	var fresh model.User
	require.NoError(t, db.First(&fresh, "id = ?", "u1").Error)
	assert.Nil(t, fresh.DefaultBoardID)
}

func TestReassignDefaultBoardLeavesOthersAlone(t *testing.T) {
	db := openTestDB(t)
	seedBoard(t, db, "b1")
	seedBoard(t, db, "b2")

	b2 := "b2"
	require.NoError(t, db.Create(&model.User{
		ID: "u1", Email: "u@x", Name: "u", Role: model.RoleMember, DefaultBoardID: &b2,
	}).Error)

	require.NoError(t, ReassignDefaultBoard(db, "u1", "b1"))

	var fresh model.User
	require.NoError(t, db.First(&fresh, "id = ?", "u1").Error)
	require.NotNil(t, fresh.DefaultBoardID)
	assert.Equal(t, "b2", *fresh.DefaultBoardID)
}

func TestInvalidateUserAuth(t *testing.T) {
	db := openTestDB(t)

	exp := time.Now().Add(time.Hour)
	require.NoError(t, db.Create(&model.Session{ID: "s1", UserID: "u1", ExpiresAt: exp}).Error)
	require.NoError(t, db.Create(&model.Session{ID: "s2", UserID: "u1", ExpiresAt: exp}).Error)
	require.NoError(t, db.Create(&model.Session{ID: "s3", UserID: "u2", ExpiresAt: exp}).Error)
	require.NoError(t, db.Create(&model.TrustedDevice{ID: "d1", UserID: "u1", TokenHash: "h1", ExpiresAt: exp}).Error)

	require.NoError(t, InvalidateUserAuth(db, "u1", "s1"))

	var ids []string
	require.NoError(t, db.Model(&model.Session{}).Order("id asc").Pluck("id", &ids).Error)
	assert.Equal(t, []string{"s1", "s3"}, ids, "spared session and other users survive")

	var devices int64
	require.NoError(t, db.Model(&model.TrustedDevice{}).Where("user_id = ?", "u1").Count(&devices).Error)
	assert.Zero(t, devices)
}
