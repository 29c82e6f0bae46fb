package service

import (
	"testing"
	"time"

	"github.com/ioterra-ru/kanban/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurgeDropsOnlyDeadRecords(t *testing.T) {
	db := openTestDB(t)

	now := time.Now()
	used := now.Add(-time.Minute)

	require.NoError(t, db.Create(&model.Session{ID: "live", UserID: "u1", ExpiresAt: now.Add(time.Hour)}).Error)
	require.NoError(t, db.Create(&model.Session{ID: "dead", UserID: "u1", ExpiresAt: now.Add(-time.Hour)}).Error)

	require.NoError(t, db.Create(&model.TrustedDevice{ID: "d-live", UserID: "u1", TokenHash: "h1", ExpiresAt: now.Add(time.Hour)}).Error)
	require.NoError(t, db.Create(&model.TrustedDevice{ID: "d-dead", UserID: "u1", TokenHash: "h2", ExpiresAt: now.Add(-time.Hour)}).Error)

	require.NoError(t, db.Create(&model.PasswordResetToken{ID: "t-live", UserID: "u1", TokenHash: "h3", ExpiresAt: now.Add(time.Hour)}).Error)
	require.NoError(t, db.Create(&model.PasswordResetToken{ID: "t-expired", UserID: "u1", TokenHash: "h4", ExpiresAt: now.Add(-time.Hour)}).Error)
	require.NoError(t, db.Create(&model.PasswordResetToken{ID: "t-used", UserID: "u1", TokenHash: "h5", ExpiresAt: now.Add(time.Hour), UsedAt: &used}).Error)

	Purge(db, now)

	var sessions, devices, tokens []string
	require.NoError(t, db.Model(&model.Session{}).Pluck("id", &sessions).Error)
	require.NoError(t, db.Model(&model.TrustedDevice{}).Pluck("id", &devices).Error)
	require.NoError(t, db.Model(&model.PasswordResetToken{}).Pluck("id", &tokens).Error)

	assert.Equal(t, []string{"live"}, sessions)
	assert.Equal(t, []string{"d-live"}, devices)
	assert.Equal(t, []string{"t-live"}, tokens)
}
