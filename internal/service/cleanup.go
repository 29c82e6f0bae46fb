package service

import (
	"time"

	"github.com/ioterra-ru/kanban/internal/model"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StartCleanup schedules the hourly purge of expired sessions, trusted
// devices and password reset tokens.
func StartCleanup(db *gorm.DB) *cron.Cron {
	c := cron.New()

	c.AddFunc("@hourly", func() {
		Purge(db, time.Now())
	})

	c.Start()
	zap.L().Debug("Cleanup schedule attached")

	return c
}

// Purge deletes every expired auth record. Split out so tests can drive
// it with a fixed clock.
func Purge(db *gorm.DB, now time.Time) {
	if err := db.Delete(&model.Session{}, "expires_at < ?", now).Error; err != nil {
		zap.L().Error("Failed to purge expired sessions", zap.Error(err))
	}

	if err := db.Delete(&model.TrustedDevice{}, "expires_at < ?", now).Error; err != nil {
		zap.L().Error("Failed to purge expired trusted devices", zap.Error(err))
	}

	if err := db.Delete(&model.PasswordResetToken{}, "expires_at < ? OR used_at IS NOT NULL", now).Error; err != nil {
		zap.L().Error("Failed to purge password reset tokens", zap.Error(err))
	}
}
