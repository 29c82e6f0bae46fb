package service

import (
	"errors"
	"fmt"

	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/pkg/security"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EnsureDefaults seeds the permanent board and the system admin on
// first start. The admin's one-time password is logged exactly once and
// must be changed at first login.
func EnsureDefaults(db *gorm.DB, argon *security.ArgonHash) error {
	var board model.Board
	err := db.First(&board, "id = ?", model.DefaultBoardID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = db.Create(&model.Board{ID: model.DefaultBoardID, Name: "Main"}).Error
	}
	if err != nil {
		return fmt.Errorf("failed to ensure default board, %w", err)
	}

	var count int64
	err = db.Model(&model.User{}).Where("is_system = ?", true).Count(&count).Error
	if err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	password, err := security.GenerateToken(9)
	if err != nil {
		return err
	}

	hash, err := argon.GenerateFromPassword(password)
	if err != nil {
		return err
	}

	id, err := gonanoid.New()
	if err != nil {
		return err
	}

	boardID := model.DefaultBoardID
	admin := model.User{
		ID:                 id,
		Email:              viper.GetString("bootstrap.admin_email"),
		Name:               viper.GetString("bootstrap.admin_name"),
		PasswordHash:       hash,
		Role:               model.RoleAdmin,
		IsSystem:           true,
		MustChangePassword: true,
		DefaultBoardID:     &boardID,
	}

	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create system admin, %w", err)
	}

	zap.L().Info("Created system admin",
		zap.String("email", admin.Email),
		zap.String("initialPassword", password))

	return nil
}
