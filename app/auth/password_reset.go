package auth

import (
	"net/http"
	"time"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/internal/service"
	"github.com/ioterra-ru/kanban/pkg/apierr"
	"github.com/ioterra-ru/kanban/pkg/security"
	"github.com/ioterra-ru/kanban/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type passwordResetBody struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// PasswordReset redeems an emailed single-use token. Both reset paths
// end in applyPasswordReset, which kills every session and trusted
// device of the user.
func PasswordReset(c *gin.Context, d *internal.Deps) {
	var data passwordResetBody
	if err := c.ShouldBind(&data); err != nil {
		apierr.Abort(c, http.StatusBadRequest, apierr.Validation, "Token and new password are required")
		return
	}

	if err := validators.PasswordValidator(data.NewPassword); err != nil {
		apierr.AbortFields(c, http.StatusBadRequest, apierr.Validation, "Invalid new password",
			map[string]string{"newPassword": err.Error()})
		return
	}

	var token model.PasswordResetToken
	err := d.DB.First(&token, "token_hash = ?", security.HashToken(data.Token)).Error
	if err != nil {
		apierr.Abort(c, http.StatusUnauthorized, apierr.Unauthorized, "Invalid or expired reset token")
		return
	}

	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		apierr.Abort(c, http.StatusUnauthorized, apierr.Unauthorized, "Invalid or expired reset token")
		return
	}

	err = d.DB.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		err := tx.Model(&model.PasswordResetToken{}).
			Where("id = ?", token.ID).
			Update("used_at", now).
			Error
		if err != nil {
			return err
		}

		return applyPasswordReset(tx, d, token.UserID, data.NewPassword)
	})
	if err != nil {
		zap.L().Error("Failed to reset password", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// applyPasswordReset is shared by the mail-token and TOTP reset paths:
// new hash, cleared must-change flag, all sessions and trusted devices
// invalidated.
func applyPasswordReset(tx *gorm.DB, d *internal.Deps, userID, newPassword string) error {
	hash, err := d.Argon.GenerateFromPassword(newPassword)
	if err != nil {
		return err
	}

	err = tx.Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"password_hash":        hash,
			"must_change_password": false,
		}).
		Error
	if err != nil {
		return err
	}

	return service.InvalidateUserAuth(tx, userID, "")
}
