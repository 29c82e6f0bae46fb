package admin

import (
	"errors"
	"net/http"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/internal/service"
	"github.com/ioterra-ru/kanban/pkg/apierr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserDelete removes an account and everything keyed on it. The system
// admin and the last remaining admin are protected.
func UserDelete(c *gin.Context, d *internal.Deps) {
	var target model.User
	err := d.DB.First(&target, "id = ?", c.Param("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		apierr.Abort(c, http.StatusNotFound, apierr.NotFound, "User not found")
		return
	}
	if err != nil {
		zap.L().Error("Failed to load user", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	if target.IsSystem {
		apierr.Abort(c, http.StatusConflict, apierr.Conflict, "The system admin can't be deleted")
		return
	}

	if target.Role == model.RoleAdmin {
		admins, err := countAdmins(d.DB)
		if err != nil {
			zap.L().Error("Failed to count admins", zap.Error(err))
			apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
			return
		}
		if admins <= 1 {
			apierr.Abort(c, http.StatusConflict, apierr.Conflict, "Can't delete the last admin")
			return
		}
	}

	err = d.DB.Transaction(func(tx *gorm.DB) error {
		if err := service.InvalidateUserAuth(tx, target.ID, ""); err != nil {
			return err
		}

		if err := tx.Delete(&model.PasswordResetToken{}, "user_id = ?", target.ID).Error; err != nil {
			return err
		}

		if err := tx.Delete(&model.BoardMembership{}, "user_id = ?", target.ID).Error; err != nil {
			return err
		}

		if err := tx.Delete(&model.CardParticipant{}, "user_id = ?", target.ID).Error; err != nil {
			return err
		}

		// Authored content survives with a detached author
		if err := tx.Model(&model.Card{}).Where("author_id = ?", target.ID).Update("author_id", nil).Error; err != nil {
			return err
		}

		if err := tx.Model(&model.Comment{}).Where("author_id = ?", target.ID).Update("author_id", nil).Error; err != nil {
			return err
		}

		if err := tx.Model(&model.Attachment{}).Where("author_id = ?", target.ID).Update("author_id", nil).Error; err != nil {
			return err
		}

		return tx.Delete(&model.User{}, "id = ?", target.ID).Error
	})
	if err != nil {
		zap.L().Error("Failed to delete user", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
