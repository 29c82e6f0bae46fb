package auth

import (
	"net/http"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/internal/service"
	"github.com/ioterra-ru/kanban/pkg/apierr"
	"github.com/ioterra-ru/kanban/pkg/middleware"
	"github.com/ioterra-ru/kanban/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type passwordChangeBody struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// PasswordChange is the authenticated change, also used to clear a
// temporary password. Every other session and trusted device of the
// user is invalidated; the current session survives.
func PasswordChange(c *gin.Context, d *internal.Deps) {
	user := middleware.CurrentUser(c)
	sess := middleware.CurrentSession(c)

	var data passwordChangeBody
	if err := c.ShouldBind(&data); err != nil {
		apierr.Abort(c, http.StatusBadRequest, apierr.Validation, "Current and new password are required")
		return
	}

	if err := validators.PasswordValidator(data.NewPassword); err != nil {
		apierr.AbortFields(c, http.StatusBadRequest, apierr.Validation, "Invalid new password",
			map[string]string{"newPassword": err.Error()})
		return
	}

	ok, err := d.Argon.VerifyPasswd(data.CurrentPassword, user.PasswordHash)
	if err != nil {
		zap.L().Error("Failed to verify password", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	if !ok {
		apierr.Abort(c, http.StatusUnauthorized, apierr.InvalidCredentials, "Current password is wrong")
		return
	}

	hash, err := d.Argon.GenerateFromPassword(data.NewPassword)
	if err != nil {
		zap.L().Error("Failed to hash password", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	err = d.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.User{}).
			Where("id = ?", user.ID).
			Updates(map[string]any{
				"password_hash":        hash,
				"must_change_password": false,
			}).
			Error
		if err != nil {
			return err
		}

		return service.InvalidateUserAuth(tx, user.ID, sess.ID)
	})
	if err != nil {
		zap.L().Error("Failed to change password", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
