package auth

import (
	"net/http"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/pkg/apierr"
	"github.com/ioterra-ru/kanban/pkg/middleware"
	"github.com/ioterra-ru/kanban/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type twoFactorEnableBody struct {
	Code           string `json:"code" binding:"required"`
	RememberDevice bool   `json:"rememberDevice"`
}

// TwoFactorEnable finalizes enrollment: the supplied code must verify
// against the pending secret, which then becomes the confirmed one. The
// session counts as two-factor-passed from here on.
func TwoFactorEnable(c *gin.Context, d *internal.Deps) {
	user := middleware.CurrentUser(c)
	sess := middleware.CurrentSession(c)

	var data twoFactorEnableBody
	if err := c.ShouldBind(&data); err != nil {
		apierr.Abort(c, http.StatusBadRequest, apierr.Validation, "Code is required")
		return
	}

	if user.TotpEnabled {
		apierr.Abort(c, http.StatusConflict, apierr.Conflict, "Two-factor is already enabled")
		return
	}

	if user.TotpPendingSecret == "" {
		apierr.Abort(c, http.StatusConflict, apierr.Conflict, "No pending enrollment, call setup first")
		return
	}

	if !security.VerifyTOTP(data.Code, user.TotpPendingSecret) {
		apierr.Abort(c, http.StatusUnauthorized, apierr.InvalidCode, "Invalid two-factor code")
		return
	}

	err := d.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.User{}).
			Where("id = ?", user.ID).
			Updates(map[string]any{
				"totp_enabled":        true,
				"totp_secret":         user.TotpPendingSecret,
				"totp_pending_secret": "",
			}).
			Error
		if err != nil {
			return err
		}

		// Flushed before the response so the next request already
		// passes the gate
		return tx.Model(&model.Session{}).
			Where("id = ?", sess.ID).
			Update("two_factor_passed", true).
			Error
	})
	if err != nil {
		zap.L().Error("Failed to enable two-factor", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	if data.RememberDevice {
		if err := mintTrustedDevice(c, d.DB, user.ID); err != nil {
			zap.L().Warn("Failed to mint trusted device", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
