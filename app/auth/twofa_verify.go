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
)

type twoFactorVerifyBody struct {
	Code           string `json:"code" binding:"required"`
	RememberDevice bool   `json:"rememberDevice"`
}

// TwoFactorVerify checks a code against the confirmed secret and marks
// the session two-factor-passed.
func TwoFactorVerify(c *gin.Context, d *internal.Deps) {
	user := middleware.CurrentUser(c)
	sess := middleware.CurrentSession(c)

	var data twoFactorVerifyBody
	if err := c.ShouldBind(&data); err != nil {
		apierr.Abort(c, http.StatusBadRequest, apierr.Validation, "Code is required")
		return
	}

	if !user.TotpEnabled {
		apierr.Abort(c, http.StatusConflict, apierr.Conflict, "Two-factor is not enabled")
		return
	}

	if !security.VerifyTOTP(data.Code, user.TotpSecret) {
		apierr.Abort(c, http.StatusUnauthorized, apierr.InvalidCode, "Invalid two-factor code")
		return
	}

	err := d.DB.Model(&model.Session{}).
		Where("id = ?", sess.ID).
		Update("two_factor_passed", true).
		Error
	if err != nil {
		zap.L().Error("Failed to update session", zap.Error(err))
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
