package auth

import (
	"errors"
	"net/http"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/pkg/apierr"
	"github.com/ioterra-ru/kanban/pkg/security"
	"github.com/ioterra-ru/kanban/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type passwordResetTotpBody struct {
	Login       string `json:"login" binding:"required"`
	TotpCode    string `json:"totpCode" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// PasswordResetByTotp lets accounts with two-factor already enabled
// reset their password with a currently valid code instead of mail
// access.
func PasswordResetByTotp(c *gin.Context, d *internal.Deps) {
	var data passwordResetTotpBody
	if err := c.ShouldBind(&data); err != nil {
		apierr.Abort(c, http.StatusBadRequest, apierr.Validation, "Login, code and new password are required")
		return
	}

	if err := validators.PasswordValidator(data.NewPassword); err != nil {
		apierr.AbortFields(c, http.StatusBadRequest, apierr.Validation, "Invalid new password",
			map[string]string{"newPassword": err.Error()})
		return
	}

	user, err := resolveLogin(d.DB, data.Login)
	if err != nil {
		if errors.Is(err, errAmbiguousLogin) {
			apierr.Abort(c, http.StatusConflict, apierr.AmbiguousLogin, "More than one account matches this name, use your email")
			return
		}

		apierr.Abort(c, http.StatusUnauthorized, apierr.InvalidCredentials, "Invalid credentials")
		return
	}

	if !user.TotpEnabled {
		apierr.Abort(c, http.StatusForbidden, apierr.Forbidden, "Two-factor is not enabled for this account")
		return
	}

	if !security.VerifyTOTP(data.TotpCode, user.TotpSecret) {
		apierr.Abort(c, http.StatusUnauthorized, apierr.InvalidCode, "Invalid two-factor code")
		return
	}

	err = d.DB.Transaction(func(tx *gorm.DB) error {
		return applyPasswordReset(tx, d, user.ID, data.NewPassword)
	})
	if err != nil {
		zap.L().Error("Failed to reset password", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
