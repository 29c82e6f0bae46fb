package auth

import (
	"net/http"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/pkg/apierr"
	"github.com/ioterra-ru/kanban/pkg/middleware"
	"github.com/ioterra-ru/kanban/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// TwoFactorSetup generates a pending secret and returns the otpauth URI
// for the client to render. Enrollment isn't done until the pending
// secret is confirmed with a valid code.
func TwoFactorSetup(c *gin.Context, d *internal.Deps) {
	user := middleware.CurrentUser(c)

	if user.TotpEnabled {
		apierr.Abort(c, http.StatusConflict, apierr.Conflict, "Two-factor is already enabled")
		return
	}

	secret, uri, err := security.GenerateTOTP(viper.GetString("host.domain"), user.Email)
	if err != nil {
		zap.L().Error("Failed to generate TOTP secret", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	err = d.DB.Model(&model.User{}).
		Where("id = ?", user.ID).
		Update("totp_pending_secret", secret).
		Error
	if err != nil {
		zap.L().Error("Failed to store pending TOTP secret", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"secret": secret,
		"uri":    uri,
	})
}
