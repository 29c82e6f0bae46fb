package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/pkg/apierr"
	"github.com/ioterra-ru/kanban/pkg/security"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const resetTokenTTL = time.Hour

type passwordForgotBody struct {
	Login string `json:"login" binding:"required"`
}

// PasswordForgot mails a single-use reset link. It answers ok no matter
// what so account identifiers can't be enumerated, and only does any
// work when a mail transport is configured.
func PasswordForgot(c *gin.Context, d *internal.Deps) {
	var data passwordForgotBody
	if err := c.ShouldBind(&data); err != nil {
		apierr.Abort(c, http.StatusBadRequest, apierr.Validation, "Login is required")
		return
	}

	if !d.Mailer.Configured() {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	user, err := resolveLogin(d.DB, data.Login)
	if err != nil {
		// Same answer as success, on purpose
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	raw, err := security.GenerateToken(32)
	if err != nil {
		zap.L().Error("Failed to generate reset token", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	id, err := gonanoid.New()
	if err != nil {
		zap.L().Error("Failed to generate token id", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	token := model.PasswordResetToken{
		ID:        id,
		UserID:    user.ID,
		TokenHash: security.HashToken(raw),
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}

	if err := d.DB.Create(&token).Error; err != nil {
		zap.L().Error("Failed to store reset token", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	scheme := "http"
	if viper.GetBool("host.ssl_enabled") {
		scheme = "https"
	}

	link := fmt.Sprintf("%s://%s/reset-password?token=%s", scheme, viper.GetString("host.domain"), raw)

	err = d.Mailer.Send([]string{user.Email}, "Reset your Kanban password",
		fmt.Sprintf("Click <a href='%s'>here</a> to reset your password.<br>This link expires in one hour.", link))
	if err != nil {
		zap.L().Error("Failed to send reset mail", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
