package auth

import (
	"errors"
	"net/http"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/pkg/apierr"
	"github.com/ioterra-ru/kanban/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type loginBody struct {
	Login          string `json:"login" binding:"required"`
	Password       string `json:"password" binding:"required"`
	TotpCode       string `json:"totpCode"`
	RememberDevice bool   `json:"rememberDevice"`
}

// Login exchanges credentials (and optionally a TOTP code or a trusted
// device cookie) for a session. Unknown identifier and wrong password
// answer identically so names can't be probed.
func Login(c *gin.Context, d *internal.Deps) {
	var data loginBody
	if err := c.ShouldBind(&data); err != nil {
		apierr.Abort(c, http.StatusBadRequest, apierr.Validation, "Login and password are required")
		return
	}

	user, err := resolveLogin(d.DB, data.Login)
	if err != nil {
		if errors.Is(err, errAmbiguousLogin) {
			apierr.Abort(c, http.StatusConflict, apierr.AmbiguousLogin, "More than one account matches this name, log in with your email")
			return
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			apierr.Abort(c, http.StatusUnauthorized, apierr.InvalidCredentials, "Invalid credentials")
			return
		}

		zap.L().Error("Failed to resolve login", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	ok, err := d.Argon.VerifyPasswd(data.Password, user.PasswordHash)
	if err != nil {
		zap.L().Error("Failed to verify password", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	if !ok {
		apierr.Abort(c, http.StatusUnauthorized, apierr.InvalidCredentials, "Invalid credentials")
		return
	}

	// Resolve the two-factor state before the session is written so the
	// record never needs a second flush
	passed := false
	badCode := false
	mintDevice := false

	if user.TotpEnabled {
		if data.TotpCode != "" {
			if security.VerifyTOTP(data.TotpCode, user.TotpSecret) {
				passed = true
				mintDevice = data.RememberDevice
			} else {
				badCode = true
			}
		} else if checkTrustedDevice(c, d.DB, user.ID) {
			passed = true
		}
	}

	sess, err := createSession(d.DB, user, passed)
	if err != nil {
		zap.L().Error("Failed to create session", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	setSessionCookie(c, sess)

	if user.TotpEnabled && !passed {
		if badCode {
			apierr.Abort(c, http.StatusUnauthorized, apierr.InvalidCode, "Invalid two-factor code")
			return
		}

		apierr.Abort(c, http.StatusUnauthorized, apierr.TwoFactorRequired, "Two-factor verification required")
		return
	}

	if mintDevice {
		if err := mintTrustedDevice(c, d.DB, user.ID); err != nil {
			zap.L().Warn("Failed to mint trusted device", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, userSummary(user, sess))
}
