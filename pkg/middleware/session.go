package middleware

import (
	"net/http"
	"time"

	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/pkg/apierr"
	"github.com/ioterra-ru/kanban/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// SessionCookie carries the signed id of the server-side session row
	SessionCookie = "kanban_session"
	// DeviceCookie carries the raw trusted-device token, hashed at rest
	DeviceCookie = "kanban_device"

	ctxUser    = "currentUser"
	ctxSession = "currentSession"
	ctxBoardID = "boardID"
)

// NewSessionMiddleware resolves the session cookie into a live session
// row plus its user and stores both in the request context. It only
// guarantees "authenticated"; the two-factor and password states are
// enforced separately so the precedence order stays in one place.
func NewSessionMiddleware(d *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := c.Cookie(SessionCookie)
		if err != nil {
			apierr.Abort(c, http.StatusUnauthorized, apierr.Unauthorized, "Not logged in")
			return
		}

		sid, err := security.ParseSessionID(tokenStr)
		if err != nil {
			apierr.Abort(c, http.StatusUnauthorized, apierr.Unauthorized, "Invalid session")
			return
		}

		var sess model.Session
		if err := d.First(&sess, "id = ?", sid).Error; err != nil {
			apierr.Abort(c, http.StatusUnauthorized, apierr.Unauthorized, "Session no longer valid")
			return
		}

		if time.Now().After(sess.ExpiresAt) {
			if err := d.Delete(&sess).Error; err != nil {
				zap.L().Error("Failed to delete expired session", zap.Error(err))
			}

			apierr.Abort(c, http.StatusUnauthorized, apierr.Unauthorized, "Session expired")
			return
		}

		var user model.User
		if err := d.First(&user, "id = ?", sess.UserID).Error; err != nil {
			apierr.Abort(c, http.StatusUnauthorized, apierr.Unauthorized, "Session no longer valid")
			return
		}

		c.Set(ctxUser, &user)
		c.Set(ctxSession, &sess)
		c.Set("userID", user.ID)
		c.Next()
	}
}

// RequireCompleteAuth enforces the auth state precedence:
// must-change-password > must-setup-2FA > must-verify-2FA > authorized.
// Each incomplete state gets its own error kind so clients can route to
// the right flow.
func RequireCompleteAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		sess := CurrentSession(c)

		switch {
		case user.MustChangePassword:
			apierr.Abort(c, http.StatusForbidden, apierr.MustChangePassword, "Password must be changed first")
		case !user.TotpEnabled:
			apierr.Abort(c, http.StatusForbidden, apierr.TwoFactorSetupRequired, "Two-factor enrollment required")
		case !sess.TwoFactorPassed:
			apierr.Abort(c, http.StatusUnauthorized, apierr.TwoFactorRequired, "Two-factor verification required")
		default:
			c.Next()
		}
	}
}

// RequirePasswordOK blocks only users stuck on a temporary password,
// letting the two-factor endpoints themselves through.
func RequirePasswordOK() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c).MustChangePassword {
			apierr.Abort(c, http.StatusForbidden, apierr.MustChangePassword, "Password must be changed first")
			return
		}

		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c).Role != model.RoleAdmin {
			apierr.Abort(c, http.StatusForbidden, apierr.Forbidden, "Admin role required")
			return
		}

		c.Next()
	}
}

func CurrentUser(c *gin.Context) *model.User {
	return c.MustGet(ctxUser).(*model.User)
}

func CurrentSession(c *gin.Context) *model.Session {
	return c.MustGet(ctxSession).(*model.Session)
}

// BoardID returns the active board id resolved by the board gate.
func BoardID(c *gin.Context) string {
	return c.GetString(ctxBoardID)
}
