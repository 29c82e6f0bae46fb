package auth

import (
	"net/http"
	"time"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/pkg/middleware"
	"github.com/ioterra-ru/kanban/pkg/security"

	"github.com/gin-gonic/gin"
)

// Me reports the session state instead of requiring one, so clients can
// decide which screen to show after a reload.
func Me(c *gin.Context, d *internal.Deps) {
	tokenStr, err := c.Cookie(middleware.SessionCookie)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}

	sid, err := security.ParseSessionID(tokenStr)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}

	var sess model.Session
	if err := d.DB.First(&sess, "id = ?", sid).Error; err != nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}

	if time.Now().After(sess.ExpiresAt) {
		d.DB.Delete(&sess)
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}

	var user model.User
	if err := d.DB.First(&user, "id = ?", sess.UserID).Error; err != nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}

	state := "ok"
	switch {
	case user.MustChangePassword:
		state = "must_change_password"
	case !user.TotpEnabled:
		state = "two_factor_setup_required"
	case !sess.TwoFactorPassed:
		state = "two_factor_required"
	}

	out := userSummary(&user, &sess)
	out["authenticated"] = true
	out["state"] = state

	c.JSON(http.StatusOK, out)
}
