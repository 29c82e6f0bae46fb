package auth

import (
	"net/http"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func Logout(c *gin.Context, d *internal.Deps) {
	sess := middleware.CurrentSession(c)

	if err := d.DB.Delete(sess).Error; err != nil {
		zap.L().Error("Failed to delete session", zap.Error(err))
	}

	clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
