package auth

import (
	"net/http"
	"strings"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/internal/service"
	"github.com/ioterra-ru/kanban/pkg/apierr"
	"github.com/ioterra-ru/kanban/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type profileUpdateBody struct {
	Name           *string `json:"name"`
	DefaultBoardID *string `json:"defaultBoardId"`
}

func ProfileUpdate(c *gin.Context, d *internal.Deps) {
	user := middleware.CurrentUser(c)

	var data profileUpdateBody
	if err := c.ShouldBind(&data); err != nil {
		apierr.Abort(c, http.StatusBadRequest, apierr.Validation, "Invalid request body")
		return
	}

	updates := map[string]any{}

	if data.Name != nil {
		name := strings.TrimSpace(*data.Name)
		if name == "" {
			apierr.AbortFields(c, http.StatusBadRequest, apierr.Validation, "Invalid name",
				map[string]string{"name": "name can't be empty"})
			return
		}
		updates["name"] = name
	}

	if data.DefaultBoardID != nil {
		ok, err := canUseDefaultBoard(d, user, *data.DefaultBoardID)
		if err != nil {
			zap.L().Error("Failed to check board access", zap.Error(err))
			apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
			return
		}
		if !ok {
			apierr.Abort(c, http.StatusForbidden, apierr.Forbidden, "Not a member of that board")
			return
		}
		updates["default_board_id"] = *data.DefaultBoardID
	}

	if len(updates) == 0 {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	err := d.DB.Model(&model.User{}).Where("id = ?", user.ID).Updates(updates).Error
	if err != nil {
		zap.L().Error("Failed to update profile", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func canUseDefaultBoard(d *internal.Deps, user *model.User, boardID string) (bool, error) {
	var count int64
	if err := d.DB.Model(&model.Board{}).Where("id = ?", boardID).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, nil
	}

	return service.CanAccessBoard(d.DB, user, boardID)
}
