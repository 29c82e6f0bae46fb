package card

import (
	"net/http"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/pkg/apierr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type participantBody struct {
	UserID string `json:"userId" binding:"required"`
}

// ParticipantAdd subscribes a user to a card's notifications.
func ParticipantAdd(c *gin.Context, d *internal.Deps) {
	card, ok := fetchCard(c, d, c.Param("id"))
	if !ok {
		return
	}

	var data participantBody
	if err := c.ShouldBind(&data); err != nil {
		apierr.Abort(c, http.StatusBadRequest, apierr.Validation, "userId is required")
		return
	}

	var count int64
	err := d.DB.Model(&model.User{}).Where("id = ?", data.UserID).Count(&count).Error
	if err != nil {
		zap.L().Error("Failed to check user", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	if count == 0 {
		apierr.Abort(c, http.StatusNotFound, apierr.NotFound, "User not found")
		return
	}

	if err := addParticipant(d.DB, card.ID, data.UserID); err != nil {
		zap.L().Error("Failed to add participant", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
