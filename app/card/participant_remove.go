package card

import (
	"net/http"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/pkg/apierr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ParticipantRemove unsubscribes a user from a card's notifications.
func ParticipantRemove(c *gin.Context, d *internal.Deps) {
	card, ok := fetchCard(c, d, c.Param("id"))
	if !ok {
		return
	}

	err := d.DB.Delete(&model.CardParticipant{}, "card_id = ? AND user_id = ?",
		card.ID, c.Param("userId")).Error
	if err != nil {
		zap.L().Error("Failed to remove participant", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
