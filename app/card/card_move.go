package card

import (
	"net/http"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/internal/service"
	"github.com/ioterra-ru/kanban/pkg/apierr"
	"github.com/ioterra-ru/kanban/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type cardMoveBody struct {
	Column string `json:"column" binding:"required"`
	Index  int    `json:"index"`
}

// CardMove places a card at an index within a column. Out-of-range
// indexes are clamped rather than rejected, so "move to the bottom" is
// simply a large index.
func CardMove(c *gin.Context, d *internal.Deps) {
	user := middleware.CurrentUser(c)

	card, ok := fetchCard(c, d, c.Param("id"))
	if !ok {
		return
	}

	var data cardMoveBody
	if err := c.ShouldBind(&data); err != nil {
		apierr.Abort(c, http.StatusBadRequest, apierr.Validation, "Column is required")
		return
	}

	target := model.Column(data.Column)
	if !model.ValidColumn(target) {
		apierr.Abort(c, http.StatusBadRequest, apierr.Validation, "Unknown column")
		return
	}

	moved, err := service.MoveCard(d.DB, card, target, data.Index)
	if err != nil {
		zap.L().Error("Failed to move card", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	if moved {
		d.Notifier.NotifyCardEvent(d.DB, card.ID, user.ID, "moved to "+string(target))
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       card.ID,
		"column":   card.Column,
		"position": card.Position,
		"moved":    moved,
	})
}
