package card

import (
	"net/http"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/pkg/apierr"
	"github.com/ioterra-ru/kanban/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CardList returns every card on the active board, optionally filtered
// to one column, ordered by position.
func CardList(c *gin.Context, d *internal.Deps) {
	boardID := middleware.BoardID(c)

	q := d.DB.Where("board_id = ?", boardID)

	if col := c.Query("column"); col != "" {
		if !model.ValidColumn(model.Column(col)) {
			apierr.Abort(c, http.StatusBadRequest, apierr.Validation, "Unknown column")
			return
		}
		q = q.Where("stage = ?", col)
	}

	var cards []model.Card
	if err := q.Order("stage asc, position asc").Find(&cards).Error; err != nil {
		zap.L().Error("Failed to list cards", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, cards)
}
