package board

import (
	"net/http"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/pkg/apierr"
	"github.com/ioterra-ru/kanban/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BoardSummary returns the active board with its cards grouped into the
// fixed workflow columns, each ordered by position.
func BoardSummary(c *gin.Context, d *internal.Deps) {
	boardID := middleware.BoardID(c)

	var board model.Board
	if err := d.DB.First(&board, "id = ?", boardID).Error; err != nil {
		zap.L().Error("Failed to load board", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	var cards []model.Card
	err := d.DB.
		Where("board_id = ?", boardID).
		Order("stage asc, position asc").
		Find(&cards).
		Error
	if err != nil {
		zap.L().Error("Failed to load cards", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	byColumn := make(map[model.Column][]model.Card, len(model.Columns))
	for _, card := range cards {
		byColumn[card.Column] = append(byColumn[card.Column], card)
	}

	columns := make([]gin.H, 0, len(model.Columns))
	for _, col := range model.Columns {
		colCards := byColumn[col]
		if colCards == nil {
			colCards = []model.Card{}
		}

		columns = append(columns, gin.H{
			"column": col,
			"cards":  colCards,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"board":   board,
		"columns": columns,
	})
}
