package board

import (
	"errors"
	"net/http"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/internal/service"
	"github.com/ioterra-ru/kanban/pkg/apierr"
	"github.com/ioterra-ru/kanban/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type boardSelectBody struct {
	BoardID string `json:"boardId" binding:"required"`
}

// BoardSelect switches the session's active board after the same
// membership check the board gate applies. The session row is flushed
// before the response so the next request sees the new context.
func BoardSelect(c *gin.Context, d *internal.Deps) {
	user := middleware.CurrentUser(c)
	sess := middleware.CurrentSession(c)

	var data boardSelectBody
	if err := c.ShouldBind(&data); err != nil {
		apierr.Abort(c, http.StatusBadRequest, apierr.Validation, "boardId is required")
		return
	}

	var board model.Board
	err := d.DB.First(&board, "id = ?", data.BoardID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		apierr.Abort(c, http.StatusNotFound, apierr.NotFound, "Board not found")
		return
	}
	if err != nil {
		zap.L().Error("Failed to load board", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	ok, err := service.CanAccessBoard(d.DB, user, board.ID)
	if err != nil {
		zap.L().Error("Membership check failed", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	if !ok {
		apierr.Abort(c, http.StatusForbidden, apierr.Forbidden, "Not a member of that board")
		return
	}

	err = d.DB.Model(&model.Session{}).
		Where("id = ?", sess.ID).
		Update("board_id", board.ID).
		Error
	if err != nil {
		zap.L().Error("Failed to update session", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"boardId": board.ID})
}
