package board

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/internal/service"
	"github.com/ioterra-ru/kanban/pkg/apierr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type boardUpdateBody struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	MemberIDs   *[]string `json:"memberIds"`
}

// BoardUpdate edits a board. When the member list changes, users who
// lost the board as their default get moved to their earliest remaining
// membership.
func BoardUpdate(c *gin.Context, d *internal.Deps) {
	var board model.Board
	err := d.DB.First(&board, "id = ?", c.Param("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		apierr.Abort(c, http.StatusNotFound, apierr.NotFound, "Board not found")
		return
	}
	if err != nil {
		zap.L().Error("Failed to load board", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	var data boardUpdateBody
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

	if data.Description != nil {
		updates["description"] = *data.Description
	}

	err = d.DB.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			err := tx.Model(&model.Board{}).Where("id = ?", board.ID).Updates(updates).Error
			if err != nil {
				return err
			}
		}

		if data.MemberIDs != nil {
			return service.SyncBoardMembers(tx, board.ID, *data.MemberIDs)
		}

		return nil
	})
	if err != nil {
		zap.L().Error("Failed to update board", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
