package board

import (
	"errors"
	"net/http"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/internal/service"
	"github.com/ioterra-ru/kanban/pkg/apierr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BoardDelete removes a board and everything on it. The permanent
// default board is protected. Default boards of affected users fall
// back to their earliest remaining membership and sessions pointing at
// the board lose their selection.
func BoardDelete(c *gin.Context, d *internal.Deps) {
	id := c.Param("id")

	if id == model.DefaultBoardID {
		apierr.Abort(c, http.StatusConflict, apierr.Conflict, "The default board can't be deleted")
		return
	}

	var board model.Board
	err := d.DB.First(&board, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		apierr.Abort(c, http.StatusNotFound, apierr.NotFound, "Board not found")
		return
	}
	if err != nil {
		zap.L().Error("Failed to load board", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	err = d.DB.Transaction(func(tx *gorm.DB) error {
		// Reassign defaults before the membership rows disappear
		var memberships []model.BoardMembership
		if err := tx.Where("board_id = ?", id).Find(&memberships).Error; err != nil {
			return err
		}

		for _, m := range memberships {
			if err := tx.Delete(&model.BoardMembership{}, "id = ?", m.ID).Error; err != nil {
				return err
			}

			if err := service.ReassignDefaultBoard(tx, m.UserID, id); err != nil {
				return err
			}
		}

		// Admins can have the board as their default without a row
		err := tx.Model(&model.User{}).
			Where("default_board_id = ?", id).
			Update("default_board_id", nil).
			Error
		if err != nil {
			return err
		}

		err = tx.Model(&model.Session{}).
			Where("board_id = ?", id).
			Update("board_id", nil).
			Error
		if err != nil {
			return err
		}

		var cardIDs []string
		err = tx.Model(&model.Card{}).Where("board_id = ?", id).Pluck("id", &cardIDs).Error
		if err != nil {
			return err
		}

		if len(cardIDs) > 0 {
			if err := tx.Delete(&model.Comment{}, "card_id IN ?", cardIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&model.Attachment{}, "card_id IN ?", cardIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&model.CardParticipant{}, "card_id IN ?", cardIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&model.Card{}, "board_id = ?", id).Error; err != nil {
				return err
			}
		}

		return tx.Delete(&model.Board{}, "id = ?", id).Error
	})
	if err != nil {
		zap.L().Error("Failed to delete board", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
