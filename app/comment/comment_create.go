// Package comment implements comments on cards. Comments live under a
// card and inherit its board scoping, editing and deleting are
// restricted to the comment author and admins.
package comment

import (
	"errors"
	"net/http"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/pkg/apierr"
	"github.com/ioterra-ru/kanban/pkg/middleware"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type commentBody struct {
	Body string `json:"body" binding:"required"`
}

// CommentCreate adds a comment to a card and subscribes the author to
// the card's notifications.
func CommentCreate(c *gin.Context, d *internal.Deps) {
	user := middleware.CurrentUser(c)
	boardID := middleware.BoardID(c)

	var card model.Card
	err := d.DB.First(&card, "id = ? AND board_id = ?", c.Param("id"), boardID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		apierr.Abort(c, http.StatusNotFound, apierr.NotFound, "Card not found")
		return
	}
	if err != nil {
		zap.L().Error("Failed to load card", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	var data commentBody
	if err := c.ShouldBind(&data); err != nil {
		apierr.Abort(c, http.StatusBadRequest, apierr.Validation, "Body is required")
		return
	}

	id, err := gonanoid.New()
	if err != nil {
		zap.L().Error("Failed to generate comment ID", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	comment := model.Comment{
		ID:       id,
		CardID:   card.ID,
		AuthorID: &user.ID,
		Body:     data.Body,
	}

	err = d.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}

		var count int64
		err := tx.Model(&model.CardParticipant{}).
			Where("card_id = ? AND user_id = ?", card.ID, user.ID).
			Count(&count).
			Error
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		return tx.Create(&model.CardParticipant{CardID: card.ID, UserID: user.ID}).Error
	})
	if err != nil {
		zap.L().Error("Failed to create comment", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	d.Notifier.NotifyCardEvent(d.DB, card.ID, user.ID, "commented")

	c.JSON(http.StatusCreated, comment)
}
