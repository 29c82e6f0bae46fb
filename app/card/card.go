// Package card implements the card endpoints of the board API. Every
// handler is scoped to the session's active board, a card on another
// board is reported as missing.
package card

import (
	"errors"
	"net/http"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/pkg/apierr"
	"github.com/ioterra-ru/kanban/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fetchCard loads a card from the active board. A card that exists on a
// different board looks exactly like one that doesn't exist at all.
func fetchCard(c *gin.Context, d *internal.Deps, id string) (*model.Card, bool) {
	boardID := middleware.BoardID(c)

	var card model.Card
	err := d.DB.First(&card, "id = ? AND board_id = ?", id, boardID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		apierr.Abort(c, http.StatusNotFound, apierr.NotFound, "Card not found")
		return nil, false
	}
	if err != nil {
		zap.L().Error("Failed to load card", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return nil, false
	}

	return &card, true
}

// canEditCard reports whether the user may touch ownership-gated parts
// of a card, its assignee and its existence.
func canEditCard(user *model.User, card *model.Card) bool {
	if user.Role == model.RoleAdmin {
		return true
	}
	return card.AuthorID != nil && *card.AuthorID == user.ID
}

// addParticipant makes a user a participant of a card, ignoring
// duplicates.
func addParticipant(tx *gorm.DB, cardID, userID string) error {
	var count int64
	err := tx.Model(&model.CardParticipant{}).
		Where("card_id = ? AND user_id = ?", cardID, userID).
		Count(&count).
		Error
	if err != nil || count > 0 {
		return err
	}

	return tx.Create(&model.CardParticipant{CardID: cardID, UserID: userID}).Error
}
