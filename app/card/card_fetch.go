package card

import (
	"net/http"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/pkg/apierr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CardFetch returns a single card with its comments, attachments and
// participants.
func CardFetch(c *gin.Context, d *internal.Deps) {
	card, ok := fetchCard(c, d, c.Param("id"))
	if !ok {
		return
	}

	var comments []model.Comment
	err := d.DB.Where("card_id = ?", card.ID).Order("created_at asc").Find(&comments).Error
	if err != nil {
		zap.L().Error("Failed to load comments", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	var attachments []model.Attachment
	err = d.DB.Where("card_id = ?", card.ID).Order("created_at asc").Find(&attachments).Error
	if err != nil {
		zap.L().Error("Failed to load attachments", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	var participantIDs []string
	err = d.DB.Model(&model.CardParticipant{}).
		Where("card_id = ?", card.ID).
		Pluck("user_id", &participantIDs).
		Error
	if err != nil {
		zap.L().Error("Failed to load participants", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	if comments == nil {
		comments = []model.Comment{}
	}
	if attachments == nil {
		attachments = []model.Attachment{}
	}
	if participantIDs == nil {
		participantIDs = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"card":           card,
		"comments":       comments,
		"attachments":    attachments,
		"participantIds": participantIDs,
	})
}
