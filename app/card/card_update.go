package card

import (
	"net/http"
	"time"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/pkg/apierr"
	"github.com/ioterra-ru/kanban/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type cardUpdateBody struct {
	Description *string    `json:"description"`
	Details     *string    `json:"details"`
	Importance  *string    `json:"importance"`
	Assignee    *string    `json:"assignee"`
	Paused      *bool      `json:"paused"`
	DueDate     *time.Time `json:"dueDate"`
	ClearDue    bool       `json:"clearDueDate"`
}

// CardUpdate edits a card's fields. Reassigning the card is reserved
// for its author and admins, everything else is open to any board
// member. Column and position never change here, moves go through the
// move endpoint.
func CardUpdate(c *gin.Context, d *internal.Deps) {
	user := middleware.CurrentUser(c)

	card, ok := fetchCard(c, d, c.Param("id"))
	if !ok {
		return
	}

	var data cardUpdateBody
	if err := c.ShouldBind(&data); err != nil {
		apierr.Abort(c, http.StatusBadRequest, apierr.Validation, "Invalid request body")
		return
	}

	updates := map[string]any{}

	if data.Description != nil {
		if *data.Description == "" {
			apierr.AbortFields(c, http.StatusBadRequest, apierr.Validation, "Invalid description",
				map[string]string{"description": "description can't be empty"})
			return
		}
		updates["description"] = *data.Description
	}

	if data.Details != nil {
		updates["details"] = *data.Details
	}

	if data.Importance != nil {
		imp := model.Importance(*data.Importance)
		if !model.ValidImportance(imp) {
			apierr.Abort(c, http.StatusBadRequest, apierr.Validation, "Unknown importance")
			return
		}
		updates["importance"] = imp
	}

	if data.Assignee != nil && *data.Assignee != card.Assignee {
		if !canEditCard(user, card) {
			apierr.Abort(c, http.StatusForbidden, apierr.Forbidden,
				"Only the card author or an admin can reassign a card")
			return
		}
		updates["assignee"] = *data.Assignee
	}

	if data.Paused != nil {
		updates["paused"] = *data.Paused
	}

	if data.ClearDue {
		updates["due_date"] = nil
	} else if data.DueDate != nil {
		updates["due_date"] = *data.DueDate
	}

	if len(updates) == 0 {
		c.JSON(http.StatusOK, card)
		return
	}

	err := d.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Card{}).Where("id = ?", card.ID).Updates(updates).Error; err != nil {
			return err
		}

		return addParticipant(tx, card.ID, user.ID)
	})
	if err != nil {
		zap.L().Error("Failed to update card", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	d.Notifier.NotifyCardEvent(d.DB, card.ID, user.ID, "updated")

	var fresh model.Card
	if err := d.DB.First(&fresh, "id = ?", card.ID).Error; err != nil {
		zap.L().Error("Failed to reload card", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, fresh)
}
