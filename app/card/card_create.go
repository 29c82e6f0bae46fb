package card

import (
	"net/http"
	"time"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/internal/service"
	"github.com/ioterra-ru/kanban/pkg/apierr"
	"github.com/ioterra-ru/kanban/pkg/middleware"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type cardCreateBody struct {
	Description string     `json:"description" binding:"required"`
	Details     string     `json:"details"`
	Column      string     `json:"column"`
	Importance  string     `json:"importance"`
	Assignee    string     `json:"assignee"`
	DueDate     *time.Time `json:"dueDate"`
}

// CardCreate appends a new card to the bottom of a column. The creator
// becomes its author and first participant.
func CardCreate(c *gin.Context, d *internal.Deps) {
	user := middleware.CurrentUser(c)
	boardID := middleware.BoardID(c)

	var data cardCreateBody
	if err := c.ShouldBind(&data); err != nil {
		apierr.Abort(c, http.StatusBadRequest, apierr.Validation, "Description is required")
		return
	}

	col := model.ColumnBacklog
	if data.Column != "" {
		col = model.Column(data.Column)
		if !model.ValidColumn(col) {
			apierr.Abort(c, http.StatusBadRequest, apierr.Validation, "Unknown column")
			return
		}
	}

	importance := model.ImportanceMedium
	if data.Importance != "" {
		importance = model.Importance(data.Importance)
		if !model.ValidImportance(importance) {
			apierr.Abort(c, http.StatusBadRequest, apierr.Validation, "Unknown importance")
			return
		}
	}

	id, err := gonanoid.New()
	if err != nil {
		zap.L().Error("Failed to generate card ID", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	card := model.Card{
		ID:          id,
		BoardID:     boardID,
		Description: data.Description,
		Details:     data.Details,
		Assignee:    data.Assignee,
		DueDate:     data.DueDate,
		Column:      col,
		Importance:  importance,
		AuthorID:    &user.ID,
	}

	err = d.DB.Transaction(func(tx *gorm.DB) error {
		pos, err := service.AppendPosition(tx, boardID, col)
		if err != nil {
			return err
		}
		card.Position = pos

		if err := tx.Create(&card).Error; err != nil {
			return err
		}

		return addParticipant(tx, card.ID, user.ID)
	})
	if err != nil {
		zap.L().Error("Failed to create card", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	c.JSON(http.StatusCreated, card)
}
