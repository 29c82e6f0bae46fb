package board

import (
	"net/http"
	"strings"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/pkg/apierr"
	"github.com/ioterra-ru/kanban/pkg/middleware"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type boardCreateBody struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	MemberIDs   []string `json:"memberIds"`
}

// BoardCreate makes a board. The creator always ends up in the member
// list even when omitted from the request.
func BoardCreate(c *gin.Context, d *internal.Deps) {
	user := middleware.CurrentUser(c)

	var data boardCreateBody
	if err := c.ShouldBind(&data); err != nil {
		apierr.Abort(c, http.StatusBadRequest, apierr.Validation, "Name is required")
		return
	}

	name := strings.TrimSpace(data.Name)
	if name == "" {
		apierr.AbortFields(c, http.StatusBadRequest, apierr.Validation, "Invalid name",
			map[string]string{"name": "name can't be empty"})
		return
	}

	id, err := gonanoid.New()
	if err != nil {
		zap.L().Error("Failed to generate board ID", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	memberIDs := dedupWith(data.MemberIDs, user.ID)

	board := model.Board{
		ID:          id,
		Name:        name,
		Description: data.Description,
	}

	err = d.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&board).Error; err != nil {
			return err
		}

		for _, userID := range memberIDs {
			err := tx.Create(&model.BoardMembership{BoardID: board.ID, UserID: userID}).Error
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		zap.L().Error("Failed to create board", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":          board.ID,
		"name":        board.Name,
		"description": board.Description,
		"memberIds":   memberIDs,
	})
}

// dedupWith removes duplicates and guarantees required is present.
func dedupWith(ids []string, required string) []string {
	seen := map[string]bool{required: true}
	out := []string{required}

	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}

	return out
}
