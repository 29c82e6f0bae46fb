// Package board implements board lifecycle, selection and the active
// board summary
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

// BoardList returns every board for admins, annotated with member ids.
// Members only see the boards they belong to, without the member lists.
func BoardList(c *gin.Context, d *internal.Deps) {
	user := middleware.CurrentUser(c)

	if user.Role == model.RoleAdmin {
		var boards []model.Board
		if err := d.DB.Order("created_at asc").Find(&boards).Error; err != nil {
			zap.L().Error("Failed to list boards", zap.Error(err))
			apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
			return
		}

		var memberships []model.BoardMembership
		if err := d.DB.Order("id asc").Find(&memberships).Error; err != nil {
			zap.L().Error("Failed to list memberships", zap.Error(err))
			apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
			return
		}

		membersByBoard := make(map[string][]string)
		for _, m := range memberships {
			membersByBoard[m.BoardID] = append(membersByBoard[m.BoardID], m.UserID)
		}

		out := make([]gin.H, 0, len(boards))
		for _, b := range boards {
			memberIDs := membersByBoard[b.ID]
			if memberIDs == nil {
				memberIDs = []string{}
			}

			out = append(out, gin.H{
				"id":          b.ID,
				"name":        b.Name,
				"description": b.Description,
				"memberIds":   memberIDs,
			})
		}

		c.JSON(http.StatusOK, gin.H{"boards": out})
		return
	}

	var boards []model.Board
	err := d.DB.
		Joins("JOIN board_memberships ON board_memberships.board_id = boards.id").
		Where("board_memberships.user_id = ?", user.ID).
		Order("boards.created_at asc").
		Find(&boards).
		Error
	if err != nil {
		zap.L().Error("Failed to list boards", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	out := make([]gin.H, 0, len(boards))
	for _, b := range boards {
		out = append(out, gin.H{
			"id":          b.ID,
			"name":        b.Name,
			"description": b.Description,
		})
	}

	c.JSON(http.StatusOK, gin.H{"boards": out})
}
