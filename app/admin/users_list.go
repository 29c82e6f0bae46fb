// Package admin implements user management, available to admins only
package admin

import (
	"net/http"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/pkg/apierr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UsersList returns every account together with its board-access
// matrix.
func UsersList(c *gin.Context, d *internal.Deps) {
	var users []model.User
	if err := d.DB.Order("created_at asc").Find(&users).Error; err != nil {
		zap.L().Error("Failed to list users", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	var memberships []model.BoardMembership
	if err := d.DB.Order("id asc").Find(&memberships).Error; err != nil {
		zap.L().Error("Failed to list memberships", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	boardsByUser := make(map[string][]string)
	for _, m := range memberships {
		boardsByUser[m.UserID] = append(boardsByUser[m.UserID], m.BoardID)
	}

	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		boardIDs := boardsByUser[u.ID]
		if boardIDs == nil {
			boardIDs = []string{}
		}

		out = append(out, gin.H{
			"id":                 u.ID,
			"email":              u.Email,
			"name":               u.Name,
			"role":               u.Role,
			"isSystem":           u.IsSystem,
			"totpEnabled":        u.TotpEnabled,
			"mustChangePassword": u.MustChangePassword,
			"defaultBoardId":     u.DefaultBoardID,
			"boardIds":           boardIDs,
			"createdAt":          u.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"users": out})
}
