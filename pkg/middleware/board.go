package middleware

import (
	"net/http"

	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/internal/service"
	"github.com/ioterra-ru/kanban/pkg/apierr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewBoardMiddleware resolves the session's selected board and gates
// access on it. Admins may act on any board; everyone else needs a
// membership row. Runs after the full auth chain.
func NewBoardMiddleware(d *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := CurrentSession(c)
		user := CurrentUser(c)

		if sess.BoardID == nil {
			apierr.Abort(c, http.StatusBadRequest, apierr.BoardNotSelected, "No board selected")
			return
		}

		var count int64
		err := d.Model(&model.Board{}).Where("id = ?", *sess.BoardID).Count(&count).Error
		if err != nil {
			zap.L().Error("Board lookup failed", zap.Error(err))
			apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
			return
		}

		if count == 0 {
			apierr.Abort(c, http.StatusBadRequest, apierr.BoardNotSelected, "Selected board no longer exists")
			return
		}

		ok, err := service.CanAccessBoard(d, user, *sess.BoardID)
		if err != nil {
			zap.L().Error("Membership check failed", zap.Error(err))
			apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
			return
		}

		if !ok {
			apierr.Abort(c, http.StatusForbidden, apierr.Forbidden, "Not a member of the selected board")
			return
		}

		c.Set(ctxBoardID, *sess.BoardID)
		c.Next()
	}
}
