package comment

import (
	"net/http"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/pkg/apierr"
	"github.com/ioterra-ru/kanban/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CommentUpdate edits a comment's body. Author or admin only.
func CommentUpdate(c *gin.Context, d *internal.Deps) {
	user := middleware.CurrentUser(c)

	comment, ok := fetchComment(c, d, c.Param("id"))
	if !ok {
		return
	}

	if !canEditComment(user, comment) {
		apierr.Abort(c, http.StatusForbidden, apierr.Forbidden,
			"Only the comment author or an admin can edit a comment")
		return
	}

	var data commentBody
	if err := c.ShouldBind(&data); err != nil {
		apierr.Abort(c, http.StatusBadRequest, apierr.Validation, "Body is required")
		return
	}

	err := d.DB.Model(&model.Comment{}).
		Where("id = ?", comment.ID).
		Update("body", data.Body).
		Error
	if err != nil {
		zap.L().Error("Failed to update comment", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	comment.Body = data.Body
	c.JSON(http.StatusOK, comment)
}
