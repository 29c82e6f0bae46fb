package comment

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

// CommentDelete removes a comment. Author or admin only.
func CommentDelete(c *gin.Context, d *internal.Deps) {
	user := middleware.CurrentUser(c)

	comment, ok := fetchComment(c, d, c.Param("id"))
	if !ok {
		return
	}

	if !canEditComment(user, comment) {
		apierr.Abort(c, http.StatusForbidden, apierr.Forbidden,
			"Only the comment author or an admin can delete a comment")
		return
	}

	if err := d.DB.Delete(&model.Comment{}, "id = ?", comment.ID).Error; err != nil {
		zap.L().Error("Failed to delete comment", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// fetchComment loads a comment whose card lives on the active board.
// Comments reachable only through another board read as missing.
func fetchComment(c *gin.Context, d *internal.Deps, id string) (*model.Comment, bool) {
	boardID := middleware.BoardID(c)

	var comment model.Comment
	err := d.DB.
		Joins("JOIN cards ON cards.id = comments.card_id").
		Where("comments.id = ? AND cards.board_id = ?", id, boardID).
		First(&comment).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		apierr.Abort(c, http.StatusNotFound, apierr.NotFound, "Comment not found")
		return nil, false
	}
	if err != nil {
		zap.L().Error("Failed to load comment", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return nil, false
	}

	return &comment, true
}

func canEditComment(user *model.User, comment *model.Comment) bool {
	if user.Role == model.RoleAdmin {
		return true
	}
	return comment.AuthorID != nil && *comment.AuthorID == user.ID
}
