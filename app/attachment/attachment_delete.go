package attachment

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/pkg/apierr"
	"github.com/ioterra-ru/kanban/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// AttachmentDelete removes an attachment row and its file. Uploader or
// admin only.
func AttachmentDelete(c *gin.Context, d *internal.Deps) {
	user := middleware.CurrentUser(c)

	attachment, ok := fetchAttachment(c, d, c.Param("id"))
	if !ok {
		return
	}

	allowed := user.Role == model.RoleAdmin ||
		(attachment.AuthorID != nil && *attachment.AuthorID == user.ID)
	if !allowed {
		apierr.Abort(c, http.StatusForbidden, apierr.Forbidden,
			"Only the uploader or an admin can delete an attachment")
		return
	}

	if err := d.DB.Delete(&model.Attachment{}, "id = ?", attachment.ID).Error; err != nil {
		zap.L().Error("Failed to delete attachment", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	path := filepath.Join(viper.GetString("app.data_dir"), attachment.FilePath)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		zap.L().Warn("Failed to remove attachment file", zap.String("path", attachment.FilePath), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
