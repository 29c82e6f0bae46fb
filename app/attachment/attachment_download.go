package attachment

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/pkg/apierr"
	"github.com/ioterra-ru/kanban/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AttachmentDownload streams an attachment's payload with its original
// file name.
func AttachmentDownload(c *gin.Context, d *internal.Deps) {
	attachment, ok := fetchAttachment(c, d, c.Param("id"))
	if !ok {
		return
	}

	path := filepath.Join(viper.GetString("app.data_dir"), attachment.FilePath)
	c.FileAttachment(path, attachment.FileName)
}

// fetchAttachment loads an attachment whose card lives on the active
// board.
func fetchAttachment(c *gin.Context, d *internal.Deps, id string) (*model.Attachment, bool) {
	boardID := middleware.BoardID(c)

	var attachment model.Attachment
	err := d.DB.
		Joins("JOIN cards ON cards.id = attachments.card_id").
		Where("attachments.id = ? AND cards.board_id = ?", id, boardID).
		First(&attachment).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		apierr.Abort(c, http.StatusNotFound, apierr.NotFound, "Attachment not found")
		return nil, false
	}
	if err != nil {
		zap.L().Error("Failed to load attachment", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return nil, false
	}

	return &attachment, true
}
