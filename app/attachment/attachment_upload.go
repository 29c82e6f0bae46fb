// Package attachment implements file attachments on cards. Payloads
// are stored on local disk under the data dir, the database only keeps
// the metadata row.
package attachment

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/pkg/apierr"
	"github.com/ioterra-ru/kanban/pkg/middleware"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AttachmentUpload stores an uploaded file under the card. The file is
// written first and removed again if the metadata row can't be created.
func AttachmentUpload(c *gin.Context, d *internal.Deps) {
	user := middleware.CurrentUser(c)
	boardID := middleware.BoardID(c)

	var card model.Card
	err := d.DB.First(&card, "id = ? AND board_id = ?", c.Param("id"), boardID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		apierr.Abort(c, http.StatusNotFound, apierr.NotFound, "Card not found")
		return
	}
	if err != nil {
		zap.L().Error("Failed to load card", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		apierr.Abort(c, http.StatusBadRequest, apierr.Validation, "No file in request")
		return
	}

	if file.Size > viper.GetInt64("upload.attachment_max_size") {
		apierr.Abort(c, http.StatusRequestEntityTooLarge, apierr.Validation, "File too large")
		return
	}

	id, err := gonanoid.New()
	if err != nil {
		zap.L().Error("Failed to generate attachment ID", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	name := filepath.Base(file.Filename)
	relPath := filepath.Join("attachments", id+"_"+name)
	dataDir := viper.GetString("app.data_dir")
	absPath := filepath.Join(dataDir, relPath)

	if err := os.MkdirAll(filepath.Dir(absPath), 0o750); err != nil {
		zap.L().Error("Failed to create attachment dir", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	if err := c.SaveUploadedFile(file, absPath); err != nil {
		zap.L().Error("Failed to store attachment", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	attachment := model.Attachment{
		ID:       id,
		CardID:   card.ID,
		AuthorID: &user.ID,
		FileName: name,
		FilePath: relPath,
		Size:     file.Size,
		MimeType: file.Header.Get("Content-Type"),
	}

	if err := d.DB.Create(&attachment).Error; err != nil {
		os.Remove(absPath)
		zap.L().Error("Failed to create attachment row", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	c.JSON(http.StatusCreated, attachment)
}
