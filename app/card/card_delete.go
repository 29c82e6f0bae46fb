package card

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/internal/service"
	"github.com/ioterra-ru/kanban/pkg/apierr"
	"github.com/ioterra-ru/kanban/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// CardDelete removes a card, its comments, attachments and attachment
// files. Only the card author or an admin may do this.
func CardDelete(c *gin.Context, d *internal.Deps) {
	user := middleware.CurrentUser(c)

	card, ok := fetchCard(c, d, c.Param("id"))
	if !ok {
		return
	}

	if !canEditCard(user, card) {
		apierr.Abort(c, http.StatusForbidden, apierr.Forbidden,
			"Only the card author or an admin can delete a card")
		return
	}

	var attachments []model.Attachment
	err := d.DB.Where("card_id = ?", card.ID).Find(&attachments).Error
	if err != nil {
		zap.L().Error("Failed to load attachments", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	if err := service.DeleteCard(d.DB, card); err != nil {
		zap.L().Error("Failed to delete card", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	// Files go last so a failed transaction never leaves rows pointing at
	// nothing
	dataDir := viper.GetString("app.data_dir")
	for _, a := range attachments {
		if err := os.Remove(filepath.Join(dataDir, a.FilePath)); err != nil && !os.IsNotExist(err) {
			zap.L().Warn("Failed to remove attachment file", zap.String("path", a.FilePath), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
