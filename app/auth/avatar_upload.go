package auth

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/pkg/apierr"
	"github.com/ioterra-ru/kanban/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var avatarExt = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// AvatarUpload stores a bounded, MIME-restricted profile image under
// the data dir. Size and type are rejected before anything is written.
func AvatarUpload(c *gin.Context, d *internal.Deps) {
	user := middleware.CurrentUser(c)

	file, err := c.FormFile("file")
	if err != nil {
		apierr.Abort(c, http.StatusBadRequest, apierr.Validation, "No file provided")
		return
	}

	if file.Size > viper.GetInt64("upload.avatar_max_size") {
		apierr.Abort(c, http.StatusRequestEntityTooLarge, apierr.Validation, "Avatar is too large")
		return
	}

	mimeType := file.Header.Get("Content-Type")
	allowed := viper.GetStringSlice("upload.avatar_types")
	if !slices.Contains(allowed, mimeType) {
		apierr.Abort(c, http.StatusBadRequest, apierr.Validation, "Unsupported avatar type")
		return
	}

	dir := filepath.Join(viper.GetString("app.data_dir"), "avatars")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		zap.L().Error("Failed to create avatar dir", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	path := filepath.Join(dir, fmt.Sprintf("%s%s", user.ID, avatarExt[mimeType]))
	if err := c.SaveUploadedFile(file, path); err != nil {
		zap.L().Error("Failed to save avatar", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	err = d.DB.Model(&model.User{}).Where("id = ?", user.ID).Update("avatar_path", path).Error
	if err != nil {
		// Keep disk and database consistent on failure
		os.Remove(path)

		zap.L().Error("Failed to store avatar path", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
