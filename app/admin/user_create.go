package admin

import (
	"net/http"
	"strings"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/pkg/apierr"
	"github.com/ioterra-ru/kanban/pkg/security"
	"github.com/ioterra-ru/kanban/validators"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type userCreateBody struct {
	Email    string     `json:"email" binding:"required"`
	Name     string     `json:"name" binding:"required"`
	Role     model.Role `json:"role"`
	BoardIDs []string   `json:"boardIds"`
	Password string     `json:"password"`
}

// UserCreate provisions an account with a temporary password that must
// be changed at first login. Non-admins always end up with at least one
// membership; the permanent board is the fallback.
func UserCreate(c *gin.Context, d *internal.Deps) {
	var data userCreateBody
	if err := c.ShouldBind(&data); err != nil {
		apierr.Abort(c, http.StatusBadRequest, apierr.Validation, "Email and name are required")
		return
	}

	email := strings.ToLower(strings.TrimSpace(data.Email))
	if err := validators.EmailValidator(email); err != nil {
		apierr.AbortFields(c, http.StatusBadRequest, apierr.Validation, "Invalid email",
			map[string]string{"email": err.Error()})
		return
	}

	if data.Role == "" {
		data.Role = model.RoleMember
	}
	if !model.ValidRole(data.Role) {
		apierr.AbortFields(c, http.StatusBadRequest, apierr.Validation, "Invalid role",
			map[string]string{"role": "must be ADMIN or MEMBER"})
		return
	}

	var found int64
	err := d.DB.Model(&model.User{}).Where("lower(email) = ?", email).Count(&found).Error
	if err != nil {
		zap.L().Error("Failed to check for duplicate email", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	if found > 0 {
		apierr.Abort(c, http.StatusConflict, apierr.Conflict, "This email is already registered")
		return
	}

	password := data.Password
	generated := false
	if password == "" {
		password, err = security.GenerateToken(9)
		if err != nil {
			zap.L().Error("Failed to generate password", zap.Error(err))
			apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
			return
		}
		generated = true
	} else if err := validators.PasswordValidator(password); err != nil {
		apierr.AbortFields(c, http.StatusBadRequest, apierr.Validation, "Invalid password",
			map[string]string{"password": err.Error()})
		return
	}

	hash, err := d.Argon.GenerateFromPassword(password)
	if err != nil {
		zap.L().Error("Failed to hash password", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	id, err := gonanoid.New()
	if err != nil {
		zap.L().Error("Failed to generate user ID", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	boardIDs := dedup(data.BoardIDs)
	if data.Role == model.RoleMember && len(boardIDs) == 0 {
		boardIDs = []string{model.DefaultBoardID}
	}

	var defaultBoard *string
	if len(boardIDs) > 0 {
		defaultBoard = &boardIDs[0]
	}

	user := model.User{
		ID:                 id,
		Email:              email,
		Name:               strings.TrimSpace(data.Name),
		PasswordHash:       hash,
		Role:               data.Role,
		MustChangePassword: true,
		DefaultBoardID:     defaultBoard,
	}

	err = d.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		for _, boardID := range boardIDs {
			err := tx.Create(&model.BoardMembership{BoardID: boardID, UserID: user.ID}).Error
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		zap.L().Error("Failed to create user", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	out := gin.H{
		"id":       user.ID,
		"email":    user.Email,
		"name":     user.Name,
		"role":     user.Role,
		"boardIds": boardIDs,
	}
	if generated {
		out["tempPassword"] = password
	}

	c.JSON(http.StatusCreated, out)
}

func dedup(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))

	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}

	return out
}
