package admin

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/internal/service"
	"github.com/ioterra-ru/kanban/pkg/apierr"
	"github.com/ioterra-ru/kanban/pkg/security"
	"github.com/ioterra-ru/kanban/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type userUpdateBody struct {
	Name           *string     `json:"name"`
	Email          *string     `json:"email"`
	Role           *model.Role `json:"role"`
	BoardIDs       *[]string   `json:"boardIds"`
	ResetPassword  bool        `json:"resetPassword"`
	ResetTwoFactor bool        `json:"resetTwoFactor"`
}

// UserUpdate edits an account including its board-access matrix. The
// system admin's role is immutable and the last remaining admin can't
// be demoted. Demoting an admin who holds no memberships falls back to
// the permanent board so no member ever ends up boardless.
func UserUpdate(c *gin.Context, d *internal.Deps) {
	var target model.User
	err := d.DB.First(&target, "id = ?", c.Param("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		apierr.Abort(c, http.StatusNotFound, apierr.NotFound, "User not found")
		return
	}
	if err != nil {
		zap.L().Error("Failed to load user", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	var data userUpdateBody
	if err := c.ShouldBind(&data); err != nil {
		apierr.Abort(c, http.StatusBadRequest, apierr.Validation, "Invalid request body")
		return
	}

	updates := map[string]any{}

	if data.Name != nil {
		name := strings.TrimSpace(*data.Name)
		if name == "" {
			apierr.AbortFields(c, http.StatusBadRequest, apierr.Validation, "Invalid name",
				map[string]string{"name": "name can't be empty"})
			return
		}
		updates["name"] = name
	}

	if data.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*data.Email))
		if err := validators.EmailValidator(email); err != nil {
			apierr.AbortFields(c, http.StatusBadRequest, apierr.Validation, "Invalid email",
				map[string]string{"email": err.Error()})
			return
		}

		var found int64
		err := d.DB.Model(&model.User{}).
			Where("lower(email) = ? AND id <> ?", email, target.ID).
			Count(&found).
			Error
		if err != nil {
			zap.L().Error("Failed to check for duplicate email", zap.Error(err))
			apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
			return
		}
		if found > 0 {
			apierr.Abort(c, http.StatusConflict, apierr.Conflict, "This email is already registered")
			return
		}

		updates["email"] = email
	}

	role := target.Role
	if data.Role != nil && *data.Role != target.Role {
		if !model.ValidRole(*data.Role) {
			apierr.AbortFields(c, http.StatusBadRequest, apierr.Validation, "Invalid role",
				map[string]string{"role": "must be ADMIN or MEMBER"})
			return
		}

		if target.IsSystem {
			apierr.Abort(c, http.StatusConflict, apierr.Conflict, "The system admin's role can't change")
			return
		}

		if target.Role == model.RoleAdmin && *data.Role == model.RoleMember {
			admins, err := countAdmins(d.DB)
			if err != nil {
				zap.L().Error("Failed to count admins", zap.Error(err))
				apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
				return
			}
			if admins <= 1 {
				apierr.Abort(c, http.StatusConflict, apierr.Conflict, "Can't demote the last admin")
				return
			}
		}

		role = *data.Role
		updates["role"] = role
	}

	if data.BoardIDs != nil && role == model.RoleMember && len(dedup(*data.BoardIDs)) == 0 {
		apierr.Abort(c, http.StatusConflict, apierr.Conflict, "A member needs access to at least one board")
		return
	}

	var tempPassword string
	if data.ResetPassword {
		tempPassword, err = security.GenerateToken(9)
		if err != nil {
			zap.L().Error("Failed to generate password", zap.Error(err))
			apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
			return
		}

		hash, err := d.Argon.GenerateFromPassword(tempPassword)
		if err != nil {
			zap.L().Error("Failed to hash password", zap.Error(err))
			apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
			return
		}

		updates["password_hash"] = hash
		updates["must_change_password"] = true
	}

	if data.ResetTwoFactor {
		updates["totp_enabled"] = false
		updates["totp_secret"] = ""
		updates["totp_pending_secret"] = ""
	}

	demoted := target.Role == model.RoleAdmin && role == model.RoleMember

	err = d.DB.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			err := tx.Model(&model.User{}).Where("id = ?", target.ID).Updates(updates).Error
			if err != nil {
				return err
			}
		}

		if data.BoardIDs != nil {
			if err := service.SyncUserBoards(tx, target.ID, dedup(*data.BoardIDs)); err != nil {
				return err
			}
		} else if demoted {
			var memberships int64
			err := tx.Model(&model.BoardMembership{}).
				Where("user_id = ?", target.ID).
				Count(&memberships).
				Error
			if err != nil {
				return err
			}

			if memberships == 0 {
				err := tx.Create(&model.BoardMembership{
					BoardID: model.DefaultBoardID,
					UserID:  target.ID,
				}).Error
				if err != nil {
					return err
				}

				if target.DefaultBoardID == nil {
					err := tx.Model(&model.User{}).
						Where("id = ?", target.ID).
						Update("default_board_id", model.DefaultBoardID).
						Error
					if err != nil {
						return err
					}
				}
			}
		}

		if data.ResetPassword {
			return service.InvalidateUserAuth(tx, target.ID, "")
		}

		return nil
	})
	if err != nil {
		zap.L().Error("Failed to update user", zap.Error(err))
		apierr.Abort(c, http.StatusInternalServerError, apierr.Internal, "Internal server error")
		return
	}

	out := gin.H{"ok": true}
	if tempPassword != "" {
		out["tempPassword"] = tempPassword
	}

	c.JSON(http.StatusOK, out)
}

func countAdmins(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&model.User{}).Where("role = ?", model.RoleAdmin).Count(&count).Error
	return count, err
}
