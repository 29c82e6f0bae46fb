// Package auth implements login, logout, the password lifecycle and the
// two-factor state machine
package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/internal/service"
	"github.com/ioterra-ru/kanban/pkg/middleware"
	"github.com/ioterra-ru/kanban/pkg/security"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const trustedDeviceTTL = 30 * 24 * time.Hour

var errAmbiguousLogin = errors.New("ambiguous login name")

// resolveLogin maps a login identifier to a user: the exact "admin"
// alias, a case-insensitive email, or a display name when exactly one
// case-insensitive match exists. More than one name match fails closed.
func resolveLogin(db *gorm.DB, login string) (*model.User, error) {
	if login == "admin" {
		var u model.User
		if err := db.First(&u, "is_system = ?", true).Error; err != nil {
			return nil, err
		}
		return &u, nil
	}

	l := strings.ToLower(strings.TrimSpace(login))

	var u model.User
	err := db.First(&u, "lower(email) = ?", l).Error
	if err == nil {
		return &u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var matches []model.User
	if err := db.Where("lower(name) = ?", l).Limit(2).Find(&matches).Error; err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, gorm.ErrRecordNotFound
	case 1:
		return &matches[0], nil
	default:
		return nil, errAmbiguousLogin
	}
}

// pickBoard resolves the board a fresh session starts on: the user's
// default board when still accessible, else their earliest membership,
// else none.
func pickBoard(db *gorm.DB, user *model.User) (*string, error) {
	if user.DefaultBoardID != nil {
		ok, err := service.CanAccessBoard(db, user, *user.DefaultBoardID)
		if err != nil {
			return nil, err
		}
		if ok {
			var count int64
			if err := db.Model(&model.Board{}).Where("id = ?", *user.DefaultBoardID).Count(&count).Error; err != nil {
				return nil, err
			}
			if count > 0 {
				return user.DefaultBoardID, nil
			}
		}
	}

	var m model.BoardMembership
	err := db.Where("user_id = ?", user.ID).Order("id asc").First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &m.BoardID, nil
}

func createSession(db *gorm.DB, user *model.User, twoFactorPassed bool) (*model.Session, error) {
	boardID, err := pickBoard(db, user)
	if err != nil {
		return nil, err
	}

	sid, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	sess := &model.Session{
		ID:              sid,
		UserID:          user.ID,
		TwoFactorPassed: twoFactorPassed,
		BoardID:         boardID,
		ExpiresAt:       time.Now().Add(time.Duration(viper.GetInt("session.ttl_hours")) * time.Hour),
	}

	if err := db.Create(sess).Error; err != nil {
		return nil, err
	}

	return sess, nil
}

func setSessionCookie(c *gin.Context, sess *model.Session) {
	token, err := security.SignSessionID(sess.ID, sess.ExpiresAt)
	if err != nil {
		zap.L().Error("Failed to sign session cookie", zap.Error(err))
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.SessionCookie, token,
		int(time.Until(sess.ExpiresAt).Seconds()), "/", "",
		viper.GetBool("host.ssl_enabled"), true)
}

func clearSessionCookie(c *gin.Context) {
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "",
		viper.GetBool("host.ssl_enabled"), true)
}

// mintTrustedDevice stores a hashed bypass token and hands the raw one
// to the client in the long-lived device cookie.
func mintTrustedDevice(c *gin.Context, db *gorm.DB, userID string) error {
	raw, err := security.GenerateToken(32)
	if err != nil {
		return err
	}

	id, err := gonanoid.New()
	if err != nil {
		return err
	}

	dev := model.TrustedDevice{
		ID:         id,
		UserID:     userID,
		TokenHash:  security.HashToken(raw),
		ExpiresAt:  time.Now().Add(trustedDeviceTTL),
		LastUsedAt: time.Now(),
	}

	if err := db.Create(&dev).Error; err != nil {
		return err
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.DeviceCookie, raw,
		int(trustedDeviceTTL.Seconds()), "/", "",
		viper.GetBool("host.ssl_enabled"), true)

	return nil
}

// checkTrustedDevice validates the device cookie against the stored
// hashes and refreshes the last-used timestamp on a hit.
func checkTrustedDevice(c *gin.Context, db *gorm.DB, userID string) bool {
	raw, err := c.Cookie(middleware.DeviceCookie)
	if err != nil || raw == "" {
		return false
	}

	var dev model.TrustedDevice
	err = db.First(&dev, "user_id = ? AND token_hash = ?", userID, security.HashToken(raw)).Error
	if err != nil {
		return false
	}

	if time.Now().After(dev.ExpiresAt) {
		db.Delete(&dev)
		return false
	}

	if err := db.Model(&dev).Update("last_used_at", time.Now()).Error; err != nil {
		zap.L().Warn("Failed to touch trusted device", zap.Error(err))
	}

	return true
}

func userSummary(user *model.User, sess *model.Session) gin.H {
	return gin.H{
		"user": gin.H{
			"id":                 user.ID,
			"email":              user.Email,
			"name":               user.Name,
			"role":               user.Role,
			"isSystem":           user.IsSystem,
			"totpEnabled":        user.TotpEnabled,
			"mustChangePassword": user.MustChangePassword,
			"defaultBoardId":     user.DefaultBoardID,
		},
		"twoFactorPassed": sess.TwoFactorPassed,
		"boardId":         sess.BoardID,
	}
}
