package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/model"
	"github.com/ioterra-ru/kanban/internal/service"
	"github.com/ioterra-ru/kanban/pkg/middleware"
	"github.com/ioterra-ru/kanban/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupAuthTest(t *testing.T) (*gin.Engine, *internal.Deps) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	viper.Set("session.secret", "test-secret")
	viper.Set("session.ttl_hours", 24)
	viper.Set("host.ssl_enabled", false)
	viper.Set("host.domain", "kanban.test")

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		model.User{},
		model.Board{},
		model.BoardMembership{},
		model.Session{},
		model.TrustedDevice{},
		model.PasswordResetToken{},
	))

	d := &internal.Deps{
		DB:     db,
		Argon:  security.NewArgon(),
		Mailer: service.NewMailer(),
	}

	session := middleware.NewSessionMiddleware(db)

	router := gin.New()
	router.POST("/api/auth/login", func(c *gin.Context) { Login(c, d) })
	router.GET("/api/auth/me", func(c *gin.Context) { Me(c, d) })
	router.POST("/api/auth/logout", session, func(c *gin.Context) { Logout(c, d) })
	router.POST("/api/auth/2fa/verify", session, func(c *gin.Context) { TwoFactorVerify(c, d) })
	router.POST("/api/auth/password", session, func(c *gin.Context) { PasswordChange(c, d) })

	return router, d
}

type testUserOpts struct {
	totpSecret string
	mustChange bool
	isSystem   bool
	role       model.Role
}

func createTestUser(t *testing.T, d *internal.Deps, email, name, password string, opts testUserOpts) *model.User {
	t.Helper()

	hash, err := d.Argon.GenerateFromPassword(password)
	require.NoError(t, err)

	role := opts.role
	if role == "" {
		role = model.RoleMember
	}

	user := &model.User{
		ID:                 "u-" + name,
		Email:              email,
		Name:               name,
		PasswordHash:       hash,
		Role:               role,
		IsSystem:           opts.isSystem,
		TotpEnabled:        opts.totpSecret != "",
		TotpSecret:         opts.totpSecret,
		MustChangePassword: opts.mustChange,
	}
	require.NoError(t, d.DB.Create(user).Error)

	return user
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	b, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func errorKind(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	kind, _ := body["error"].(string)
	return kind
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range w.Result().Cookies() {
		if ck.Name == name && ck.Value != "" {
			return ck
		}
	}
	return nil
}

func TestLoginUnknownUser(t *testing.T) {
	router, _ := setupAuthTest(t)

	w := postJSON(t, router, "/api/auth/login", gin.H{"login": "nobody@x", "password": "hunter22"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_credentials", errorKind(t, w))
}

func TestLoginWrongPassword(t *testing.T) {
	router, d := setupAuthTest(t)
	createTestUser(t, d, "bob@x", "bob", "right-password", testUserOpts{})

	w := postJSON(t, router, "/api/auth/login", gin.H{"login": "bob@x", "password": "wrong-password"})

	// Indistinguishable from an unknown account
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_credentials", errorKind(t, w))
	assert.Nil(t, findCookie(w, middleware.SessionCookie))
}

func TestLoginByEmailCaseInsensitive(t *testing.T) {
	router, d := setupAuthTest(t)
	createTestUser(t, d, "bob@x", "bob", "hunter22", testUserOpts{})

	w := postJSON(t, router, "/api/auth/login", gin.H{"login": "BOB@X", "password": "hunter22"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, findCookie(w, middleware.SessionCookie))
}

func TestLoginByName(t *testing.T) {
	router, d := setupAuthTest(t)
	createTestUser(t, d, "bob@x", "bob", "hunter22", testUserOpts{})

	w := postJSON(t, router, "/api/auth/login", gin.H{"login": "Bob", "password": "hunter22"})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginAmbiguousName(t *testing.T) {
	router, d := setupAuthTest(t)
	createTestUser(t, d, "bob1@x", "bob", "hunter22", testUserOpts{})

	second := createTestUser(t, d, "bob2@x", "bob2", "hunter22", testUserOpts{})
	require.NoError(t, d.DB.Model(second).Update("name", "Bob").Error)

	w := postJSON(t, router, "/api/auth/login", gin.H{"login": "bob", "password": "hunter22"})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ambiguous_login", errorKind(t, w))
}

func TestLoginAdminAlias(t *testing.T) {
	router, d := setupAuthTest(t)
	createTestUser(t, d, "root@x", "Administrator", "hunter22", testUserOpts{
		isSystem: true,
		role:     model.RoleAdmin,
	})

	w := postJSON(t, router, "/api/auth/login", gin.H{"login": "admin", "password": "hunter22"})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginTwoFactorRequired(t *testing.T) {
	router, d := setupAuthTest(t)

	secret, _, err := security.GenerateTOTP("kanban.test", "bob@x")
	require.NoError(t, err)
	createTestUser(t, d, "bob@x", "bob", "hunter22", testUserOpts{totpSecret: secret})

	w := postJSON(t, router, "/api/auth/login", gin.H{"login": "bob@x", "password": "hunter22"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "two_factor_required", errorKind(t, w))

	// A session still exists so the verify endpoint can complete it
	sessCookie := findCookie(w, middleware.SessionCookie)
	require.NotNil(t, sessCookie)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	w = postJSON(t, router, "/api/auth/2fa/verify", gin.H{"code": code}, sessCookie)
	assert.Equal(t, http.StatusOK, w.Code)

	var sess model.Session
	require.NoError(t, d.DB.First(&sess, "user_id = ?", "u-bob").Error)
	assert.True(t, sess.TwoFactorPassed)
}

func TestLoginWithTotpCode(t *testing.T) {
	router, d := setupAuthTest(t)

	secret, _, err := security.GenerateTOTP("kanban.test", "bob@x")
	require.NoError(t, err)
	createTestUser(t, d, "bob@x", "bob", "hunter22", testUserOpts{totpSecret: secret})

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	w := postJSON(t, router, "/api/auth/login", gin.H{
		"login":    "bob@x",
		"password": "hunter22",
		"totpCode": code,
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["twoFactorPassed"])
}

func TestLoginBadTotpCode(t *testing.T) {
	router, d := setupAuthTest(t)

	secret, _, err := security.GenerateTOTP("kanban.test", "bob@x")
	require.NoError(t, err)
	createTestUser(t, d, "bob@x", "bob", "hunter22", testUserOpts{totpSecret: secret})

	w := postJSON(t, router, "/api/auth/login", gin.H{
		"login":    "bob@x",
		"password": "hunter22",
		"totpCode": "000000",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_code", errorKind(t, w))
}

func TestLoginTrustedDeviceBypass(t *testing.T) {
	router, d := setupAuthTest(t)

	secret, _, err := security.GenerateTOTP("kanban.test", "bob@x")
	require.NoError(t, err)
	createTestUser(t, d, "bob@x", "bob", "hunter22", testUserOpts{totpSecret: secret})

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	w := postJSON(t, router, "/api/auth/login", gin.H{
		"login":          "bob@x",
		"password":       "hunter22",
		"totpCode":       code,
		"rememberDevice": true,
	})
	require.Equal(t, http.StatusOK, w.Code)

	device := findCookie(w, middleware.DeviceCookie)
	require.NotNil(t, device, "rememberDevice mints a device cookie")

	// Second login needs no code on the trusted device
	w = postJSON(t, router, "/api/auth/login", gin.H{
		"login":    "bob@x",
		"password": "hunter22",
	}, device)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["twoFactorPassed"])
}

func TestTrustedDeviceDiesWithPasswordChange(t *testing.T) {
	router, d := setupAuthTest(t)

	secret, _, err := security.GenerateTOTP("kanban.test", "bob@x")
	require.NoError(t, err)
	createTestUser(t, d, "bob@x", "bob", "hunter22", testUserOpts{totpSecret: secret})

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	w := postJSON(t, router, "/api/auth/login", gin.H{
		"login":          "bob@x",
		"password":       "hunter22",
		"totpCode":       code,
		"rememberDevice": true,
	})
	require.Equal(t, http.StatusOK, w.Code)

	sessCookie := findCookie(w, middleware.SessionCookie)
	device := findCookie(w, middleware.DeviceCookie)
	require.NotNil(t, sessCookie)
	require.NotNil(t, device)

	w = postJSON(t, router, "/api/auth/password", gin.H{
		"currentPassword": "hunter22",
		"newPassword":     "a-brand-new-password",
	}, sessCookie)
	require.Equal(t, http.StatusOK, w.Code)

	// The device token was purged, so the next login falls back to 2FA
	w = postJSON(t, router, "/api/auth/login", gin.H{
		"login":    "bob@x",
		"password": "a-brand-new-password",
	}, device)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "two_factor_required", errorKind(t, w))
}

func TestLogoutKillsSession(t *testing.T) {
	router, d := setupAuthTest(t)
	createTestUser(t, d, "bob@x", "bob", "hunter22", testUserOpts{})

	w := postJSON(t, router, "/api/auth/login", gin.H{"login": "bob@x", "password": "hunter22"})
	require.Equal(t, http.StatusOK, w.Code)
	sessCookie := findCookie(w, middleware.SessionCookie)
	require.NotNil(t, sessCookie)

	w = postJSON(t, router, "/api/auth/logout", gin.H{}, sessCookie)
	require.Equal(t, http.StatusOK, w.Code)

	var count int64
	require.NoError(t, d.DB.Model(&model.Session{}).Count(&count).Error)
	assert.Zero(t, count)
}
