package card

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
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupCardTest(t *testing.T) (*gin.Engine, *internal.Deps) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	viper.Set("session.secret", "test-secret")

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		model.User{},
		model.Board{},
		model.BoardMembership{},
		model.Card{},
		model.Comment{},
		model.Attachment{},
		model.CardParticipant{},
		model.Session{},
	))

	d := &internal.Deps{
		DB:       db,
		Argon:    security.NewArgon(),
		Mailer:   service.NewMailer(),
		Notifier: service.NewNotifier(service.NewMailer()),
	}

	router := gin.New()
	b := router.Group("/api",
		middleware.NewSessionMiddleware(db),
		middleware.RequireCompleteAuth(),
		middleware.NewBoardMiddleware(db))
	{
		b.GET("/cards", func(c *gin.Context) { CardList(c, d) })
		b.GET("/cards/:id", func(c *gin.Context) { CardFetch(c, d) })
		b.POST("/cards", func(c *gin.Context) { CardCreate(c, d) })
		b.PATCH("/cards/:id", func(c *gin.Context) { CardUpdate(c, d) })
		b.POST("/cards/:id/move", func(c *gin.Context) { CardMove(c, d) })
		b.DELETE("/cards/:id", func(c *gin.Context) { CardDelete(c, d) })
	}

	return router, d
}

// loginAs seeds a fully authorized session on boardID and returns its
// cookie.
func loginAs(t *testing.T, d *internal.Deps, userID, boardID string, role model.Role) *http.Cookie {
	t.Helper()

	user := &model.User{
		ID:          userID,
		Email:       userID + "@x",
		Name:        userID,
		Role:        role,
		TotpEnabled: true,
	}
	require.NoError(t, d.DB.Create(user).Error)

	if role == model.RoleMember {
		require.NoError(t, d.DB.Create(&model.BoardMembership{BoardID: boardID, UserID: userID}).Error)
	}

	exp := time.Now().Add(time.Hour)
	sess := &model.Session{
		ID:              "sess-" + userID,
		UserID:          userID,
		TwoFactorPassed: true,
		BoardID:         &boardID,
		ExpiresAt:       exp,
	}
	require.NoError(t, d.DB.Create(sess).Error)

	signed, err := security.SignSessionID(sess.ID, exp)
	require.NoError(t, err)

	return &http.Cookie{Name: middleware.SessionCookie, Value: signed}
}

func request(t *testing.T, router *gin.Engine, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func seedBoards(t *testing.T, d *internal.Deps, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, d.DB.Create(&model.Board{ID: id, Name: id}).Error)
	}
}

func TestCardCreateAppendsToColumn(t *testing.T) {
	router, d := setupCardTest(t)
	seedBoards(t, d, "b1")
	cookie := loginAs(t, d, "u1", "b1", model.RoleMember)

	for i := 0; i < 2; i++ {
		w := request(t, router, http.MethodPost, "/api/cards", gin.H{"description": "task"}, cookie)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := request(t, router, http.MethodPost, "/api/cards", gin.H{
		"description": "third",
		"column":      "BACKLOG",
	}, cookie)
	require.Equal(t, http.StatusCreated, w.Code)

	var created model.Card
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, model.ColumnBacklog, created.Column)
	assert.Equal(t, 2, created.Position, "new cards land at the bottom")

	var author model.Card
	require.NoError(t, d.DB.First(&author, "id = ?", created.ID).Error)
	require.NotNil(t, author.AuthorID)
	assert.Equal(t, "u1", *author.AuthorID)

	var participants int64
	require.NoError(t, d.DB.Model(&model.CardParticipant{}).
		Where("card_id = ? AND user_id = ?", created.ID, "u1").Count(&participants).Error)
	assert.EqualValues(t, 1, participants, "the author is subscribed")
}

func TestCardCreateRejectsUnknownColumn(t *testing.T) {
	router, d := setupCardTest(t)
	seedBoards(t, d, "b1")
	cookie := loginAs(t, d, "u1", "b1", model.RoleMember)

	w := request(t, router, http.MethodPost, "/api/cards", gin.H{
		"description": "task",
		"column":      "LIMBO",
	}, cookie)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCardsAreInvisibleAcrossBoards(t *testing.T) {
	router, d := setupCardTest(t)
	seedBoards(t, d, "b1", "b2")
	cookie := loginAs(t, d, "u1", "b1", model.RoleMember)

	require.NoError(t, d.DB.Create(&model.Card{
		ID: "foreign", BoardID: "b2", Description: "x",
		Column: model.ColumnTodo, Importance: model.ImportanceMedium,
	}).Error)

	// Existing card on another board answers exactly like a missing one
	w := request(t, router, http.MethodGet, "/api/cards/foreign", nil, cookie)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = request(t, router, http.MethodGet, "/api/cards/missing", nil, cookie)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = request(t, router, http.MethodGet, "/api/cards", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	var cards []model.Card
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cards))
	assert.Empty(t, cards)
}

func TestCardMoveEndpoint(t *testing.T) {
	router, d := setupCardTest(t)
	seedBoards(t, d, "b1")
	cookie := loginAs(t, d, "u1", "b1", model.RoleMember)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, d.DB.Create(&model.Card{
			ID: id, BoardID: "b1", Description: id,
			Column: model.ColumnTodo, Position: i, Importance: model.ImportanceMedium,
		}).Error)
	}

	w := request(t, router, http.MethodPost, "/api/cards/c/move", gin.H{
		"column": "IN_PROGRESS",
		"index":  0,
	}, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["moved"])
	assert.Equal(t, "IN_PROGRESS", body["column"])
	assert.EqualValues(t, 0, body["position"])

	var todo []string
	require.NoError(t, d.DB.Model(&model.Card{}).
		Where("board_id = ? AND stage = ?", "b1", model.ColumnTodo).
		Order("position asc").Pluck("id", &todo).Error)
	assert.Equal(t, []string{"a", "b"}, todo)
}

func TestAssigneeChangeIsOwnershipGated(t *testing.T) {
	router, d := setupCardTest(t)
	seedBoards(t, d, "b1")

	author := loginAs(t, d, "author", "b1", model.RoleMember)
	other := loginAs(t, d, "other", "b1", model.RoleMember)
	admin := loginAs(t, d, "boss", "b1", model.RoleAdmin)

	w := request(t, router, http.MethodPost, "/api/cards", gin.H{"description": "task"}, author)
	require.Equal(t, http.StatusCreated, w.Code)

	var card model.Card
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &card))

	// Non-author members may edit other fields but not the assignee
	w = request(t, router, http.MethodPatch, "/api/cards/"+card.ID, gin.H{"details": "notes"}, other)
	assert.Equal(t, http.StatusOK, w.Code)

	w = request(t, router, http.MethodPatch, "/api/cards/"+card.ID, gin.H{"assignee": "someone"}, other)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = request(t, router, http.MethodPatch, "/api/cards/"+card.ID, gin.H{"assignee": "someone"}, author)
	assert.Equal(t, http.StatusOK, w.Code)

	w = request(t, router, http.MethodPatch, "/api/cards/"+card.ID, gin.H{"assignee": "else"}, admin)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCardDeleteIsOwnershipGated(t *testing.T) {
	router, d := setupCardTest(t)
	seedBoards(t, d, "b1")

	author := loginAs(t, d, "author", "b1", model.RoleMember)
	other := loginAs(t, d, "other", "b1", model.RoleMember)

	w := request(t, router, http.MethodPost, "/api/cards", gin.H{"description": "task"}, author)
	require.Equal(t, http.StatusCreated, w.Code)

	var card model.Card
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &card))

	w = request(t, router, http.MethodDelete, "/api/cards/"+card.ID, nil, other)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = request(t, router, http.MethodDelete, "/api/cards/"+card.ID, nil, author)
	assert.Equal(t, http.StatusOK, w.Code)

	var count int64
	require.NoError(t, d.DB.Model(&model.Card{}).Count(&count).Error)
	assert.Zero(t, count)
}
