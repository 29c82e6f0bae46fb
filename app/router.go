// Package app contains all endpoints available
package app

import (
	"fmt"
	"time"

	"github.com/ioterra-ru/kanban/app/admin"
	"github.com/ioterra-ru/kanban/app/attachment"
	"github.com/ioterra-ru/kanban/app/auth"
	"github.com/ioterra-ru/kanban/app/board"
	"github.com/ioterra-ru/kanban/app/card"
	"github.com/ioterra-ru/kanban/app/comment"
	"github.com/ioterra-ru/kanban/db"
	"github.com/ioterra-ru/kanban/internal"
	"github.com/ioterra-ru/kanban/internal/service"
	"github.com/ioterra-ru/kanban/pkg/middleware"
	"github.com/ioterra-ru/kanban/pkg/security"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

type depHandler func(c *gin.Context, d *internal.Deps)

func NewRouter() (*gin.Engine, error) {
	d := &internal.Deps{}

	makeLogger()

	conn, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}
	d.DB = conn

	d.Argon = security.NewArgon()
	d.Mailer = service.NewMailer()
	d.Notifier = service.NewNotifier(d.Mailer)

	if err := service.EnsureDefaults(conn, d.Argon); err != nil {
		return nil, fmt.Errorf("failed to seed defaults, %w", err)
	}

	router := gin.New()

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     viper.GetStringSlice("host.cors"),
			AllowMethods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true
	router.MaxMultipartMemory = 5 << 20

	rateLimit := viper.GetInt("host.rate_limit")
	rateLimiter := middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: rateLimit,
		Burst:             rateLimit * 2,
		CleanupInterval:   time.Second,
	})

	session := middleware.NewSessionMiddleware(conn)
	completeAuth := middleware.RequireCompleteAuth()
	passwordOK := middleware.RequirePasswordOK()
	adminOnly := middleware.RequireAdmin()
	boardGate := middleware.NewBoardMiddleware(conn)
	maxAttachmentSize := viper.GetInt64("upload.attachment_max_size")
	maxAvatarSize := viper.GetInt64("upload.avatar_max_size")

	h := func(fn depHandler) gin.HandlerFunc {
		return func(c *gin.Context) { fn(c, d) }
	}

	m := router.Group("/api", rateLimiter)
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		m.HEAD("/heartbeat", func(c *gin.Context) { c.Status(200) })
	}

	a := m.Group("/auth", middleware.BodySizeLimiter(1<<20))
	{
		// POST /api/auth/login			-> Logs in with password and optional TOTP code
		a.POST("/login", h(auth.Login))

		// GET /api/auth/me			-> Returns the current user and auth state
		a.GET("/me", h(auth.Me))

		// POST /api/auth/logout		-> Destroys the session
		a.POST("/logout", session, h(auth.Logout))

		// POST /api/auth/password/forgot	-> Mails a password reset link
		a.POST("/password/forgot", h(auth.PasswordForgot))

		// POST /api/auth/password/reset	-> Redeems a mailed reset token
		a.POST("/password/reset", h(auth.PasswordReset))

		// POST /api/auth/password/reset-by-totp	-> Resets the password with a TOTP code
		a.POST("/password/reset-by-totp", h(auth.PasswordResetByTotp))

		// POST /api/auth/password		-> Changes the password of a logged in user
		a.POST("/password", session, h(auth.PasswordChange))

		// POST /api/auth/2fa/setup		-> Starts TOTP enrollment
		a.POST("/2fa/setup", session, passwordOK, h(auth.TwoFactorSetup))

		// POST /api/auth/2fa/enable		-> Confirms enrollment with a first code
		a.POST("/2fa/enable", session, passwordOK, h(auth.TwoFactorEnable))

		// POST /api/auth/2fa/verify		-> Completes login on an enrolled account
		a.POST("/2fa/verify", session, passwordOK, h(auth.TwoFactorVerify))

		// PATCH /api/auth/profile		-> Updates name and default board
		a.PATCH("/profile", session, completeAuth, h(auth.ProfileUpdate))
	}

	// POST /api/auth/avatar		-> Uploads a profile picture
	m.POST("/auth/avatar", session, completeAuth,
		middleware.BodySizeLimiter(maxAvatarSize+1<<20), h(auth.AvatarUpload))

	u := m.Group("/auth/users", session, completeAuth, adminOnly, middleware.BodySizeLimiter(1<<20))
	{
		// GET /api/auth/users		-> Lists all users with their board memberships
		u.GET("", h(admin.UsersList))

		// POST /api/auth/users		-> Creates a user, optionally with a generated password
		u.POST("", h(admin.UserCreate))

		// PATCH /api/auth/users/:id	-> Edits a user, can reset password and 2FA
		u.PATCH("/:id", h(admin.UserUpdate))

		// DELETE /api/auth/users/:id	-> Deletes a user account
		u.DELETE("/:id", h(admin.UserDelete))
	}

	bs := m.Group("/boards", session, completeAuth, middleware.BodySizeLimiter(1<<20))
	{
		// GET /api/boards		-> Lists the boards visible to the user
		bs.GET("", h(board.BoardList))

		// POST /api/boards/select	-> Switches the session's active board
		bs.POST("/select", h(board.BoardSelect))

		// POST /api/boards		-> Creates a board
		bs.POST("", adminOnly, h(board.BoardCreate))

		// PATCH /api/boards/:id	-> Edits a board and its member list
		bs.PATCH("/:id", adminOnly, h(board.BoardUpdate))

		// DELETE /api/boards/:id	-> Deletes a board with everything on it
		bs.DELETE("/:id", adminOnly, h(board.BoardDelete))
	}

	b := m.Group("", session, completeAuth, boardGate)
	{
		// GET /api/board		-> Returns the active board grouped by column
		b.GET("/board", h(board.BoardSummary))

		// GET /api/cards		-> Lists cards, optionally filtered by column
		b.GET("/cards", h(card.CardList))

		// GET /api/cards/:id		-> Returns one card with comments and attachments
		b.GET("/cards/:id", h(card.CardFetch))

		// POST /api/cards		-> Creates a card at the bottom of a column
		b.POST("/cards", h(card.CardCreate))

		// PATCH /api/cards/:id		-> Edits a card's fields
		b.PATCH("/cards/:id", h(card.CardUpdate))

		// POST /api/cards/:id/move	-> Places a card at an index within a column
		b.POST("/cards/:id/move", h(card.CardMove))

		// DELETE /api/cards/:id	-> Deletes a card
		b.DELETE("/cards/:id", h(card.CardDelete))

		// POST /api/cards/:id/participants		-> Subscribes a user to a card
		b.POST("/cards/:id/participants", h(card.ParticipantAdd))

		// DELETE /api/cards/:id/participants/:userId	-> Unsubscribes a user
		b.DELETE("/cards/:id/participants/:userId", h(card.ParticipantRemove))

		// POST /api/cards/:id/comments		-> Comments on a card
		b.POST("/cards/:id/comments", h(comment.CommentCreate))

		// PATCH /api/comments/:id		-> Edits a comment
		b.PATCH("/comments/:id", h(comment.CommentUpdate))

		// DELETE /api/comments/:id		-> Deletes a comment
		b.DELETE("/comments/:id", h(comment.CommentDelete))

		// POST /api/cards/:id/attachments	-> Uploads a file to a card
		b.POST("/cards/:id/attachments",
			middleware.BodySizeLimiter(maxAttachmentSize+1<<20), h(attachment.AttachmentUpload))

		// GET /api/attachments/:id/download	-> Downloads an attachment
		b.GET("/attachments/:id/download", h(attachment.AttachmentDownload))

		// DELETE /api/attachments/:id		-> Deletes an attachment
		b.DELETE("/attachments/:id", h(attachment.AttachmentDelete))
	}

	d.Notifier.StartWorkerPool()
	service.StartCleanup(conn)

	return router, nil
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}
