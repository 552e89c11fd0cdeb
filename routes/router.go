package routes

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/parkcw/mboard/config"
	"github.com/parkcw/mboard/controllers"
	"github.com/parkcw/mboard/middleware"
	"github.com/parkcw/mboard/repository"
	"github.com/parkcw/mboard/session"
	"github.com/parkcw/mboard/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Access log goes to its own rolling file; recovery logs panics there too.
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.GinLogger(gl))
		r.Use(utils.GinRecovery(gl))
	} else {
		r.Use(gin.Recovery())
	}

	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Uploaded files are served straight from the upload root.
	r.Static("/static", "./static")

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	members := repository.NewGormMembers(db)
	posts := repository.NewGormPosts(db)
	sessions := session.NewRedisStore(utils.GetRedis(), time.Duration(cfg.SessionTTLHours)*time.Hour)

	memberController := controllers.NewMemberController(members, sessions)
	boardController := controllers.NewBoardController(members, posts, cfg.UploadDir, int64(cfg.UploadMaxSizeMB)*1024*1024)

	gate := middleware.SessionRequired(sessions)
	limited := middleware.RateLimitMiddleware()

	api := r.Group("/api/v1")

	member := api.Group("/member")
	member.POST("/join", limited, memberController.Join)
	member.POST("/login", limited, memberController.Login)
	member.POST("/logout", memberController.Logout)
	member.GET("/info", gate, memberController.Info)
	member.POST("/update", gate, memberController.Update)
	member.POST("/quit", gate, memberController.Quit)

	board := api.Group("/board", gate)
	board.GET("/write", boardController.WriteForm)
	board.POST("/write", boardController.Write)

	return r
}
