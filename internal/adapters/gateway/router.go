package gateway

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"studysphere/internal/config"
	"studysphere/internal/domain"
)

func genClientToken() string {
	return uuid.NewString()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		// The token doubles as the user id downstream, so a client-sent
		// cookie that would not pass id validation gets replaced.
		if token == "" || len(token) > domain.MaxUserIDLen {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, ctl *Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("StudySessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "gateway.router").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, ctl.Hub.RoomList())
	})

	api.GET("/leaderboard", func(c *gin.Context) {
		c.JSON(http.StatusOK, ctl.Orch.Stats.Top(10))
	})

	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "gateway.router").Str("sid", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctl.HandleSignal(ctx, c)
	})

	return r
}
