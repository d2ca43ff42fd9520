package http

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dkeye/CallRoom/internal/adapters/signal"
	"github.com/dkeye/CallRoom/internal/app"
	"github.com/dkeye/CallRoom/internal/config"
	"github.com/dkeye/CallRoom/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const clientTokenKey = "ct"

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

// ClientTokenMiddleware pins a stable anonymous token to the browser session.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get(clientTokenKey).(string)
		if token == "" {
			token = genClientToken()
			session.Set(clientTokenKey, token)
			if err := session.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save session")
			}
		}
		c.Set("client_token", token)
		c.Next()
	}
}

type Deps struct {
	Router   *app.Router
	Signal   *signal.SignalWSController
	Gatherer prometheus.Gatherer
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	secret := cfg.Secret
	if secret == "" {
		secret = uuid.NewString()
		log.Warn().Str("module", "adapters.http").Msg("no session secret configured, using an ephemeral one")
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions("CallRoomSessions", store))
	r.Use(ClientTokenMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	r.GET("/socket", func(c *gin.Context) {
		deps.Signal.HandleSignal(ctx, c)
	})

	api := r.Group("/api")

	// GET /api/rooms — live rooms with member counts
	api.GET("/rooms", func(c *gin.Context) {
		rooms, err := deps.Router.Rooms(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"rooms": rooms})
	})

	// GET /api/rooms/:id/members — who is in a call
	api.GET("/rooms/:id/members", func(c *gin.Context) {
		members, err := deps.Router.Members(c.Request.Context(), domain.CallID(c.Param("id")))
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"members": members})
	})

	// GET /api/ice-servers — STUN/TURN for the video layer
	api.GET("/ice-servers", func(c *gin.Context) {
		servers := make([]webrtc.ICEServer, 0, 1)
		if len(cfg.ICEServers) > 0 {
			servers = append(servers, webrtc.ICEServer{URLs: cfg.ICEServers})
		}
		c.JSON(http.StatusOK, gin.H{"iceServers": servers})
	})

	if cfg.ServeStatic {
		index := filepath.Join(cfg.StaticPath, "index.html")
		r.Static("/assets", filepath.Join(cfg.StaticPath, "assets"))
		r.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api/") {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.File(index)
		})
	}

	log.Info().Str("module", "adapters.http").Bool("static", cfg.ServeStatic).Msg("router setup")
	return r
}
