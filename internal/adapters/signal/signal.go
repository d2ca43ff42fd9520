package signal

import (
	"context"
	"net/http"

	"github.com/dkeye/CallRoom/internal/app"
	"github.com/dkeye/CallRoom/internal/config"
	"github.com/dkeye/CallRoom/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// SignalWSController binds websocket connections to the router.
type SignalWSController struct {
	Router *app.Router
	Hub    *Hub

	cfg      *config.Config
	limiter  *JoinRateLimiter
	upgrader websocket.Upgrader
}

func NewSignalWSController(cfg *config.Config, router *app.Router, hub *Hub) *SignalWSController {
	return &SignalWSController{
		Router:  router,
		Hub:     hub,
		cfg:     cfg,
		limiter: NewJoinRateLimiter(cfg.JoinLimit, cfg.JoinInterval),
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(cfg.CORSOrigin),
		},
	}
}

func originChecker(allowed string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if allowed == "" || allowed == "*" {
			return true
		}
		origin := r.Header.Get("Origin")
		return origin == "" || origin == allowed
	}
}

// HandleSignal upgrades the request and starts the connection pumps.
// ctx bounds the connection lifetime.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	id := domain.ConnID(uuid.NewString())

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	log.Info().Str("module", "signal").Str("conn", string(id)).
		Str("client", c.GetString("client_token")).Msg("new WS connection")

	conn := newWsSignalConn(id, ws, ctl.cfg.SendBuffer)
	ctl.Hub.Register(id, conn)

	connCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		ctl.writePump(connCtx, conn)
	}()
	go func() {
		defer cancel()
		ctl.readPump(connCtx, conn)
	}()
}
