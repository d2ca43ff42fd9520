package signal

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/CallRoom/internal/core"
	"github.com/dkeye/CallRoom/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("conn", string(c.id)).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Str("conn", string(c.id)).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.cfg.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.cfg.WriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("ping failed")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, c *WsSignalConn) {
	defer ctl.disconnect(c)

	pongWait := ctl.cfg.PingPeriod * 10 / 9
	c.conn.SetReadLimit(ctl.cfg.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("readPump read error")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		ctl.handleSignal(ctx, c, data)
	}
}

// disconnect runs once per connection whatever closed it.
func (ctl *SignalWSController) disconnect(c *WsSignalConn) {
	c.Close()
	ctl.release(c.id)
}

// release drops id from the transport and routes the forced leave. The
// submit has no deadline; only a stopped router ends the wait.
func (ctl *SignalWSController) release(id domain.ConnID) {
	ctl.Hub.Unregister(id)
	ctl.limiter.Forget(id)

	if err := ctl.Router.Submit(context.Background(), id, core.Disconnect{}); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("disconnect not routed")
		return
	}
	log.Info().Str("module", "signal").Str("conn", string(id)).Msg("disconnected")
}

func (ctl *SignalWSController) handleSignal(ctx context.Context, c *WsSignalConn, data []byte) {
	name, arg, err := decodeFrame(data)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad frame")
		return
	}
	if name == eventPing {
		ctl.handlePing(c)
		return
	}

	ev, err := decodeInbound(name, arg)
	if err != nil {
		if errors.Is(err, core.ErrUnknownEvent) {
			log.Warn().Str("module", "signal").Str("type", name).Msg("unknown signal")
			return
		}
		log.Error().Err(err).Str("module", "signal").Str("type", name).Msg("bad payload")
		return
	}

	if _, ok := ev.(core.JoinCall); ok && !ctl.limiter.Allow(c.id) {
		log.Warn().Str("module", "signal").Str("conn", string(c.id)).Msg("join rate limited")
		return
	}

	if err := ctl.Router.Submit(ctx, c.id, ev); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("type", name).Msg("submit")
	}
}

func (ctl *SignalWSController) sendEvent(c *WsSignalConn, name string, payload any) {
	frame, err := encodeFrame(name, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendEvent marshal")
		return
	}
	if err := c.TrySend(frame); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("conn", string(c.id)).Str("event", name).Msg("sendEvent dropped")
	}
}
