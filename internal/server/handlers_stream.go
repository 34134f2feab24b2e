package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handlePortfolioStream handles GET /api/portfolio/stream?scope=mine|shared|all.
// After the websocket upgrade it pushes a Portfolio JSON message for every
// record snapshot and every refresh tick until the client goes away.
func (s *Server) handlePortfolioStream(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	uc := requireUser(w, r)
	if uc == nil {
		return
	}
	scope, err := parseScope(r.URL.Query().Get("scope"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	snapshots, unsubscribe, err := s.subscribeScope(ctx, uc.UserID, scope)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer unsubscribe()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	s.logger.Debug().Str("user_id", uc.UserID).Str("scope", scope).Msg("Portfolio stream opened")

	// The read side only detects close; any read error ends the stream.
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(streamPongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	portfolios := s.app.PortfolioService.Watch(ctx, snapshots, s.app.Config.Prices.GetStreamInterval())

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	for {
		select {
		case p, ok := <-portfolios:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				s.logger.Debug().Str("user_id", uc.UserID).Msg("Portfolio stream closed")
				return
			}
			if err := conn.WriteJSON(p); err != nil {
				return
			}

		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
