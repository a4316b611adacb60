// Package ws serves the live event feed of a run over WebSocket.
package ws

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/dashboard/internal/config"
	"github.com/xiaot623/gogo/dashboard/internal/domain"
	"github.com/xiaot623/gogo/dashboard/internal/hub"
	"github.com/xiaot623/gogo/dashboard/internal/service"
)

// Server handles WebSocket subscriptions.
type Server struct {
	cfg      *config.Config
	hub      *hub.Hub
	service  *service.Service
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, h *hub.Hub, svc *service.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		hub:     h,
		service: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// The dashboard UI may be served from another origin.
				return true
			},
		},
		logger: logger,
	}
}

// HandleRunEvents upgrades the request and streams the run's new events.
// GET /api/runs/:run_id/events/ws
func (s *Server) HandleRunEvents(c echo.Context) error {
	runID := c.Param("run_id")
	if err := s.service.SubscribeCheck(c.Request().Context(), runID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, domain.ErrorResponse{Error: "not_found", Detail: err.Error()})
		}
		s.logger.Error("subscribe check failed", "run_id", runID, "error", err)
		return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: "internal_error", Detail: "internal server error"})
	}

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("failed to upgrade websocket", "run_id", runID, "error", err)
		return nil
	}

	conn := s.hub.NewConnection(ws, runID)
	s.hub.Register(conn)

	// Subscribers only listen; anything they send is discarded.
	ws.SetReadLimit(512)

	go s.writePump(conn)
	go s.readPump(conn)

	return nil
}

// readPump drains the connection so pongs and close frames are processed.
func (s *Server) readPump(conn *hub.Connection) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		if _, _, err := conn.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket error", "run_id", conn.RunID, "error", err)
			}
			return
		}
	}
}

// writePump writes queued events and keepalive pings.
func (s *Server) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Warn("failed to write message", "run_id", conn.RunID, "error", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
