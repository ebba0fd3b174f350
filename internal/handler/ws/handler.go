package ws

import (
	"net/http"

	xlogger "AttackDash/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Handler upgrades GET /ws and attaches the connection to the hub.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	log      *xlogger.Logger
}

func NewHandler(hub *Hub, log *xlogger.Logger) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.Serve)
}

func (h *Handler) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}

	client := newClient(h.hub, conn)
	if !h.hub.add(client) {
		_ = conn.Close()
		return nil
	}
	go client.writePump()
	go client.readPump()
	return nil
}
