// Package ws streams pipeline run events to websocket clients.
package ws

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"StockSense/internal/domain/models"
	domrepo "StockSense/internal/domain/repository"
	xlogger "StockSense/pkg/logger"
)

// Hub fans run events out to connected clients. New clients receive the most
// recent event on connect.
type Hub struct {
	log        *xlogger.Logger
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan models.RunEvent
	last       *models.RunEvent
	done       chan struct{}
	upgrader   websocket.Upgrader
}

var _ domrepo.RunObserver = (*Hub)(nil)

func NewHub(log *xlogger.Logger) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan models.RunEvent, 256),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Run is the hub loop; it returns when ctx is done and closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			if h.last != nil {
				c.send <- *h.last
			}

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}

		case ev := <-h.broadcast:
			h.last = &ev
			for c := range h.clients {
				select {
				case c.send <- ev:
				default:
					// slow client, drop it rather than block the hub
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// OnRunEvent never blocks the pipeline; events are dropped when the hub is behind.
func (h *Hub) OnRunEvent(ev models.RunEvent) {
	select {
	case h.broadcast <- ev:
	default:
		h.log.Warn("run event dropped", xlogger.String("stage", string(ev.Stage)), xlogger.String("status", string(ev.Status)))
	}
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/runs", h.Serve)
}

// Serve upgrades the connection and attaches a client to the hub.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	client := &Client{hub: h, conn: conn, send: make(chan models.RunEvent, 64)}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return nil
	}

	go client.writePump()
	go client.readPump()
	return nil
}
