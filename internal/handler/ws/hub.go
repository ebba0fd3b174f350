package ws

import (
	"context"
	"sync"

	"AttackDash/internal/domain/models"
	"AttackDash/internal/service/metrics"
	xlogger "AttackDash/pkg/logger"

	"github.com/goccy/go-json"
)

// Message types pushed to and read from clients.
const (
	MessageTypeDashboard = "dashboard"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
)

const broadcastBuffer = 16

// Message is the envelope of every frame.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub tracks connected clients and fans frames out to them. The most recent
// dashboard frame is replayed to clients as they connect. A client's send
// channel is never closed; removal closes its done channel instead.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	log        *xlogger.Logger

	mu     sync.RWMutex
	latest []byte
	count  int
}

func NewHub(log *xlogger.Logger) *Hub {
	metrics.Register()
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log.With(xlogger.String("component", "ws-hub")),
	}
}

// Run serves register, unregister and broadcast events until ctx is done,
// then closes every client. Run must be called once.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			n := len(h.clients)
			for c := range h.clients {
				h.remove(c)
			}
			h.log.Info("websocket hub stopped", xlogger.Int("clients_closed", n))
			return nil

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.setCount(len(h.clients))
			h.mu.RLock()
			latest := h.latest
			h.mu.RUnlock()
			if latest != nil {
				c.trySend(latest)
			}
			h.log.Info("websocket client connected", xlogger.String("client", c.id), xlogger.Int("total_clients", len(h.clients)))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.remove(c)
				h.log.Info("websocket client disconnected", xlogger.String("client", c.id), xlogger.Int("total_clients", len(h.clients)))
			}

		case frame := <-h.broadcast:
			for c := range h.clients {
				if !c.trySend(frame) {
					metrics.HubDropped.Inc()
					h.log.Warn("websocket client too slow, dropping", xlogger.String("client", c.id))
					h.remove(c)
				}
			}
		}
	}
}

// add hands c to Run. It reports false once the hub has stopped.
func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) drop(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) remove(c *Client) {
	delete(h.clients, c)
	close(c.done)
	h.setCount(len(h.clients))
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
	metrics.HubClients.Set(float64(n))
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// BroadcastJSON encodes one frame and queues it for every client. A full
// queue drops the frame.
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	frame, err := json.Marshal(Message{Type: messageType, Data: data})
	if err != nil {
		h.log.Error("encode websocket frame failed", xlogger.String("type", messageType), xlogger.Error(err))
		return
	}
	if messageType == MessageTypeDashboard {
		h.mu.Lock()
		h.latest = frame
		h.mu.Unlock()
	}

	select {
	case h.broadcast <- frame:
		metrics.HubBroadcasts.WithLabelValues(messageType).Inc()
	default:
		h.log.Warn("broadcast channel full, dropping frame", xlogger.String("type", messageType))
	}
}

// BroadcastSnapshot pushes a dashboard snapshot to every client.
func (h *Hub) BroadcastSnapshot(snap *models.DashboardSnapshot) {
	h.BroadcastJSON(MessageTypeDashboard, snap)
}
