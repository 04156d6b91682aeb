// Package stream pushes fleet snapshots to map clients over websockets.
package stream

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/ambulance-tracker/internal/markers"
	"github.com/ukydev/ambulance-tracker/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 8
)

// Source provides the snapshot sent to a client when it connects.
type Source interface {
	Snapshot() models.Snapshot
}

// Hub tracks connected clients. Publish is meant to be registered as a fleet
// observer; it never blocks on a slow client.
type Hub struct {
	source   Source
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn   *websocket.Conn
	format markers.Format
	send   chan models.Snapshot
}

func NewHub(source Source) *Hub {
	return &Hub{
		source: source,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and streams snapshots in the format named by
// the "format" query parameter.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	format, err := markers.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	c := &client{conn: conn, format: format, send: make(chan models.Snapshot, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	enqueue(c.send, h.source.Snapshot())
	h.mu.Unlock()

	log.WithFields(log.Fields{
		"remote": r.RemoteAddr,
		"format": format,
	}).Info("Websocket client connected")

	go h.writePump(c)
	go h.readPump(c)
}

// Publish queues snap for every connected client.
func (h *Hub) Publish(snap models.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		enqueue(c.send, snap)
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// enqueue drops the oldest queued snapshot when the client is behind.
func enqueue(ch chan models.Snapshot, snap models.Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	var (
		lastSeq uint64
		sent    bool
	)
	for {
		select {
		case snap, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// The connect snapshot can race a broadcast; never go backwards.
			if sent && snap.Sequence <= lastSeq {
				continue
			}
			if err := c.conn.WriteJSON(markers.Render(snap, c.format)); err != nil {
				log.WithError(err).Debug("Websocket write failed")
				h.remove(c)
				return
			}
			lastSeq, sent = snap.Sequence, true
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

func (h *Hub) readPump(c *client) {
	defer h.remove(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
