// Package live pushes content change events to browsers over WebSocket.
//
// Public pages and admin panels connect to the hub and re-fetch the affected
// fragment when a collection they show changes.
package live

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/Zachkp/folio/internal/store"
)

type MessageType string

const (
	// MessageTypeHello is sent once on connect.
	MessageTypeHello MessageType = "hello"

	// MessageTypeCollectionChanged is sent after every write to a watched
	// collection.
	MessageTypeCollectionChanged MessageType = "collection_changed"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type HelloData struct {
	Collections []string `json:"collections"`
}

type CollectionChangedData struct {
	Collection string `json:"collection"`
	Count      int    `json:"count"`
}

// Hub tracks connected clients and fans broadcast messages out to them.
type Hub struct {
	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	broadcast chan Message

	originPatterns []string
	collections    []string
	unsubscribe    []func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// NewHub returns a stopped hub. originPatterns restricts which pages may
// connect; nil allows only same-origin clients.
func NewHub(originPatterns []string, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:        make(map[*websocket.Conn]bool),
		broadcast:      make(chan Message, 100),
		originPatterns: originPatterns,
		ctx:            ctx,
		cancel:         cancel,
		logger:         logger,
	}
}

// Start runs the broadcast loop.
func (h *Hub) Start() {
	h.wg.Add(1)
	go h.broadcastLoop()
}

// Watch broadcasts a change event after every write to each collection.
// Call before Start.
func (h *Hub) Watch(s store.Store, collections ...string) {
	for _, c := range collections {
		collection := c
		h.collections = append(h.collections, collection)
		unsub := s.Subscribe(collection, nil, func(docs []store.Document) {
			h.BroadcastChange(collection, len(docs))
		})
		h.unsubscribe = append(h.unsubscribe, unsub)
	}
}

// Stop unsubscribes from the store, closes every connection and waits for
// the broadcast loop to exit.
func (h *Hub) Stop() {
	h.logger.Println("Stopping live hub")
	for _, unsub := range h.unsubscribe {
		unsub()
	}
	h.cancel()

	h.clientsMu.Lock()
	for conn := range h.clients {
		_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		delete(h.clients, conn)
	}
	h.clientsMu.Unlock()

	h.wg.Wait()
}

// Broadcast queues msg for every client. It never blocks; when the queue is
// full the message is dropped.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	case <-h.ctx.Done():
	default:
		h.logger.Println("Warning: broadcast channel full, dropping message")
	}
}

func (h *Hub) BroadcastChange(collection string, count int) {
	data, err := json.Marshal(CollectionChangedData{Collection: collection, Count: count})
	if err != nil {
		h.logger.Printf("Failed to marshal change: %v", err)
		return
	}
	h.Broadcast(Message{Type: MessageTypeCollectionChanged, Data: data})
}

func (h *Hub) broadcastLoop() {
	defer h.wg.Done()

	for {
		select {
		case <-h.ctx.Done():
			return

		case msg := <-h.broadcast:
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now()
			}
			data, err := json.Marshal(msg)
			if err != nil {
				h.logger.Printf("Failed to marshal message: %v", err)
				continue
			}

			h.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(h.clients))
			for conn := range h.clients {
				clients = append(clients, conn)
			}
			h.clientsMu.RUnlock()

			for _, conn := range clients {
				ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()
				if err != nil {
					h.logger.Printf("Failed to send to client: %v", err)
					h.removeClient(conn)
				}
			}
		}
	}
}

// ServeHTTP upgrades the request to a WebSocket and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.clientsMu.Lock()
	h.clients[conn] = true
	clientCount := len(h.clients)
	h.clientsMu.Unlock()
	h.logger.Printf("Client connected (total: %d)", clientCount)

	hello, _ := json.Marshal(HelloData{Collections: h.collections})
	welcome, _ := json.Marshal(Message{Type: MessageTypeHello, Timestamp: time.Now(), Data: hello})
	ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
	_ = conn.Write(ctx, websocket.MessageText, welcome)
	cancel()

	go h.readLoop(conn)
}

// readLoop notices client disconnects. Client messages are ignored.
func (h *Hub) readLoop(conn *websocket.Conn) {
	defer h.removeClient(conn)
	for {
		if _, _, err := conn.Read(h.ctx); err != nil {
			return
		}
	}
}

func (h *Hub) removeClient(conn *websocket.Conn) {
	h.clientsMu.Lock()
	if _, exists := h.clients[conn]; !exists {
		h.clientsMu.Unlock()
		return
	}
	delete(h.clients, conn)
	clientCount := len(h.clients)
	h.clientsMu.Unlock()

	_ = conn.Close(websocket.StatusNormalClosure, "")
	h.logger.Printf("Client disconnected (total: %d)", clientCount)
}

func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}
