package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"wormarena/internal/game"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 200

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 8

	// DefaultBroadcastHz is how often state frames go out
	DefaultBroadcastHz = 20

	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 64
	maxMessagesPerSec = 120
)

// outMessage is one queued frame for a client.
type outMessage struct {
	binary bool
	data   []byte
}

// wsClient tracks a WebSocket connection with its source IP.
// send is never closed; the hub closes done once the client leaves.
type wsClient struct {
	hub  *WebSocketHub
	conn *websocket.Conn
	ip   string
	send chan outMessage
	done chan struct{}
}

func newWSClient(h *WebSocketHub, conn *websocket.Conn, ip string) *wsClient {
	return &wsClient{
		hub:  h,
		conn: conn,
		ip:   ip,
		send: make(chan outMessage, sendBufSize),
		done: make(chan struct{}),
	}
}

// enqueue drops the frame when the client is gone or too slow.
func (c *wsClient) enqueue(m outMessage) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- m:
		return true
	default:
		return false
	}
}

func (c *wsClient) sendJSON(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("⚠️ WebSocket marshal error: %v", err)
		return
	}
	c.enqueue(outMessage{data: data})
}

// WebSocketHub manages all WebSocket connections with DoS protection
type WebSocketHub struct {
	clients    map[*wsClient]bool
	broadcast  chan outMessage
	register   chan *wsClient
	unregister chan *wsClient
	mu         sync.RWMutex

	engine   EngineInterface
	origins  *OriginChecker
	upgrader websocket.Upgrader

	// Connection limiting per IP
	wsLimiter *ConnLimiter

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewWebSocketHub creates a new hub with connection limiting
func NewWebSocketHub(engine EngineInterface, origins *OriginChecker) *WebSocketHub {
	if origins == nil {
		origins = NewOriginChecker(nil)
	}
	h := &WebSocketHub{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan outMessage, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		engine:     engine,
		origins:    origins,
		wsLimiter:  NewConnLimiter(MaxWSConnectionsPerIP),
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if h.origins.Allowed(origin) {
				return true
			}
			log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// Run starts the hub. It returns after Stop.
func (h *WebSocketHub) Run() {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client connected from %s (%d total)", client.ip, count)
			UpdateWSConnections(count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				// Release the connection slot for this IP
				h.wsLimiter.Release(client.ip)
				delete(h.clients, client)
				close(client.done)
			}
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client disconnected (%d remaining)", count)
			UpdateWSConnections(count)

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				client.enqueue(message)
			}
			h.mu.RUnlock()

		case <-h.stopChan:
			h.mu.Lock()
			for client := range h.clients {
				h.wsLimiter.Release(client.ip)
				delete(h.clients, client)
				close(client.done)
			}
			h.mu.Unlock()
			UpdateWSConnections(0)
			return
		}
	}
}

// Stop disconnects every client and ends Run.
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
	})
}

// queue hands a message to Run unless the hub is backed up or stopped.
func (h *WebSocketHub) queue(m outMessage) bool {
	select {
	case <-h.stopChan:
		return false
	default:
	}
	select {
	case h.broadcast <- m:
		return true
	default:
		// Channel full, skip (backpressure)
		return false
	}
}

// Broadcast sends a JSON envelope to all connected clients
func (h *WebSocketHub) Broadcast(t string, data interface{}) {
	jsonBytes, err := json.Marshal(Envelope{T: t, Data: data})
	if err != nil {
		return
	}
	if h.queue(outMessage{data: jsonBytes}) {
		RecordEventFrame()
	}
}

// BroadcastState sends a msgpack state frame to all connected clients
func (h *WebSocketHub) BroadcastState(snap *game.GameSnapshot) error {
	data, err := EncodeState(snap)
	if err != nil {
		return err
	}
	if h.queue(outMessage{binary: true, data: data}) {
		RecordStateFrame(len(data))
	}
	return nil
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats reports hub occupancy, and how many sockets ip holds.
func (h *WebSocketHub) Stats(ip string) map[string]interface{} {
	return map[string]interface{}{
		"clients":     h.ClientCount(),
		"maxClients":  MaxWSConnectionsTotal,
		"connections": h.wsLimiter.Count(ip),
		"maxPerIP":    MaxWSConnectionsPerIP,
		"limiter":     h.wsLimiter.Stats(),
	}
}

func (h *WebSocketHub) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Stats(GetClientIP(r)))
}

// StartBroadcastLoop sends state frames at hz until Stop. Frames are
// skipped while nobody is connected or the snapshot has not changed.
func (h *WebSocketHub) StartBroadcastLoop(hz int) {
	if hz <= 0 {
		hz = DefaultBroadcastHz
	}
	ticker := time.NewTicker(time.Second / time.Duration(hz))

	go func() {
		defer ticker.Stop()
		var lastSeq uint64
		for {
			select {
			case <-h.stopChan:
				return
			case <-ticker.C:
			}
			if h.ClientCount() == 0 {
				continue
			}
			snap := h.engine.GetSnapshot()
			if snap == nil || snap.Sequence == lastSeq {
				continue
			}
			lastSeq = snap.Sequence
			if err := h.BroadcastState(snap); err != nil {
				log.Printf("⚠️ State frame dropped: %v", err)
			}
		}
	}()
}

// HandleWebSocket handles incoming WebSocket connections with DoS protection
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Get client IP for rate limiting
	ip := GetClientIP(r)

	// Check total connection limit
	if total := h.ClientCount(); total >= MaxWSConnectionsTotal {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", total)
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	// Check per-IP connection limit
	if !h.wsLimiter.Acquire(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip) // Release the slot we reserved
		return
	}

	client := newWSClient(h, conn, ip)

	// The first frame is the current state so a client never starts blank.
	if snap := h.engine.GetSnapshot(); snap != nil {
		if data, err := EncodeState(snap); err == nil {
			client.enqueue(outMessage{binary: true, data: data})
		}
	}

	select {
	case h.register <- client:
	case <-h.stopChan:
		h.wsLimiter.Release(ip)
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump decodes inbound command envelopes until the connection drops.
func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stopChan:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	var msgCount int
	var msgResetAt time.Time
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("⚠️ WebSocket read error from %s: %v", c.ip, err)
			}
			return
		}

		// Input arrives at frame rate; anything far above that is a flood.
		now := time.Now()
		if now.After(msgResetAt) {
			msgCount = 0
			msgResetAt = now.Add(time.Second)
		}
		msgCount++
		if msgCount > maxMessagesPerSec {
			log.Printf("⚠️ WebSocket flood from %s, disconnecting", c.ip)
			RecordConnectionRejected("ws_flood")
			return
		}

		c.handleMessage(message)
	}
}

func (c *wsClient) handleMessage(message []byte) {
	var env InEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		RecordCommand("invalid")
		c.sendJSON(Envelope{T: MsgError, Data: map[string]string{"error": "malformed envelope"}})
		return
	}

	reply, err := applyCommand(c.hub.engine, env.T, env.D)
	if err != nil {
		if errors.Is(err, ErrUnknownCommand) {
			RecordCommand("invalid")
		} else {
			RecordCommand(env.T)
		}
		c.sendJSON(Envelope{T: MsgError, Data: map[string]string{"cmd": env.T, "error": err.Error()}})
		return
	}
	RecordCommand(env.T)

	// Steering is fire and forget.
	if env.T == MsgInput {
		return
	}
	c.sendJSON(Envelope{T: MsgAck, Data: map[string]interface{}{"cmd": env.T, "result": reply}})
}

// writePump owns all writes to the connection.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			kind := websocket.TextMessage
			if message.binary {
				kind = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(kind, message.data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
