// Package webui provides the embedded web application for the ADEI Explorer.
// This file contains the ChatSocket molecule carrying the live chat channel
// and broadcasting activity to every connected dashboard.
package webui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"adei_backend/logging"
	"adei_backend/metrics"
)

// ChatSocket is a molecule that manages WebSocket client connections.
// Each connection carries a bidirectional chat channel: inbound frames are
// chat questions, outbound frames are stage updates and answers. Completed
// turns are also broadcast to every client as activity events so open
// dashboards update live.
//
// It composes:
//   - Message types (from ws_message.go atoms)
//   - ChatAPI for running turns
//   - ChatSessionStore for conversation history
//   - TokenBucketLimiter for per-IP question pacing
//
// Thread-safe for concurrent client connections and message broadcasting.
type ChatSocket struct {
	// clients maps WebSocket connections to their metadata
	clients map[*websocket.Conn]clientInfo

	// clientsMu protects concurrent access to the clients map
	clientsMu sync.RWMutex

	// broadcast receives messages to send to all clients
	broadcast chan WSMessage

	// register receives new client connections
	register chan *websocket.Conn

	// unregister receives clients to remove
	unregister chan *websocket.Conn

	// upgrader handles HTTP to WebSocket upgrades
	upgrader websocket.Upgrader

	chat     *ChatAPI
	sessions *ChatSessionStore
	limiter  *TokenBucketLimiter
	store    metrics.MetricsCollector

	pingInterval   time.Duration
	pongWait       time.Duration
	writeWait      time.Duration
	turnTimeout    time.Duration
	maxMessageSize int64

	log *logging.Logger
}

// clientInfo stores metadata about a connected client
type clientInfo struct {
	// connectedAt is when the client connected
	connectedAt time.Time

	// remoteAddr is the client's remote address
	remoteAddr string

	// send is the channel for sending messages to this client
	send chan []byte
}

// ChatSocketConfig holds configuration for the ChatSocket.
type ChatSocketConfig struct {
	// PingInterval is how often to send ping messages (default: 30s)
	PingInterval time.Duration

	// PongWait is how long to wait for pong response (default: 60s)
	PongWait time.Duration

	// WriteWait is time allowed to write one message (default: 10s)
	WriteWait time.Duration

	// TurnTimeout bounds one chat turn including the LLM retry (default: 120s)
	TurnTimeout time.Duration

	// MaxMessageSize caps inbound frames; questions are short (default: 4096)
	MaxMessageSize int64

	// BroadcastBufferSize is the broadcast channel buffer (default: 256)
	BroadcastBufferSize int

	// ClientSendBufferSize is per-client send buffer (default: 256)
	ClientSendBufferSize int

	// Logger for socket operations (default: no-op)
	Logger *logging.Logger
}

// DefaultChatSocketConfig returns the default configuration.
func DefaultChatSocketConfig() ChatSocketConfig {
	return ChatSocketConfig{
		PingInterval:         30 * time.Second,
		PongWait:             60 * time.Second,
		WriteWait:            10 * time.Second,
		TurnTimeout:          120 * time.Second,
		MaxMessageSize:       4096,
		BroadcastBufferSize:  256,
		ClientSendBufferSize: 256,
	}
}

// NewChatSocket creates a new ChatSocket. chat and sessions are required;
// limiter may be nil to disable pacing and store may be nil to skip the
// system snapshot in the welcome frame.
//
// Returns a ready-to-use socket. Call Start() to begin processing messages.
func NewChatSocket(chat *ChatAPI, sessions *ChatSessionStore, limiter *TokenBucketLimiter, store metrics.MetricsCollector, config ChatSocketConfig) *ChatSocket {
	defaults := DefaultChatSocketConfig()
	if config.PingInterval <= 0 {
		config.PingInterval = defaults.PingInterval
	}
	if config.PongWait <= 0 {
		config.PongWait = defaults.PongWait
	}
	if config.WriteWait <= 0 {
		config.WriteWait = defaults.WriteWait
	}
	if config.TurnTimeout <= 0 {
		config.TurnTimeout = defaults.TurnTimeout
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = defaults.MaxMessageSize
	}
	if config.BroadcastBufferSize <= 0 {
		config.BroadcastBufferSize = defaults.BroadcastBufferSize
	}
	if config.ClientSendBufferSize <= 0 {
		config.ClientSendBufferSize = defaults.ClientSendBufferSize
	}
	log := config.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}

	return &ChatSocket{
		clients:        make(map[*websocket.Conn]clientInfo),
		broadcast:      make(chan WSMessage, config.BroadcastBufferSize),
		register:       make(chan *websocket.Conn),
		unregister:     make(chan *websocket.Conn),
		chat:           chat,
		sessions:       sessions,
		limiter:        limiter,
		store:          store,
		pingInterval:   config.PingInterval,
		pongWait:       config.PongWait,
		writeWait:      config.WriteWait,
		turnTimeout:    config.TurnTimeout,
		maxMessageSize: config.MaxMessageSize,
		log:            log.Named("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// CheckOrigin allows connections from any origin (same-origin deployment)
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Start begins the connection management loop.
//
// This method runs until the context is cancelled. It handles:
//   - Client registration/unregistration
//   - Broadcasting messages to all clients
//   - Periodic ping messages for connection health
//
// Parameters:
//   - ctx: Context for cancellation
func (s *ChatSocket) Start(ctx context.Context) {
	pingTicker := time.NewTicker(s.pingInterval)
	defer pingTicker.Stop()

	s.log.Info("chat socket started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info("chat socket stopping")
			s.closeAllClients()
			return

		case conn := <-s.register:
			s.addClient(conn)

		case conn := <-s.unregister:
			s.removeClient(conn)

		case message := <-s.broadcast:
			s.broadcastToAll(message)

		case <-pingTicker.C:
			s.sendPingToAll()
		}
	}
}

// HandleConnection handles a new WebSocket connection request.
//
// It upgrades the connection, resolves the chat session from the optional
// session query parameter, sends the welcome frame, and starts the read
// pump that accepts question frames.
func (s *ChatSocket) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err.Error())
		return
	}

	conn.SetReadLimit(s.maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(s.pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.pongWait))
		return nil
	})

	sessionID := s.sessions.Acquire(r.URL.Query().Get("session"))

	// The write pump is not running yet, so this direct write cannot race
	// with it. Sending before registration guarantees the welcome frame is
	// the first thing the client sees.
	s.writeDirect(conn, NewInitialMessage(InitialData{
		SessionID: sessionID,
		System:    s.systemSnapshot(),
	}))

	s.register <- conn

	go s.readPump(conn, sessionID, getClientIP(r))
}

// BroadcastMessage sends a message to all connected clients.
//
// This method is non-blocking. Messages are queued for delivery.
// If the broadcast buffer is full, the message is dropped with a warning.
func (s *ChatSocket) BroadcastMessage(msg WSMessage) {
	select {
	case s.broadcast <- msg:
		// Message queued successfully
	default:
		s.log.Warnw("broadcast buffer full, dropping message", "type", msg.Type)
	}
}

// BroadcastActivity broadcasts a completed chat turn to all clients.
func (s *ChatSocket) BroadcastActivity(data ActivityData) {
	s.BroadcastMessage(NewActivityMessage(data))
}

// BroadcastSystemStatus broadcasts a system status update to all clients.
// The health monitor calls this when database reachability flips.
func (s *ChatSocket) BroadcastSystemStatus(data SystemStatusData) {
	s.BroadcastMessage(NewSystemStatusMessage(data))
}

// ClientCount returns the current number of connected clients.
//
// Thread-safe.
func (s *ChatSocket) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Close gracefully shuts down the socket, closing all client connections.
func (s *ChatSocket) Close() {
	s.closeAllClients()
}

// addClient registers a new client connection
func (s *ChatSocket) addClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	info := clientInfo{
		connectedAt: time.Now(),
		remoteAddr:  conn.RemoteAddr().String(),
		send:        make(chan []byte, 256),
	}
	s.clients[conn] = info
	metrics.IncWebSocketConnections()

	// Start write pump for this client
	go s.writePump(conn, info.send)

	s.log.Debugw("client connected", "remote_addr", info.remoteAddr, "total", len(s.clients))
}

// removeClient unregisters a client and closes its connection
func (s *ChatSocket) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	if info, ok := s.clients[conn]; ok {
		close(info.send)
		delete(s.clients, conn)
		conn.Close()
		metrics.DecWebSocketConnections()
		s.log.Debugw("client disconnected", "remote_addr", info.remoteAddr, "total", len(s.clients))
	}
}

// broadcastToAll sends a message to all connected clients
func (s *ChatSocket) broadcastToAll(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Errorw("broadcast marshal failed", "error", err.Error())
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for conn, info := range s.clients {
		select {
		case info.send <- data:
			// Message queued
		default:
			// Client send buffer full, close connection
			s.log.Warnw("client send buffer full, closing", "remote_addr", info.remoteAddr)
			go func(c *websocket.Conn) {
				s.unregister <- c
			}(conn)
		}
	}
}

// sendToClient sends a message to a specific client
func (s *ChatSocket) sendToClient(conn *websocket.Conn, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Errorw("message marshal failed", "error", err.Error())
		return
	}

	s.clientsMu.RLock()
	info, ok := s.clients[conn]
	s.clientsMu.RUnlock()

	if ok {
		select {
		case info.send <- data:
			// Message queued
		default:
			s.log.Warnw("client send buffer full", "remote_addr", info.remoteAddr)
		}
	}
}

// writeDirect writes one frame straight to the connection. Only safe while
// the client's write pump is not running.
func (s *ChatSocket) writeDirect(conn *websocket.Conn, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Errorw("message marshal failed", "error", err.Error())
		return
	}
	conn.SetWriteDeadline(time.Now().Add(s.writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.log.Debugw("welcome frame write failed", "error", err.Error())
	}
}

// sendPingToAll sends a ping message to all clients for connection health
func (s *ChatSocket) sendPingToAll() {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for conn, info := range s.clients {
		conn.SetWriteDeadline(time.Now().Add(s.writeWait))
		if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
			s.log.Debugw("ping failed", "remote_addr", info.remoteAddr, "error", err.Error())
			go func(c *websocket.Conn) {
				s.unregister <- c
			}(conn)
		}
	}
}

// closeAllClients closes all client connections
func (s *ChatSocket) closeAllClients() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	for conn, info := range s.clients {
		close(info.send)
		conn.Close()
		delete(s.clients, conn)
		metrics.DecWebSocketConnections()
	}

	s.log.Info("all clients disconnected")
}

// readPump handles inbound frames from one client. Each well-formed frame
// is a chat question; turns run on their own goroutine so pings keep
// flowing while the agent works.
func (s *ChatSocket) readPump(conn *websocket.Conn, defaultSession, clientIP string) {
	defer func() {
		s.unregister <- conn
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.Debugw("unexpected close", "error", err.Error())
			}
			return
		}

		var req ChatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			s.sendToClient(conn, NewErrorMessage("invalid_request", "frames must be JSON with a question field"))
			continue
		}
		if strings.TrimSpace(req.Question) == "" {
			s.sendToClient(conn, NewErrorMessage("empty_question", "question must not be empty"))
			continue
		}

		if s.limiter != nil {
			if ok, wait := s.limiter.Allow(clientIP); !ok {
				s.sendToClient(conn, NewErrorMessage("rate_limited",
					fmt.Sprintf("too many questions, retry in %s", wait.Round(time.Second))))
				continue
			}
		}

		// Resolve the session up front so stage updates carry the id the
		// answer will carry.
		if req.SessionID == "" {
			req.SessionID = defaultSession
		}
		req.SessionID = s.sessions.Acquire(req.SessionID)

		go s.runTurn(conn, req)
	}
}

// runTurn executes one chat turn and streams its stage updates, answer and
// activity event.
func (s *ChatSocket) runTurn(conn *websocket.Conn, req ChatRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), s.turnTimeout)
	defer cancel()

	progress := func(stage string) {
		s.sendToClient(conn, NewStatusMessage(req.SessionID, stage))
	}

	resp, err := s.chat.RunTurn(ctx, req.SessionID, req.Question, progress)
	if err != nil {
		_, code := turnErrorStatus(err)
		s.sendToClient(conn, NewErrorMessage(code, err.Error()))
		return
	}

	s.sendToClient(conn, NewAnswerMessage(resp))
	s.BroadcastActivity(ActivityData{
		SessionID:  resp.SessionID,
		Question:   resp.Question,
		DurationMS: resp.DurationMS,
	})
}

// writePump handles outgoing messages to a client
func (s *ChatSocket) writePump(conn *websocket.Conn, send <-chan []byte) {
	defer func() {
		conn.Close()
	}()

	for message := range send {
		conn.SetWriteDeadline(time.Now().Add(s.writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}

	// Send close message when channel is closed
	conn.SetWriteDeadline(time.Now().Add(s.writeWait))
	conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// systemSnapshot builds the system status block for the welcome frame.
func (s *ChatSocket) systemSnapshot() SystemStatusData {
	if s.store == nil {
		return SystemStatusData{Status: metrics.SystemHealthRunning}
	}

	status := s.store.GetSystemStatus()
	taskMetrics := s.store.GetTaskMetrics()
	return SystemStatusData{
		Status:         status.Health,
		Uptime:         FormatDuration(status.Uptime),
		TotalProcessed: taskMetrics.TotalProcessed,
		TotalErrors:    taskMetrics.TotalErrors,
		Version:        status.Version,
	}
}
