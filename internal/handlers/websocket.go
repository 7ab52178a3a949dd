package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stocklens/internal/common"
	"github.com/ternarybob/stocklens/internal/interfaces"
	"github.com/ternarybob/stocklens/internal/models"
	"golang.org/x/time/rate"
)

// defaultWriteTimeout bounds one write to a client. Events are published
// synchronously, so a client that stops reading must not stall the session.
const defaultWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// SessionViewer supplies the view sent to newly connected clients
type SessionViewer interface {
	View() models.SessionView
}

// WSMessage is the envelope of every message pushed to clients
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// StatusUpdate is sent once when a client connects
type StatusUpdate struct {
	ServerInstanceID string             `json:"serverInstanceId"` // Unique ID per server startup - clients clear state on change
	Version          string             `json:"version"`
	Session          models.SessionView `json:"session"`
}

type WebSocketHandler struct {
	logger           arbor.ILogger
	clients          map[*websocket.Conn]bool
	clientMutex      map[*websocket.Conn]*sync.Mutex
	mu               sync.RWMutex
	eventService     interfaces.EventService
	viewer           SessionViewer
	handler          interfaces.EventHandler
	allowedEvents    map[string]bool           // Whitelist of events to broadcast (empty = allow all)
	throttlers       map[string]*eventThrottle // Coalescing rate limiters keyed by event type
	serverInstanceID string
	writeTimeout     time.Duration

	revisionMu   sync.Mutex
	lastRevision uint64 // newest session view forwarded to clients
}

func NewWebSocketHandler(eventService interfaces.EventService, viewer SessionViewer, logger arbor.ILogger, config *common.WebSocketConfig) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		clients:          make(map[*websocket.Conn]bool),
		clientMutex:      make(map[*websocket.Conn]*sync.Mutex),
		eventService:     eventService,
		viewer:           viewer,
		allowedEvents:    make(map[string]bool),
		throttlers:       make(map[string]*eventThrottle),
		serverInstanceID: uuid.New().String(),
		writeTimeout:     defaultWriteTimeout,
	}

	logger.Info().Str("server_instance_id", h.serverInstanceID).Msg("WebSocket handler initialized with server instance ID")

	if config != nil {
		for _, eventType := range config.AllowedEvents {
			h.allowedEvents[eventType] = true
		}
		if len(h.allowedEvents) > 0 {
			logger.Debug().
				Int("allowed_events", len(h.allowedEvents)).
				Msg("Initialized event whitelist for WebSocketHandler")
		}

		for eventType, intervalStr := range config.ThrottleIntervals {
			duration, err := time.ParseDuration(intervalStr)
			if err != nil || duration <= 0 {
				logger.Warn().
					Err(err).
					Str("event_type", eventType).
					Str("interval", intervalStr).
					Msg("Invalid throttle interval - throttler disabled")
				continue
			}
			h.throttlers[eventType] = newEventThrottle(duration)
			logger.Debug().
				Str("event_type", eventType).
				Str("interval", intervalStr).
				Msg("Throttler initialized")
		}
	}

	if eventService != nil {
		h.subscribeToSessionEvents()
	}

	return h
}

// HandleWebSocket handles WebSocket connections
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	mutex := &sync.Mutex{}
	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = mutex
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Msgf("WebSocket client connected (total: %d)", clientCount)

	h.sendStatus(conn, mutex)

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		delete(h.clientMutex, conn)
		clientCount := len(h.clients)
		h.mu.Unlock()

		conn.Close()
		h.logger.Debug().Msgf("WebSocket client disconnected (remaining: %d)", clientCount)
	}()

	// Read messages from client (keep connection alive)
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			break
		}
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close unsubscribes from the event bus, drops pending throttled messages and
// disconnects every client.
func (h *WebSocketHandler) Close() error {
	h.logger.Debug().Int("clients", h.ClientCount()).Msg("Closing WebSocket handler")

	if h.eventService != nil && h.handler != nil {
		for _, eventType := range interfaces.AllEventTypes {
			if err := h.eventService.Unsubscribe(eventType, h.handler); err != nil {
				h.logger.Debug().Err(err).Str("event_type", string(eventType)).Msg("Unsubscribe failed")
			}
		}
	}

	for _, t := range h.throttlers {
		t.stop()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, mutex := range h.clientMutex {
		mutex.Lock()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		mutex.Unlock()
		conn.Close()
	}
	return nil
}

func (h *WebSocketHandler) sendStatus(conn *websocket.Conn, mutex *sync.Mutex) {
	status := StatusUpdate{
		ServerInstanceID: h.serverInstanceID,
		Version:          common.GetVersionInfo().Version,
	}
	if h.viewer != nil {
		status.Session = h.viewer.View()
	}

	data, err := json.Marshal(WSMessage{Type: "status", Payload: status})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal status message")
		return
	}

	mutex.Lock()
	err = h.write(conn, data)
	mutex.Unlock()

	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to send status to client")
	}
}

func (h *WebSocketHandler) write(conn *websocket.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(h.writeTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// supersededView reports whether payload is a session view older than one
// already forwarded.
func (h *WebSocketHandler) supersededView(payload interface{}) bool {
	view, ok := payload.(models.SessionView)
	if !ok {
		return false
	}

	h.revisionMu.Lock()
	defer h.revisionMu.Unlock()
	if view.Revision < h.lastRevision {
		return true
	}
	h.lastRevision = view.Revision
	return false
}

func (h *WebSocketHandler) subscribeToSessionEvents() {
	h.handler = func(ctx context.Context, event interfaces.Event) error {
		eventType := string(event.Type)

		// Check whitelist (empty allowedEvents = allow all)
		if len(h.allowedEvents) > 0 && !h.allowedEvents[eventType] {
			return nil
		}

		if h.supersededView(event.Payload) {
			return nil
		}

		msg := WSMessage{Type: eventType, Payload: event.Payload}
		if t, ok := h.throttlers[eventType]; ok {
			t.offer(msg, h.broadcast)
			return nil
		}

		h.broadcast(msg)
		return nil
	}

	for _, eventType := range interfaces.AllEventTypes {
		if err := h.eventService.Subscribe(eventType, h.handler); err != nil {
			h.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to subscribe WebSocket handler")
		}
	}
}

// broadcast sends msg to all connected clients
func (h *WebSocketHandler) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal WebSocket message")
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn := range h.clients {
		clients = append(clients, conn)
		mutexes = append(mutexes, h.clientMutex[conn])
	}
	h.mu.RUnlock()

	for i, conn := range clients {
		mutex := mutexes[i]
		mutex.Lock()
		err := h.write(conn, data)
		mutex.Unlock()

		if err != nil {
			// The read loop sees the closed connection and unregisters the client
			h.logger.Warn().Err(err).Str("type", msg.Type).Msg("Failed to send message to client, disconnecting")
			conn.Close()
		}
	}
}

// eventThrottle limits how often one event type is broadcast. A message that
// arrives while throttled is held and replaced by newer ones, and the latest is
// flushed once the limiter allows, so clients always end on the final state.
type eventThrottle struct {
	limiter *rate.Limiter
	mu      sync.Mutex
	pending *WSMessage
	timer   *time.Timer
	stopped bool
}

func newEventThrottle(interval time.Duration) *eventThrottle {
	return &eventThrottle{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (t *eventThrottle) offer(msg WSMessage, send func(WSMessage)) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}

	// A flush is already scheduled; it will carry this message instead
	if t.pending != nil {
		t.pending = &msg
		t.mu.Unlock()
		return
	}

	if t.limiter.Allow() {
		t.mu.Unlock()
		send(msg)
		return
	}

	t.pending = &msg
	delay := t.limiter.Reserve().Delay()
	t.timer = time.AfterFunc(delay, func() {
		t.mu.Lock()
		next := t.pending
		t.pending = nil
		stopped := t.stopped
		t.mu.Unlock()

		if next != nil && !stopped {
			send(*next)
		}
	})
	t.mu.Unlock()
}

func (t *eventThrottle) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.pending = nil
	if t.timer != nil {
		t.timer.Stop()
	}
}
