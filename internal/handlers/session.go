package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"absorb-chess/internal/auth"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// Hub maintains the live sessions keyed by client id.
type Hub struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// Session is one connected socket. Outbound frames go through the buffered
// send channel; a full or closed channel drops the session.
type Session struct {
	hub      *Hub
	conn     *websocket.Conn
	clientID string
	send     chan []byte

	controller *Controller
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
	}
}

// register installs the session before the caller sends anything to it, so
// the accept path can deliver the session frame immediately. A session
// already registered under the same client id is displaced and closed.
func (h *Hub) register(s *Session) {
	h.mu.Lock()
	old := h.sessions[s.clientID]
	h.sessions[s.clientID] = s
	h.mu.Unlock()

	if old != nil {
		close(old.send)
	}
	log.Printf("Session registered: client=%s", s.clientID)
}

// unregister detaches the session when it is still the hub's current one
// for its client id and reports whether it was. A session displaced by a
// reconnect is not current, and its teardown must not disturb the
// replacement.
func (h *Hub) unregister(s *Session) bool {
	h.mu.Lock()
	current := h.sessions[s.clientID] == s
	if current {
		delete(h.sessions, s.clientID)
	}
	h.mu.Unlock()

	if current {
		close(s.send)
		log.Printf("Session unregistered: client=%s", s.clientID)
	}
	return current
}

// Send marshals and queues a frame for the client. Failures are swallowed;
// false means the client has no live session or its buffer is full.
func (h *Hub) Send(clientID string, payload any) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Hub: failed to marshal frame for %s: %v", clientID, err)
		return false
	}

	h.mu.RLock()
	s, ok := h.sessions[clientID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// IsConnected reports whether the client has a live session.
func (h *Hub) IsConnected(clientID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sessions[clientID]
	return ok
}

func (s *Session) readPump() {
	defer func() {
		// A session displaced by a reconnect must not report the client
		// as disconnected; the replacement is already live.
		current := s.hub.unregister(s)
		s.conn.Close()
		if current {
			s.controller.OnDisconnect(s.clientID)
		}
	}()

	s.conn.SetReadLimit(4096)
	s.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			s.hub.Send(s.clientID, newError("malformed frame"))
			continue
		}
		s.controller.Dispatch(s.clientID, env.Type, data)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := s.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// WebSocketHandler upgrades sockets and attaches them to the controller.
type WebSocketHandler struct {
	hub        *Hub
	controller *Controller
	tokens     *auth.TokenService
}

func NewWebSocketHandler(hub *Hub, controller *Controller, tokens *auth.TokenService) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, controller: controller, tokens: tokens}
}

// HandleWebSocket accepts a connection, assigns or recovers the client id,
// and starts the pumps. A valid ?token= recovers the same client id across
// reconnects. Registration completes before the session frame is queued,
// so the client always receives its id and reconnect token.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientID := ""
	if token := r.URL.Query().Get("token"); token != "" {
		if id, err := h.tokens.ValidateSessionToken(token); err == nil {
			clientID = id
		}
	}
	if clientID == "" {
		clientID = newClientID()
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	s := &Session{
		hub:        h.hub,
		conn:       conn,
		clientID:   clientID,
		send:       make(chan []byte, 256),
		controller: h.controller,
	}

	h.hub.register(s)

	go s.writePump()
	go s.readPump()

	token, err := h.tokens.GenerateSessionToken(clientID)
	if err != nil {
		log.Printf("Failed to generate session token for %s: %v", clientID, err)
	}
	h.hub.Send(clientID, sessionMsg{Type: "session", ClientID: clientID, Token: token})

	h.controller.OnConnect(clientID)
}

func newClientID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return hex.EncodeToString([]byte(time.Now().String()))[:32]
	}
	return hex.EncodeToString(buf)
}
