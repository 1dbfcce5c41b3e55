package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rudra1in/facultyapp-sub000/internal/logger"
	"github.com/rudra1in/facultyapp-sub000/internal/models"
	"github.com/rudra1in/facultyapp-sub000/internal/pubsub"
)

// Client frame types
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FramePing        = "ping"
)

// Server frame types sent besides bus events
const (
	FramePong         = "pong"
	FrameError        = "error"
	FrameSubscribed   = "subscribed"
	FrameUnsubscribed = "unsubscribed"
)

const (
	writeWait           = 10 * time.Second
	pongWait            = 60 * time.Second
	pingPeriod          = 54 * time.Second
	maxFrameSize        = 4 * 1024
	sendBuffer          = 256
	maxFramesPerMinute  = 120
	maxConversationSubs = 50
)

var log = logger.New("websocket")

var conversationTopicPrefix = pubsub.ConversationTopic("")

// Subscriber hands out bus subscriptions.
type Subscriber interface {
	Subscribe(topic string) *pubsub.Subscription
}

// Authorizer decides whether a viewer may follow a conversation.
type Authorizer interface {
	Open(ctx context.Context, viewer models.Viewer, conversationID string) (*models.Conversation, error)
}

// ClientFrame is a request sent by the browser.
type ClientFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ServerFrame is a control reply. Bus events are sent as pubsub.Event.
type ServerFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	Error          string `json:"error,omitempty"`
	Timestamp      int64  `json:"ts"`
}

// Client represents one connected websocket
type Client struct {
	ID     uuid.UUID
	Viewer models.Viewer
	Socket *websocket.Conn
	Send   chan []byte

	mu     sync.Mutex
	closed bool
	subs   map[string]*pubsub.Subscription
}

// Manager maintains the set of active clients
type Manager struct {
	bus     Subscriber
	authz   Authorizer
	origins map[string]bool

	clients    map[uuid.UUID]*Client
	register   chan *Client
	unregister chan *Client
	quit       chan struct{}
	mutex      sync.Mutex
}

// Option configures a Manager
type Option func(*Manager)

// WithAllowedOrigins restricts upgrades to the given Origin headers. With no
// origins every origin is accepted.
func WithAllowedOrigins(origins ...string) Option {
	return func(m *Manager) {
		for _, o := range origins {
			m.origins[o] = true
		}
	}
}

// NewManager creates a new websocket manager
func NewManager(bus Subscriber, authz Authorizer, opts ...Option) *Manager {
	m := &Manager{
		bus:        bus,
		authz:      authz,
		origins:    make(map[string]bool),
		clients:    make(map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run processes registrations until Stop is called
func (m *Manager) Run() {
	for {
		select {
		case client := <-m.register:
			m.mutex.Lock()
			m.clients[client.ID] = client
			m.mutex.Unlock()
			log.Info("Client connected: %s (user %s)", client.ID, client.Viewer.ID)
		case client := <-m.unregister:
			m.mutex.Lock()
			if _, ok := m.clients[client.ID]; ok {
				delete(m.clients, client.ID)
				client.shutdown()
				log.Info("Client disconnected: %s", client.ID)
			}
			m.mutex.Unlock()
		case <-m.quit:
			m.mutex.Lock()
			for id, client := range m.clients {
				delete(m.clients, id)
				client.shutdown()
			}
			m.mutex.Unlock()
			return
		}
	}
}

// Stop disconnects every client and ends Run
func (m *Manager) Stop() {
	close(m.quit)
}

// ClientCount returns the number of registered clients
func (m *Manager) ClientCount() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.clients)
}

func (m *Manager) checkOrigin(r *http.Request) bool {
	if len(m.origins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || m.origins[origin] {
		return true
	}
	log.Warn("Rejected websocket origin %s", origin)
	return false
}

// HandleWebSocket upgrades an authenticated request. The auth middleware must
// have set userID and role in the context.
func (m *Manager) HandleWebSocket(c *gin.Context) {
	userID := c.GetString("userID")
	role := c.GetString("role")
	if userID == "" {
		log.Warn("No userID in context, rejecting connection from %s", c.Request.RemoteAddr)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     m.checkOrigin,
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade connection: %v", err)
		return
	}

	client := &Client{
		ID:     uuid.New(),
		Viewer: models.Viewer{ID: userID, Role: models.Role(role)},
		Socket: conn,
		Send:   make(chan []byte, sendBuffer),
		subs:   make(map[string]*pubsub.Subscription),
	}
	select {
	case m.register <- client:
	case <-m.quit:
		conn.Close()
		return
	}

	client.follow(m.bus.Subscribe(pubsub.UserTopic(userID)))

	go client.readPump(m)
	go client.writePump()
}

// follow forwards events of sub to the socket until sub is cancelled or
// evicted.
func (c *Client) follow(sub *pubsub.Subscription) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		sub.Cancel()
		return
	}
	c.subs[sub.Topic()] = sub
	c.mu.Unlock()

	go func() {
		for e := range sub.C() {
			out := *e
			out.Origin = ""
			data, err := json.Marshal(&out)
			if err != nil {
				log.Error("Failed to encode %s event: %v", e.Type, err)
				continue
			}
			c.enqueue(data)
		}
		c.mu.Lock()
		evicted := !c.closed && c.subs[sub.Topic()] == sub
		if evicted {
			delete(c.subs, sub.Topic())
		}
		c.mu.Unlock()
		if evicted {
			c.dropped(sub.Topic())
		}
	}()
}

// dropped tells the client that the bus evicted one of its subscriptions.
// Losing the user topic leaves nothing worth keeping, so the socket is closed.
func (c *Client) dropped(topic string) {
	conversationID, ok := strings.CutPrefix(topic, conversationTopicPrefix)
	if !ok {
		log.Warn("Client %s lost its user topic, closing", c.ID)
		c.Socket.Close()
		return
	}
	c.reply(ServerFrame{Type: FrameUnsubscribed, ConversationID: conversationID, Error: "subscription dropped, resubscribe"})
}

func (c *Client) unfollow(topic string) bool {
	c.mu.Lock()
	sub, ok := c.subs[topic]
	delete(c.subs, topic)
	c.mu.Unlock()
	if ok {
		sub.Cancel()
	}
	return ok
}

func (c *Client) conversationSubs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for topic := range c.subs {
		if strings.HasPrefix(topic, conversationTopicPrefix) {
			n++
		}
	}
	return n
}

// enqueue queues data for the write pump. A client that cannot keep up is
// disconnected.
func (c *Client) enqueue(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- data:
	default:
		log.Warn("Client %s is not keeping up, closing", c.ID)
		c.Socket.Close()
	}
}

func (c *Client) reply(frame ServerFrame) {
	frame.Timestamp = time.Now().UnixMilli()
	data, _ := json.Marshal(frame)
	c.enqueue(data)
}

// shutdown cancels every subscription and closes Send. Called once by the
// manager.
func (c *Client) shutdown() {
	c.mu.Lock()
	subs := c.subs
	c.subs = make(map[string]*pubsub.Subscription)
	c.closed = true
	close(c.Send)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
}

// readPump handles client frames until the connection drops
func (c *Client) readPump(m *Manager) {
	defer func() {
		select {
		case m.unregister <- c:
		case <-m.quit:
		}
		c.Socket.Close()
	}()

	c.Socket.SetReadLimit(maxFrameSize)
	c.Socket.SetReadDeadline(time.Now().Add(pongWait))
	c.Socket.SetPongHandler(func(string) error {
		c.Socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	frames := 0
	windowStart := time.Now()

	for {
		_, data, err := c.Socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error("Error reading from client %s: %v", c.ID, err)
			} else {
				log.Debug("Client %s closed connection: %v", c.ID, err)
			}
			return
		}

		if time.Since(windowStart) >= time.Minute {
			frames, windowStart = 0, time.Now()
		}
		frames++
		if frames > maxFramesPerMinute {
			c.reply(ServerFrame{Type: FrameError, Error: "rate limit exceeded"})
			continue
		}

		var frame ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.reply(ServerFrame{Type: FrameError, Error: "invalid frame format"})
			continue
		}
		c.handle(m, frame)
	}
}

func (c *Client) handle(m *Manager, frame ClientFrame) {
	switch frame.Type {
	case FramePing:
		c.reply(ServerFrame{Type: FramePong})
	case FrameSubscribe:
		topic := pubsub.ConversationTopic(frame.ConversationID)
		if c.conversationSubs() >= maxConversationSubs {
			c.reply(ServerFrame{Type: FrameError, ConversationID: frame.ConversationID, Error: "too many subscriptions"})
			return
		}
		if _, err := m.authz.Open(context.Background(), c.Viewer, frame.ConversationID); err != nil {
			c.reply(ServerFrame{Type: FrameError, ConversationID: frame.ConversationID, Error: err.Error()})
			return
		}
		c.mu.Lock()
		_, already := c.subs[topic]
		c.mu.Unlock()
		if !already {
			c.follow(m.bus.Subscribe(topic))
		}
		c.reply(ServerFrame{Type: FrameSubscribed, ConversationID: frame.ConversationID})
	case FrameUnsubscribe:
		c.unfollow(pubsub.ConversationTopic(frame.ConversationID))
		c.reply(ServerFrame{Type: FrameUnsubscribed, ConversationID: frame.ConversationID})
	default:
		log.Warn("Unknown frame type '%s' from client %s", frame.Type, c.ID)
		c.reply(ServerFrame{Type: FrameError, Error: "unknown frame type"})
	}
}

// writePump pumps queued frames to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Socket.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Socket.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
