package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/soyeahso/thecafe/internal/logging"
	"github.com/soyeahso/thecafe/internal/recommend"
)

// Client is one authenticated browser tab or CLI connection.
type Client struct {
	ConnID      string
	Info        ClientInfo
	Socket      *websocket.Conn
	AuthResult  AuthResult
	ConnectedAt time.Time

	// intel drives this connection's intelligence panel. Each connection
	// has its own so one tab cannot supersede another's query.
	intel *recommend.Evaluator

	mu     sync.Mutex
	closed bool
	log    *logging.Logger
}

// NewClient wraps an authenticated connection. A nil analyzer disables
// background intelligence updates for the client.
func NewClient(conn *websocket.Conn, info ClientInfo, authResult AuthResult, analyzer recommend.Analyzer, log *logging.Logger) *Client {
	c := &Client{
		ConnID:      uuid.NewString(),
		Info:        info,
		Socket:      conn,
		AuthResult:  authResult,
		ConnectedAt: time.Now(),
		log:         log,
	}
	if analyzer != nil {
		c.intel = recommend.NewEvaluator(analyzer, log)
	}
	return c
}

// Send writes a frame. Safe for concurrent use.
func (c *Client) Send(frame Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	c.Socket.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.Socket.WriteJSON(frame)
}

// SendEvent sends a named event with payload.
func (c *Client) SendEvent(event string, payload any, seq int64) error {
	f, err := NewEvent(event, payload, seq)
	if err != nil {
		return err
	}
	return c.Send(f)
}

// Respond sends a success response for the given request ID.
func (c *Client) Respond(reqID string, payload any) error {
	f, err := NewResponse(reqID, payload)
	if err != nil {
		return err
	}
	return c.Send(f)
}

// RespondError sends an error response for the given request ID.
func (c *Client) RespondError(reqID string, errShape ErrorShape) error {
	return c.Send(NewErrorResponse(reqID, errShape))
}

// ReadFrame reads the next frame from the WebSocket.
func (c *Client) ReadFrame() (Frame, error) {
	_, msg, err := c.Socket.ReadMessage()
	if err != nil {
		return Frame{}, err
	}
	var f Frame
	if err := json.Unmarshal(msg, &f); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// Analyzes reports whether the client has a background evaluator.
func (c *Client) Analyzes() bool { return c.intel != nil }

// Analyze queues q for the intelligence panel and returns its sequence
// number, or 0 when the client cannot analyze. The result arrives as an
// intelligence.update event unless a newer query supersedes it first.
func (c *Client) Analyze(ctx context.Context, q recommend.Query, nextSeq func() int64) uint64 {
	if c.intel == nil {
		return 0
	}
	return c.intel.Submit(ctx, q, func(u recommend.Update) {
		payload := IntelligenceUpdateEvent{Seq: u.Seq, Query: u.Query}
		if u.Err != nil {
			shape := errorShape(u.Err)
			payload.Error = &shape
		} else {
			payload.Result = &u.Result
		}
		if err := c.SendEvent(EventIntelligenceUpdate, payload, nextSeq()); err != nil {
			c.log.Debug().Err(err).Str("connId", c.ConnID).Uint64("seq", u.Seq).Msg("intelligence update not delivered")
		}
	})
}

// Close stops the evaluator and closes the socket. Safe to call twice.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	var err error
	if c.Socket != nil {
		err = c.Socket.Close()
	}
	c.mu.Unlock()

	if c.intel != nil {
		c.intel.Close()
	}
	return err
}

// ClientRegistry tracks connected clients.
type ClientRegistry struct {
	mu      sync.RWMutex
	clients map[string]*Client // connID → Client
	log     *logging.Logger
}

// NewClientRegistry creates an empty client registry.
func NewClientRegistry(log *logging.Logger) *ClientRegistry {
	return &ClientRegistry{
		clients: make(map[string]*Client),
		log:     log,
	}
}

// Add registers a connected client.
func (r *ClientRegistry) Add(c *Client) {
	r.mu.Lock()
	r.clients[c.ConnID] = c
	n := len(r.clients)
	r.mu.Unlock()
	r.log.Info().
		Str("connId", c.ConnID).
		Str("client", c.Info.ID).
		Str("auth", c.AuthResult.Method).
		Int("connected", n).
		Msg("client connected")
}

// Remove unregisters a client by connection ID.
func (r *ClientRegistry) Remove(connID string) {
	r.mu.Lock()
	delete(r.clients, connID)
	n := len(r.clients)
	r.mu.Unlock()
	r.log.Info().Str("connId", connID).Int("connected", n).Msg("client disconnected")
}

// Get returns a client by connection ID.
func (r *ClientRegistry) Get(connID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[connID]
	return c, ok
}

// Count returns the number of connected clients.
func (r *ClientRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

func (r *ClientRegistry) snapshot() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

// Broadcast sends an event to every client. Writes happen outside the
// registry lock so a slow socket does not block connects.
func (r *ClientRegistry) Broadcast(event string, payload any, seq int64) {
	f, err := NewEvent(event, payload, seq)
	if err != nil {
		r.log.Error().Err(err).Str("event", event).Msg("encoding broadcast")
		return
	}
	for _, c := range r.snapshot() {
		err := c.Send(f)
		switch {
		case err == nil, errors.Is(err, ErrClientClosed):
		default:
			r.log.Warn().Err(err).Str("connId", c.ConnID).Str("event", event).Msg("broadcast send failed")
		}
	}
}

// CloseAll closes and forgets every client.
func (r *ClientRegistry) CloseAll() {
	r.mu.Lock()
	clients := make([]*Client, 0, len(r.clients))
	for id, c := range r.clients {
		clients = append(clients, c)
		delete(r.clients, id)
	}
	r.mu.Unlock()
	for _, c := range clients {
		c.Close()
	}
}
