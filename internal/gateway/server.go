// Package gateway serves the cookie-gated HTTP endpoints and the
// WebSocket RPC used by the web client and the CLI.
package gateway

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/soyeahso/thecafe/internal/catalog"
	"github.com/soyeahso/thecafe/internal/config"
	"github.com/soyeahso/thecafe/internal/conversation"
	"github.com/soyeahso/thecafe/internal/domain"
	"github.com/soyeahso/thecafe/internal/entity"
	"github.com/soyeahso/thecafe/internal/hooks"
	"github.com/soyeahso/thecafe/internal/llm"
	"github.com/soyeahso/thecafe/internal/logging"
	"github.com/soyeahso/thecafe/internal/recommend"
	"github.com/soyeahso/thecafe/internal/store"
	"github.com/soyeahso/thecafe/internal/version"
)

var ErrClientClosed = errors.New("client connection closed")

const (
	maxPayload       = 4 * 1024 * 1024 // 4MB
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
	// replyWaitTimeout bounds chat.send calls that wait for the reply.
	replyWaitTimeout = 5 * time.Minute
)

// hookName tags the gateway's hook registrations so Close can remove them.
const hookName = "gateway"

// Deps are the services the gateway exposes.
type Deps struct {
	Store   *entity.Store
	Catalog *catalog.Index
	Engine  *recommend.Engine
	Drafter *recommend.Drafter
	Chats   *conversation.Manager
}

// MessageSearcher runs transcript searches. *store.DB implements it.
type MessageSearcher interface {
	SearchMessages(ctx context.Context, query string, limit int) ([]store.MessageHit, error)
}

// Server is the thecafe gateway HTTP + WebSocket server.
type Server struct {
	cfg      config.Config
	deps     Deps
	gate     *Gate
	log      *logging.Logger
	clients  *ClientRegistry
	handlers map[string]RequestHandler
	version  string
	eventSeq atomic.Int64

	hooks  *hooks.Manager
	search MessageSearcher
	models *llm.Registry

	startedAt   time.Time
	httpServer  *http.Server
	upgrader    websocket.Upgrader
	authLimiter *authRateLimiter

	// ctx is cancelled by Close and bounds background work.
	ctx       context.Context
	cancel    context.CancelFunc
	pending   sync.WaitGroup
	closeOnce sync.Once
}

// ServerOption configures the gateway server.
type ServerOption func(*Server)

// WithHooks subscribes the server to entity events, which it rebroadcasts
// to every client.
func WithHooks(hm *hooks.Manager) ServerOption {
	return func(s *Server) {
		s.hooks = hm
	}
}

// WithSearch enables conversations.search.
func WithSearch(ms MessageSearcher) ServerOption {
	return func(s *Server) {
		s.search = ms
	}
}

// WithModels reports provider availability in catalog.models.
func WithModels(r *llm.Registry) ServerOption {
	return func(s *Server) {
		s.models = r
	}
}

// New creates a new gateway server.
func New(cfg config.Config, deps Deps, log *logging.Logger, opts ...ServerOption) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		ctx:         ctx,
		cancel:      cancel,
		cfg:         cfg,
		deps:        deps,
		gate:        NewGate(cfg.Auth, cfg.Gateway.TLS.Enabled),
		log:         log.Sub("gateway"),
		clients:     NewClientRegistry(log.Sub("clients")),
		handlers:    make(map[string]RequestHandler),
		version:     version.Version,
		authLimiter: newAuthRateLimiter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkWebSocketOrigin(cfg.Gateway.AllowedOrigins),
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	s.registerRPCHandlers()
	if s.hooks != nil {
		s.hooks.OnEach(hooks.EntityEvents, hookName, s.onEntityEvent)
	}
	go s.authLimiter.run(s.ctx.Done())
	return s
}

// checkWebSocketOrigin returns a function that validates WebSocket Origin headers.
// If no origins are configured, only same-origin (no Origin header) or non-browser
// clients are allowed. If origins are configured, the Origin must match one of them.
func checkWebSocketOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Same-origin or non-browser clients
		}
		if "http://"+r.Host == origin || "https://"+r.Host == origin {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// Handle registers an RPC method handler.
func (s *Server) Handle(method string, handler RequestHandler) {
	s.handlers[method] = handler
}

// Methods returns the sorted list of registered RPC method names.
func (s *Server) Methods() []string {
	methods := make([]string, 0, len(s.handlers))
	for m := range s.handlers {
		methods = append(methods, m)
	}
	slices.Sort(methods)
	return methods
}

// Handler returns the full HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerHTTPRoutes(mux)
	return withMiddleware(mux, s.log, s.gate, s.cfg.Gateway.AllowedOrigins)
}

// ResolveBindAddr computes the listen address from config.
func ResolveBindAddr(cfg config.GatewayConfig) string {
	switch cfg.Bind {
	case "loopback":
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	case "lan", "auto":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return fmt.Sprintf("%s:%d", host, cfg.Port)
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Start begins listening for HTTP and WebSocket connections.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	if !s.gate.Configured() {
		return &config.ConfigError{Message: "auth.password is required to serve"}
	}
	addr := ResolveBindAddr(s.cfg.Gateway)

	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
		BaseContext: func(l net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	if s.cfg.Gateway.TLS.Enabled {
		cert, err := tls.LoadX509KeyPair(s.cfg.Gateway.TLS.CertPath, s.cfg.Gateway.TLS.KeyPath)
		if err != nil {
			ln.Close()
			return fmt.Errorf("loading TLS certificate: %w", err)
		}
		tlsCfg := &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
		ln = tls.NewListener(ln, tlsCfg)
		s.log.Info().Msg("TLS enabled")
	} else if s.cfg.Gateway.Bind != "loopback" {
		s.log.Warn().Msg("TLS is not enabled, the password will be sent in cleartext")
	}

	s.startedAt = time.Now()

	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("bind", s.cfg.Gateway.Bind).
		Int("methods", len(s.handlers)).
		Msg("gateway server ready")

	s.hooks.Emit(ctx, hooks.EventGatewayStart, map[string]any{
		"addr": ln.Addr().String(),
	})

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down gateway server")
		s.hooks.Emit(context.Background(), hooks.EventGatewayStop, nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.Close()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close disconnects every client, waits for pending chat replies and
// detaches from the hook manager. It is safe to call more than once.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		if s.hooks != nil {
			s.hooks.OffEach(hooks.EntityEvents, hookName)
		}
		s.clients.CloseAll()
		s.pending.Wait()
	})
}

// Addr returns the server's listen address, or empty string if not started.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}

// nextSeq numbers outgoing events.
func (s *Server) nextSeq() int64 { return s.eventSeq.Add(1) }

// onEntityEvent rebroadcasts store mutations. Transcript appends go out as
// chat.message, everything else as catalog.changed.
func (s *Server) onEntityEvent(ctx context.Context, p hooks.Payload) error {
	if p.Event == hooks.EventMessageAppended {
		m, ok := p.Data["message"].(domain.Message)
		if !ok {
			return fmt.Errorf("%s: unexpected message payload %T", p.Event, p.Data["message"])
		}
		cid, _ := p.Data["conversationId"].(string)
		s.clients.Broadcast(EventChatMessage, ChatMessageEvent{ConversationID: cid, Message: m}, s.nextSeq())
		return nil
	}
	s.clients.Broadcast(EventCatalogChanged, CatalogChangedEvent{
		Event:   p.Event,
		ID:      p.ID(),
		Version: s.deps.Store.Version(),
	}, s.nextSeq())
	return nil
}

// handleWebSocket upgrades HTTP to WebSocket and runs the connection loop.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Rate-limit connection attempts per IP
	if !s.authLimiter.allow(r.RemoteAddr) {
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("rate limited, too many failed auth attempts")
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxPayload)

	s.log.Debug().Str("remote", r.RemoteAddr).Msg("new websocket connection")

	client, err := s.handshake(conn, r)
	if err != nil {
		s.log.Warn().Err(err).Msg("handshake failed")
		s.authLimiter.recordFailure(r.RemoteAddr)
		conn.Close()
		return
	}

	s.clients.Add(client)
	defer func() {
		s.clients.Remove(client.ConnID)
		client.Close()
	}()

	s.readLoop(r.Context(), client)
}

// handshake performs the WebSocket authentication handshake.
// Flow: server sends challenge → client sends connect → server validates → sends hello-ok.
func (s *Server) handshake(conn *websocket.Conn, r *http.Request) (*Client, error) {
	conn.SetReadDeadline(time.Now().Add(handshakeTimeout))

	challenge, err := NewEvent(EventConnectChallenge, map[string]any{
		"nonce": uuid.New().String(),
		"ts":    time.Now().UnixMilli(),
	}, 0)
	if err != nil {
		return nil, fmt.Errorf("creating challenge: %w", err)
	}
	if err := conn.WriteJSON(challenge); err != nil {
		return nil, fmt.Errorf("sending challenge: %w", err)
	}

	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("reading connect: %w", err)
	}

	var frame Frame
	if err := json.Unmarshal(msg, &frame); err != nil {
		return nil, fmt.Errorf("parsing connect frame: %w", err)
	}

	if frame.Type != FrameTypeRequest || frame.Method != "connect" {
		sendErrorAndClose(conn, frame.ID, CodeProtocol, "expected connect request")
		return nil, fmt.Errorf("expected connect request, got type=%s method=%s", frame.Type, frame.Method)
	}

	var params ConnectParams
	if len(frame.Params) > 0 {
		if err := json.Unmarshal(frame.Params, &params); err != nil {
			sendErrorAndClose(conn, frame.ID, CodeInvalidParams, "invalid connect params")
			return nil, fmt.Errorf("parsing connect params: %w", err)
		}
	}
	if params.MinProtocol > ProtocolVersion {
		sendErrorAndClose(conn, frame.ID, CodeProtocol, fmt.Sprintf("protocol %d is not supported", params.MinProtocol))
		return nil, fmt.Errorf("client needs protocol %d", params.MinProtocol)
	}

	authResult := s.gate.Authorize(r, params.Auth)
	if !authResult.OK {
		sendErrorAndClose(conn, frame.ID, CodeUnauthorized, authResult.Reason)
		return nil, fmt.Errorf("auth failed: %s", authResult.Reason)
	}

	conn.SetReadDeadline(time.Time{})

	var analyzer recommend.Analyzer
	if s.deps.Engine != nil {
		analyzer = s.deps.Engine
	}
	client := NewClient(conn, params.Client, authResult, analyzer, s.log.Sub("ws"))

	hello := HelloOK{
		Protocol: ProtocolVersion,
		Server: ServerInfo{
			Version: s.version,
			Commit:  version.Get().Commit,
			ConnID:  client.ConnID,
		},
		Features: Features{
			Methods: s.Methods(),
			Events:  Events,
		},
		Policy: ServerPolicy{
			MaxPayload:     maxPayload,
			TickIntervalMs: 30000,
		},
	}

	resp, err := NewResponse(frame.ID, hello)
	if err != nil {
		return nil, fmt.Errorf("creating hello response: %w", err)
	}
	if err := conn.WriteJSON(resp); err != nil {
		return nil, fmt.Errorf("sending hello: %w", err)
	}

	s.log.Info().
		Str("connId", client.ConnID).
		Str("clientId", params.Client.ID).
		Str("clientVersion", params.Client.Version).
		Str("authMethod", authResult.Method).
		Msg("client authenticated")

	return client, nil
}

// readLoop processes incoming frames from an authenticated client.
func (s *Server) readLoop(ctx context.Context, client *Client) {
	for {
		frame, err := client.ReadFrame()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Str("connId", client.ConnID).Msg("client closed connection")
			} else {
				s.log.Debug().Err(err).Str("connId", client.ConnID).Msg("read error")
			}
			return
		}

		if frame.Type != FrameTypeRequest {
			s.log.Debug().Str("type", frame.Type).Msg("ignoring non-request frame")
			continue
		}

		s.dispatch(ctx, client, frame)
	}
}

// dispatch routes a request frame to the appropriate handler.
func (s *Server) dispatch(ctx context.Context, client *Client, frame Frame) {
	handler, ok := s.handlers[frame.Method]
	if !ok {
		client.RespondError(frame.ID, ErrorShape{
			Code:    CodeMethodNotFound,
			Message: "unknown method: " + frame.Method,
		})
		return
	}

	handler(&RequestContext{
		Ctx:    ctx,
		Client: client,
		Frame:  frame,
		Server: s,
	})
}

// sendErrorAndClose sends an error response and closes the connection.
func sendErrorAndClose(conn *websocket.Conn, reqID, code, message string) {
	errFrame := NewErrorResponse(reqID, ErrorShape{
		Code:    code,
		Message: message,
	})
	conn.WriteJSON(errFrame)
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, message))
}
