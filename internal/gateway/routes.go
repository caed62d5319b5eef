package gateway

import (
	_ "embed"
	"encoding/json"
	"mime"
	"net/http"
	"time"

	"github.com/soyeahso/thecafe/internal/domain"
)

//go:embed web/login.html
var loginPage []byte

// registerHTTPRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /login", handleLoginPage)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.HandleFunc("GET /api/catalog", s.handleCatalog)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /{$}", s.handleIndex)

	// Catch-all for unknown routes
	mux.HandleFunc("/", handleNotFound)
}

func handleLoginPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(loginPage)
}

type loginRequest struct {
	Password string `json:"password"`
}

// handleLogin checks the password and sets the gate cookie. Accepts a JSON
// body or a form post.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.authLimiter.allow(r.RemoteAddr) {
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("login rate limited")
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "Too many attempts"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	var req loginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
			return
		}
	} else {
		req.Password = r.FormValue("password")
	}

	res := s.gate.CheckPassword(req.Password)
	if !res.OK {
		s.authLimiter.recordFailure(r.RemoteAddr)
		s.log.Info().Str("remote", r.RemoteAddr).Str("reason", res.Reason).Msg("login failed")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid password"})
		return
	}

	s.authLimiter.reset(r.RemoteAddr)
	s.gate.SetCookie(w)
	s.log.Info().Str("remote", r.RemoteAddr).Msg("login succeeded")
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.gate.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"domains": s.deps.Catalog.Groups()})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":     "thecafe",
		"version":  s.version,
		"protocol": ProtocolVersion,
		"ws":       "/ws",
	})
}

// registerRPCHandlers sets up all JSON-RPC method handlers.
func (s *Server) registerRPCHandlers() {
	s.Handle("health", s.rpcHealth)
	s.Handle("catalog.domains", s.rpcCatalogDomains)
	s.Handle("catalog.models", s.rpcCatalogModels)

	s.Handle("agents.list", s.rpcAgentsList)
	s.Handle("agents.get", s.rpcAgentsGet)
	s.Handle("agents.create", s.rpcAgentsCreate)
	s.Handle("agents.update", s.rpcAgentsUpdate)
	s.Handle("agents.delete", s.rpcAgentsDelete)

	s.Handle("projects.list", s.rpcProjectsList)
	s.Handle("projects.get", s.rpcProjectsGet)
	s.Handle("projects.create", s.rpcProjectsCreate)
	s.Handle("projects.update", s.rpcProjectsUpdate)
	s.Handle("projects.delete", s.rpcProjectsDelete)
	s.Handle("projects.addAgents", s.rpcProjectsAddAgents)
	s.Handle("projects.removeAgent", s.rpcProjectsRemoveAgent)

	s.Handle("conversations.list", s.rpcConversationsList)
	s.Handle("conversations.get", s.rpcConversationsGet)
	s.Handle("conversations.create", s.rpcConversationsCreate)
	s.Handle("conversations.delete", s.rpcConversationsDelete)
	s.Handle("conversations.setModel", s.rpcConversationsSetModel)
	if s.search != nil {
		s.Handle("conversations.search", s.rpcConversationsSearch)
	}
	s.Handle("chat.send", s.rpcChatSend)

	s.Handle("intelligence.analyze", s.rpcIntelligenceAnalyze)
	s.Handle("intelligence.generate", s.rpcIntelligenceGenerate)
}

// Built-in RPC handlers

func (s *Server) rpcHealth(rc *RequestContext) {
	stats := s.deps.Store.Stats()
	var uptime int64
	if !s.startedAt.IsZero() {
		uptime = time.Since(s.startedAt).Milliseconds()
	}
	rc.Respond(HealthResponse{
		Status:   "ok",
		Version:  s.version,
		Clients:  s.clients.Count(),
		Agents:   stats.Agents,
		Projects: stats.Projects,
		UptimeMs: uptime,
	})
}

func (s *Server) rpcCatalogDomains(rc *RequestContext) {
	rc.Respond(map[string]any{"domains": s.deps.Catalog.Groups()})
}

// ModelInfo is a selectable model and whether a provider serves it.
type ModelInfo struct {
	domain.Model
	Provider  string `json:"provider,omitempty"`
	Available bool   `json:"available"`
}

func (s *Server) rpcCatalogModels(rc *RequestContext) {
	models := domain.Models()
	out := make([]ModelInfo, 0, len(models))
	for _, m := range models {
		info := ModelInfo{Model: m}
		if s.models != nil {
			if c, err := s.models.Resolve(string(m.ID)); err == nil {
				info.Provider = c.Name()
				info.Available = true
			}
		}
		out = append(out, info)
	}
	rc.Respond(map[string]any{"models": out, "default": s.cfg.Models.Default})
}
