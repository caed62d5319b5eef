package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/soyeahso/thecafe/internal/conversation"
	"github.com/soyeahso/thecafe/internal/domain"
	"github.com/soyeahso/thecafe/internal/llm"
)

// HealthResponse is returned by health endpoints. The public HTTP endpoint
// only populates Status; the authenticated RPC handler populates all fields.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	Clients  int    `json:"clients,omitempty"`
	Agents   int    `json:"agents,omitempty"`
	Projects int    `json:"projects,omitempty"`
	UptimeMs int64  `json:"uptimeMs,omitempty"`
}

// handleHealth returns the server health status. Only status is exposed
// publicly; detailed info is available via the authenticated RPC health method.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// handleNotFound returns a 404 for unknown routes.
func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "not found",
		"path":  r.URL.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// RequestHandler processes an incoming RPC request frame from a client.
type RequestHandler func(ctx *RequestContext)

// RequestContext carries everything a handler needs.
type RequestContext struct {
	Ctx    context.Context
	Client *Client
	Frame  Frame
	Server *Server
}

// Respond sends a success response.
func (rc *RequestContext) Respond(payload any) {
	if err := rc.Client.Respond(rc.Frame.ID, payload); err != nil {
		rc.Server.log.Warn().Err(err).Str("method", rc.Frame.Method).Msg("failed to send response")
	}
}

// RespondError sends an error response.
func (rc *RequestContext) RespondError(code, message string) {
	rc.Client.RespondError(rc.Frame.ID, ErrorShape{
		Code:    code,
		Message: message,
	})
}

// Fail maps err to an error response.
func (rc *RequestContext) Fail(err error) {
	shape := errorShape(err)
	if shape.Code == CodeInternal {
		rc.Server.log.Error().Err(err).Str("method", rc.Frame.Method).Msg("request failed")
	}
	rc.Client.RespondError(rc.Frame.ID, shape)
}

// Params unmarshals the request params into the given target. A malformed
// body is answered with invalid_params and reported as false.
func (rc *RequestContext) Params(target any) bool {
	if len(rc.Frame.Params) == 0 {
		return true
	}
	if err := json.Unmarshal(rc.Frame.Params, target); err != nil {
		rc.RespondError(CodeInvalidParams, err.Error())
		return false
	}
	return true
}

// errorShape classifies err into a protocol error.
func errorShape(err error) ErrorShape {
	var ve *domain.ValidationError
	var nf *domain.NotFoundError
	var pe *llm.ProviderError
	switch {
	case errors.As(err, &ve):
		return ErrorShape{Code: CodeValidation, Message: err.Error(), Details: map[string]string{"field": ve.Field}}
	case errors.As(err, &nf):
		return ErrorShape{Code: CodeNotFound, Message: err.Error(), Details: map[string]string{"kind": nf.Kind, "id": nf.ID}}
	case errors.As(err, &pe):
		return ErrorShape{
			Code:      CodeProvider,
			Message:   err.Error(),
			Retryable: true,
			Details:   map[string]any{"provider": pe.Provider, "model": pe.Model, "timeout": pe.Timeout()},
		}
	case errors.Is(err, conversation.ErrClosed):
		return ErrorShape{Code: CodeUnavailable, Message: err.Error(), Retryable: true}
	default:
		return ErrorShape{Code: CodeInternal, Message: err.Error()}
	}
}

// notFoundIDs collects the ids of every NotFoundError joined into err.
func notFoundIDs(err error) []string {
	var ids []string
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if nf, ok := e.(*domain.NotFoundError); ok {
			ids = append(ids, nf.ID)
			return
		}
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return ids
}
