package llm

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/soyeahso/thecafe/internal/config"
	"github.com/soyeahso/thecafe/internal/domain"
	"github.com/soyeahso/thecafe/internal/logging"
)

// Registry manages provider clients and resolves catalog model ids to them.
// It is itself a Client that routes each request by its Model.
type Registry struct {
	mu       sync.RWMutex
	clients  map[string]Client // provider name → client
	aliases  map[string]string // model id → provider name
	fallback string            // default provider name
	maxToks  int
	log      *logging.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		clients: make(map[string]Client),
		aliases: make(map[string]string),
		log:     log.Sub("llm.registry"),
	}
}

// Register adds a client under the given provider name.
func (r *Registry) Register(name string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
	r.log.Info().Str("provider", name).Msg("registered completion provider")
}

// Alias maps a model id to a provider.
func (r *Registry) Alias(model, provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[model] = provider
}

// SetFallback sets the provider used when a model has no mapping.
func (r *Registry) SetFallback(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = provider
}

// SetMaxTokens sets the output limit applied to requests that carry none.
func (r *Registry) SetMaxTokens(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxToks = n
}

// Resolve returns the Client for the given model id.
// Resolution order: exact provider name → alias → fallback.
func (r *Registry) Resolve(model string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.clients[model]; ok {
		return c, nil
	}
	if provider, ok := r.aliases[model]; ok {
		if c, ok := r.clients[provider]; ok {
			return c, nil
		}
	}
	if r.fallback != "" {
		if c, ok := r.clients[r.fallback]; ok {
			return c, nil
		}
	}
	return nil, &ProviderError{Provider: "registry", Model: model, Message: fmt.Sprintf("no provider configured for model %q", model)}
}

// List returns all registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Name returns the provider name.
func (r *Registry) Name() string { return "registry" }

// Complete resolves req.Model and forwards the request.
func (r *Registry) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	client, err := r.Resolve(req.Model)
	if err != nil {
		return nil, err
	}
	if req.MaxTokens == 0 {
		r.mu.RLock()
		req.MaxTokens = r.maxToks
		r.mu.RUnlock()
	}

	start := time.Now()
	resp, err := client.Complete(ctx, req)
	if err != nil {
		return nil, AsProviderError(client.Name(), req.Model, err)
	}
	if resp.Duration == 0 {
		resp.Duration = time.Since(start)
	}
	r.log.Debug().
		Str("provider", client.Name()).
		Str("model", req.Model).
		Int("inputTokens", resp.Usage.InputTokens).
		Int("outputTokens", resp.Usage.OutputTokens).
		Dur("duration", resp.Duration).
		Msg("completion finished")
	return resp, nil
}

// NewRegistryFromConfig builds a Registry from the models section. Every
// provider family with an API key is registered (wrapped in a RetryClient)
// and each catalog model of that family is aliased to it. The echo
// provider is always registered; it becomes the fallback when cfg.Offline
// is set or no family has a key.
func NewRegistryFromConfig(ctx context.Context, cfg config.ModelsConfig, log *logging.Logger) (*Registry, error) {
	reg := NewRegistry(log)
	reg.SetMaxTokens(cfg.MaxTokens)
	reg.Register("echo", &EchoClient{})

	if cfg.Offline {
		reg.SetFallback("echo")
		return reg, nil
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	backoff := time.Duration(cfg.RetryBackoffMs) * time.Millisecond

	for _, family := range []string{domain.FamilyAnthropic, domain.FamilyOpenAI, domain.FamilyGemini} {
		p, ok := cfg.Providers[family]
		if !ok || p.APIKey == "" {
			continue
		}
		models := upstreamModels(family, p.Models)

		var client Client
		switch family {
		case domain.FamilyAnthropic:
			c := NewAnthropicClient(p.APIKey, p.BaseURL, models)
			if timeout > 0 {
				c.client.Timeout = timeout
			}
			client = c
		case domain.FamilyOpenAI:
			c := NewOpenAIClient(p.APIKey, p.BaseURL, models)
			if timeout > 0 {
				c.client.Timeout = timeout
			}
			client = c
		case domain.FamilyGemini:
			c, err := NewGeminiClient(ctx, p.APIKey, models)
			if err != nil {
				return nil, fmt.Errorf("gemini provider: %w", err)
			}
			client = c
		}

		reg.Register(family, NewRetryClient(client, cfg.Retries+1, backoff, log))
		for _, m := range domain.Models() {
			if m.Family == family {
				reg.Alias(string(m.ID), family)
			}
		}
	}

	if len(reg.List()) == 1 {
		log.Warn().Msg("no provider API keys configured, replies will be simulated")
		reg.SetFallback("echo")
	}
	return reg, nil
}

// upstreamModels merges configured model names over the family defaults.
func upstreamModels(family string, overrides map[string]string) map[string]string {
	out := maps.Clone(config.DefaultUpstreamModels[family])
	if out == nil {
		out = make(map[string]string)
	}
	maps.Copy(out, overrides)
	return out
}
