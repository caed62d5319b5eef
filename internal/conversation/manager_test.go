package conversation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/soyeahso/thecafe/internal/domain"
	"github.com/soyeahso/thecafe/internal/entity"
	"github.com/soyeahso/thecafe/internal/hooks"
	"github.com/soyeahso/thecafe/internal/llm"
	"github.com/soyeahso/thecafe/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

type fixture struct {
	store *entity.Store
	agent domain.Agent
	conv  domain.Conversation
}

func newFixture(t *testing.T, opts ...entity.Option) fixture {
	t.Helper()
	ctx := context.Background()
	store := entity.New(silentLog(), opts...)
	agent, err := store.CreateAgent(ctx, domain.AgentInput{
		Role:           "Copywriter",
		Specialization: "Email Campaigns",
		Domain:         domain.DomainMarketing,
		SubCategory:    "copywriting",
		Description:    "Writes email sequences.",
		SystemPrompt:   "Write in a warm, direct voice.",
	})
	require.NoError(t, err)
	conv, err := store.CreateConversation(ctx, domain.ConversationInput{AgentID: agent.ID})
	require.NoError(t, err)
	return fixture{store: store, agent: agent, conv: conv}
}

func newManager(t *testing.T, f fixture, client llm.Client, cfg Config, opts ...Option) *Manager {
	t.Helper()
	m := NewManager(f.store, client, cfg, silentLog(), opts...)
	t.Cleanup(m.Close)
	return m
}

func echoing() *llm.MockClient {
	return &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			last := req.Messages[len(req.Messages)-1]
			return &llm.CompletionResponse{Content: "re: " + last.Content, Model: req.Model}, nil
		},
	}
}

// gated blocks every completion until release receives a value.
func gated() (*llm.MockClient, chan struct{}) {
	release := make(chan struct{})
	return &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			last := req.Messages[len(req.Messages)-1]
			return &llm.CompletionResponse{Content: "re: " + last.Content, Model: req.Model}, nil
		},
	}, release
}

func wait(t *testing.T, turn *Turn) (domain.Message, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return turn.Wait(ctx)
}

func transcript(t *testing.T, f fixture) []string {
	t.Helper()
	c, err := f.store.Conversation(f.conv.ID)
	require.NoError(t, err)
	out := make([]string, len(c.Messages))
	for i, m := range c.Messages {
		out[i] = fmt.Sprintf("%s:%s", m.Role, m.Content)
	}
	return out
}

func requireState(t *testing.T, m *Manager, id string, want State) {
	t.Helper()
	assert.Eventually(t, func() bool {
		s, err := m.State(id)
		return err == nil && s == want
	}, 2*time.Second, 5*time.Millisecond)
}

func TestAppendUserMessageReply(t *testing.T) {
	f := newFixture(t)
	client := echoing()
	m := newManager(t, f, client, Config{})

	state, err := m.State(f.conv.ID)
	require.NoError(t, err)
	assert.Equal(t, StateEmpty, state)

	turn, err := m.AppendUserMessage(context.Background(), f.conv.ID, "  Plan a welcome series  ")
	require.NoError(t, err)
	assert.Equal(t, "Plan a welcome series", turn.UserMessage().Content)
	assert.Equal(t, domain.RoleUser, turn.UserMessage().Role)

	reply, err := wait(t, turn)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAssistant, reply.Role)
	assert.Equal(t, "re: Plan a welcome series", reply.Content)
	assert.Equal(t, domain.DefaultModel, reply.Model)

	assert.Equal(t, []string{"user:Plan a welcome series", "assistant:re: Plan a welcome series"}, transcript(t, f))
	requireState(t, m, f.conv.ID, StateIdle)

	reqs := client.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, string(domain.DefaultModel), reqs[0].Model)
	assert.Contains(t, reqs[0].System, "You are Copywriter - Email Campaigns.\n")
	assert.Contains(t, reqs[0].System, "Write in a warm, direct voice.")
	assert.Equal(t, []llm.Message{{Role: "user", Content: "Plan a welcome series"}}, reqs[0].Messages)
}

func TestQueuedMessagesAlternate(t *testing.T) {
	f := newFixture(t)
	client, release := gated()
	m := newManager(t, f, client, Config{})
	ctx := context.Background()

	t1, err := m.AppendUserMessage(ctx, f.conv.ID, "one")
	require.NoError(t, err)
	t2, err := m.AppendUserMessage(ctx, f.conv.ID, "two")
	require.NoError(t, err)
	t3, err := m.AppendUserMessage(ctx, f.conv.ID, "three")
	require.NoError(t, err)

	assert.Equal(t, 2, m.Pending(f.conv.ID))
	assert.Empty(t, t2.UserMessage().ID, "queued message is not stored yet")
	assert.Equal(t, []string{"user:one"}, transcript(t, f))
	state, err := m.State(f.conv.ID)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingReply, state)

	for range 3 {
		release <- struct{}{}
	}
	for _, turn := range []*Turn{t1, t2, t3} {
		_, err := wait(t, turn)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{
		"user:one", "assistant:re: one",
		"user:two", "assistant:re: two",
		"user:three", "assistant:re: three",
	}, transcript(t, f))

	reqs := client.Requests()
	require.Len(t, reqs, 3)
	for i, want := range []int{1, 3, 5} {
		assert.Len(t, reqs[i].Messages, want)
	}
	requireState(t, m, f.conv.ID, StateIdle)
	assert.Zero(t, m.Pending(f.conv.ID))
}

func TestProviderFailureKeepsUserMessage(t *testing.T) {
	f := newFixture(t)
	fail := true
	var mu sync.Mutex
	client := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			mu.Lock()
			defer mu.Unlock()
			if fail {
				fail = false
				return nil, &llm.ProviderError{Provider: "anthropic", Model: req.Model, Code: 500, Message: "internal error"}
			}
			return &llm.CompletionResponse{Content: "recovered"}, nil
		},
	}
	m := newManager(t, f, client, Config{})
	ctx := context.Background()

	turn, err := m.AppendUserMessage(ctx, f.conv.ID, "first try")
	require.NoError(t, err)
	_, err = wait(t, turn)
	var pe *llm.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 500, pe.Code)
	assert.Equal(t, []string{"user:first try"}, transcript(t, f))
	requireState(t, m, f.conv.ID, StateIdle)

	turn, err = m.AppendUserMessage(ctx, f.conv.ID, "again")
	require.NoError(t, err)
	reply, err := wait(t, turn)
	require.NoError(t, err)
	assert.Equal(t, "recovered", reply.Content)
	assert.Equal(t, []string{"user:first try", "user:again", "assistant:recovered"}, transcript(t, f))
}

func TestEmptyCompletionIsProviderError(t *testing.T) {
	f := newFixture(t)
	client := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return &llm.CompletionResponse{Content: "  "}, nil
		},
	}
	m := newManager(t, f, client, Config{})

	turn, err := m.AppendUserMessage(context.Background(), f.conv.ID, "hello")
	require.NoError(t, err)
	_, err = wait(t, turn)
	assert.ErrorIs(t, err, llm.ErrProvider)
	assert.Len(t, transcript(t, f), 1)
}

func TestReplyTimeout(t *testing.T) {
	f := newFixture(t)
	client, _ := gated()
	m := newManager(t, f, client, Config{ReplyTimeout: 20 * time.Millisecond})

	turn, err := m.AppendUserMessage(context.Background(), f.conv.ID, "are you there")
	require.NoError(t, err)
	_, err = wait(t, turn)

	var pe *llm.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.True(t, pe.Timeout())
	assert.Equal(t, []string{"user:are you there"}, transcript(t, f))
	requireState(t, m, f.conv.ID, StateIdle)
}

func TestAppendUserMessageErrors(t *testing.T) {
	f := newFixture(t)
	m := newManager(t, f, echoing(), Config{})
	ctx := context.Background()

	_, err := m.AppendUserMessage(ctx, f.conv.ID, "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = m.AppendUserMessage(ctx, "missing", "hello")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, f.store.DeleteAgent(ctx, f.agent.ID))
	_, err = m.AppendUserMessage(ctx, f.conv.ID, "hello")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, transcript(t, f))
}

func TestSetModelAffectsLaterMessagesOnly(t *testing.T) {
	f := newFixture(t)
	client, release := gated()
	m := newManager(t, f, client, Config{})
	ctx := context.Background()

	t1, err := m.AppendUserMessage(ctx, f.conv.ID, "one")
	require.NoError(t, err)
	t2, err := m.AppendUserMessage(ctx, f.conv.ID, "two")
	require.NoError(t, err)

	conv, err := m.SetModel(ctx, f.conv.ID, "gpt-4")
	require.NoError(t, err)
	assert.Equal(t, domain.ModelID("gpt-4"), conv.CurrentModel)

	t3, err := m.AppendUserMessage(ctx, f.conv.ID, "three")
	require.NoError(t, err)

	for range 3 {
		release <- struct{}{}
	}
	var models []domain.ModelID
	for _, turn := range []*Turn{t1, t2, t3} {
		reply, err := wait(t, turn)
		require.NoError(t, err)
		models = append(models, reply.Model)
	}
	assert.Equal(t, []domain.ModelID{"claude-sonnet-4", "claude-sonnet-4", "gpt-4"}, models)

	var sent []string
	for _, r := range client.Requests() {
		sent = append(sent, r.Model)
	}
	assert.Equal(t, []string{"claude-sonnet-4", "claude-sonnet-4", "gpt-4"}, sent)

	_, err = m.SetModel(ctx, f.conv.ID, "llama-3")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTopicDetection(t *testing.T) {
	hm := hooks.NewManager(silentLog())
	f := newFixture(t, entity.WithHooks(hm))

	var mu sync.Mutex
	var topics []Topic
	var hooked []string
	hm.On(hooks.EventTopicDetected, "test", func(ctx context.Context, p hooks.Payload) error {
		mu.Lock()
		defer mu.Unlock()
		hooked = append(hooked, p.Data["topic"].(string))
		return nil
	})

	m := newManager(t, f, echoing(), Config{TitleLength: 24},
		WithHooks(hm),
		WithTopicHandler(func(ctx context.Context, tp Topic) {
			mu.Lock()
			defer mu.Unlock()
			topics = append(topics, tp)
		}))
	ctx := context.Background()

	turn, err := m.AppendUserMessage(ctx, f.conv.ID, "Email drip campaign for our SaaS launch")
	require.NoError(t, err)
	_, err = wait(t, turn)
	require.NoError(t, err)
	turn, err = m.AppendUserMessage(ctx, f.conv.ID, "make it shorter")
	require.NoError(t, err)
	_, err = wait(t, turn)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, topics, 1)
	assert.Equal(t, Topic{ConversationID: f.conv.ID, AgentID: f.agent.ID, Text: "Email drip campaign for our SaaS launch"}, topics[0])
	assert.Equal(t, []string{"Email drip campaign for our SaaS launch"}, hooked)

	conv, err := f.store.Conversation(f.conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Email drip campaign for...", conv.Title)
}

// stallingStore holds the next Conversation read after taking its copy,
// until release is closed.
type stallingStore struct {
	*entity.Store

	mu      sync.Mutex
	armed   bool
	stalled chan struct{}
	release chan struct{}
}

func (s *stallingStore) arm() {
	s.mu.Lock()
	s.armed = true
	s.mu.Unlock()
}

func (s *stallingStore) Conversation(id string) (domain.Conversation, error) {
	c, err := s.Store.Conversation(id)
	s.mu.Lock()
	hold := s.armed
	s.armed = false
	s.mu.Unlock()
	if hold {
		close(s.stalled)
		<-s.release
	}
	return c, err
}

func TestTopicDetectedOnceWhenReadIsOutdated(t *testing.T) {
	f := newFixture(t)
	store := &stallingStore{Store: f.store, stalled: make(chan struct{}), release: make(chan struct{})}

	var mu sync.Mutex
	var topics []string
	m := NewManager(store, echoing(), Config{}, silentLog(),
		WithTopicHandler(func(ctx context.Context, tp Topic) {
			mu.Lock()
			defer mu.Unlock()
			topics = append(topics, tp.Text)
		}))
	t.Cleanup(m.Close)
	ctx := context.Background()

	store.arm()
	late := make(chan *Turn, 1)
	go func() {
		turn, err := m.AppendUserMessage(ctx, f.conv.ID, "second message about pricing")
		assert.NoError(t, err)
		late <- turn
	}()
	<-store.stalled

	early, err := m.AppendUserMessage(ctx, f.conv.ID, "first message about email")
	require.NoError(t, err)
	_, err = wait(t, early)
	require.NoError(t, err)
	assert.True(t, early.First())

	close(store.release)
	turn := <-late
	require.NotNil(t, turn)
	_, err = wait(t, turn)
	require.NoError(t, err)
	assert.False(t, turn.First())

	mu.Lock()
	assert.Equal(t, []string{"first message about email"}, topics)
	mu.Unlock()
	conv, err := f.store.Conversation(f.conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "first message about email", conv.Title)
}

func TestTopicKeepsExistingTitle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.SetConversationTitle(ctx, f.conv.ID, "Q3 Launch")
	require.NoError(t, err)
	m := newManager(t, f, echoing(), Config{})

	turn, err := m.AppendUserMessage(ctx, f.conv.ID, "something else entirely")
	require.NoError(t, err)
	_, err = wait(t, turn)
	require.NoError(t, err)

	conv, err := f.store.Conversation(f.conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Q3 Launch", conv.Title)
}

func TestCloseFailsPendingTurns(t *testing.T) {
	f := newFixture(t)
	client, _ := gated()
	m := NewManager(f.store, client, Config{}, silentLog())
	ctx := context.Background()

	inflight, err := m.AppendUserMessage(ctx, f.conv.ID, "one")
	require.NoError(t, err)
	queued, err := m.AppendUserMessage(ctx, f.conv.ID, "two")
	require.NoError(t, err)

	m.Close()

	_, err = wait(t, inflight)
	assert.ErrorIs(t, err, llm.ErrProvider)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = wait(t, queued)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, []string{"user:one"}, transcript(t, f))

	_, err = m.AppendUserMessage(ctx, f.conv.ID, "three")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestQueuedMessageForDeletedConversation(t *testing.T) {
	f := newFixture(t)
	client, release := gated()
	m := newManager(t, f, client, Config{})
	ctx := context.Background()

	first, err := m.AppendUserMessage(ctx, f.conv.ID, "one")
	require.NoError(t, err)
	queued, err := m.AppendUserMessage(ctx, f.conv.ID, "two")
	require.NoError(t, err)

	require.NoError(t, f.store.DeleteConversation(ctx, f.conv.ID))
	close(release)

	_, err = wait(t, first)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = wait(t, queued)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTitle(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"  spaced   out\ttext ", 60, "spaced out text"},
		{"Email drip campaign for our SaaS launch", 24, "Email drip campaign for..."},
		{"Supercalifragilistic", 5, "Super..."},
		{"café crème brûlée", 6, "café..."},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Title(tt.in, tt.n))
		})
	}
}
