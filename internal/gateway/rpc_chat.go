package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/soyeahso/thecafe/internal/conversation"
	"github.com/soyeahso/thecafe/internal/domain"
	"github.com/soyeahso/thecafe/internal/recommend"
)

// conversationSummary is a conversation without its transcript.
type conversationSummary struct {
	ID           string             `json:"id"`
	ProjectID    string             `json:"projectId,omitempty"`
	AgentID      string             `json:"agentId"`
	CurrentModel domain.ModelID     `json:"currentModel"`
	Title        string             `json:"title,omitempty"`
	MessageCount int                `json:"messageCount"`
	LastMessage  *domain.Message    `json:"lastMessage,omitempty"`
	State        conversation.State `json:"state"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

func (s *Server) summarize(c domain.Conversation) conversationSummary {
	sum := conversationSummary{
		ID:           c.ID,
		ProjectID:    c.ProjectID,
		AgentID:      c.AgentID,
		CurrentModel: c.CurrentModel,
		Title:        c.Title,
		MessageCount: len(c.Messages),
		UpdatedAt:    c.UpdatedAt,
	}
	if last, ok := c.LastMessage(); ok {
		sum.LastMessage = &last
	}
	if st, err := s.deps.Chats.State(c.ID); err == nil {
		sum.State = st
	}
	return sum
}

type conversationsListParams struct {
	ProjectID string `json:"projectId,omitempty"`
}

func (s *Server) rpcConversationsList(rc *RequestContext) {
	var p conversationsListParams
	if !rc.Params(&p) {
		return
	}
	convs := s.deps.Store.Conversations(p.ProjectID)
	out := make([]conversationSummary, 0, len(convs))
	for _, c := range convs {
		out = append(out, s.summarize(c))
	}
	rc.Respond(map[string]any{"conversations": out})
}

func (s *Server) rpcConversationsGet(rc *RequestContext) {
	id, ok := rc.requireID()
	if !ok {
		return
	}
	c, err := s.deps.Store.Conversation(id)
	if err != nil {
		rc.Fail(err)
		return
	}
	st, err := s.deps.Chats.State(id)
	if err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(map[string]any{
		"conversation": c,
		"state":        st,
		"pending":      s.deps.Chats.Pending(id),
	})
}

func (s *Server) rpcConversationsCreate(rc *RequestContext) {
	var in domain.ConversationInput
	if !rc.Params(&in) {
		return
	}
	c, err := s.deps.Store.CreateConversation(rc.Ctx, in)
	if err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(map[string]any{"conversation": c})
}

func (s *Server) rpcConversationsDelete(rc *RequestContext) {
	id, ok := rc.requireID()
	if !ok {
		return
	}
	if err := s.deps.Store.DeleteConversation(rc.Ctx, id); err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(map[string]any{"id": id, "deleted": true})
}

type setModelParams struct {
	ID    string         `json:"id"`
	Model domain.ModelID `json:"model"`
}

func (s *Server) rpcConversationsSetModel(rc *RequestContext) {
	var p setModelParams
	if !rc.Params(&p) {
		return
	}
	if p.ID == "" {
		rc.RespondError(CodeInvalidParams, "id is required")
		return
	}
	c, err := s.deps.Chats.SetModel(rc.Ctx, p.ID, p.Model)
	if err != nil {
		rc.Fail(err)
		return
	}
	rc.Respond(map[string]any{"conversation": c})
}

type searchParams struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

func (s *Server) rpcConversationsSearch(rc *RequestContext) {
	var p searchParams
	if !rc.Params(&p) {
		return
	}
	if strings.TrimSpace(p.Query) == "" {
		rc.RespondError(CodeInvalidParams, "query is required")
		return
	}
	hits, err := s.search.SearchMessages(rc.Ctx, p.Query, p.Limit)
	if err != nil {
		rc.Fail(err)
		return
	}
	if hits == nil {
		rc.Respond(map[string]any{"hits": []any{}})
		return
	}
	rc.Respond(map[string]any{"hits": hits})
}

type chatSendParams struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
	Wait           bool   `json:"wait,omitempty"`
}

// rpcChatSend submits a user message. Without wait it answers as soon as
// the message is accepted and the reply arrives as a chat.message event
// (or chat.error). With wait the response carries the reply itself.
func (s *Server) rpcChatSend(rc *RequestContext) {
	var p chatSendParams
	if !rc.Params(&p) {
		return
	}
	if p.ConversationID == "" {
		rc.RespondError(CodeInvalidParams, "conversationId is required")
		return
	}

	conv, err := s.deps.Store.Conversation(p.ConversationID)
	if err != nil {
		rc.Fail(err)
		return
	}

	turn, err := s.deps.Chats.AppendUserMessage(rc.Ctx, p.ConversationID, p.Content)
	if err != nil {
		rc.Fail(err)
		return
	}

	if turn.First() {
		rc.Client.Analyze(s.ctx, recommend.Query{Topic: p.Content, ProjectID: conv.ProjectID}, s.nextSeq)
	}

	user := turn.UserMessage()
	if !p.Wait {
		rc.Respond(map[string]any{
			"conversationId": p.ConversationID,
			"userMessage":    user,
			"queued":         user.ID == "",
		})
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(s.ctx, replyWaitTimeout)
		defer cancel()

		reply, err := turn.Wait(ctx)
		if p.Wait {
			if err != nil {
				rc.Fail(err)
				return
			}
			rc.Respond(map[string]any{
				"conversationId": p.ConversationID,
				"userMessage":    turn.UserMessage(),
				"reply":          reply,
			})
			return
		}
		if err != nil {
			rc.Client.SendEvent(EventChatError, ChatErrorEvent{
				ConversationID: p.ConversationID,
				RequestID:      rc.Frame.ID,
				Error:          errorShape(err),
			}, s.nextSeq())
		}
	}()
}

type analyzeParams struct {
	Topic          string `json:"topic"`
	ProjectID      string `json:"projectId,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
	Sync           bool   `json:"sync,omitempty"`
}

// rpcIntelligenceAnalyze evaluates a topic. A conversationId supplies the
// project and, when topic is empty, the first user message.
func (s *Server) rpcIntelligenceAnalyze(rc *RequestContext) {
	var p analyzeParams
	if !rc.Params(&p) {
		return
	}
	q := recommend.Query{Topic: p.Topic, ProjectID: p.ProjectID}
	if p.ConversationID != "" {
		conv, err := s.deps.Store.Conversation(p.ConversationID)
		if err != nil {
			rc.Fail(err)
			return
		}
		if q.ProjectID == "" {
			q.ProjectID = conv.ProjectID
		}
		if strings.TrimSpace(q.Topic) == "" {
			for _, m := range conv.Messages {
				if m.Role == domain.RoleUser {
					q.Topic = m.Content
					break
				}
			}
		}
	}

	if p.Sync || !rc.Client.Analyzes() {
		res, err := s.deps.Engine.Analyze(rc.Ctx, q)
		if err != nil {
			rc.Fail(err)
			return
		}
		rc.Respond(map[string]any{"query": q, "result": res})
		return
	}
	seq := rc.Client.Analyze(s.ctx, q, s.nextSeq)
	rc.Respond(map[string]any{"seq": seq, "query": q})
}

type generateParams struct {
	Gap       domain.MissingAgent `json:"gap"`
	ProjectID string              `json:"projectId,omitempty"`
}

// rpcIntelligenceGenerate turns a missing-agent suggestion into a real
// agent. It may call the model provider, so it runs off the read loop.
func (s *Server) rpcIntelligenceGenerate(rc *RequestContext) {
	var p generateParams
	if !rc.Params(&p) {
		return
	}
	if strings.TrimSpace(p.Gap.SuggestedName) == "" {
		rc.RespondError(CodeInvalidParams, "gap.suggestedName is required")
		return
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(s.ctx, replyWaitTimeout)
		defer cancel()

		agent, err := s.deps.Drafter.Promote(ctx, s.deps.Store, p.Gap, p.ProjectID)
		if err != nil && agent.ID == "" {
			rc.Fail(err)
			return
		}
		resp := map[string]any{"agent": agent}
		if err != nil {
			resp["warning"] = err.Error()
		}
		rc.Respond(resp)
	}()
}
