package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/soyeahso/thecafe/internal/domain"
	"github.com/soyeahso/thecafe/internal/entity"
	"github.com/soyeahso/thecafe/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:", silentLog())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// testClock returns a clock that advances one second per call.
func testClock() func() time.Time {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Second)
	}
}

func testIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%03d", n)
	}
}

func persistedStore(t *testing.T, db *DB) *entity.Store {
	t.Helper()
	s := entity.New(silentLog(),
		entity.WithPersister(NewPersister(db)),
		entity.WithClock(testClock()),
		entity.WithIDGenerator(testIDs()),
	)
	require.NoError(t, s.Load(context.Background()))
	return s
}

func reload(t *testing.T, db *DB) *entity.Store {
	t.Helper()
	s := entity.New(silentLog(), entity.WithPersister(NewPersister(db)))
	require.NoError(t, s.Load(context.Background()))
	return s
}

func agentInput(role, spec string) domain.AgentInput {
	return domain.AgentInput{
		Role:           role,
		Specialization: spec,
		Domain:         domain.DomainMarketing,
		SubCategory:    "strategy",
		Description:    role + " for " + spec,
		SystemPrompt:   "You plan " + spec + ".",
	}
}

// --- DB/Migration tests ---

func TestOpen_InMemory(t *testing.T) {
	db := testDB(t)
	assert.NotNil(t, db)
	assert.NotNil(t, db.SQL())
	assert.NoError(t, db.Ping(context.Background()))
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "thecafe.db")
	db, err := Open(path, silentLog())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopening applies nothing new.
	db, err = Open(path, silentLog())
	require.NoError(t, err)
	defer db.Close()
	v, err := db.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)
}

func TestOpen_FileEnforcesForeignKeysOnEveryConnection(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "thecafe.db"), silentLog())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	// Hold two connections so the pool cannot hand back the same one.
	c1, err := db.SQL().Conn(ctx)
	require.NoError(t, err)
	defer c1.Close()
	c2, err := db.SQL().Conn(ctx)
	require.NoError(t, err)
	defer c2.Close()

	for _, c := range []interface {
		QueryRowContext(context.Context, string, ...any) *sql.Row
	}{c1, c2} {
		var on int
		require.NoError(t, c.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&on))
		assert.Equal(t, 1, on)
	}
}

func TestDSN(t *testing.T) {
	assert.Equal(t, ":memory:", dsn(":memory:"))
	got := dsn("/tmp/cafe.db")
	assert.True(t, strings.HasPrefix(got, "file:/tmp/cafe.db?"), got)
	assert.Contains(t, got, "_pragma=foreign_keys%281%29")
}

func TestMigrations_Applied(t *testing.T) {
	db := testDB(t)

	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestMigrations_Idempotent(t *testing.T) {
	db := testDB(t)

	require.NoError(t, db.migrate())

	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestSchema_TablesExist(t *testing.T) {
	db := testDB(t)

	tables := []string{"agents", "projects", "project_agents", "conversations", "messages", "messages_fts"}
	for _, table := range tables {
		var name string
		err := db.sql.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

// --- Persister tests ---

func TestPersister_EmptyLoad(t *testing.T) {
	snap, err := NewPersister(testDB(t)).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Agents)
	assert.Empty(t, snap.Projects)
	assert.Empty(t, snap.Conversations)
}

func TestPersister_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	s := persistedStore(t, db)

	a1, err := s.CreateAgent(ctx, agentInput("Strategist", "B2B SaaS"))
	require.NoError(t, err)
	a2, err := s.CreateAgent(ctx, agentInput("Copywriter", "Technical"))
	require.NoError(t, err)
	newDesc := "Writes developer docs."
	a2, err = s.UpdateAgent(ctx, a2.ID, domain.AgentPatch{Description: &newDesc})
	require.NoError(t, err)

	p, err := s.CreateProject(ctx, domain.ProjectInput{Name: "Launch", Description: "Q3", AgentIDs: []string{a2.ID, a1.ID}})
	require.NoError(t, err)

	c, err := s.CreateConversation(ctx, domain.ConversationInput{ProjectID: p.ID, AgentID: a1.ID})
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, c.ID, domain.Message{Role: domain.RoleUser, Content: "hello"})
	require.NoError(t, err)
	_, err = s.SetConversationModel(ctx, c.ID, "gpt-4")
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, c.ID, domain.Message{Role: domain.RoleAssistant, Content: "hi there"})
	require.NoError(t, err)
	_, err = s.SetConversationTitle(ctx, c.ID, "Greetings")
	require.NoError(t, err)

	r := reload(t, db)

	assert.Equal(t, s.Agents(), r.Agents())
	gotAgent, err := r.Agent(a2.ID)
	require.NoError(t, err)
	assert.Equal(t, a2, gotAgent)

	gotProject, err := r.Project(p.ID)
	require.NoError(t, err)
	wantProject, err := s.Project(p.ID)
	require.NoError(t, err)
	assert.Equal(t, wantProject, gotProject)
	assert.Equal(t, 1, gotProject.ConversationCount)

	gotConv, err := r.Conversation(c.ID)
	require.NoError(t, err)
	wantConv, err := s.Conversation(c.ID)
	require.NoError(t, err)
	assert.Equal(t, wantConv, gotConv)
	require.Len(t, gotConv.Messages, 2)
	assert.Equal(t, domain.ModelID("claude-sonnet-4"), gotConv.Messages[0].Model)
	assert.Equal(t, domain.ModelID("gpt-4"), gotConv.Messages[1].Model)
	assert.Equal(t, "Greetings", gotConv.Title)
}

func TestPersister_DeleteAgentDropsMembership(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	s := persistedStore(t, db)

	a1, err := s.CreateAgent(ctx, agentInput("Strategist", "B2B SaaS"))
	require.NoError(t, err)
	a2, err := s.CreateAgent(ctx, agentInput("Copywriter", "Technical"))
	require.NoError(t, err)
	p, err := s.CreateProject(ctx, domain.ProjectInput{Name: "Launch", AgentIDs: []string{a1.ID, a2.ID}})
	require.NoError(t, err)
	c, err := s.CreateConversation(ctx, domain.ConversationInput{AgentID: a1.ID})
	require.NoError(t, err)

	require.NoError(t, s.DeleteAgent(ctx, a1.ID))

	r := reload(t, db)
	got, err := r.Project(p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a2.ID}, got.AgentIDs)
	_, err = r.Agent(a1.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	conv, err := r.Conversation(c.ID)
	require.NoError(t, err, "conversations outlive their agent")
	assert.Equal(t, a1.ID, conv.AgentID)
}

func TestPersister_DeleteProjectDetachesConversations(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	s := persistedStore(t, db)

	a, err := s.CreateAgent(ctx, agentInput("Strategist", "B2B SaaS"))
	require.NoError(t, err)
	p, err := s.CreateProject(ctx, domain.ProjectInput{Name: "Launch", AgentIDs: []string{a.ID}})
	require.NoError(t, err)
	c, err := s.CreateConversation(ctx, domain.ConversationInput{ProjectID: p.ID, AgentID: a.ID})
	require.NoError(t, err)

	require.NoError(t, s.DeleteProject(ctx, p.ID))

	r := reload(t, db)
	assert.Empty(t, r.Projects())
	conv, err := r.Conversation(c.ID)
	require.NoError(t, err)
	assert.Empty(t, conv.ProjectID)

	var members int
	require.NoError(t, db.sql.QueryRow("SELECT COUNT(*) FROM project_agents").Scan(&members))
	assert.Zero(t, members)
}

func TestPersister_DeleteConversationCascades(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	s := persistedStore(t, db)

	a, err := s.CreateAgent(ctx, agentInput("Strategist", "B2B SaaS"))
	require.NoError(t, err)
	c, err := s.CreateConversation(ctx, domain.ConversationInput{AgentID: a.ID})
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, c.ID, domain.Message{Role: domain.RoleUser, Content: "pricing page copy"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteConversation(ctx, c.ID))

	var count int
	require.NoError(t, db.sql.QueryRow("SELECT COUNT(*) FROM messages").Scan(&count))
	assert.Zero(t, count)

	hits, err := db.SearchMessages(ctx, "pricing", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestPersister_FailureAbortsMutation(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	s := persistedStore(t, db)
	_, err := s.CreateAgent(ctx, agentInput("Strategist", "B2B SaaS"))
	require.NoError(t, err)
	before := s.Version()

	require.NoError(t, db.Close())

	_, err = s.CreateAgent(ctx, agentInput("Copywriter", "Technical"))
	require.Error(t, err)
	assert.Len(t, s.Agents(), 1)
	assert.Equal(t, before, s.Version())
}

// --- Search tests ---

func TestSearchMessages(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	s := persistedStore(t, db)

	a, err := s.CreateAgent(ctx, agentInput("Strategist", "B2B SaaS"))
	require.NoError(t, err)
	c1, err := s.CreateConversation(ctx, domain.ConversationInput{AgentID: a.ID})
	require.NoError(t, err)
	c2, err := s.CreateConversation(ctx, domain.ConversationInput{AgentID: a.ID})
	require.NoError(t, err)

	for _, in := range []struct {
		conv, text string
	}{
		{c1.ID, "Draft an email drip campaign for trial users"},
		{c1.ID, "Here is a five step sequence"},
		{c2.ID, "Plan the pricing page"},
		{c2.ID, "Email the pricing changes to customers"},
	} {
		_, err := s.AppendMessage(ctx, in.conv, domain.Message{Role: domain.RoleUser, Content: in.text})
		require.NoError(t, err)
	}

	hits, err := db.SearchMessages(ctx, "email", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	convs := []string{hits[0].ConversationID, hits[1].ConversationID}
	assert.ElementsMatch(t, []string{c1.ID, c2.ID}, convs)
	for _, h := range hits {
		assert.Contains(t, h.Snippet, "[")
	}

	hits, err = db.SearchMessages(ctx, "email pricing", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, c2.ID, hits[0].ConversationID)
	assert.Equal(t, "Email the pricing changes to customers", hits[0].Message.Content)

	hits, err = db.SearchMessages(ctx, "email", 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestSearchMessages_QuerySyntaxIsEscaped(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)

	for _, q := range []string{`"unbalanced`, "NEAR(", "a OR", "  "} {
		_, err := db.SearchMessages(ctx, q, 5)
		assert.NoError(t, err, q)
	}
}

func TestFTSQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"email", `"email"`},
		{"email  drip", `"email" "drip"`},
		{`say "hi"`, `"say" "hi"`},
		{`""`, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ftsQuery(tt.in), tt.in)
	}
}
