package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create catalog tables",
		SQL: `
			CREATE TABLE agents (
				id             TEXT PRIMARY KEY,
				role           TEXT NOT NULL,
				specialization TEXT NOT NULL,
				name           TEXT NOT NULL,
				emoji          TEXT NOT NULL,
				domain         TEXT NOT NULL,
				sub_category   TEXT NOT NULL DEFAULT '',
				description    TEXT NOT NULL,
				default_model  TEXT NOT NULL,
				system_prompt  TEXT NOT NULL,
				created_at     TEXT NOT NULL,
				updated_at     TEXT NOT NULL
			);

			CREATE INDEX idx_agents_domain ON agents (domain, sub_category);

			CREATE TABLE projects (
				id          TEXT PRIMARY KEY,
				name        TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				emoji       TEXT NOT NULL,
				color       TEXT NOT NULL,
				created_at  TEXT NOT NULL,
				updated_at  TEXT NOT NULL
			);

			CREATE TABLE project_agents (
				project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
				agent_id   TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
				PRIMARY KEY (project_id, agent_id)
			);

			CREATE INDEX idx_project_agents_agent ON project_agents (agent_id);
		`,
	},
	{
		Version: 2,
		Name:    "create conversations and messages",
		SQL: `
			CREATE TABLE conversations (
				id            TEXT PRIMARY KEY,
				project_id    TEXT REFERENCES projects(id) ON DELETE SET NULL,
				agent_id      TEXT NOT NULL,
				current_model TEXT NOT NULL,
				title         TEXT NOT NULL DEFAULT '',
				created_at    TEXT NOT NULL,
				updated_at    TEXT NOT NULL
			);

			CREATE INDEX idx_conversations_project ON conversations (project_id);
			CREATE INDEX idx_conversations_agent ON conversations (agent_id);

			CREATE TABLE messages (
				seq             INTEGER PRIMARY KEY AUTOINCREMENT,
				id              TEXT NOT NULL UNIQUE,
				conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
				role            TEXT NOT NULL,
				content         TEXT NOT NULL,
				model           TEXT NOT NULL,
				timestamp       TEXT NOT NULL
			);

			CREATE INDEX idx_messages_conversation ON messages (conversation_id, seq);
		`,
	},
	{
		Version: 3,
		Name:    "create message search with FTS5",
		SQL: `
			CREATE VIRTUAL TABLE messages_fts USING fts5(
				content,
				content='messages',
				content_rowid='seq'
			);

			CREATE TRIGGER messages_ai AFTER INSERT ON messages BEGIN
				INSERT INTO messages_fts(rowid, content) VALUES (new.seq, new.content);
			END;

			CREATE TRIGGER messages_ad AFTER DELETE ON messages BEGIN
				INSERT INTO messages_fts(messages_fts, rowid, content)
				VALUES ('delete', old.seq, old.content);
			END;
		`,
	},
}
