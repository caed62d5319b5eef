package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/soyeahso/thecafe/internal/domain"
	"github.com/soyeahso/thecafe/internal/entity"
)

// Persister implements entity.Persister on top of a DB. Every write runs
// in its own statement or transaction so a failure leaves no partial row.
type Persister struct {
	db *DB
}

var _ entity.Persister = (*Persister)(nil)

// NewPersister creates a persister using the given database.
func NewPersister(db *DB) *Persister {
	return &Persister{db: db}
}

// Load reads every agent, project and conversation with its transcript.
func (p *Persister) Load(ctx context.Context) (entity.Snapshot, error) {
	var snap entity.Snapshot
	var err error

	if snap.Agents, err = p.loadAgents(ctx); err != nil {
		return entity.Snapshot{}, err
	}
	if snap.Projects, err = p.loadProjects(ctx); err != nil {
		return entity.Snapshot{}, err
	}
	if snap.Conversations, err = p.loadConversations(ctx); err != nil {
		return entity.Snapshot{}, err
	}
	return snap, nil
}

func (p *Persister) loadAgents(ctx context.Context) ([]domain.Agent, error) {
	rows, err := p.db.sql.QueryContext(ctx,
		`SELECT id, role, specialization, name, emoji, domain, sub_category, description,
		        default_model, system_prompt, created_at, updated_at
		 FROM agents ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("querying agents: %w", err)
	}
	defer rows.Close()

	var agents []domain.Agent
	for rows.Next() {
		var a domain.Agent
		var createdAt, updatedAt string
		if err := rows.Scan(
			&a.ID, &a.Role, &a.Specialization, &a.Name, &a.Emoji, &a.Domain, &a.SubCategory,
			&a.Description, &a.DefaultModel, &a.SystemPrompt, &createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning agent: %w", err)
		}
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

func (p *Persister) loadProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := p.db.sql.QueryContext(ctx,
		`SELECT id, name, description, emoji, color, created_at, updated_at
		 FROM projects ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	var projects []domain.Project
	index := make(map[string]int)
	for rows.Next() {
		var pr domain.Project
		var createdAt, updatedAt string
		if err := rows.Scan(&pr.ID, &pr.Name, &pr.Description, &pr.Emoji, &pr.Color, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		if pr.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if pr.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		pr.AgentIDs = []string{}
		index[pr.ID] = len(projects)
		projects = append(projects, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	members, err := p.db.sql.QueryContext(ctx,
		`SELECT project_id, agent_id FROM project_agents ORDER BY project_id, agent_id`)
	if err != nil {
		return nil, fmt.Errorf("querying project members: %w", err)
	}
	defer members.Close()
	for members.Next() {
		var projectID, agentID string
		if err := members.Scan(&projectID, &agentID); err != nil {
			return nil, fmt.Errorf("scanning project member: %w", err)
		}
		if i, ok := index[projectID]; ok {
			projects[i].AgentIDs = append(projects[i].AgentIDs, agentID)
		}
	}
	return projects, members.Err()
}

func (p *Persister) loadConversations(ctx context.Context) ([]domain.Conversation, error) {
	rows, err := p.db.sql.QueryContext(ctx,
		`SELECT id, COALESCE(project_id, ''), agent_id, current_model, title, created_at, updated_at
		 FROM conversations ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var convs []domain.Conversation
	index := make(map[string]int)
	for rows.Next() {
		var c domain.Conversation
		var createdAt, updatedAt string
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.AgentID, &c.CurrentModel, &c.Title, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		c.Messages = []domain.Message{}
		index[c.ID] = len(convs)
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	msgs, err := p.db.sql.QueryContext(ctx,
		`SELECT conversation_id, id, role, content, model, timestamp FROM messages ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer msgs.Close()
	for msgs.Next() {
		var conversationID, ts string
		var m domain.Message
		if err := msgs.Scan(&conversationID, &m.ID, &m.Role, &m.Content, &m.Model, &ts); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		if m.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		if i, ok := index[conversationID]; ok {
			convs[i].Messages = append(convs[i].Messages, m)
		}
	}
	return convs, msgs.Err()
}

// SaveAgent upserts an agent.
func (p *Persister) SaveAgent(ctx context.Context, a domain.Agent) error {
	_, err := p.db.sql.ExecContext(ctx,
		`INSERT INTO agents (id, role, specialization, name, emoji, domain, sub_category, description,
		                     default_model, system_prompt, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   role = excluded.role,
		   specialization = excluded.specialization,
		   name = excluded.name,
		   emoji = excluded.emoji,
		   domain = excluded.domain,
		   sub_category = excluded.sub_category,
		   description = excluded.description,
		   default_model = excluded.default_model,
		   system_prompt = excluded.system_prompt,
		   updated_at = excluded.updated_at`,
		a.ID, a.Role, a.Specialization, a.Name, a.Emoji, string(a.Domain), a.SubCategory, a.Description,
		string(a.DefaultModel), a.SystemPrompt, formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving agent %s: %w", a.ID, err)
	}
	return nil
}

// DeleteAgent removes an agent. Memberships go with it; conversations stay.
func (p *Persister) DeleteAgent(ctx context.Context, id string) error {
	if _, err := p.db.sql.ExecContext(ctx, "DELETE FROM agents WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting agent %s: %w", id, err)
	}
	return nil
}

// SaveProject upserts a project and replaces its membership set.
func (p *Persister) SaveProject(ctx context.Context, pr domain.Project) error {
	return p.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO projects (id, name, description, emoji, color, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
			   name = excluded.name,
			   description = excluded.description,
			   emoji = excluded.emoji,
			   color = excluded.color,
			   updated_at = excluded.updated_at`,
			pr.ID, pr.Name, pr.Description, pr.Emoji, pr.Color, formatTime(pr.CreatedAt), formatTime(pr.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("saving project %s: %w", pr.ID, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM project_agents WHERE project_id = ?", pr.ID); err != nil {
			return fmt.Errorf("clearing members of %s: %w", pr.ID, err)
		}
		for _, agentID := range pr.AgentIDs {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO project_agents (project_id, agent_id) VALUES (?, ?)", pr.ID, agentID,
			); err != nil {
				return fmt.Errorf("adding agent %s to %s: %w", agentID, pr.ID, err)
			}
		}
		return nil
	})
}

// DeleteProject removes a project. Its conversations are detached by the
// foreign key.
func (p *Persister) DeleteProject(ctx context.Context, id string) error {
	if _, err := p.db.sql.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting project %s: %w", id, err)
	}
	return nil
}

// SaveConversation upserts conversation metadata.
func (p *Persister) SaveConversation(ctx context.Context, c domain.Conversation) error {
	_, err := p.db.sql.ExecContext(ctx,
		`INSERT INTO conversations (id, project_id, agent_id, current_model, title, created_at, updated_at)
		 VALUES (?, NULLIF(?, ''), ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   project_id = excluded.project_id,
		   current_model = excluded.current_model,
		   title = excluded.title,
		   updated_at = excluded.updated_at`,
		c.ID, c.ProjectID, c.AgentID, string(c.CurrentModel), c.Title, formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving conversation %s: %w", c.ID, err)
	}
	return nil
}

// DeleteConversation removes a conversation and its messages.
func (p *Persister) DeleteConversation(ctx context.Context, id string) error {
	if _, err := p.db.sql.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting conversation %s: %w", id, err)
	}
	return nil
}

// AppendMessage stores a message and bumps the conversation's updated_at.
func (p *Persister) AppendMessage(ctx context.Context, conversationID string, m domain.Message) error {
	return p.inTx(ctx, func(tx *sql.Tx) error {
		ts := formatTime(m.Timestamp)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (id, conversation_id, role, content, model, timestamp)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			m.ID, conversationID, string(m.Role), m.Content, string(m.Model), ts,
		); err != nil {
			return fmt.Errorf("appending message to %s: %w", conversationID, err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE conversations SET updated_at = ? WHERE id = ?", ts, conversationID,
		); err != nil {
			return fmt.Errorf("touching conversation %s: %w", conversationID, err)
		}
		return nil
	})
}

func (p *Persister) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := p.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
