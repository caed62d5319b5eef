package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/soyeahso/thecafe/internal/domain"
)

// MessageHit is a transcript message matched by SearchMessages.
type MessageHit struct {
	ConversationID string         `json:"conversationId"`
	Message        domain.Message `json:"message"`
	Snippet        string         `json:"snippet"`
}

// SearchMessages runs a full-text query over every stored transcript and
// returns the best matches first.
func (db *DB) SearchMessages(ctx context.Context, query string, limit int) ([]MessageHit, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.sql.QueryContext(ctx,
		`SELECT m.conversation_id, m.id, m.role, m.content, m.model, m.timestamp,
		        snippet(messages_fts, 0, '[', ']', '...', 12)
		 FROM messages_fts
		 JOIN messages m ON m.seq = messages_fts.rowid
		 WHERE messages_fts MATCH ?
		 ORDER BY bm25(messages_fts), m.seq DESC
		 LIMIT ?`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}
	defer rows.Close()

	var hits []MessageHit
	for rows.Next() {
		var h MessageHit
		var ts string
		if err := rows.Scan(
			&h.ConversationID, &h.Message.ID, &h.Message.Role, &h.Message.Content,
			&h.Message.Model, &ts, &h.Snippet,
		); err != nil {
			return nil, fmt.Errorf("scanning search hit: %w", err)
		}
		if h.Message.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// ftsQuery quotes each word of q so user input never reaches the FTS5
// query syntax. Words are ANDed.
func ftsQuery(q string) string {
	var terms []string
	for _, w := range strings.Fields(q) {
		w = strings.ReplaceAll(w, `"`, "")
		if w == "" {
			continue
		}
		terms = append(terms, `"`+w+`"`)
	}
	return strings.Join(terms, " ")
}
