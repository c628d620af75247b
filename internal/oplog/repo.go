package oplog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Entry is one operation-log row. Meta holds a bounded JSON payload (counts
// plus a capped sample of diagnostics), never an unbounded log dump.
type Entry struct {
	ID          int64           `json:"id"`
	EventType   string          `json:"event_type"`
	Description string          `json:"description"`
	Meta        json.RawMessage `json:"meta,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) Insert(ctx context.Context, eventType, description string, meta any) error {
	var metaJSON any
	if meta != nil {
		b, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal oplog meta: %w", err)
		}
		metaJSON = string(b)
	}

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO system_logs (event_type, description, meta)
		VALUES (?, ?, ?)
	`, eventType, description, metaJSON)
	if err != nil {
		return fmt.Errorf("insert oplog: %w", err)
	}
	return nil
}

func (r *Repo) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, event_type, description, meta, created_at
		FROM system_logs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent oplog: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		var meta sql.NullString
		if err := rows.Scan(&e.ID, &e.EventType, &e.Description, &meta, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan oplog row: %w", err)
		}
		if meta.Valid {
			e.Meta = json.RawMessage(meta.String)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
