package logsink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSink persists the interaction log in PostgreSQL.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink connects to databaseURL and ensures the log table exists.
func NewPostgresSink(ctx context.Context, databaseURL string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresSink{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmt := `CREATE TABLE IF NOT EXISTS interaction_log (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		topic TEXT NOT NULL,
		main_question TEXT NOT NULL,
		main_reply TEXT NOT NULL,
		followups JSONB NOT NULL DEFAULT '[]',
		pii_redacted BOOLEAN NOT NULL DEFAULT FALSE,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	idx := `CREATE INDEX IF NOT EXISTS idx_interaction_log_session ON interaction_log (session_id);`
	if _, err := pool.Exec(ctx, idx); err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	return nil
}

// Record writes a single interaction log entry. It pings the pool first so
// a dead connection fails fast with a clear error instead of hanging on the
// insert, letting callers apply their own retry/backoff policy.
func (s *PostgresSink) Record(ctx context.Context, entry Entry) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("logsink unhealthy: %w", err)
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}

	followups, err := json.Marshal(entry.Followups)
	if err != nil {
		return fmt.Errorf("marshal followups: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO interaction_log
			(id, session_id, user_id, topic, main_question, main_reply, followups, pii_redacted, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID,
		entry.SessionID,
		entry.UserID,
		entry.Topic,
		entry.MainQuestion,
		entry.MainReply,
		followups,
		entry.PIIRedacted,
		entry.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("record entry: %w", err)
	}
	return nil
}

func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
