package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ent0n29/gadgetdesk/internal/intent"
)

// PostgresStore keeps conversation history in PostgreSQL.
type PostgresStore struct {
	pool     *pgxpool.Pool
	maxTurns int
}

func NewPostgresStore(ctx context.Context, databaseURL string, maxTurns int) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	if maxTurns > 0 && maxTurns < ContextWindow {
		maxTurns = ContextWindow
	}
	return &PostgresStore{pool: pool, maxTurns: max(maxTurns, 0)}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_users (
			user_id TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS chat_turns (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL REFERENCES chat_users (user_id),
			query TEXT NOT NULL,
			response TEXT NOT NULL,
			intents JSONB NOT NULL,
			context JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_turns_user_seq ON chat_turns (user_id, seq);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) AppendTurn(ctx context.Context, userID string, turn Turn) error {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	intents := turn.Intents
	if intents == nil {
		intents = []intent.Intent{}
	}
	slots := turn.Context
	if slots == nil {
		slots = Context{}
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO chat_users (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
			userID,
		); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO chat_turns (id, user_id, query, response, intents, context, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			turn.ID,
			userID,
			turn.Query,
			turn.Response,
			intents,
			slots,
			turn.CreatedAt,
		); err != nil {
			return err
		}
		if s.maxTurns > 0 {
			if _, err := tx.Exec(ctx,
				`DELETE FROM chat_turns WHERE user_id=$1 AND seq NOT IN (
					SELECT seq FROM chat_turns WHERE user_id=$1 ORDER BY seq DESC LIMIT $2
				)`,
				userID,
				s.maxTurns,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecentTurns(ctx context.Context, userID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = ContextWindow
	}

	turns, err := s.queryTurns(ctx,
		`SELECT id, user_id, query, response, intents, context, created_at
		 FROM chat_turns WHERE user_id=$1 ORDER BY seq DESC LIMIT $2`,
		userID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent turns: %w", err)
	}

	// Newest first from the query; callers want chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (s *PostgresStore) History(ctx context.Context, userID string) ([]Turn, error) {
	var known bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM chat_users WHERE user_id=$1)`,
		userID,
	).Scan(&known); err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !known {
		return nil, ErrUserNotFound
	}

	turns, err := s.queryTurns(ctx,
		`SELECT id, user_id, query, response, intents, context, created_at
		 FROM chat_turns WHERE user_id=$1 ORDER BY seq ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	if turns == nil {
		turns = []Turn{}
	}
	return turns, nil
}

func (s *PostgresStore) Reset(ctx context.Context, userID string) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO chat_users (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
			userID,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM chat_turns WHERE user_id=$1`, userID)
		return err
	})
	if err != nil {
		return fmt.Errorf("reset history: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) queryTurns(ctx context.Context, sql string, args ...any) ([]Turn, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.UserID, &t.Query, &t.Response, &t.Intents, &t.Context, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turn rows: %w", err)
	}
	return turns, nil
}
