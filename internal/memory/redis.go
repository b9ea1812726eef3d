package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection settings for RedisStore.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	MaxTurns int
}

// RedisStore keeps each history as a Redis list of JSON turns. Known users
// live in a set so a reset history is still found.
type RedisStore struct {
	client   redis.UniversalClient
	prefix   string
	maxTurns int
}

func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return newRedisStore(client, cfg.Prefix, cfg.MaxTurns), nil
}

func newRedisStore(client redis.UniversalClient, prefix string, maxTurns int) *RedisStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "gadgetdesk"
	}
	if !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	if maxTurns > 0 && maxTurns < ContextWindow {
		maxTurns = ContextWindow
	}
	return &RedisStore{client: client, prefix: prefix, maxTurns: max(maxTurns, 0)}
}

func (s *RedisStore) historyKey(userID string) string {
	return s.prefix + "history:" + userID
}

func (s *RedisStore) usersKey() string {
	return s.prefix + "users"
}

func (s *RedisStore) AppendTurn(ctx context.Context, userID string, turn Turn) error {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	turn.UserID = userID

	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}

	key := s.historyKey(userID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, s.usersKey(), userID)
		pipe.RPush(ctx, key, data)
		if s.maxTurns > 0 {
			pipe.LTrim(ctx, key, int64(-s.maxTurns), -1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis append turn: %w", err)
	}
	return nil
}

func (s *RedisStore) RecentTurns(ctx context.Context, userID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = ContextWindow
	}
	raw, err := s.client.LRange(ctx, s.historyKey(userID), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis recent turns: %w", err)
	}
	return decodeTurns(raw)
}

func (s *RedisStore) History(ctx context.Context, userID string) ([]Turn, error) {
	known, err := s.client.SIsMember(ctx, s.usersKey(), userID).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lookup user: %w", err)
	}
	if !known {
		return nil, ErrUserNotFound
	}
	raw, err := s.client.LRange(ctx, s.historyKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis history: %w", err)
	}
	turns, err := decodeTurns(raw)
	if err != nil {
		return nil, err
	}
	if turns == nil {
		turns = []Turn{}
	}
	return turns, nil
}

func (s *RedisStore) Reset(ctx context.Context, userID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.historyKey(userID))
		pipe.SAdd(ctx, s.usersKey(), userID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis reset: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func decodeTurns(raw []string) ([]Turn, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	turns := make([]Turn, 0, len(raw))
	for _, item := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("decode turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}
