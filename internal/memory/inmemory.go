package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore keeps histories in process memory for the process lifetime.
type InMemoryStore struct {
	mu        sync.RWMutex
	histories map[string][]Turn
	maxTurns  int
}

// NewInMemoryStore returns an empty store. maxTurns > 0 bounds each history,
// dropping the oldest turns but never the last ContextWindow ones.
func NewInMemoryStore(maxTurns int) *InMemoryStore {
	if maxTurns > 0 && maxTurns < ContextWindow {
		maxTurns = ContextWindow
	}
	return &InMemoryStore{
		histories: make(map[string][]Turn),
		maxTurns:  max(maxTurns, 0),
	}
}

func (s *InMemoryStore) AppendTurn(_ context.Context, userID string, turn Turn) error {
	turn = turn.Clone()
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	turn.UserID = userID

	s.mu.Lock()
	defer s.mu.Unlock()
	h := append(s.histories[userID], turn)
	if s.maxTurns > 0 && len(h) > s.maxTurns {
		trimmed := make([]Turn, s.maxTurns)
		copy(trimmed, h[len(h)-s.maxTurns:])
		h = trimmed
	}
	s.histories[userID] = h
	return nil
}

func (s *InMemoryStore) RecentTurns(_ context.Context, userID string, limit int) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.histories[userID]
	if len(h) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(h) {
		limit = len(h)
	}
	return cloneTurns(h[len(h)-limit:]), nil
}

func (s *InMemoryStore) History(_ context.Context, userID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.histories[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneTurns(h), nil
}

func (s *InMemoryStore) Reset(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories[userID] = []Turn{}
	return nil
}

// Users returns how many distinct users have a history.
func (s *InMemoryStore) Users() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.histories)
}

func (s *InMemoryStore) Close() error { return nil }

func cloneTurns(in []Turn) []Turn {
	out := make([]Turn, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}
