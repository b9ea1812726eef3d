package memory

import (
	"context"
	"errors"
	"time"

	"github.com/ent0n29/gadgetdesk/internal/intent"
)

const (
	// ContextWindow is how many recent turns are folded into a turn's context.
	ContextWindow = 3

	// SlotProduct holds the last product the user talked about.
	SlotProduct = "product"
)

var ErrUserNotFound = errors.New("user not found")

// Context maps slot names to values carried across turns.
type Context map[string]string

func (c Context) Clone() Context {
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Turn is one stored request/response exchange.
type Turn struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Query     string          `json:"query"`
	Response  string          `json:"response"`
	Intents   []intent.Intent `json:"intents"`
	Context   Context         `json:"context"`
	CreatedAt time.Time       `json:"timestamp"`
}

// Clone returns a deep copy so stored turns can't be mutated by callers.
func (t Turn) Clone() Turn {
	c := t
	if t.Intents != nil {
		c.Intents = append([]intent.Intent(nil), t.Intents...)
	}
	if t.Context != nil {
		c.Context = t.Context.Clone()
	}
	return c
}

// Store owns per-user conversation histories. Implementations are safe for
// concurrent use; callers serialize turns of a single user themselves.
type Store interface {
	// AppendTurn adds a turn, creating the user's history on first use.
	AppendTurn(ctx context.Context, userID string, turn Turn) error
	// RecentTurns returns up to limit newest turns in chronological order.
	// An unknown user has no turns.
	RecentTurns(ctx context.Context, userID string, limit int) ([]Turn, error)
	// History returns all turns in order, or ErrUserNotFound.
	History(ctx context.Context, userID string) ([]Turn, error)
	// Reset empties the user's history, creating it if needed.
	Reset(ctx context.Context, userID string) error
	Close() error
}

// FoldContext merges turn contexts oldest to newest; later values win.
func FoldContext(turns []Turn) Context {
	out := make(Context)
	for _, t := range turns {
		for k, v := range t.Context {
			out[k] = v
		}
	}
	return out
}

// RecentContext folds the last ContextWindow turns of a user.
func RecentContext(ctx context.Context, store Store, userID string) (Context, error) {
	turns, err := store.RecentTurns(ctx, userID, ContextWindow)
	if err != nil {
		return nil, err
	}
	return FoldContext(turns), nil
}
