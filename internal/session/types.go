package session

import (
	"errors"
	"time"

	"github.com/ent0n29/gadgetdesk/internal/intent"
)

var (
	// ErrEmptyInput is returned when a query has no content after normalization.
	ErrEmptyInput = errors.New("empty input")
	// ErrUserIDRequired is returned when a turn or reset names no user.
	ErrUserIDRequired = errors.New("user id required")
)

// TurnResult is what a caller gets back for one handled turn.
type TurnResult struct {
	UserID    string          `json:"user_id"`
	TurnID    string          `json:"turn_id"`
	Query     string          `json:"query"`
	Response  string          `json:"response"`
	Intents   []intent.Intent `json:"intents"`
	Product   string          `json:"product,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
