// Package session runs conversation turns: it folds recent context, resolves
// products, classifies intents, composes replies and records the turn.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ent0n29/gadgetdesk/internal/intent"
	"github.com/ent0n29/gadgetdesk/internal/memory"
	"github.com/ent0n29/gadgetdesk/internal/observability"
	"github.com/ent0n29/gadgetdesk/internal/policy"
	"github.com/ent0n29/gadgetdesk/internal/product"
	"github.com/ent0n29/gadgetdesk/internal/respond"
	"github.com/ent0n29/gadgetdesk/internal/textnorm"
)

type userState struct {
	mu             sync.Mutex
	inFlight       int
	lastActivityAt time.Time
}

// Manager orchestrates turns. Turns of one user are applied one at a time in
// arrival order; different users proceed in parallel.
type Manager struct {
	store      memory.Store
	resolver   *product.Resolver
	classifier *intent.Classifier
	composer   *respond.Composer

	metrics     *observability.Metrics
	log         zerolog.Logger
	now         func() time.Time
	idleTimeout time.Duration

	mu       sync.Mutex
	users    map[string]*userState
	onExpire func(userID string)
}

type Option func(*Manager)

func WithMetrics(m *observability.Metrics) Option {
	return func(mgr *Manager) { mgr.metrics = m }
}

func WithLogger(log zerolog.Logger) Option {
	return func(mgr *Manager) { mgr.log = log }
}

// WithClock overrides the clock used for turn timestamps.
func WithClock(now func() time.Time) Option {
	return func(mgr *Manager) {
		if now != nil {
			mgr.now = now
		}
	}
}

// WithIdleTimeout sets how long a user's lock entry survives without turns
// before the janitor drops it. History is not affected.
func WithIdleTimeout(d time.Duration) Option {
	return func(mgr *Manager) {
		if d > 0 {
			mgr.idleTimeout = d
		}
	}
}

func NewManager(store memory.Store, resolver *product.Resolver, classifier *intent.Classifier, composer *respond.Composer, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		resolver:    resolver,
		classifier:  classifier,
		composer:    composer,
		log:         zerolog.Nop(),
		now:         func() time.Time { return time.Now().UTC() },
		idleTimeout: 30 * time.Minute,
		users:       make(map[string]*userState),
	}
	for _, opt := range opts {
		opt(m)
	}
	composer.SetMissHook(func(miss respond.Miss) {
		if m.metrics != nil {
			m.metrics.CatalogMisses.WithLabelValues(miss.Kind).Inc()
		}
		m.log.Debug().
			Str("intent", string(miss.Intent)).
			Str("kind", miss.Kind).
			Str("key", miss.Key).
			Msg("catalog entry missing, using placeholder")
	})
	return m
}

// SetExpireHook registers a callback invoked for every idle user the janitor
// drops.
func (m *Manager) SetExpireHook(hook func(userID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

// HandleTurn answers one raw query for userID and records the turn.
func (m *Manager) HandleTurn(ctx context.Context, userID, rawQuery string) (TurnResult, error) {
	started := time.Now()
	if strings.TrimSpace(userID) == "" {
		m.countTurn("rejected")
		return TurnResult{}, ErrUserIDRequired
	}

	stageStart := time.Now()
	query := textnorm.Normalize(rawQuery)
	m.observeStage(observability.StageNormalize, stageStart)
	if query == "" {
		m.countTurn("empty")
		m.indicator("empty_input")
		return TurnResult{}, ErrEmptyInput
	}

	release := m.acquire(userID)
	defer release()

	stageStart = time.Now()
	slots, err := memory.RecentContext(ctx, m.store, userID)
	m.observeStage(observability.StageContext, stageStart)
	if err != nil {
		m.historyError("recent")
		m.countTurn("error")
		return TurnResult{}, fmt.Errorf("load recent context: %w", err)
	}

	stageStart = time.Now()
	if key, ok := m.resolver.Resolve(query); ok {
		slots[memory.SlotProduct] = key
		m.countResolution("matched")
	} else {
		m.countResolution("unmatched")
	}
	m.observeStage(observability.StageResolve, stageStart)

	stageStart = time.Now()
	intents := m.classifier.Classify(query)
	m.observeStage(observability.StageClassify, stageStart)

	stageStart = time.Now()
	response := m.composer.ComposeAll(intents, slots)
	m.observeStage(observability.StageCompose, stageStart)

	turn := memory.Turn{
		ID:        uuid.NewString(),
		UserID:    userID,
		Query:     query,
		Response:  response,
		Intents:   intents,
		Context:   slots.Clone(),
		CreatedAt: m.now(),
	}
	stageStart = time.Now()
	err = m.store.AppendTurn(ctx, userID, turn)
	m.observeStage(observability.StageAppend, stageStart)
	if err != nil {
		m.historyError("append")
		m.countTurn("error")
		return TurnResult{}, fmt.Errorf("append turn: %w", err)
	}

	elapsed := time.Since(started)
	m.observeStage(observability.StageTurnTotal, started)
	m.countTurn("ok")
	if m.metrics != nil {
		m.metrics.ObserveTurnLatency(elapsed)
		for _, in := range intents {
			m.metrics.Intents.WithLabelValues(string(in)).Inc()
		}
	}

	m.log.Debug().
		Str("user_id", userID).
		Str("turn_id", turn.ID).
		Str("query", policy.LogSafe(query)).
		Interface("intents", intents).
		Str("product", slots[memory.SlotProduct]).
		Bool("default_product", usesDefaultProduct(intents, slots)).
		Dur("elapsed", elapsed).
		Msg("turn handled")

	return TurnResult{
		UserID:    userID,
		TurnID:    turn.ID,
		Query:     query,
		Response:  response,
		Intents:   append([]intent.Intent(nil), intents...),
		Product:   slots[memory.SlotProduct],
		Timestamp: turn.CreatedAt,
	}, nil
}

// History returns every stored turn of userID, or memory.ErrUserNotFound.
func (m *Manager) History(ctx context.Context, userID string) ([]memory.Turn, error) {
	turns, err := m.store.History(ctx, userID)
	if err != nil {
		return nil, err
	}
	return turns, nil
}

// Reset empties the history of userID. Resetting an unknown user creates an
// empty history.
func (m *Manager) Reset(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrUserIDRequired
	}
	release := m.acquire(userID)
	defer release()

	if err := m.store.Reset(ctx, userID); err != nil {
		m.historyError("reset")
		return fmt.Errorf("reset history: %w", err)
	}
	if m.metrics != nil {
		m.metrics.HistoryResets.Inc()
	}
	m.log.Info().Str("user_id", userID).Msg("conversation reset")
	return nil
}

// KnownUsers reports how many users currently hold a lock entry.
func (m *Manager) KnownUsers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

// StartJanitor drops idle lock entries until ctx is done.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireIdle()
			}
		}
	}()
}

func (m *Manager) acquire(userID string) func() {
	m.mu.Lock()
	st, ok := m.users[userID]
	if !ok {
		st = &userState{}
		m.users[userID] = st
	}
	st.inFlight++
	known := len(m.users)
	m.mu.Unlock()
	m.setKnownUsers(known)

	st.mu.Lock()
	return func() {
		st.mu.Unlock()
		m.mu.Lock()
		st.inFlight--
		st.lastActivityAt = time.Now()
		m.mu.Unlock()
	}
}

func (m *Manager) expireIdle() {
	now := time.Now()
	var expired []string

	m.mu.Lock()
	for id, st := range m.users {
		if st.inFlight > 0 || now.Sub(st.lastActivityAt) < m.idleTimeout {
			continue
		}
		delete(m.users, id)
		expired = append(expired, id)
	}
	known := len(m.users)
	hook := m.onExpire
	m.mu.Unlock()

	m.setKnownUsers(known)
	if hook != nil {
		for _, id := range expired {
			hook(id)
		}
	}
}

func (m *Manager) observeStage(stage string, since time.Time) {
	if m.metrics != nil {
		m.metrics.ObserveTurnStage(stage, time.Since(since))
	}
}

func (m *Manager) indicator(name string) {
	if m.metrics != nil {
		m.metrics.ObserveTurnIndicator(name)
	}
}

func (m *Manager) countTurn(outcome string) {
	if m.metrics != nil {
		m.metrics.Turns.WithLabelValues(outcome).Inc()
	}
}

func (m *Manager) countResolution(result string) {
	if m.metrics != nil {
		m.metrics.ProductResolutions.WithLabelValues(result).Inc()
	}
}

func (m *Manager) historyError(op string) {
	if m.metrics != nil {
		m.metrics.HistoryErrors.WithLabelValues(op).Inc()
	}
}

func (m *Manager) setKnownUsers(n int) {
	if m.metrics != nil {
		m.metrics.KnownUsers.Set(float64(n))
	}
}

// usesDefaultProduct reports whether a product question was answered for the
// catalog default because no product was mentioned or carried.
func usesDefaultProduct(intents []intent.Intent, slots memory.Context) bool {
	if slots[memory.SlotProduct] != "" {
		return false
	}
	for _, in := range intents {
		if in.IsProductAttribute() {
			return true
		}
	}
	return false
}
