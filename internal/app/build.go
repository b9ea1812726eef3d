package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ent0n29/gadgetdesk/internal/catalog"
	"github.com/ent0n29/gadgetdesk/internal/config"
	"github.com/ent0n29/gadgetdesk/internal/httpapi"
	"github.com/ent0n29/gadgetdesk/internal/intent"
	"github.com/ent0n29/gadgetdesk/internal/memory"
	"github.com/ent0n29/gadgetdesk/internal/observability"
	"github.com/ent0n29/gadgetdesk/internal/product"
	"github.com/ent0n29/gadgetdesk/internal/respond"
	"github.com/ent0n29/gadgetdesk/internal/session"
)

type BuildResult struct {
	Config    config.Config
	Catalog   *catalog.Catalog
	StoreMode string
	Sessions  *session.Manager
	API       *httpapi.Server
	Metrics   *observability.Metrics

	// Cleanup releases the history backend.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config, log zerolog.Logger) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("catalog init failed: %w", err)
	}

	store, err := memory.NewStore(ctx, memory.Options{
		DatabaseURL: cfg.DatabaseURL,
		Redis: memory.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		},
		MaxTurns:        cfg.HistoryMaxTurns,
		ConnectAttempts: cfg.BackendConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("history store init failed: %w", err)
	}
	storeMode := memory.ModeOf(store)

	sessions := session.NewManager(
		store,
		product.NewResolver(cat.Products(), nil),
		intent.Default(),
		respond.NewComposer(cat, respond.NewRandPicker(cfg.RandomSeed)),
		session.WithMetrics(metrics),
		session.WithLogger(log.With().Str("component", "session").Logger()),
		session.WithIdleTimeout(cfg.SessionIdleTimeout),
	)
	sessions.SetExpireHook(func(userID string) {
		log.Debug().Str("user_id", userID).Msg("idle user lock released")
	})

	api := httpapi.New(cfg, sessions, cat, metrics, log.With().Str("component", "http").Logger(), storeMode)

	log.Info().
		Str("store_mode", storeMode).
		Int("products", len(cat.Products())).
		Msg("gadgetdesk components ready")

	return &BuildResult{
		Config:    cfg,
		Catalog:   cat,
		StoreMode: storeMode,
		Sessions:  sessions,
		API:       api,
		Metrics:   metrics,
		Cleanup:   store.Close,
	}, nil
}
