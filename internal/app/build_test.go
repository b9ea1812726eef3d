package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ent0n29/gadgetdesk/internal/config"
	"github.com/ent0n29/gadgetdesk/internal/memory"
)

func TestBuildInMemory(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{"RANDOM_SEED": "1"})
	require.NoError(t, err)

	res, err := Build(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Cleanup() })

	assert.Equal(t, memory.ModeInMemory, res.StoreMode)
	assert.NotNil(t, res.API)

	turn, err := res.Sessions.HandleTurn(context.Background(), "u1", "What is your return policy?")
	require.NoError(t, err)
	want, _ := res.Catalog.Policy("return")
	assert.Equal(t, want, turn.Response)
}

func TestBuildRejectsBrokenCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("products: []\n"), 0o600))

	cfg, err := config.LoadFrom(map[string]string{"CATALOG_PATH": path})
	require.NoError(t, err)

	_, err = Build(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}
