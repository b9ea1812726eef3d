package memory

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ent0n29/gadgetdesk/internal/intent"
)

func turnWith(product string) Turn {
	t := Turn{
		Query:    "q",
		Response: "r",
		Intents:  []intent.Intent{intent.General},
		Context:  Context{},
	}
	if product != "" {
		t.Context[SlotProduct] = product
	}
	return t
}

// runStoreContract exercises the behaviour every backend must share.
func runStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("unknown user", func(t *testing.T) {
		_, err := store.History(ctx, "never-seen-"+uuid.NewString())
		assert.ErrorIs(t, err, ErrUserNotFound)

		recent, err := store.RecentTurns(ctx, "never-seen-"+uuid.NewString(), ContextWindow)
		require.NoError(t, err)
		assert.Empty(t, recent)
	})

	t.Run("append keeps order", func(t *testing.T) {
		user := "u-" + uuid.NewString()
		for i := 0; i < 5; i++ {
			turn := turnWith(fmt.Sprintf("p%d", i))
			turn.Query = fmt.Sprintf("q%d", i)
			require.NoError(t, store.AppendTurn(ctx, user, turn))
		}

		h, err := store.History(ctx, user)
		require.NoError(t, err)
		require.Len(t, h, 5)
		for i, turn := range h {
			assert.Equal(t, fmt.Sprintf("q%d", i), turn.Query)
			assert.Equal(t, user, turn.UserID)
			assert.NotEmpty(t, turn.ID)
			assert.False(t, turn.CreatedAt.IsZero())
			assert.Equal(t, []intent.Intent{intent.General}, turn.Intents)
		}

		recent, err := store.RecentTurns(ctx, user, ContextWindow)
		require.NoError(t, err)
		require.Len(t, recent, ContextWindow)
		assert.Equal(t, "q2", recent[0].Query)
		assert.Equal(t, "q4", recent[2].Query)
	})

	t.Run("reset keeps the user", func(t *testing.T) {
		user := "u-" + uuid.NewString()
		require.NoError(t, store.AppendTurn(ctx, user, turnWith("laptop_pro")))
		require.NoError(t, store.Reset(ctx, user))

		h, err := store.History(ctx, user)
		require.NoError(t, err)
		assert.NotNil(t, h)
		assert.Empty(t, h)

		c, err := RecentContext(ctx, store, user)
		require.NoError(t, err)
		assert.Empty(t, c)
	})

	t.Run("reset of unseen user creates empty history", func(t *testing.T) {
		user := "u-" + uuid.NewString()
		require.NoError(t, store.Reset(ctx, user))
		require.NoError(t, store.Reset(ctx, user))
		h, err := store.History(ctx, user)
		require.NoError(t, err)
		assert.Empty(t, h)
	})

	t.Run("recent context folds newest wins", func(t *testing.T) {
		user := "u-" + uuid.NewString()
		require.NoError(t, store.AppendTurn(ctx, user, turnWith("smartphone_y")))
		require.NoError(t, store.AppendTurn(ctx, user, turnWith("")))
		c, err := RecentContext(ctx, store, user)
		require.NoError(t, err)
		assert.Equal(t, "smartphone_y", c[SlotProduct])

		require.NoError(t, store.AppendTurn(ctx, user, turnWith("laptop_pro")))
		c, err = RecentContext(ctx, store, user)
		require.NoError(t, err)
		assert.Equal(t, "laptop_pro", c[SlotProduct])
	})
}

func TestInMemoryStoreContract(t *testing.T) {
	runStoreContract(t, NewInMemoryStore(0))
}

func TestRedisStoreContract(t *testing.T) {
	addr := os.Getenv("GADGETDESK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("GADGETDESK_TEST_REDIS_ADDR not set")
	}
	store, err := NewRedisStore(context.Background(), RedisConfig{Addr: addr, Prefix: "gadgetdesk-test-" + uuid.NewString()})
	require.NoError(t, err)
	defer store.Close()
	runStoreContract(t, store)
}

func TestPostgresStoreContract(t *testing.T) {
	dsn := os.Getenv("GADGETDESK_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("GADGETDESK_TEST_DATABASE_URL not set")
	}
	store, err := NewPostgresStore(context.Background(), dsn, 0)
	require.NoError(t, err)
	defer store.Close()
	runStoreContract(t, store)
}

func TestFoldContextWindow(t *testing.T) {
	turns := []Turn{
		turnWith("smartphone_x"),
		{Context: Context{SlotProduct: "smartphone_y", "color": "blue"}},
		turnWith(""),
	}
	got := FoldContext(turns)
	assert.Equal(t, Context{SlotProduct: "smartphone_y", "color": "blue"}, got)
	assert.Empty(t, FoldContext(nil))
}

func TestRecentContextOnlyUsesLastThreeTurns(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(0)
	require.NoError(t, store.AppendTurn(ctx, "u1", turnWith("wireless_earbuds")))
	for i := 0; i < ContextWindow; i++ {
		require.NoError(t, store.AppendTurn(ctx, "u1", turnWith("")))
	}

	c, err := RecentContext(ctx, store, "u1")
	require.NoError(t, err)
	_, ok := c[SlotProduct]
	assert.False(t, ok, "product from outside the window should not be carried")
}

func TestInMemoryStoreBoundsHistory(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(4)
	for i := 0; i < 10; i++ {
		turn := turnWith("")
		turn.Query = fmt.Sprintf("q%d", i)
		require.NoError(t, store.AppendTurn(ctx, "u1", turn))
	}
	h, err := store.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, h, 4)
	assert.Equal(t, "q6", h[0].Query)
	assert.Equal(t, "q9", h[3].Query)
}

func TestInMemoryStoreBoundNeverBelowContextWindow(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(1)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.AppendTurn(ctx, "u1", turnWith("")))
	}
	h, err := store.History(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, h, ContextWindow)
}

func TestInMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(0)
	turn := turnWith("laptop_pro")
	require.NoError(t, store.AppendTurn(ctx, "u1", turn))
	turn.Context[SlotProduct] = "mutated-after-append"

	h, err := store.History(ctx, "u1")
	require.NoError(t, err)
	h[0].Context[SlotProduct] = "mutated-after-read"
	h[0].Intents[0] = intent.Thanks

	again, err := store.History(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "laptop_pro", again[0].Context[SlotProduct])
	assert.Equal(t, intent.General, again[0].Intents[0])
}

func TestInMemoryStoreConcurrentUsers(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(0)

	var wg sync.WaitGroup
	for u := 0; u < 8; u++ {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = store.AppendTurn(ctx, user, turnWith(""))
			}
		}(fmt.Sprintf("user-%d", u))
	}
	wg.Wait()

	assert.Equal(t, 8, store.Users())
	for u := 0; u < 8; u++ {
		h, err := store.History(ctx, fmt.Sprintf("user-%d", u))
		require.NoError(t, err)
		assert.Len(t, h, 50)
	}
}

func TestNewStoreDefaultsToInMemory(t *testing.T) {
	store, err := NewStore(context.Background(), Options{MaxTurns: 10})
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, ModeInMemory, ModeOf(store))
}

func TestNewStoreRejectsTwoBackends(t *testing.T) {
	_, err := NewStore(context.Background(), Options{
		DatabaseURL: "postgres://localhost/db",
		Redis:       RedisConfig{Addr: "localhost:6379"},
	})
	assert.Error(t, err)
}

func TestTurnCloneIsDeep(t *testing.T) {
	orig := Turn{
		Intents:   []intent.Intent{intent.Greeting},
		Context:   Context{SlotProduct: "smartphone_x"},
		CreatedAt: time.Now(),
	}
	c := orig.Clone()
	c.Intents[0] = intent.Farewell
	c.Context[SlotProduct] = "laptop_pro"
	assert.Equal(t, intent.Greeting, orig.Intents[0])
	assert.Equal(t, "smartphone_x", orig.Context[SlotProduct])
}
