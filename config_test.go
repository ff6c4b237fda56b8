package skibbadb_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/skibbadb"
)

// TestNewConfigDefaults checks the zero-option defaults documented for
// Open.
func TestNewConfigDefaults(t *testing.T) {
	c := skibbadb.NewConfig()
	assert.Equal(t, "sqlite", c.Driver)
	assert.Equal(t, skibbadb.MigrationApply, c.MigrationMode)
	assert.Equal(t, "WAL", c.Pragma.JournalMode)
	assert.Equal(t, "NORMAL", c.Pragma.Synchronous)
	assert.Equal(t, 5*time.Second, c.Pragma.BusyTimeout)
	assert.False(t, c.Memory)
	assert.False(t, c.StrictHooks)
}

// TestNewConfigOptionsOverrideDefaults verifies each functional option
// mutates the expected field.
func TestNewConfigOptionsOverrideDefaults(t *testing.T) {
	c := skibbadb.NewConfig(
		skibbadb.WithPath("/tmp/db.sqlite"),
		skibbadb.WithMemory(),
		skibbadb.WithDriver("libsql"),
		skibbadb.WithMigrationMode(skibbadb.MigrationPrint),
		skibbadb.WithStrictHooks(),
		skibbadb.WithPool(skibbadb.PoolConfig{MaxConnections: 10}),
		skibbadb.WithPragma(skibbadb.PragmaConfig{JournalMode: "DELETE"}),
	)

	assert.Equal(t, "/tmp/db.sqlite", c.Path)
	assert.True(t, c.Memory)
	assert.Equal(t, "libsql", c.Driver)
	assert.Equal(t, skibbadb.MigrationPrint, c.MigrationMode)
	assert.True(t, c.StrictHooks)
	assert.Equal(t, 10, c.Pool.MaxConnections)
	assert.Equal(t, "DELETE", c.Pragma.JournalMode)
}

// TestNewConfigEnvironmentOverrides checks that SKIBBADB_DRIVER and
// SKIBBADB_MIGRATION_MODE are honored, and that an explicit Option still
// wins over the environment.
func TestNewConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("SKIBBADB_DRIVER", "turso")
	t.Setenv("SKIBBADB_MIGRATION_MODE", "print")

	c := skibbadb.NewConfig()
	assert.Equal(t, "turso", c.Driver)
	assert.Equal(t, skibbadb.MigrationPrint, c.MigrationMode)

	c2 := skibbadb.NewConfig(skibbadb.WithDriver("sqlite"))
	assert.Equal(t, "sqlite", c2.Driver)

	require.NoError(t, os.Unsetenv("SKIBBADB_DRIVER"))
	require.NoError(t, os.Unsetenv("SKIBBADB_MIGRATION_MODE"))
}

// TestHooksRunInRegistrationOrder verifies hooks for an event fire in the
// order they were registered and that a before-hook's returned value is
// threaded into the next hook.
func TestHooksRunInRegistrationOrder(t *testing.T) {
	h := skibbadb.NewHooks(false)

	var order []string
	h.On(skibbadb.BeforeInsert, func(_ context.Context, _ string, data any) (any, error) {
		order = append(order, "first")
		m := data.(map[string]any)
		m["touched_by_first"] = true
		return m, nil
	})
	h.On(skibbadb.BeforeInsert, func(_ context.Context, _ string, data any) (any, error) {
		order = append(order, "second")
		return data, nil
	})

	result, err := h.Run(context.Background(), skibbadb.BeforeInsert, "users", map[string]any{"name": "ada"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, true, result.(map[string]any)["touched_by_first"])
}

// TestHooksStrictModePropagatesErrors verifies a strict registry surfaces
// a hook's error to the caller, while a lenient one swallows it.
func TestHooksStrictModePropagatesErrors(t *testing.T) {
	boom := errors.New("boom")

	strict := skibbadb.NewHooks(true)
	strict.On(skibbadb.BeforeUpdate, func(_ context.Context, _ string, data any) (any, error) {
		return nil, boom
	})
	_, err := strict.Run(context.Background(), skibbadb.BeforeUpdate, "users", nil)
	require.Error(t, err)

	lenient := skibbadb.NewHooks(false)
	lenient.On(skibbadb.BeforeUpdate, func(_ context.Context, _ string, data any) (any, error) {
		return nil, boom
	})
	_, err = lenient.Run(context.Background(), skibbadb.BeforeUpdate, "users", "unchanged")
	require.NoError(t, err)
}

// TestHooksOnErrorNeverPropagates verifies OnError hooks always run in
// lenient mode even on a strict registry, since they fire during failure
// handling itself.
func TestHooksOnErrorNeverPropagates(t *testing.T) {
	strict := skibbadb.NewHooks(true)
	strict.On(skibbadb.OnError, func(_ context.Context, _ string, data any) (any, error) {
		return nil, errors.New("secondary failure")
	})
	_, err := strict.Run(context.Background(), skibbadb.OnError, "users", nil)
	require.NoError(t, err)
}

// fakeCache is a minimal in-memory Cache used to exercise CacheSet/CacheGet.
type fakeCache struct {
	store map[string][]byte
}

func newFakeCache() *fakeCache { return &fakeCache{store: make(map[string][]byte)} }

func (f *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	b, ok := f.store[key]
	if !ok {
		return nil, nil
	}
	return b, nil
}

func (f *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.store[key] = value
	return nil
}

func (f *fakeCache) Delete(_ context.Context, key string) error {
	delete(f.store, key)
	return nil
}

func (f *fakeCache) DeletePrefix(_ context.Context, prefix string) error {
	for k := range f.store {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(f.store, k)
		}
	}
	return nil
}

func (f *fakeCache) Clear(_ context.Context) error {
	f.store = make(map[string][]byte)
	return nil
}

// TestCacheSetGetRoundTrip verifies CacheSet/CacheGet msgpack round-trip
// and the documented "key absent" behavior.
func TestCacheSetGetRoundTrip(t *testing.T) {
	c := newFakeCache()
	ctx := context.Background()

	type payload struct {
		Name string
		Age  int
	}
	in := payload{Name: "ada", Age: 30}
	require.NoError(t, skibbadb.CacheSet(ctx, c, "users:ada", in, 0))

	var out payload
	found, err := skibbadb.CacheGet(ctx, c, "users:ada", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, out)

	var missing payload
	found, err = skibbadb.CacheGet(ctx, c, "users:missing", &missing)
	require.NoError(t, err)
	assert.False(t, found)
}

// TestCacheKeyString verifies the cache key's string form concatenates
// its components, used as the lookup key for compiled-query caching.
func TestCacheKeyString(t *testing.T) {
	k := skibbadb.CacheKey{
		Table:      "users",
		Operation:  "find",
		Predicates: "age>18",
		OrderBy:    "name",
		Limit:      10,
		Offset:     0,
	}
	assert.Equal(t, "users:find:age>18:name", k.String())
}
