// Package skibbadb is an embedded, schema-validated document database
// layered over a relational SQL engine: typed collections,
// a fluent query builder, declarative constraints, and vector similarity
// search, with documents stored as JSON blobs keyed by an opaque id and
// selected fields promoted to real SQL columns.
package skibbadb

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/syssam/skibbadb/dialect"
	sqldialect "github.com/syssam/skibbadb/dialect/sql"
	"github.com/syssam/skibbadb/schema"
)

// dbWithRaw is implemented by dialect.Driver values that also expose their
// underlying *sql.DB, needed for atlas-based introspection in the
// migrator. *sqldialect.Driver (and its Stats/Debug wrappers, via
// embedding) satisfy it.
type dbWithRaw interface {
	DB() *sql.DB
}

// Database owns a connection (directly or via pool) and all registered
// collections.
type Database struct {
	mu          sync.RWMutex
	driver      dialect.Driver
	stats       *sqldialect.StatsDriver // non-nil when SlowQueryThreshold is configured
	cfg         Config
	hooks       *Hooks
	collections map[string]*Collection
	migrator    *Migrator
	migrateSF   singleflight.Group
	closed      bool
}

// Open opens a database using cfg's driver/path selection and returns a
// Database ready for collection registration. The caller is responsible for closing it.
func Open(opts ...Option) (*Database, error) {
	cfg := NewConfig(opts...)

	source := cfg.Path
	if cfg.Memory || source == "" {
		source = "file::memory:?cache=shared"
	}

	drv, err := sqldialect.Open(cfg.Driver, source)
	if err != nil {
		return nil, NewDatabaseError(ConnectionCreateFailed, "failed to open driver", err)
	}

	if cfg.SlowQueryThreshold > 0 {
		stats := sqldialect.NewStatsDriver(drv,
			sqldialect.WithSlowThreshold(cfg.SlowQueryThreshold),
			sqldialect.WithSlowQueryLog(),
		)
		db := newDatabase(stats, cfg)
		db.stats = stats
		return db, nil
	}

	return newDatabase(drv, cfg), nil
}

// OpenDriver builds a Database over an already-constructed driver (e.g. a
// StatsDriver or DebugDriver wrapping a *sqldialect.Driver), for callers
// that need statistics/debug logging or a custom connection.
func OpenDriver(drv dialect.Driver, opts ...Option) *Database {
	return newDatabase(drv, NewConfig(opts...))
}

func newDatabase(drv dialect.Driver, cfg Config) *Database {
	db := &Database{
		driver:      drv,
		cfg:         cfg,
		hooks:       NewHooks(cfg.StrictHooks),
		collections: make(map[string]*Collection),
	}
	if raw, ok := drv.(dbWithRaw); ok {
		db.migrator = NewMigrator(raw.DB(), cfg.MigrationMode)
	}
	db.hooks.Run(context.Background(), OnOpen, "", nil) //nolint:errcheck // open hooks never fail the open itself
	return db
}

// Hooks returns the database's lifecycle hook registry.
func (db *Database) Hooks() *Hooks { return db.hooks }

// Cache returns the configured result cache, or nil.
func (db *Database) Cache() Cache { return db.cfg.Cache }

// Driver returns the underlying dialect.Driver.
func (db *Database) Driver() dialect.Driver { return db.driver }

// Stats returns query statistics and whether collection is enabled
// (via WithSlowQueryThreshold).
func (db *Database) Stats() (sqldialect.StatsSnapshot, bool) {
	if db.stats == nil {
		return sqldialect.StatsSnapshot{}, false
	}
	return db.stats.QueryStats().Stats(), true
}

// Close closes the underlying driver. Close is idempotent.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true
	db.hooks.Run(context.Background(), OnClose, "", nil) //nolint:errcheck
	return db.driver.Close()
}

// IsClosed reports whether Close has been called.
func (db *Database) IsClosed() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.closed
}

// RegisterCollection declares a collection named name against descriptor
// d at schemaVersion, running the migrator once. Concurrent
// registrations of the *same* name are coalesced via singleflight so the
// migrator only runs once even if called from multiple goroutines at
// startup, though registrations are generally expected to already be
// serialized by the caller.
func (db *Database) RegisterCollection(ctx context.Context, name string, d *schema.Descriptor, schemaVersion int) (*Collection, error) {
	if err := d.CheckConfig(); err != nil {
		return nil, err
	}

	_, err, _ := db.migrateSF.Do(name, func() (any, error) {
		if db.migrator != nil {
			if err := db.migrator.Migrate(ctx, name, d, schemaVersion, false); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	col := newCollection(db, name, d)

	db.mu.Lock()
	db.collections[name] = col
	db.mu.Unlock()

	return col, nil
}

// Collection returns the previously registered collection named name.
func (db *Database) Collection(name string) (*Collection, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	c, ok := db.collections[name]
	return c, ok
}

// mustCollection is a convenience for cross-collection lookups (joins,
// subqueries, cascades) where absence is a programming error.
func (db *Database) mustCollection(name string) (*Collection, error) {
	c, ok := db.Collection(name)
	if !ok {
		return nil, fmt.Errorf("skibbadb: collection %q is not registered", name)
	}
	return c, nil
}
