package skibbadb

import (
	"os"
	"time"
)

// MigrationMode selects how the migrator behaves when a collection is
// registered.
type MigrationMode string

const (
	// MigrationApply runs the migrator's ALTER statements (default).
	MigrationApply MigrationMode = "apply"
	// MigrationPrint logs the migration plan (its DDL statements) through
	// log/slog without executing it.
	MigrationPrint MigrationMode = "print"
)

// envDriver and envMigrationMode are read once at Open time.
const (
	envDriver        = "SKIBBADB_DRIVER"
	envMigrationMode = "SKIBBADB_MIGRATION_MODE"
)

// PoolConfig holds pool settings for remote/replica connections. Open does
// not build a pooled driver; the values are only carried in Config.
type PoolConfig struct {
	MaxConnections      int
	MaxIdleTime         time.Duration
	HealthCheckInterval time.Duration
	RetryAttempts       int
	RetryDelay          time.Duration
}

// PragmaConfig is the set of SQLite engine pragmas carried in Config.
// Open does not issue these pragmas on the connection it opens.
type PragmaConfig struct {
	JournalMode   string
	Synchronous   string
	BusyTimeout   time.Duration
	CacheSize     int
	TempStore     string
	LockingMode   string
	AutoVacuum    string
	WalCheckpoint string
}

// Config is the full configuration surface for Open.
type Config struct {
	Path   string
	Memory bool

	// Driver names the binding to use; defaults to "sqlite" and can be
	// overridden by SKIBBADB_DRIVER.
	Driver string

	// RemoteAuthToken and SyncURL configure a remote-replica driver, when
	// the chosen binding supports one.
	RemoteAuthToken string
	SyncURL         string

	Pool   PoolConfig
	Pragma PragmaConfig

	// MigrationMode defaults to MigrationApply; overridden by
	// SKIBBADB_MIGRATION_MODE=print, or explicitly via WithMigrationMode.
	MigrationMode MigrationMode

	// Cache, if non-nil, is exposed through Database.Cache for use with
	// CacheSet/CacheGet. Collection operations do not read or write it.
	Cache Cache

	// StrictHooks makes hook failures propagate instead of being logged
	// and swallowed.
	StrictHooks bool

	// SlowQueryThreshold, if positive, wraps the opened driver in a
	// statistics-collecting driver that counts slow queries and logs them,
	// retrievable afterwards via Database.Stats.
	SlowQueryThreshold time.Duration
}

// Option configures a Config.
type Option func(*Config)

// WithPath sets the database file path (":memory:" for Memory).
func WithPath(path string) Option {
	return func(c *Config) { c.Path = path }
}

// WithMemory opens an in-memory database.
func WithMemory() Option {
	return func(c *Config) { c.Memory = true }
}

// WithDriver overrides driver selection, taking precedence over
// SKIBBADB_DRIVER.
func WithDriver(name string) Option {
	return func(c *Config) { c.Driver = name }
}

// WithMigrationMode overrides the migration mode, taking precedence over
// SKIBBADB_MIGRATION_MODE.
func WithMigrationMode(m MigrationMode) Option {
	return func(c *Config) { c.MigrationMode = m }
}

// WithCache attaches a result cache.
func WithCache(cache Cache) Option {
	return func(c *Config) { c.Cache = cache }
}

// WithStrictHooks makes hook failures propagate rather than being
// logged and swallowed.
func WithStrictHooks() Option {
	return func(c *Config) { c.StrictHooks = true }
}

// WithPool sets Config.Pool; see PoolConfig.
func WithPool(p PoolConfig) Option {
	return func(c *Config) { c.Pool = p }
}

// WithPragma sets Config.Pragma; see PragmaConfig.
func WithPragma(p PragmaConfig) Option {
	return func(c *Config) { c.Pragma = p }
}

// WithSlowQueryThreshold enables query statistics collection: every query
// and exec is timed, and one exceeding threshold is logged and counted as
// slow. Stats are read back via Database.Stats.
func WithSlowQueryThreshold(threshold time.Duration) Option {
	return func(c *Config) { c.SlowQueryThreshold = threshold }
}

// NewConfig builds a Config from opts. Environment overrides are applied
// after the defaults and before opts, so explicit opts win over the
// environment.
func NewConfig(opts ...Option) Config {
	c := Config{
		Driver:        "sqlite",
		MigrationMode: MigrationApply,
		Pragma: PragmaConfig{
			JournalMode: "WAL",
			Synchronous: "NORMAL",
			BusyTimeout: 5 * time.Second,
		},
	}
	if v := os.Getenv(envDriver); v != "" {
		c.Driver = v
	}
	if v := os.Getenv(envMigrationMode); v == string(MigrationPrint) {
		c.MigrationMode = MigrationPrint
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
