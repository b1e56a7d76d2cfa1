// Package sqlite implements the repository interfaces on SQLite.
//
// Admin accounts and blacklisted tokens live in ordinary relational tables.
// The eight content resources are stored as JSON documents (one table per
// collection, a body column plus indexed timestamps) and queried with
// SQLite's JSON functions, so adding a field to a resource never needs a
// migration. Uniqueness rules such as one registration per (event, email)
// are unique expression indexes over the document body.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pressly/goose/v3"

	// registers the "sqlite" driver with database/sql
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNotConnected is returned by every store call made before Connect or
// after Disconnect.
var ErrNotConnected = errors.New("sqlite: not connected")

// Default timeouts, used when Options leaves them zero.
const (
	DefaultConnectTimeout   = 10 * time.Second
	DefaultOperationTimeout = 45 * time.Second
)

// Options configures a DB.
type Options struct {
	// DSN is a file path, a "file:" URI, ":memory:", or any of those
	// prefixed with "sqlite://".
	DSN string

	ConnectTimeout   time.Duration
	OperationTimeout time.Duration
}

// DB owns the connection pool. It is created once at startup, connected
// explicitly, and handed to every repository; there is no package-level
// connection state.
//
//	db := sqlite.New(opts)
//	if err := db.Connect(ctx); err != nil { ... }
//	defer db.Disconnect()
type DB struct {
	opts Options

	mu        sync.Mutex
	conn      *sql.DB
	connected atomic.Bool
}

// New returns an unconnected DB.
func New(opts Options) *DB {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.OperationTimeout <= 0 {
		opts.OperationTimeout = DefaultOperationTimeout
	}
	return &DB{opts: opts}
}

// Connect opens the pool, verifies it with a ping and applies pending
// migrations, all within the connect timeout. Calling Connect on a
// connected DB is a no-op.
func (db *DB) Connect(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.connected.Load() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, db.opts.ConnectTimeout)
	defer cancel()

	dsn := normalizeDSN(db.opts.DSN)
	conn, err := sql.Open("sqlite", withPragmas(dsn))
	if err != nil {
		return fmt.Errorf("sqlite: opening database: %w", err)
	}

	// every connection to ":memory:" is a separate database
	if isMemory(dsn) {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if err := migrate(ctx, conn); err != nil {
		_ = conn.Close()
		return fmt.Errorf("sqlite: running migrations: %w", err)
	}

	db.conn = conn
	db.connected.Store(true)
	return nil
}

// IsConnected reports whether Connect succeeded and Disconnect has not run.
func (db *DB) IsConnected() bool {
	return db.connected.Load()
}

// Disconnect closes the pool. It is safe to call more than once.
func (db *DB) Disconnect() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if !db.connected.Load() {
		return nil
	}
	db.connected.Store(false)

	err := db.conn.Close()
	db.conn = nil
	if err != nil {
		return fmt.Errorf("sqlite: closing database: %w", err)
	}
	return nil
}

// Ping checks the pool is still usable; the health endpoint calls it.
func (db *DB) Ping(ctx context.Context) error {
	conn, ctx, cancel, err := db.acquire(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	return conn.PingContext(ctx)
}

// acquire returns the pool and a context bounded by the operation timeout.
// A deadline hit mid-operation surfaces as context.DeadlineExceeded in the
// wrapped error; nothing is retried.
func (db *DB) acquire(ctx context.Context) (*sql.DB, context.Context, context.CancelFunc, error) {
	db.mu.Lock()
	conn := db.conn
	db.mu.Unlock()

	if conn == nil || !db.connected.Load() {
		return nil, nil, nil, ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, db.opts.OperationTimeout)
	return conn, ctx, cancel, nil
}

func migrate(ctx context.Context, conn *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}
	if err := goose.UpContext(ctx, conn, "migrations"); err != nil {
		return err
	}
	return nil
}

func normalizeDSN(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	for _, prefix := range []string{"sqlite://", "sqlite:"} {
		if strings.HasPrefix(dsn, prefix) {
			return strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

func isMemory(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// withPragmas appends per-connection pragmas. The driver applies _pragma
// parameters on every new connection, unlike a one-off Exec which only
// reaches whichever pooled connection ran it.
func withPragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
}
