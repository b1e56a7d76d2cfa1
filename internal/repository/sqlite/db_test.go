package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

// newTestDB returns a connected DB backed by a fresh file in the test's temp
// dir. A file (rather than ":memory:") lets the pool hold several
// connections, the same as production.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db := New(Options{DSN: filepath.Join(t.TempDir(), "test.db")})
	if err := db.Connect(context.Background()); err != nil {
		t.Fatalf("failed to connect test db: %v", err)
	}
	t.Cleanup(func() { db.Disconnect() })
	return db
}

func TestConnectLifecycle(t *testing.T) {
	db := New(Options{DSN: "sqlite://" + filepath.Join(t.TempDir(), "life.db")})

	if db.IsConnected() {
		t.Fatal("IsConnected() = true before Connect")
	}
	if err := db.Ping(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Ping() before Connect error = %v, want ErrNotConnected", err)
	}

	if err := db.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !db.IsConnected() {
		t.Fatal("IsConnected() = false after Connect")
	}
	// second Connect is a no-op
	if err := db.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	if err := db.Disconnect(); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if db.IsConnected() {
		t.Fatal("IsConnected() = true after Disconnect")
	}
	if err := db.Disconnect(); err != nil {
		t.Fatalf("second Disconnect() error = %v", err)
	}
}

func TestConnect_InMemory(t *testing.T) {
	db := New(Options{DSN: ":memory:"})
	if err := db.Connect(context.Background()); err != nil {
		t.Fatalf("Connect(:memory:) error = %v", err)
	}
	defer db.Disconnect()

	// migrations must have run on the single pooled connection
	n, err := NewAdmins(db).CountAdmins(context.Background())
	if err != nil {
		t.Fatalf("CountAdmins() error = %v", err)
	}
	if n != 0 {
		t.Errorf("CountAdmins() = %d, want 0", n)
	}
}

func TestOperationsFailWhenDisconnected(t *testing.T) {
	db := New(Options{DSN: ":memory:"})

	_, err := NewAdmins(db).CountAdmins(context.Background())
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("CountAdmins() error = %v, want ErrNotConnected", err)
	}
}

func TestNormalizeDSN(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"data/app.db", "data/app.db"},
		{"sqlite://data/app.db", "data/app.db"},
		{"sqlite:data/app.db", "data/app.db"},
		{" :memory: ", ":memory:"},
		{"file:app.db?cache=shared", "file:app.db?cache=shared"},
	}
	for _, tt := range tests {
		if got := normalizeDSN(tt.in); got != tt.want {
			t.Errorf("normalizeDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWithPragmas(t *testing.T) {
	if got := withPragmas("app.db"); !strings.HasPrefix(got, "app.db?_pragma=") {
		t.Errorf("withPragmas(app.db) = %q, want ? separator", got)
	}
	if got := withPragmas("file:app.db?cache=shared"); !strings.HasPrefix(got, "file:app.db?cache=shared&_pragma=") {
		t.Errorf("withPragmas(uri) = %q, want & separator", got)
	}
}
