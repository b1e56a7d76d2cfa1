// Package blacklist tracks revoked session tokens.
//
// A token is blacklisted on logout and stays revoked for the TTL (24h by
// default; config refuses a TTL shorter than the token lifetime, so a
// revoked token has expired on its own by the time its entry lapses).
// Expiry is decided on read: an entry older than the TTL counts as absent
// even if the store has not removed it yet. Stores without native key expiry are cleaned up by the
// Sweeper.
package blacklist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultTTL is how long a revoked token stays on the list.
const DefaultTTL = 24 * time.Hour

// Store persists blacklist entries. Add must be idempotent and keep the
// first timestamp.
type Store interface {
	Add(ctx context.Context, token string, at time.Time) error
	AddedAt(ctx context.Context, token string) (time.Time, bool, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ErrEmptyToken is returned when asked to blacklist an empty string.
var ErrEmptyToken = errors.New("blacklist: empty token")

type Service struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func New(store Store, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, ttl: ttl, logger: logger, now: time.Now}
}

// Add revokes token. Adding a token twice is not an error.
func (s *Service) Add(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	if err := s.store.Add(ctx, token, s.now()); err != nil {
		return fmt.Errorf("blacklist: adding token: %w", err)
	}
	return nil
}

// Contains reports whether token is currently revoked.
func (s *Service) Contains(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	at, ok, err := s.store.AddedAt(ctx, token)
	if err != nil {
		return false, fmt.Errorf("blacklist: checking token: %w", err)
	}
	if !ok {
		return false, nil
	}
	return s.now().Sub(at) < s.ttl, nil
}

// Sweep deletes entries older than the TTL.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteBefore(ctx, s.now().Add(-s.ttl))
	if err != nil {
		return 0, fmt.Errorf("blacklist: sweeping: %w", err)
	}
	if n > 0 {
		s.logger.Info("blacklist swept", "removed", n)
	}
	return n, nil
}
