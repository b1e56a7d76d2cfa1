package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Blacklist stores revoked session tokens. Rows are not removed on read;
// expiry is decided by the blacklist service and old rows are deleted by
// its scheduled sweep (DeleteBefore).
type Blacklist struct {
	db *DB
}

func NewBlacklist(db *DB) *Blacklist {
	return &Blacklist{db: db}
}

// Add records token. Re-adding an existing token keeps the original
// timestamp and is not an error.
func (b *Blacklist) Add(ctx context.Context, token string, at time.Time) error {
	conn, ctx, cancel, err := b.db.acquire(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	_, err = conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO blacklisted_tokens (token, created_at) VALUES (?, ?)`,
		token, at.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: blacklisting token: %w", err)
	}
	return nil
}

// AddedAt reports when token was blacklisted, or ok=false if it never was
// (or has been swept).
func (b *Blacklist) AddedAt(ctx context.Context, token string) (time.Time, bool, error) {
	conn, ctx, cancel, err := b.db.acquire(ctx)
	if err != nil {
		return time.Time{}, false, err
	}
	defer cancel()

	var nanos int64
	err = conn.QueryRowContext(ctx,
		`SELECT created_at FROM blacklisted_tokens WHERE token = ?`, token,
	).Scan(&nanos)
	if err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("sqlite: looking up blacklisted token: %w", err)
	}
	return time.Unix(0, nanos).UTC(), true, nil
}

// DeleteBefore removes entries created before cutoff and returns how many
// went.
func (b *Blacklist) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	conn, ctx, cancel, err := b.db.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()

	result, err := conn.ExecContext(ctx,
		`DELETE FROM blacklisted_tokens WHERE created_at < ?`, cutoff.UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: sweeping blacklist: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}
