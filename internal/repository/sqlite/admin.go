package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/aisolutions-cms/internal/apperror"
	"github.com/sakif/aisolutions-cms/internal/model"
	"github.com/sakif/aisolutions-cms/internal/repository"
)

var _ repository.AdminRepository = (*Admins)(nil)

// Admins is the credential store. Username and email each carry a UNIQUE
// constraint, so two concurrent creates for the same name cannot both
// succeed; the loser gets apperror.ErrConflict.
type Admins struct {
	db *DB
}

func NewAdmins(db *DB) *Admins {
	return &Admins{db: db}
}

// CreateAdmin inserts admin, filling in its id and timestamps. The email is
// stored lowercased.
func (a *Admins) CreateAdmin(ctx context.Context, admin *model.AdminAccount) error {
	conn, ctx, cancel, err := a.db.acquire(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	now := time.Now().UTC()
	admin.ID = xid.New().String()
	admin.Email = strings.ToLower(strings.TrimSpace(admin.Email))
	admin.CreatedAt = now
	admin.UpdatedAt = now

	_, err = conn.ExecContext(ctx,
		`INSERT INTO admins (id, username, email, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		admin.ID,
		admin.Username,
		admin.Email,
		admin.PasswordHash,
		admin.CreatedAt,
		admin.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// SQLite names the failing column: "UNIQUE constraint failed: admins.email"
			if strings.Contains(err.Error(), "admins.email") {
				return apperror.AlreadyExists("admin", "email "+admin.Email)
			}
			return apperror.AlreadyExists("admin", "username "+admin.Username)
		}
		return fmt.Errorf("sqlite: creating admin %s: %w", admin.Username, err)
	}
	return nil
}

func (a *Admins) GetAdminByID(ctx context.Context, id string) (*model.AdminAccount, error) {
	admin, err := a.getBy(ctx, "id", id)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("admin", id)
	}
	return admin, err
}

func (a *Admins) GetAdminByUsername(ctx context.Context, username string) (*model.AdminAccount, error) {
	admin, err := a.getBy(ctx, "username", username)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFoundBy("admin", "username", username)
	}
	return admin, err
}

// GetAdminByEmail matches case-insensitively.
func (a *Admins) GetAdminByEmail(ctx context.Context, email string) (*model.AdminAccount, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	admin, err := a.getBy(ctx, "email", email)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFoundBy("admin", "email", email)
	}
	return admin, err
}

func (a *Admins) CountAdmins(ctx context.Context) (int, error) {
	conn, ctx, cancel, err := a.db.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()

	var n int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting admins: %w", err)
	}
	return n, nil
}

// getBy returns sql.ErrNoRows unwrapped so each caller can build its own
// not-found error. column is always one of the literals above.
func (a *Admins) getBy(ctx context.Context, column, value string) (*model.AdminAccount, error) {
	conn, ctx, cancel, err := a.db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var admin model.AdminAccount
	err = conn.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at, updated_at
		 FROM admins WHERE `+column+` = ?`,
		value,
	).Scan(
		&admin.ID,
		&admin.Username,
		&admin.Email,
		&admin.PasswordHash,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("sqlite: getting admin by %s: %w", column, err)
	}
	return &admin, nil
}
