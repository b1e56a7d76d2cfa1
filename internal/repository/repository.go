// Package repository declares the storage contracts the services depend on.
// The sqlite subpackage implements them; service tests use in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/aisolutions-cms/internal/model"
)

// Paging bounds applied by every List/Find call.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Filter is an equality match on top-level JSON fields of a document,
// e.g. {"status": "published"}. All entries must match.
type Filter map[string]any

// Query describes a Find or Count over a collection.
type Query struct {
	Filter Filter

	// Search is a case-insensitive substring matched against any of
	// SearchFields. Empty means no search.
	Search       string
	SearchFields []string

	// SortBy is a JSON field name; "createdAt" and "updatedAt" use the
	// indexed columns. Empty sorts by createdAt.
	SortBy   string
	SortDesc bool

	Limit  int
	Offset int
}

// Page is one slice of a listing plus the total matching count.
type Page[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Collection stores documents of one resource type.
type Collection[T any] interface {
	Create(ctx context.Context, doc *T) error
	GetByID(ctx context.Context, id string) (*T, error)
	FindOne(ctx context.Context, filter Filter) (*T, error)
	Find(ctx context.Context, q Query) ([]T, error)
	Count(ctx context.Context, q Query) (int, error)
	CountBy(ctx context.Context, field string, filter Filter) (map[string]int, error)
	Update(ctx context.Context, doc *T) error
	Delete(ctx context.Context, id string) error
}

// AdminRepository is the credential store.
type AdminRepository interface {
	CreateAdmin(ctx context.Context, admin *model.AdminAccount) error
	GetAdminByID(ctx context.Context, id string) (*model.AdminAccount, error)
	GetAdminByUsername(ctx context.Context, username string) (*model.AdminAccount, error)
	GetAdminByEmail(ctx context.Context, email string) (*model.AdminAccount, error)
	CountAdmins(ctx context.Context) (int, error)
}

// ClampPage normalizes limit and offset into the allowed range.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
