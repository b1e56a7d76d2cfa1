package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/xid"

	"github.com/sakif/aisolutions-cms/internal/apperror"
	"github.com/sakif/aisolutions-cms/internal/model"
	"github.com/sakif/aisolutions-cms/internal/repository"
)

// Collection tables, as created by the migrations.
const (
	TableContacts           = "contacts"
	TableFeedback           = "feedback"
	TableArticles           = "articles"
	TableEvents             = "events"
	TableEventRegistrations = "event_registrations"
	TableProjects           = "projects"
	TableSolutions          = "solutions"
	TableGallery            = "gallery"
)

var knownTables = map[string]bool{
	TableContacts:           true,
	TableFeedback:           true,
	TableArticles:           true,
	TableEvents:             true,
	TableEventRegistrations: true,
	TableProjects:           true,
	TableSolutions:          true,
	TableGallery:            true,
}

// fieldName limits which JSON keys may appear in a query. The key is
// always bound as a parameter; this keeps paths like "$.a[0]" out.
var fieldName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// CollectionSpec names a collection's table and how it reports errors.
type CollectionSpec struct {
	Table string
	// Resource is the singular noun used in error messages ("article").
	Resource string
	// UniqueKey describes the collection's unique index for 409 messages
	// ("slug", "event and email"). Empty for collections without one.
	UniqueKey string
}

// Collection is a JSON document collection. T is the resource struct and P
// its pointer type, which exposes the embedded model.Base.
type Collection[T any, P model.Entity[T]] struct {
	db   *DB
	spec CollectionSpec
}

var _ repository.Collection[model.Article] = (*Collection[model.Article, *model.Article])(nil)

// NewCollection panics on an unknown table: table names are compile-time
// constants, and an unknown one is a programming error.
func NewCollection[T any, P model.Entity[T]](db *DB, spec CollectionSpec) *Collection[T, P] {
	if !knownTables[spec.Table] {
		panic(fmt.Sprintf("sqlite: unknown collection table %q", spec.Table))
	}
	return &Collection[T, P]{db: db, spec: spec}
}

// Create assigns the id and timestamps, then inserts doc.
func (c *Collection[T, P]) Create(ctx context.Context, doc *T) error {
	conn, ctx, cancel, err := c.db.acquire(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	now := time.Now().UTC()
	meta := P(doc).Meta()
	meta.ID = xid.New().String()
	meta.CreatedAt = now
	meta.UpdatedAt = now

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("sqlite: encoding %s: %w", c.spec.Resource, err)
	}

	_, err = conn.ExecContext(ctx,
		`INSERT INTO `+c.spec.Table+` (id, body, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		meta.ID, string(body), now.UnixNano(), now.UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return c.conflict(doc)
		}
		return fmt.Errorf("sqlite: creating %s: %w", c.spec.Resource, err)
	}
	return nil
}

// GetByID returns apperror.ErrNotFound when no document has that id.
func (c *Collection[T, P]) GetByID(ctx context.Context, id string) (*T, error) {
	conn, ctx, cancel, err := c.db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var body string
	err = conn.QueryRowContext(ctx,
		`SELECT body FROM `+c.spec.Table+` WHERE id = ?`, id,
	).Scan(&body)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound(c.spec.Resource, id)
		}
		return nil, fmt.Errorf("sqlite: getting %s %s: %w", c.spec.Resource, id, err)
	}
	return c.decode(body)
}

// FindOne returns the first document matching filter, oldest first.
func (c *Collection[T, P]) FindOne(ctx context.Context, filter repository.Filter) (*T, error) {
	docs, err := c.Find(ctx, repository.Query{Filter: filter, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		field, value := describeFilter(filter)
		return nil, apperror.NotFoundBy(c.spec.Resource, field, value)
	}
	return &docs[0], nil
}

// Find returns one page of documents matching q.
func (c *Collection[T, P]) Find(ctx context.Context, q repository.Query) ([]T, error) {
	where, args, err := buildWhere(q.Filter, q.Search, q.SearchFields)
	if err != nil {
		return nil, err
	}
	order, orderArgs, err := buildOrder(q.SortBy, q.SortDesc)
	if err != nil {
		return nil, err
	}
	limit, offset := repository.ClampPage(q.Limit, q.Offset)

	args = append(args, orderArgs...)
	args = append(args, limit, offset)

	conn, ctx, cancel, err := c.db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	rows, err := conn.QueryContext(ctx,
		`SELECT body FROM `+c.spec.Table+where+order+` LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing %s: %w", c.spec.Table, err)
	}
	defer rows.Close()

	docs := make([]T, 0, limit)
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("sqlite: scanning %s row: %w", c.spec.Resource, err)
		}
		doc, err := c.decode(body)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating %s: %w", c.spec.Table, err)
	}
	return docs, nil
}

// Count ignores q's paging and sort.
func (c *Collection[T, P]) Count(ctx context.Context, q repository.Query) (int, error) {
	where, args, err := buildWhere(q.Filter, q.Search, q.SearchFields)
	if err != nil {
		return 0, err
	}

	conn, ctx, cancel, err := c.db.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()

	var n int
	err = conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+c.spec.Table+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting %s: %w", c.spec.Table, err)
	}
	return n, nil
}

// CountBy groups matching documents by one field. Documents without the
// field are counted under "none".
func (c *Collection[T, P]) CountBy(ctx context.Context, field string, filter repository.Filter) (map[string]int, error) {
	if !fieldName.MatchString(field) {
		return nil, fmt.Errorf("sqlite: invalid field name %q", field)
	}
	where, whereArgs, err := buildWhere(filter, "", nil)
	if err != nil {
		return nil, err
	}
	args := append([]any{jsonPath(field)}, whereArgs...)

	conn, ctx, cancel, err := c.db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	rows, err := conn.QueryContext(ctx,
		`SELECT json_extract(body, ?) AS k, COUNT(*) FROM `+c.spec.Table+where+` GROUP BY k`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: grouping %s by %s: %w", c.spec.Table, field, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			key sql.NullString
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("sqlite: scanning %s group: %w", c.spec.Table, err)
		}
		k := key.String
		if !key.Valid || k == "" {
			k = "none"
		}
		counts[k] += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating %s groups: %w", c.spec.Table, err)
	}
	return counts, nil
}

// Update replaces the stored body of doc and bumps UpdatedAt. CreatedAt is
// taken from doc as-is, so callers must start from a fetched document.
func (c *Collection[T, P]) Update(ctx context.Context, doc *T) error {
	conn, ctx, cancel, err := c.db.acquire(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	meta := P(doc).Meta()
	meta.UpdatedAt = time.Now().UTC()

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("sqlite: encoding %s: %w", c.spec.Resource, err)
	}

	result, err := conn.ExecContext(ctx,
		`UPDATE `+c.spec.Table+` SET body = ?, updated_at = ? WHERE id = ?`,
		string(body), meta.UpdatedAt.UnixNano(), meta.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return c.conflict(doc)
		}
		return fmt.Errorf("sqlite: updating %s %s: %w", c.spec.Resource, meta.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound(c.spec.Resource, meta.ID)
	}
	return nil
}

// Delete removes the document with the given id.
func (c *Collection[T, P]) Delete(ctx context.Context, id string) error {
	conn, ctx, cancel, err := c.db.acquire(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	result, err := conn.ExecContext(ctx, `DELETE FROM `+c.spec.Table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting %s %s: %w", c.spec.Resource, id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound(c.spec.Resource, id)
	}
	return nil
}

func (c *Collection[T, P]) decode(body string) (*T, error) {
	doc := new(T)
	if err := json.Unmarshal([]byte(body), doc); err != nil {
		return nil, fmt.Errorf("sqlite: decoding %s: %w", c.spec.Resource, err)
	}
	return doc, nil
}

func (c *Collection[T, P]) conflict(doc *T) error {
	key := c.spec.UniqueKey
	if key == "" {
		key = "id " + P(doc).Meta().ID
	} else if s, ok := any(doc).(model.Sluggable); ok && key == "slug" {
		key = "slug " + s.CurrentSlug()
	}
	return apperror.AlreadyExists(c.spec.Resource, key)
}

func jsonPath(field string) string {
	return "$." + field
}

// likeEscaper escapes LIKE wildcards so a search for "50%" matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func buildWhere(filter repository.Filter, search string, searchFields []string) (string, []any, error) {
	var (
		clauses []string
		args    []any
	)

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if !fieldName.MatchString(k) {
			return "", nil, fmt.Errorf("sqlite: invalid filter field %q", k)
		}
		clauses = append(clauses, `json_extract(body, ?) = ?`)
		args = append(args, jsonPath(k), filter[k])
	}

	search = strings.TrimSpace(search)
	if search != "" && len(searchFields) > 0 {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
		ors := make([]string, 0, len(searchFields))
		for _, f := range searchFields {
			if !fieldName.MatchString(f) {
				return "", nil, fmt.Errorf("sqlite: invalid search field %q", f)
			}
			ors = append(ors, `lower(json_extract(body, ?)) LIKE ? ESCAPE '\'`)
			args = append(args, jsonPath(f), pattern)
		}
		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func buildOrder(sortBy string, desc bool) (string, []any, error) {
	dir := " ASC"
	if desc {
		dir = " DESC"
	}

	switch sortBy {
	case "", "createdAt":
		return " ORDER BY created_at" + dir + ", id" + dir, nil, nil
	case "updatedAt":
		return " ORDER BY updated_at" + dir + ", id" + dir, nil, nil
	}

	if !fieldName.MatchString(sortBy) {
		return "", nil, fmt.Errorf("sqlite: invalid sort field %q", sortBy)
	}
	return " ORDER BY json_extract(body, ?)" + dir + ", created_at" + dir, []any{jsonPath(sortBy)}, nil
}

// describeFilter picks a field/value pair for a not-found message.
func describeFilter(filter repository.Filter) (string, string) {
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return "filter", "{}"
	}
	sort.Strings(keys)
	return keys[0], fmt.Sprint(filter[keys[0]])
}
