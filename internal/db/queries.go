package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/partbridge/internal/component"
	"github.com/hpungsan/partbridge/internal/errors"
)

// MaxSearchQueryChars bounds the length of a search query.
const MaxSearchQueryChars = 200

const componentColumns = `id, mpn, manufacturer, description, symbol_name, footprint_name,
	has_3d_model, vendor, source_url, referrer_url, created_at, updated_at`

// NewID returns a fresh ULID string. IDs minted within one process sort in creation order.
func NewID() string {
	return ulid.Make().String()
}

// Upsert inserts a component or, when its MPN already exists, replaces every
// mutable field. The record ID and created_at survive re-imports; c is updated
// with the stored ID and timestamps.
func Upsert(db *sql.DB, c *component.Component) error {
	now := time.Now().Unix()
	query := `
		INSERT INTO components (` + componentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(mpn) DO UPDATE SET
			manufacturer = excluded.manufacturer,
			description = excluded.description,
			symbol_name = excluded.symbol_name,
			footprint_name = excluded.footprint_name,
			has_3d_model = excluded.has_3d_model,
			vendor = excluded.vendor,
			source_url = excluded.source_url,
			referrer_url = excluded.referrer_url,
			updated_at = excluded.updated_at
		RETURNING id, created_at, updated_at
	`

	err := db.QueryRow(query,
		NewID(), c.MPN, toNullString(c.Manufacturer), toNullString(c.Description),
		toNullString(c.SymbolName), toNullString(c.FootprintName),
		c.Has3DModel, toNullString(c.Vendor), toNullString(c.SourceURL), toNullString(c.ReferrerURL),
		now, now,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// Exists reports whether a component with the given MPN is stored.
func Exists(db *sql.DB, mpn string) (bool, error) {
	var exists int
	err := db.QueryRow(`SELECT 1 FROM components WHERE mpn = ? LIMIT 1`, mpn).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return true, nil
}

// GetByID retrieves a component by its ULID.
func GetByID(db *sql.DB, id string) (*component.Component, error) {
	row := db.QueryRow(`SELECT `+componentColumns+` FROM components WHERE id = ?`, id)
	c, err := scanComponent(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return c, nil
}

// GetByMPN retrieves a component by its sanitized MPN.
func GetByMPN(db *sql.DB, mpn string) (*component.Component, error) {
	row := db.QueryRow(`SELECT `+componentColumns+` FROM components WHERE mpn = ?`, mpn)
	c, err := scanComponent(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(mpn)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return c, nil
}

// List returns components ordered by most recent update, plus the total count.
func List(ctx context.Context, db *sql.DB, limit, offset int) ([]component.Component, int, error) {
	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM components`).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+componentColumns+`
		FROM components
		ORDER BY updated_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	items, err := collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Search matches query as a substring of mpn, manufacturer or description,
// case-insensitively for ASCII. LIKE wildcards in query are matched literally.
func Search(ctx context.Context, db *sql.DB, query string, limit, offset int) ([]component.Component, int, error) {
	pattern := "%" + escapeLike(query) + "%"
	where := `WHERE mpn LIKE ? ESCAPE '\' OR manufacturer LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\'`

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM components `+where,
		pattern, pattern, pattern).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+componentColumns+`
		FROM components `+where+`
		ORDER BY updated_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, pattern, pattern, pattern, limit, offset)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	items, err := collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// escapeLike escapes LIKE metacharacters with a backslash.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Delete removes a component record. Its activity log entries are kept.
func Delete(db *sql.DB, id string) error {
	result, err := db.Exec(`DELETE FROM components WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// StreamAll calls fn for every component in creation order. Iteration stops at
// the first error returned by fn or when ctx is cancelled.
func StreamAll(ctx context.Context, db *sql.DB, fn func(*component.Component) error) error {
	if ctx.Err() != nil {
		return errors.NewCancelled("export")
	}
	rows, err := db.QueryContext(ctx, `SELECT `+componentColumns+` FROM components ORDER BY created_at, id`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return errors.NewCancelled("export")
		}
		c, err := scanComponent(rows)
		if err != nil {
			return errors.NewInternal(err)
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// LogImport appends an activity log entry. e.ID and e.CreatedAt are filled in.
func LogImport(db *sql.DB, e *component.LogEntry) error {
	e.ID = NewID()
	e.CreatedAt = time.Now().Unix()
	_, err := db.Exec(`
		INSERT INTO import_log (id, component_id, action, source_file, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, toNullString(e.ComponentID), e.Action,
		toNullString(e.SourceFile), toNullString(e.ErrorMessage), e.CreatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListLog returns the newest activity entries, optionally for one component.
// An empty componentID lists entries for all components.
func ListLog(ctx context.Context, db *sql.DB, componentID string, limit int) ([]component.LogEntry, error) {
	query := `SELECT id, component_id, action, source_file, error_message, created_at FROM import_log`
	args := []any{}
	if componentID != "" {
		query += ` WHERE component_id = ?`
		args = append(args, componentID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var entries []component.LogEntry
	for rows.Next() {
		var (
			e            component.LogEntry
			componentRef sql.NullString
			sourceFile   sql.NullString
			errorMessage sql.NullString
		)
		if err := rows.Scan(&e.ID, &componentRef, &e.Action, &sourceFile, &errorMessage, &e.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		e.ComponentID = fromNullString(componentRef)
		e.SourceFile = fromNullString(sourceFile)
		e.ErrorMessage = fromNullString(errorMessage)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return entries, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func collect(rows *sql.Rows) ([]component.Component, error) {
	defer rows.Close()
	var items []component.Component
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return items, nil
}

// scanComponent scans a single row into a Component struct.
func scanComponent(row rowScanner) (*component.Component, error) {
	var (
		c             component.Component
		manufacturer  sql.NullString
		description   sql.NullString
		symbolName    sql.NullString
		footprintName sql.NullString
		vendor        sql.NullString
		sourceURL     sql.NullString
		referrerURL   sql.NullString
	)

	err := row.Scan(
		&c.ID, &c.MPN, &manufacturer, &description, &symbolName, &footprintName,
		&c.Has3DModel, &vendor, &sourceURL, &referrerURL, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Manufacturer = fromNullString(manufacturer)
	c.Description = fromNullString(description)
	c.SymbolName = fromNullString(symbolName)
	c.FootprintName = fromNullString(footprintName)
	c.Vendor = fromNullString(vendor)
	c.SourceURL = fromNullString(sourceURL)
	c.ReferrerURL = fromNullString(referrerURL)
	return &c, nil
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
