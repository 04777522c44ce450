// Package registry stores named definition sources in SQLite so the CLI can
// refer to page objects by name.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/agentic-research/pagetree/api"
	"github.com/agentic-research/pagetree/internal/loader"
)

// ErrNotFound reports an unknown definition name.
var ErrNotFound = errors.New("definition not found")

// Entry is one stored definition source.
type Entry struct {
	Name    string
	Format  loader.Format
	Source  []byte
	Updated time.Time
}

// Definition builds the entry's definition.
func (e Entry) Definition() (api.Definition, error) {
	def, err := loader.Parse(e.Format, e.Source)
	if err != nil {
		return nil, fmt.Errorf("definition %q: %w", e.Name, err)
	}
	return def, nil
}

// Registry is a SQLite-backed definition store.
type Registry struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the registry at path. ":memory:" gives a private
// in-memory store.
func Open(path string) (*Registry, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// a single connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS definitions (
		name TEXT PRIMARY KEY,
		format TEXT NOT NULL,
		source BLOB NOT NULL,
		updated INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Registry{db: db, now: time.Now}, nil
}

// Close closes the database.
func (r *Registry) Close() error {
	return r.db.Close()
}

// Put validates src and stores it under name, replacing any previous entry.
func (r *Registry) Put(ctx context.Context, name string, format loader.Format, src []byte) error {
	if name == "" {
		return errors.New("definition name must not be empty")
	}
	if _, err := loader.Parse(format, src); err != nil {
		return fmt.Errorf("definition %q: %w", name, err)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO definitions (name, format, source, updated) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET format = excluded.format, source = excluded.source, updated = excluded.updated
	`, name, string(format), src, r.now().UnixNano())
	if err != nil {
		return fmt.Errorf("store %q: %w", name, err)
	}
	return nil
}

// Get returns the entry stored under name.
func (r *Registry) Get(ctx context.Context, name string) (Entry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT name, format, source, updated FROM definitions WHERE name = ?`, name)
	e, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return e, err
}

// List returns every entry ordered by name.
func (r *Registry) List(ctx context.Context) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, format, source, updated FROM definitions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes name.
func (r *Registry) Delete(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM definitions WHERE name = ?`, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (Entry, error) {
	var (
		e       Entry
		format  string
		updated int64
	)
	if err := s.Scan(&e.Name, &format, &e.Source, &updated); err != nil {
		return Entry{}, err
	}
	e.Format = loader.Format(format)
	e.Updated = time.Unix(0, updated)
	return e, nil
}
