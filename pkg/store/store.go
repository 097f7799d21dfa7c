// Package store provides the SQLite-backed relational store used by the
// query pipeline: schema introspection, SQL execution, and default-frame
// loading for snippet steps.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	_ "modernc.org/sqlite"

	"github.com/sievedata/sieve/pkg/frame"
)

// ErrNoConnection is returned when the store has been closed or never
// opened. Callers must treat this as distinct from a query returning zero
// rows.
var ErrNoConnection = errors.New("no database connection")

// ErrNoTables is returned when the database contains no user tables.
var ErrNoTables = errors.New("database has no tables")

const schemaCacheTTL = time.Minute

// Column describes one column of a table, in declaration order.
type Column struct {
	Name string
	Type string
}

// QueryResult holds the outcome of one SQL execution: column order as
// returned by the driver and rows as ordered maps.
type QueryResult struct {
	SQL     string
	Columns []string
	Rows    []map[string]any
	Count   int
}

// Store wraps a single shared SQLite handle. Access is serialized with a
// mutex because the handle is shared across the processor and the driver
// is not guaranteed safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	log    *slog.Logger
	schema *ttlcache.Cache[string, []Column]
}

// Open opens (or creates) the SQLite database at path.
func Open(path string, log *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	cache := ttlcache.New[string, []Column](
		ttlcache.WithTTL[string, []Column](schemaCacheTTL),
	)
	go cache.Start()

	return &Store{db: db, path: path, log: log, schema: cache}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the shared handle. Subsequent calls return ErrNoConnection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	s.schema.Stop()
	err := s.db.Close()
	s.db = nil
	return err
}

// ListTables returns the user table names, excluding SQLite bookkeeping
// tables. Returns ErrNoTables when the database is empty.
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrNoConnection
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, ErrNoTables
	}
	return tables, nil
}

// TableSchema returns the columns of a table in declaration order. Results
// are cached briefly so repeated prompt construction does not re-run
// PRAGMA per call.
func (s *Store) TableSchema(ctx context.Context, table string) ([]Column, error) {
	if item := s.schema.Get(table); item != nil {
		return item.Value(), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrNoConnection
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%q)`, table))
	if err != nil {
		return nil, fmt.Errorf("failed to read schema for %s: %w", table, err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column info: %w", err)
		}
		columns = append(columns, Column{Name: name, Type: typ})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s does not exist", table)
	}

	s.schema.Set(table, columns, ttlcache.DefaultTTL)
	return columns, nil
}

// Query executes a SQL statement and returns the rows as ordered maps.
func (s *Store) Query(ctx context.Context, sqlText string) (QueryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return QueryResult{}, ErrNoConnection
	}

	sqlText = strings.TrimSuffix(strings.TrimSpace(sqlText), ";")

	rows, err := s.db.QueryContext(ctx, sqlText)
	if err != nil {
		return QueryResult{}, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return QueryResult{}, fmt.Errorf("failed to read result columns: %w", err)
	}

	result := QueryResult{SQL: sqlText, Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return QueryResult{}, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return QueryResult{}, err
	}
	result.Count = len(result.Rows)

	if s.log != nil {
		s.log.Debug("store: query executed", "rows", result.Count)
	}
	return result, nil
}

// LoadFrame loads an entire table into a frame for snippet steps. With an
// empty table name, the first table in the database is used.
func (s *Store) LoadFrame(ctx context.Context, table string) (*frame.Frame, error) {
	if table == "" {
		tables, err := s.ListTables(ctx)
		if err != nil {
			return nil, err
		}
		table = tables[0]
	}

	result, err := s.Query(ctx, fmt.Sprintf(`SELECT * FROM %q`, table))
	if err != nil {
		return nil, fmt.Errorf("failed to load frame from %s: %w", table, err)
	}
	return frame.FromRows(result.Columns, result.Rows), nil
}
