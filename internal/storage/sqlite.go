package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/IshaanNene/GapFill/internal/types"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS "enriched_rows" (
	"id" INTEGER PRIMARY KEY AUTOINCREMENT,
	"sku" TEXT,
	"title" TEXT,
	"site" TEXT,
	"scraped_url" TEXT,
	"data" TEXT NOT NULL,
	"stored_at" TEXT NOT NULL
)`

// SQLiteStorage writes rows to an embedded SQLite database. Lookup
// columns are stored alongside the full row as JSON.
type SQLiteStorage struct {
	path   string
	db     *sql.DB
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewSQLiteStorage opens (or creates) the database at path.
func NewSQLiteStorage(path string, logger *slog.Logger) (*SQLiteStorage, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		sqliteSchema,
		`CREATE INDEX IF NOT EXISTS idx_enriched_rows_sku ON enriched_rows(sku)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init sqlite schema: %w", err)
		}
	}

	return &SQLiteStorage{
		path:   path,
		db:     db,
		logger: logger.With("component", "sqlite_storage"),
	}, nil
}

func (s *SQLiteStorage) Name() string { return "sqlite" }

func (s *SQLiteStorage) Store(rows []types.Row) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}
	stmt, err := tx.Prepare(`INSERT INTO "enriched_rows" ("sku", "title", "site", "scraped_url", "data", "stored_at") VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return &types.StorageError{Backend: s.Name(), Err: err}
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, row := range rows {
		data, err := row.ToJSON()
		if err != nil {
			tx.Rollback()
			return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("encode row: %w", err)}
		}
		_, err = stmt.Exec(
			row.Get(types.FieldSKU),
			row.Get(types.FieldTitle),
			types.NormalizeSite(row.Site()),
			row.Get(types.FieldScrapedURL),
			string(data),
			now,
		)
		if err != nil {
			tx.Rollback()
			return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("insert row: %w", err)}
		}
	}
	if err := tx.Commit(); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}

	s.count += len(rows)
	s.logger.Debug("rows stored in sqlite", "count", len(rows), "total", s.count)
	return nil
}

// Count returns the number of rows in the table.
func (s *SQLiteStorage) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM "enriched_rows"`).Scan(&n)
	return n, err
}

func (s *SQLiteStorage) Close() error {
	s.logger.Info("SQLite written", "path", s.path, "rows", s.count)
	return s.db.Close()
}
