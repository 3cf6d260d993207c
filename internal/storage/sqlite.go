package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blockcanvas/indy/internal/blockstore"
	"github.com/blockcanvas/indy/internal/errors"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// SQLiteStore implements storage using SQLite (for local/development)
type SQLiteStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewSQLiteStore creates a new SQLite storage
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, errors.DatabaseError(err, "connect to sqlite")
	}

	// One connection keeps the pragmas in effect and avoids SQLITE_BUSY
	// between concurrent saves.
	db.SetMaxOpenConns(1)

	// Enable foreign keys and WAL mode for better concurrency
	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	store := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	// Initialize schema
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, errors.DatabaseError(err, "init schema")
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		site TEXT NOT NULL,
		slug TEXT NOT NULL,
		block_count INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (site, slug)
	);

	CREATE TABLE IF NOT EXISTS blocks (
		site TEXT NOT NULL,
		entry TEXT NOT NULL,
		id TEXT NOT NULL,
		block_type TEXT NOT NULL,
		block_data TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (site, entry, id),
		FOREIGN KEY (site, entry) REFERENCES entries(site, slug) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_blocks_entry ON blocks(site, entry, position);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveBlocks(ctx context.Context, site, entry string, blocks []blockstore.Block) error {
	if err := validateKey(site, entry); err != nil {
		return err
	}
	rows, err := toRows(site, entry, blocks)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError(err, "begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries (site, slug, block_count, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (site, slug) DO UPDATE SET
			block_count = excluded.block_count,
			updated_at = excluded.updated_at
	`, site, entry, len(rows), time.Now().UTC())
	if err != nil {
		return errors.DatabaseErrorf(err, "save entry %s/%s", site, entry)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM blocks WHERE site = ? AND entry = ?`, site, entry); err != nil {
		return errors.DatabaseErrorf(err, "clear blocks of %s/%s", site, entry)
	}

	query := `
		INSERT INTO blocks (site, entry, id, block_type, block_data, position)
		VALUES (:site, :entry, :id, :block_type, :block_data, :position)
	`
	for _, row := range rows {
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return errors.DatabaseErrorf(err, "save block %s", row.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError(err, "commit blocks")
	}

	s.logger.WithFields(logrus.Fields{
		"site":   site,
		"entry":  entry,
		"blocks": len(rows),
	}).Debug("entry saved")
	return nil
}

func (s *SQLiteStore) LoadBlocks(ctx context.Context, site, entry string) ([]blockstore.Block, error) {
	var rows []blockRow
	query := `SELECT site, entry, id, block_type, block_data, position FROM blocks
		WHERE site = ? AND entry = ? ORDER BY position`

	if err := s.db.SelectContext(ctx, &rows, query, site, entry); err != nil {
		return nil, errors.DatabaseErrorf(err, "load blocks of %s/%s", site, entry)
	}
	return fromRows(rows)
}

func (s *SQLiteStore) GetEntry(ctx context.Context, site, entry string) (*Entry, error) {
	var e Entry
	query := `SELECT site, slug, block_count, updated_at FROM entries WHERE site = ? AND slug = ?`

	err := s.db.GetContext(ctx, &e, query, site, entry)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFoundf("entry %s/%s not found", site, entry)
		}
		return nil, errors.DatabaseErrorf(err, "get entry %s/%s", site, entry)
	}

	return &e, nil
}

func (s *SQLiteStore) ListEntries(ctx context.Context, site string) ([]Entry, error) {
	entries := []Entry{}
	query := `SELECT site, slug, block_count, updated_at FROM entries WHERE site = ? ORDER BY slug`

	if err := s.db.SelectContext(ctx, &entries, query, site); err != nil {
		return nil, errors.DatabaseErrorf(err, "list entries of %s", site)
	}
	return entries, nil
}

func (s *SQLiteStore) DeleteEntry(ctx context.Context, site, entry string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE site = ? AND slug = ?`, site, entry)
	if err != nil {
		return errors.DatabaseErrorf(err, "delete entry %s/%s", site, entry)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NotFoundf("entry %s/%s not found", site, entry)
	}
	return nil
}
