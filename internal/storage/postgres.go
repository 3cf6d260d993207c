package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/blockcanvas/indy/internal/blockstore"
	"github.com/blockcanvas/indy/internal/errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// PostgresStore implements storage using PostgreSQL
type PostgresStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPostgresStore creates a new PostgreSQL storage
func NewPostgresStore(dsn string, logger *logrus.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, errors.DatabaseError(err, "connect to postgres")
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store := &PostgresStore{
		db:     db,
		logger: logger,
	}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, errors.DatabaseError(err, "init schema")
	}

	return store, nil
}

func (s *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		site TEXT NOT NULL,
		slug TEXT NOT NULL,
		block_count INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (site, slug)
	);

	CREATE TABLE IF NOT EXISTS blocks (
		site TEXT NOT NULL,
		entry TEXT NOT NULL,
		id TEXT NOT NULL,
		block_type TEXT NOT NULL,
		block_data JSONB NOT NULL,
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
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) SaveBlocks(ctx context.Context, site, entry string, blocks []blockstore.Block) error {
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
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (site, slug) DO UPDATE SET
			block_count = EXCLUDED.block_count,
			updated_at = EXCLUDED.updated_at
	`, site, entry, len(rows), time.Now().UTC())
	if err != nil {
		return errors.DatabaseErrorf(err, "save entry %s/%s", site, entry)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM blocks WHERE site = $1 AND entry = $2`, site, entry); err != nil {
		return errors.DatabaseErrorf(err, "clear blocks of %s/%s", site, entry)
	}

	query := `
		INSERT INTO blocks (site, entry, id, block_type, block_data, position)
		VALUES (:site, :entry, :id, :block_type, CAST(:block_data AS JSONB), :position)
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

func (s *PostgresStore) LoadBlocks(ctx context.Context, site, entry string) ([]blockstore.Block, error) {
	var rows []blockRow
	query := `SELECT site, entry, id, block_type, block_data::text AS block_data, position FROM blocks
		WHERE site = $1 AND entry = $2 ORDER BY position`

	if err := s.db.SelectContext(ctx, &rows, query, site, entry); err != nil {
		return nil, errors.DatabaseErrorf(err, "load blocks of %s/%s", site, entry)
	}
	return fromRows(rows)
}

func (s *PostgresStore) GetEntry(ctx context.Context, site, entry string) (*Entry, error) {
	var e Entry
	query := `SELECT site, slug, block_count, updated_at FROM entries WHERE site = $1 AND slug = $2`

	err := s.db.GetContext(ctx, &e, query, site, entry)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFoundf("entry %s/%s not found", site, entry)
		}
		return nil, errors.DatabaseErrorf(err, "get entry %s/%s", site, entry)
	}

	return &e, nil
}

func (s *PostgresStore) ListEntries(ctx context.Context, site string) ([]Entry, error) {
	entries := []Entry{}
	query := `SELECT site, slug, block_count, updated_at FROM entries WHERE site = $1 ORDER BY slug`

	if err := s.db.SelectContext(ctx, &entries, query, site); err != nil {
		return nil, errors.DatabaseErrorf(err, "list entries of %s", site)
	}
	return entries, nil
}

func (s *PostgresStore) DeleteEntry(ctx context.Context, site, entry string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE site = $1 AND slug = $2`, site, entry)
	if err != nil {
		return errors.DatabaseErrorf(err, "delete entry %s/%s", site, entry)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NotFoundf("entry %s/%s not found", site, entry)
	}
	return nil
}
