package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/blockcanvas/indy/internal/blockstore"
	"github.com/blockcanvas/indy/internal/config"
	"github.com/blockcanvas/indy/internal/errors"
	"github.com/sirupsen/logrus"
)

// Entry is a saved page of a site.
type Entry struct {
	Site       string    `db:"site" json:"site"`
	Slug       string    `db:"slug" json:"entry"`
	BlockCount int       `db:"block_count" json:"blockCount"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// Store defines the storage interface
type Store interface {
	// SaveBlocks replaces every block of an entry, creating the entry if needed.
	SaveBlocks(ctx context.Context, site, entry string, blocks []blockstore.Block) error
	// LoadBlocks returns the blocks of an entry ordered by position. An entry
	// that was never saved has no blocks.
	LoadBlocks(ctx context.Context, site, entry string) ([]blockstore.Block, error)

	GetEntry(ctx context.Context, site, entry string) (*Entry, error)
	ListEntries(ctx context.Context, site string) ([]Entry, error)
	DeleteEntry(ctx context.Context, site, entry string) error

	// Close connection
	Close() error
}

// NewStore opens the store selected by cfg.Type.
func NewStore(cfg config.StorageConfig, logger *logrus.Logger) (Store, error) {
	switch cfg.Type {
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, errors.ConfigError("postgres storage requires a DSN")
		}
		store, err := NewPostgresStore(cfg.PostgresDSN, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "sqlite", "":
		store, err := NewSQLiteStore(cfg.LocalPath, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, errors.ConfigErrorf("unknown storage type %q", cfg.Type)
	}
}

// blockRow is a block as stored; block_data holds the JSON encoded data.
type blockRow struct {
	Site      string `db:"site"`
	Entry     string `db:"entry"`
	ID        string `db:"id"`
	BlockType string `db:"block_type"`
	BlockData string `db:"block_data"`
	Position  int    `db:"position"`
}

// toRows encodes blocks for insertion, assigning positions by order.
func toRows(site, entry string, blocks []blockstore.Block) ([]blockRow, error) {
	rows := make([]blockRow, len(blocks))
	for i, b := range blocks {
		data := b.BlockData
		if data == nil {
			data = map[string]any{}
		}
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil, errors.InternalErrorf("encode block %s: %v", b.ID, err)
		}
		rows[i] = blockRow{
			Site:      site,
			Entry:     entry,
			ID:        b.ID,
			BlockType: b.BlockType,
			BlockData: string(encoded),
			Position:  i,
		}
	}
	return rows, nil
}

func fromRows(rows []blockRow) ([]blockstore.Block, error) {
	blocks := make([]blockstore.Block, len(rows))
	for i, r := range rows {
		var data map[string]any
		if err := json.Unmarshal([]byte(r.BlockData), &data); err != nil {
			return nil, errors.ParseError(err, "decode stored block "+r.ID)
		}
		if data == nil {
			data = map[string]any{}
		}
		blocks[i] = blockstore.Block{
			ID:        r.ID,
			BlockType: r.BlockType,
			BlockData: data,
			Position:  r.Position,
		}
	}
	return blocks, nil
}

func validateKey(site, entry string) error {
	if site == "" || entry == "" {
		return errors.ValidationError("site and entry are required")
	}
	return nil
}
