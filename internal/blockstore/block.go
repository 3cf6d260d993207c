// Package blockstore holds the blocks of the page being edited and applies
// assistant actions to them.
package blockstore

import (
	"github.com/blockcanvas/indy/internal/errors"
	"github.com/blockcanvas/indy/internal/jsonutil"
	"github.com/google/uuid"
)

// Block is one block instance on a page.
type Block struct {
	ID        string         `json:"id" db:"id"`
	BlockType string         `json:"blockType" db:"block_type"`
	BlockData map[string]any `json:"blockData" db:"-"`
	Position  int            `json:"position" db:"position"`
}

// NewBlock creates a block with a fresh ID. Position is assigned by the
// store.
func NewBlock(blockType string, data map[string]any) Block {
	if data == nil {
		data = map[string]any{}
	}
	return Block{
		ID:        uuid.NewString(),
		BlockType: blockType,
		BlockData: data,
	}
}

// Clone returns a deep copy of b.
func (b Block) Clone() Block {
	b.BlockData = jsonutil.CloneObject(b.BlockData)
	return b
}

// Store is the mutable block list of one page. Implementations renumber
// Position after every change so it always equals the block's index.
type Store interface {
	List() []Block
	Len() int
	Get(index int) (Block, error)
	Append(b Block) int
	Update(index int, updates map[string]any) (Block, error)
	Replace(index int, blockType string, data map[string]any) (Block, error)
	Remove(index int) (Block, error)
	Reset(blocks []Block)
	Apply(action Action) (Outcome, error)
}

// InvalidIndexError reports an index outside the current block list.
func InvalidIndexError(index, length int) error {
	return errors.ValidationErrorf("Invalid block index: %d (page has %d blocks)", index, length).
		WithContext("index", index)
}
