package blockstore

import (
	"fmt"
	"sync"

	"github.com/blockcanvas/indy/internal/errors"
	"github.com/blockcanvas/indy/internal/jsonutil"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store safe for concurrent use. Reads return
// copies so callers never alias stored data.
type MemoryStore struct {
	mu     sync.Mutex
	blocks []Block
}

// NewMemoryStore creates a store seeded with blocks.
func NewMemoryStore(blocks []Block) *MemoryStore {
	s := &MemoryStore{}
	s.Reset(blocks)
	return s
}

func (s *MemoryStore) List() []Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Block, len(s.blocks))
	for i, b := range s.blocks {
		out[i] = b.Clone()
	}
	return out
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blocks)
}

func (s *MemoryStore) Get(index int) (Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIndex(index); err != nil {
		return Block{}, err
	}
	return s.blocks[index].Clone(), nil
}

// Append adds b at the end and returns its position. A block without an ID
// is given one.
func (s *MemoryStore) Append(b Block) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	b = b.Clone()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return s.insert(b, len(s.blocks))
}

func (s *MemoryStore) Update(index int, updates map[string]any) (Block, error) {
	out, err := s.Apply(UpdateBlock{Ref: Ref{Index: index}, Updates: updates})
	return out.Block, err
}

func (s *MemoryStore) Replace(index int, blockType string, data map[string]any) (Block, error) {
	out, err := s.Apply(ReplaceBlock{Ref: Ref{Index: index}, BlockType: blockType, Data: data})
	return out.Block, err
}

func (s *MemoryStore) Remove(index int) (Block, error) {
	out, err := s.Apply(RemoveBlock{Ref: Ref{Index: index}})
	return out.Previous, err
}

// Reset replaces the whole list.
func (s *MemoryStore) Reset(blocks []Block) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blocks = make([]Block, len(blocks))
	for i, b := range blocks {
		s.blocks[i] = b.Clone()
	}
	s.renumber()
}

// Apply performs action atomically. Out-of-range references fail with a
// validation error and leave the list untouched.
func (s *MemoryStore) Apply(action Action) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch a := action.(type) {
	case AddBlock:
		b := NewBlock(a.BlockType, jsonutil.CloneObject(a.Data))
		idx := s.insert(b, len(s.blocks))
		return Outcome{Kind: a.Kind(), Index: idx, Block: s.blocks[idx].Clone()}, nil

	case UpdateBlock:
		idx, err := s.resolve(a.Ref)
		if err != nil {
			return Outcome{}, err
		}
		prev := s.blocks[idx].Clone()
		s.blocks[idx].BlockData = jsonutil.Merge(s.blocks[idx].BlockData, a.Updates)
		return Outcome{Kind: a.Kind(), Index: idx, Block: s.blocks[idx].Clone(), Previous: prev}, nil

	case ReplaceBlock:
		idx, err := s.resolve(a.Ref)
		if err != nil {
			return Outcome{}, err
		}
		prev := s.blocks[idx].Clone()
		if a.BlockType != "" {
			s.blocks[idx].BlockType = a.BlockType
		}
		s.blocks[idx].BlockData = jsonutil.CloneObject(a.Data)
		return Outcome{Kind: a.Kind(), Index: idx, Block: s.blocks[idx].Clone(), Previous: prev}, nil

	case RemoveBlock:
		idx, err := s.resolve(a.Ref)
		if err != nil {
			return Outcome{}, err
		}
		prev := s.blocks[idx]
		s.blocks = append(s.blocks[:idx], s.blocks[idx+1:]...)
		s.renumber()
		return Outcome{Kind: a.Kind(), Index: idx, Previous: prev}, nil

	case PropertyUpdate:
		idx, err := s.resolve(a.Ref)
		if err != nil {
			return Outcome{}, err
		}
		prev := s.blocks[idx].Clone()
		s.blocks[idx].BlockData = jsonutil.SetNestedValue(s.blocks[idx].BlockData, a.Path, jsonutil.Clone(a.Value))
		return Outcome{Kind: a.Kind(), Index: idx, Block: s.blocks[idx].Clone(), Previous: prev}, nil
	}

	return Outcome{}, fmt.Errorf("unsupported action %T", action)
}

func (s *MemoryStore) insert(b Block, at int) int {
	if b.BlockData == nil {
		b.BlockData = map[string]any{}
	}
	s.blocks = append(s.blocks, Block{})
	copy(s.blocks[at+1:], s.blocks[at:])
	s.blocks[at] = b
	s.renumber()
	return at
}

func (s *MemoryStore) resolve(ref Ref) (int, error) {
	if ref.ID != "" {
		for i, b := range s.blocks {
			if b.ID == ref.ID {
				return i, nil
			}
		}
		return 0, errors.ValidationErrorf("Invalid block index: no block with id %q", ref.ID)
	}
	return ref.Index, s.checkIndex(ref.Index)
}

func (s *MemoryStore) checkIndex(index int) error {
	if index < 0 || index >= len(s.blocks) {
		return InvalidIndexError(index, len(s.blocks))
	}
	return nil
}

func (s *MemoryStore) renumber() {
	for i := range s.blocks {
		s.blocks[i].Position = i
	}
}
