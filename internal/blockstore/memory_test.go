package blockstore

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	indyerrors "github.com/blockcanvas/indy/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded() *MemoryStore {
	return NewMemoryStore([]Block{
		{ID: "a", BlockType: "hero", BlockData: map[string]any{"layout": map[string]any{"variant": "centered"}}},
		{ID: "b", BlockType: "cta", BlockData: map[string]any{}},
	})
}

func TestMemoryStore_UpdateMergesTopLevelKeys(t *testing.T) {
	s := seeded()
	out, err := s.Apply(UpdateBlock{Ref: Ref{Index: 0}, Updates: map[string]any{"x": 1.0}})
	require.NoError(t, err)

	assert.Equal(t, KindUpdateBlock, out.Kind)
	assert.Equal(t, "hero", out.Previous.BlockType)
	assert.Equal(t, 1.0, out.Block.BlockData["x"])
	assert.Contains(t, out.Block.BlockData, "layout")
}

func TestMemoryStore_InvalidIndexLeavesStateUntouched(t *testing.T) {
	s := seeded()
	before := s.List()

	for _, action := range []Action{
		UpdateBlock{Ref: Ref{Index: 5}, Updates: map[string]any{"x": 1.0}},
		RemoveBlock{Ref: Ref{Index: -1}},
		ReplaceBlock{Ref: Ref{Index: 2}},
		PropertyUpdate{Ref: Ref{ID: "missing"}, Path: "a", Value: 1},
	} {
		_, err := s.Apply(action)
		require.Error(t, err, action.Kind())
		assert.Contains(t, err.Error(), "Invalid block index")
		assert.True(t, indyerrors.IsValidation(err))
	}
	assert.Equal(t, before, s.List())
}

func TestMemoryStore_AddReportsPreAppendLength(t *testing.T) {
	s := seeded()
	out, err := s.Apply(AddBlock{BlockType: "footer", Data: map[string]any{"k": "v"}})
	require.NoError(t, err)

	assert.Equal(t, 2, out.Index)
	assert.Equal(t, 2, out.Block.Position)
	assert.NotEmpty(t, out.Block.ID)
	assert.Equal(t, 3, s.Len())
}

func TestMemoryStore_AddAfterRemoveKeepsPositionsDense(t *testing.T) {
	s := seeded()
	_, err := s.Apply(RemoveBlock{Ref: Ref{Index: 0}})
	require.NoError(t, err)

	out, err := s.Apply(AddBlock{BlockType: "grid"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Index)

	blocks := s.List()
	require.Len(t, blocks, 2)
	for i, b := range blocks {
		assert.Equal(t, i, b.Position)
	}
	assert.Equal(t, []string{"cta", "grid"}, []string{blocks[0].BlockType, blocks[1].BlockType})
}

func TestMemoryStore_RemoveByID(t *testing.T) {
	s := seeded()
	out, err := s.Apply(RemoveBlock{Ref: Ref{ID: "a"}})
	require.NoError(t, err)

	assert.Equal(t, "hero", out.Previous.BlockType)
	blocks := s.List()
	require.Len(t, blocks, 1)
	assert.Equal(t, "b", blocks[0].ID)
	assert.Equal(t, 0, blocks[0].Position)
}

func TestMemoryStore_ReplaceAndPropertyUpdate(t *testing.T) {
	s := seeded()
	_, err := s.Replace(1, "", map[string]any{"content": map[string]any{"heading": "Go"}})
	require.NoError(t, err)

	out, err := s.Apply(PropertyUpdate{Ref: Ref{Index: 1}, Path: "content.body", Value: "Now"})
	require.NoError(t, err)
	assert.Equal(t, "cta", out.Block.BlockType)
	assert.Equal(t, map[string]any{"heading": "Go", "body": "Now"}, out.Block.BlockData["content"])
	assert.Equal(t, map[string]any{"heading": "Go"}, out.Previous.BlockData["content"])
}

func TestMemoryStore_ReadsAreCopies(t *testing.T) {
	s := seeded()
	b, err := s.Get(0)
	require.NoError(t, err)
	b.BlockData["layout"] = "changed"

	again, _ := s.Get(0)
	assert.NotEqual(t, "changed", again.BlockData["layout"])
}

type stubLoader struct {
	calls  int
	blocks []Block
	err    error
}

func (l *stubLoader) LoadBlocks(ctx context.Context, site, entry string) ([]Block, error) {
	l.calls++
	return l.blocks, l.err
}

func TestSessions_LoadsOnceAndSerialises(t *testing.T) {
	loader := &stubLoader{blocks: []Block{{ID: "a", BlockType: "hero"}}}
	sessions := NewSessions(loader)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := sessions.With(ctx, "site", "home", func(s Store) error {
				n := s.Len()
				s.Append(NewBlock("cta", nil))
				if s.Len() != n+1 {
					return errors.New("lost update")
				}
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, loader.calls)
	require.NoError(t, sessions.With(ctx, "site", "home", func(s Store) error {
		assert.Equal(t, 21, s.Len())
		return nil
	}))
}

func TestSessions_RetriesFailedLoad(t *testing.T) {
	loader := &stubLoader{err: errors.New("db down")}
	sessions := NewSessions(loader)

	err := sessions.With(context.Background(), "s", "e", func(Store) error { return nil })
	assert.Error(t, err)

	loader.err = nil
	require.NoError(t, sessions.With(context.Background(), "s", "e", func(Store) error { return nil }))
	assert.Equal(t, 2, loader.calls)
}

func TestSessions_ForgetWaitsForHolder(t *testing.T) {
	loader := &stubLoader{blocks: []Block{{ID: "a", BlockType: "hero"}}}
	sessions := NewSessions(loader)
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var active, overlaps int
	enter := func() {
		mu.Lock()
		active++
		if active > 1 {
			overlaps++
		}
		mu.Unlock()
	}
	leave := func() {
		mu.Lock()
		active--
		mu.Unlock()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, sessions.With(ctx, "site", "home", func(Store) error {
			enter()
			close(entered)
			<-release
			leave()
			return nil
		}))
	}()
	<-entered

	forgotten := make(chan struct{})
	go func() {
		sessions.Forget("site", "home")
		close(forgotten)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, sessions.With(ctx, "site", "home", func(Store) error {
			enter()
			leave()
			return nil
		}))
	}()

	select {
	case <-forgotten:
		t.Fatal("Forget returned while the entry was held")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	wg.Wait()
	<-forgotten

	assert.Zero(t, overlaps)
	require.NoError(t, sessions.With(ctx, "site", "home", func(Store) error { return nil }))
	assert.GreaterOrEqual(t, loader.calls, 2)
}

func TestSessions_EvictRunsUnderEntryLock(t *testing.T) {
	loader := &stubLoader{blocks: []Block{{ID: "a", BlockType: "hero"}}}
	sessions := NewSessions(loader)
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	var order []string
	var mu sync.Mutex
	record := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, sessions.With(ctx, "site", "home", func(Store) error {
			close(entered)
			<-release
			record("save")
			return nil
		}))
	}()
	<-entered

	evicted := make(chan error, 1)
	go func() {
		evicted <- sessions.Evict(ctx, "site", "home", func() error {
			record("delete")
			return nil
		})
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)
	<-done
	require.NoError(t, <-evicted)
	assert.Equal(t, []string{"save", "delete"}, order)

	failed := sessions.Evict(ctx, "site", "home", func() error { return errors.New("db down") })
	assert.Error(t, failed)
}

func TestBoltSnapshots(t *testing.T) {
	snaps, err := OpenBoltSnapshots(filepath.Join(t.TempDir(), "snap.db"))
	require.NoError(t, err)
	defer snaps.Close()

	_, err = snaps.Load("site/home")
	assert.True(t, indyerrors.IsNotFound(err))

	blocks := seeded().List()
	require.NoError(t, snaps.Save("site/home", blocks))

	snap, err := snaps.Load("site/home")
	require.NoError(t, err)
	assert.Equal(t, "site/home", snap.Key)
	require.Len(t, snap.Blocks, 2)
	assert.Equal(t, "hero", snap.Blocks[0].BlockType)

	keys, err := snaps.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"site/home"}, keys)

	require.NoError(t, snaps.Delete("site/home"))
	_, err = snaps.Load("site/home")
	assert.True(t, indyerrors.IsNotFound(err))
}
