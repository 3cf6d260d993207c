package blockstore

import (
	"encoding/json"
	"time"

	"github.com/blockcanvas/indy/internal/errors"
	bolt "go.etcd.io/bbolt"
)

const snapshotBucket = "block_snapshots"

// Snapshot is a saved block list.
type Snapshot struct {
	Key     string    `json:"key"`
	Blocks  []Block   `json:"blocks"`
	SavedAt time.Time `json:"savedAt"`
}

// BoltSnapshots persists block lists in a bbolt file so a chat session can
// be resumed.
type BoltSnapshots struct {
	db *bolt.DB
}

// OpenBoltSnapshots opens (or creates) the snapshot file at path.
func OpenBoltSnapshots(path string) (*BoltSnapshots, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.DatabaseErrorf(err, "open snapshot file %s", path)
	}
	return &BoltSnapshots{db: db}, nil
}

// Close releases the file lock.
func (s *BoltSnapshots) Close() error {
	return s.db.Close()
}

// Save stores blocks under key, replacing any previous snapshot.
func (s *BoltSnapshots) Save(key string, blocks []Block) error {
	data, err := json.Marshal(Snapshot{Key: key, Blocks: blocks, SavedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(snapshotBucket))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), data)
	})
}

// Load returns the snapshot saved under key or a NotFound error.
func (s *BoltSnapshots) Load(key string) (*Snapshot, error) {
	var snap Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(snapshotBucket))
		if bucket == nil {
			return errors.NotFoundf("no snapshot for %s", key)
		}
		data := bucket.Get([]byte(key))
		if data == nil {
			return errors.NotFoundf("no snapshot for %s", key)
		}
		return json.Unmarshal(data, &snap)
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Delete removes the snapshot under key. Missing keys are not an error.
func (s *BoltSnapshots) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(snapshotBucket))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
}

// Keys lists saved snapshot keys in byte order.
func (s *BoltSnapshots) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(snapshotBucket))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}
