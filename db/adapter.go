package db

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"devdeck/models"
)

// SnapshotKey is the fixed blob key the project store lives under.
const SnapshotKey = "devdeck.projects.v1"

// UnreadablePrefix starts the keys of copies kept of snapshots that failed
// to decode.
const UnreadablePrefix = SnapshotKey + ".unreadable-"

// BlobAdapter persists store snapshots as a single blob in the SQLite
// database.
type BlobAdapter struct {
	db    *DB
	codec *Codec
	key   string
	log   *zap.Logger
}

// NewBlobAdapter returns an adapter writing under SnapshotKey.
func NewBlobAdapter(db *DB, codec *Codec, log *zap.Logger) *BlobAdapter {
	if codec == nil {
		codec = NewCodec(nil)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BlobAdapter{db: db, codec: codec, key: SnapshotKey, log: log}
}

// Load returns (nil, nil) when nothing was saved yet.
func (a *BlobAdapter) Load() (*models.Snapshot, error) {
	data, ok, err := a.db.GetBlob(a.key)
	if err != nil {
		return nil, err
	}
	if !ok {
		a.log.Debug("no stored snapshot", zap.String("key", a.key))
		return nil, nil
	}
	snap, err := a.codec.Decode(data)
	if err != nil {
		return nil, a.keepUnreadable(data, err)
	}
	a.log.Debug("snapshot loaded", zap.Int("entities", snap.Len()), zap.Int("bytes", len(data)))
	return snap, nil
}

// keepUnreadable copies data under a key derived from its content, so
// repeated failed loads of the same blob keep a single copy.
func (a *BlobAdapter) keepUnreadable(data []byte, cause error) error {
	sum := sha256.Sum256(data)
	key := UnreadablePrefix + hex.EncodeToString(sum[:6])
	if err := a.db.PutBlob(key, data); err != nil {
		a.log.Error("failed to keep unreadable snapshot", zap.String("key", key), zap.Error(err))
		return cause
	}
	a.log.Error("snapshot unreadable, copy kept", zap.String("key", key), zap.Int("bytes", len(data)), zap.Error(cause))
	return fmt.Errorf("%w (copy kept as %s)", cause, key)
}

func (a *BlobAdapter) Save(snap *models.Snapshot) error {
	data, err := a.codec.Encode(snap)
	if err != nil {
		return err
	}
	return a.db.PutBlob(a.key, data)
}

// MemoryAdapter keeps the encoded snapshot in memory. It runs the same
// codec as BlobAdapter so round trips behave identically.
type MemoryAdapter struct {
	mu    sync.Mutex
	codec *Codec
	data  []byte
	saves int
}

func NewMemoryAdapter(codec *Codec) *MemoryAdapter {
	if codec == nil {
		codec = NewCodec(nil)
	}
	return &MemoryAdapter{codec: codec}
}

func (m *MemoryAdapter) Load() (*models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, nil
	}
	return m.codec.Decode(m.data)
}

func (m *MemoryAdapter) Save(snap *models.Snapshot) error {
	data, err := m.codec.Encode(snap)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	m.saves++
	return nil
}

// Raw returns the last encoded document, nil before the first save.
func (m *MemoryAdapter) Raw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}

// SetRaw replaces the stored document, e.g. to seed a test with a blob
// written by an older version.
func (m *MemoryAdapter) SetRaw(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
}

// Saves counts successful Save calls.
func (m *MemoryAdapter) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
