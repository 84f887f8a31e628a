package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// snapshotVersion is the on-disk snapshot format version.
	snapshotVersion = 1

	// snapshotTimeout bounds a single Load/Save call.
	snapshotTimeout = 5 * time.Second
)

// SnapshotStore persists cache snapshots. Implementations must be safe for
// use from a single goroutine at a time (the cache serializes calls).
type SnapshotStore interface {
	// Load returns the last saved snapshot, or (nil, nil) if none exists.
	Load(ctx context.Context) (*Snapshot, error)

	// Save replaces the persisted snapshot.
	Save(ctx context.Context, snapshot *Snapshot) error
}

// Snapshot is the serialized form of the entry map.
//
// JSON document shape:
//
//	{"entries": [[key, {value, timestamp, lastAccessed, ttl}], ...],
//	 "metadata": {"version": 1, "timestamp": ...}}
type Snapshot struct {
	Entries  []SnapshotPair `json:"entries"`
	Metadata SnapshotMeta   `json:"metadata"`
}

// SnapshotMeta describes when and by which format version a snapshot was
// written.
type SnapshotMeta struct {
	Version   int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// SnapshotPair is one [key, entry] tuple in the snapshot document.
type SnapshotPair struct {
	Key   string
	Entry *Entry
}

// MarshalJSON encodes the pair as a two-element JSON array.
func (p SnapshotPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Key, p.Entry})
}

// UnmarshalJSON decodes a two-element JSON array into the pair.
func (p *SnapshotPair) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("snapshot pair is not a [key, entry] tuple: %w", err)
	}
	if err := json.Unmarshal(raw[0], &p.Key); err != nil {
		return fmt.Errorf("snapshot pair key: %w", err)
	}
	p.Entry = &Entry{}
	if err := json.Unmarshal(raw[1], p.Entry); err != nil {
		return fmt.Errorf("snapshot pair entry: %w", err)
	}
	return nil
}

// FileStore persists snapshots to a JSON side file.
type FileStore struct {
	// Path is the snapshot file location.
	Path string
}

// NewFileStore creates a file-backed snapshot store.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load reads and decodes the snapshot file.
// A missing file is not an error: it returns (nil, nil).
func (s *FileStore) Load(_ context.Context) (*Snapshot, error) {
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot file: %w", err)
	}
	return &snapshot, nil
}

// Save writes the snapshot to a temp file in the same directory and renames
// it into place, so a crash mid-write never corrupts the previous snapshot.
func (s *FileStore) Save(_ context.Context, snapshot *Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close snapshot temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot file: %w", err)
	}
	return nil
}
