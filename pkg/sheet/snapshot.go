package sheet

import (
	"encoding/json"
	"io"
	"os"

	"github.com/matzehuels/gangsheet/pkg/errors"
)

// Snapshot is the opaque persistence form of a store: the full item list
// plus the running id counter. External save/load features treat it as a
// black box and hand it back unchanged.
type Snapshot struct {
	Items   []Item `json:"items"`
	Counter int    `json:"counter"`
}

// Export captures the store as a snapshot.
func (s *Store) Export() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]Item, len(s.items))
	copy(items, s.items)
	return Snapshot{Items: items, Counter: s.counter}
}

// Import replaces the store contents with the snapshot. The counter is
// raised to cover every imported id so future ids stay unique. Invalid
// snapshots are rejected without modifying the store.
func (s *Store) Import(snap Snapshot) error {
	restore := NewStore()
	restore.counter = snap.Counter
	restore.items = make([]Item, len(snap.Items))
	copy(restore.items, snap.Items)
	for i := range restore.items {
		if restore.items[i].ID > restore.counter {
			restore.counter = restore.items[i].ID
		}
	}
	if err := restore.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.items = restore.items
	s.counter = restore.counter
	s.mu.Unlock()
	s.notify()
	return nil
}

// WriteSnapshot encodes the store as indented JSON to w.
func (s *Store) WriteSnapshot(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.Export()); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode snapshot")
	}
	return nil
}

// ReadSnapshot decodes a snapshot from r and imports it.
func (s *Store) ReadSnapshot(r io.Reader) error {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidSnapshot, err, "decode snapshot")
	}
	return s.Import(snap)
}

// ExportFile writes the snapshot to a JSON file at path.
func (s *Store) ExportFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create %s", path)
	}
	defer f.Close()
	return s.WriteSnapshot(f)
}

// ImportFile reads a snapshot from a JSON file at path.
func (s *Store) ImportFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	defer f.Close()
	return s.ReadSnapshot(f)
}
