// Package store persists saved gang sheets.
//
// A saved sheet is a named snapshot of the item list, identified by a
// generated id so links to a sheet survive renames. Two backends are
// provided: a file store for the CLI and single-instance use, and a Redis
// store for multi-instance deployments where several API servers share the
// same saved sheets.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/gangsheet/pkg/sheet"
)

// Record is one saved sheet.
type Record struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Snapshot  sheet.Snapshot `json:"snapshot"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Store is the interface for saved-sheet backends.
type Store interface {
	// Save writes a record. A record with an empty ID is assigned one;
	// saving an existing ID overwrites it and bumps UpdatedAt.
	Save(ctx context.Context, rec *Record) error

	// Load retrieves a record by id.
	// Returns a SHEET_NOT_FOUND error when the id is unknown.
	Load(ctx context.Context, id string) (*Record, error)

	// Delete removes a record. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error

	// List returns all records, newest first. Snapshots may be omitted
	// from the listing depending on the backend.
	List(ctx context.Context) ([]Record, error)

	// Close releases backend resources.
	Close() error
}

// NewID generates a fresh sheet identifier.
func NewID() string {
	return uuid.NewString()
}

// stamp fills in identity and timestamps before a write.
func stamp(rec *Record) {
	now := time.Now().UTC()
	if rec.ID == "" {
		rec.ID = NewID()
		rec.CreatedAt = now
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
}
