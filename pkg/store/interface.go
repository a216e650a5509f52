// Package store provides the data persistence layer abstraction for notesd.
//
// This package defines the [Store] interface which lets the application run on
// different database backends through one API:
//
//   - [github.com/notesapp/notesd/pkg/store/postgres.PostgresStore]: GORM over
//     PostgreSQL (or any GORM dialector) with ACID transactions
//   - [github.com/notesapp/notesd/pkg/store/surrealdb.SurrealStore]: native
//     SurrealQL over the surrealdb.go SDK
//
// [ReadOnlyStore] wraps either of them and rejects writes while the application
// is in maintenance mode. [Copy] moves every note from one store to another,
// preserving identifiers and versions.
//
// # Optimistic Concurrency
//
// Stores never lock rows on read. [Store.UpdateNote] writes only when the stored
// version equals the version carried by the note passed in, and increments it in
// the same statement. When no row matches, the store tells a missing note
// ([ErrNotFound]) apart from a stale one ([ErrConflict]).
//
// # Errors
//
// Implementations wrap the sentinel errors declared in errors.go with %w so that
// callers can use errors.Is regardless of the backend.
package store

import (
	"context"

	"github.com/notesapp/notesd/pkg/models"
)

// Store defines the persistence operations for notes.
//
// All methods accept a context for cancellation and deadlines. Implementations
// must be safe for concurrent use.
type Store interface {
	// Migrate creates or upgrades the schema. It is safe to run repeatedly.
	Migrate(ctx context.Context) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connections.
	Close() error

	// Transaction runs fn against a Store bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	// Backends without interactive transactions run fn directly; their
	// single-statement writes are still atomic.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	// ListNotes returns every note ordered by ascending ID. It returns an
	// empty slice, never nil, when there are no notes.
	ListNotes(ctx context.Context) ([]*models.Note, error)

	// GetNote returns the note with the given ID or an error wrapping
	// ErrNotFound.
	GetNote(ctx context.Context, id models.NoteID) (*models.Note, error)

	// CreateNote inserts a new note. The store assigns ID, Version (0),
	// CreatedAt and UpdatedAt and writes them back into note.
	CreateNote(ctx context.Context, note *models.Note) error

	// UpdateNote overwrites title and content of an existing note.
	//
	// note.Version must hold the version the caller loaded. The write only
	// happens if the stored version still matches; on success note.Version is
	// incremented and note.UpdatedAt refreshed. Returns an error wrapping
	// ErrNotFound when the note does not exist, or ErrConflict when its version
	// has moved on.
	UpdateNote(ctx context.Context, note *models.Note) error

	// DeleteNote removes a note. Returns an error wrapping ErrNotFound when no
	// note has the given ID.
	DeleteNote(ctx context.Context, id models.NoteID) error

	// PutNote inserts or replaces a note as-is, keeping its ID, Version and
	// timestamps. It exists for copying data between stores and bypasses the
	// version check.
	PutNote(ctx context.Context, note *models.Note) error
}
