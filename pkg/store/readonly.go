package store

import (
	"context"

	"github.com/notesapp/notesd/pkg/models"
)

// ReadOnlyStore wraps a Store and prevents write operations when in read-only mode.
//
// The read-only state is determined dynamically by the isReadOnly function,
// allowing the application to toggle maintenance mode at runtime without
// recreating the store. Writes return [ErrReadOnly]; reads always pass through.
// Migrate is not affected so the schema can be upgraded during maintenance.
type ReadOnlyStore struct {
	Store
	isReadOnly func() bool
}

// NewReadOnlyStore creates a new read-only wrapper for a store
func NewReadOnlyStore(store Store, isReadOnly func() bool) Store {
	return &ReadOnlyStore{
		Store:      store,
		isReadOnly: isReadOnly,
	}
}

// Unwrap returns the underlying store
func (r *ReadOnlyStore) Unwrap() Store {
	return r.Store
}

func (r *ReadOnlyStore) checkReadOnly() error {
	if r.isReadOnly() {
		return ErrReadOnly
	}
	return nil
}

// Transaction keeps the read-only check in force inside the transaction.
func (r *ReadOnlyStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return r.Store.Transaction(ctx, func(tx Store) error {
		return fn(&ReadOnlyStore{Store: tx, isReadOnly: r.isReadOnly})
	})
}

// Write operations - check read-only mode first

func (r *ReadOnlyStore) CreateNote(ctx context.Context, note *models.Note) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateNote(ctx, note)
}

func (r *ReadOnlyStore) UpdateNote(ctx context.Context, note *models.Note) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdateNote(ctx, note)
}

func (r *ReadOnlyStore) DeleteNote(ctx context.Context, id models.NoteID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteNote(ctx, id)
}

func (r *ReadOnlyStore) PutNote(ctx context.Context, note *models.Note) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.PutNote(ctx, note)
}
