// Package storetest provides a conformance suite for
// [github.com/notesapp/notesd/pkg/store.Store] implementations.
//
// Each backend's tests call [Run] with a factory returning a freshly migrated,
// empty store:
//
//	func TestConformance(t *testing.T) {
//		storetest.Run(t, storetest.Options{}, func(t *testing.T) store.Store {
//			return newTestStore(t)
//		})
//	}
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/notesapp/notesd/pkg/models"
	"github.com/notesapp/notesd/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Options tunes the suite to what a backend supports.
type Options struct {
	// Transactional enables the rollback test. Backends whose Transaction
	// runs fn without an enclosing transaction leave it false.
	Transactional bool
}

// Factory returns an empty, migrated store. It should register cleanup on t.
type Factory func(t *testing.T) store.Store

// Run executes the suite.
func Run(t *testing.T, opts Options, newStore Factory) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore(t)) })
	t.Run("List", func(t *testing.T) { testList(t, newStore(t)) })
	t.Run("Update", func(t *testing.T) { testUpdate(t, newStore(t)) })
	t.Run("UpdateStaleVersion", func(t *testing.T) { testUpdateStale(t, newStore(t)) })
	t.Run("UpdateMissing", func(t *testing.T) { testUpdateMissing(t, newStore(t)) })
	t.Run("ConcurrentUpdates", func(t *testing.T) { testConcurrentUpdates(t, newStore(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore(t)) })
	t.Run("PutNote", func(t *testing.T) { testPutNote(t, newStore(t)) })
	t.Run("Copy", func(t *testing.T) { testCopy(t, newStore(t), newStore(t)) })
	if opts.Transactional {
		t.Run("TransactionRollback", func(t *testing.T) { testTransactionRollback(t, newStore(t)) })
	}
}

func create(t *testing.T, s store.Store, title string) *models.Note {
	t.Helper()
	note := &models.Note{Title: title, Content: "content of " + title}
	require.NoError(t, s.CreateNote(context.Background(), note))
	return note
}

func testCreateAndGet(t *testing.T, s store.Store) {
	ctx := context.Background()

	note := create(t, s, "first")
	require.Greater(t, uint64(note.ID), uint64(0))
	require.Equal(t, uint64(0), note.Version)
	require.False(t, note.CreatedAt.IsZero())

	got, err := s.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, note.ID, got.ID)
	assert.Equal(t, "first", got.Title)
	assert.Equal(t, "content of first", got.Content)
	assert.Equal(t, uint64(0), got.Version)

	second := create(t, s, "second")
	assert.NotEqual(t, note.ID, second.ID)
}

func testGetMissing(t *testing.T, s store.Store) {
	_, err := s.GetNote(context.Background(), models.NoteID(999999))
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testList(t *testing.T, s store.Store) {
	ctx := context.Background()

	notes, err := s.ListNotes(ctx)
	require.NoError(t, err)
	require.NotNil(t, notes)
	require.Empty(t, notes)

	for i := 0; i < 3; i++ {
		create(t, s, fmt.Sprintf("note-%d", i))
	}

	notes, err = s.ListNotes(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 3)
	for i, n := range notes {
		assert.Equal(t, fmt.Sprintf("note-%d", i), n.Title)
		if i > 0 {
			assert.Greater(t, uint64(n.ID), uint64(notes[i-1].ID))
		}
	}
}

func testUpdate(t *testing.T, s store.Store) {
	ctx := context.Background()
	note := create(t, s, "draft")
	createdAt := note.CreatedAt

	note.Title = "final"
	note.Content = "rewritten"
	require.NoError(t, s.UpdateNote(ctx, note))
	assert.Equal(t, uint64(1), note.Version)

	got, err := s.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Title)
	assert.Equal(t, "rewritten", got.Content)
	assert.Equal(t, uint64(1), got.Version)
	assert.WithinDuration(t, createdAt, got.CreatedAt, time.Second)

	require.NoError(t, s.UpdateNote(ctx, got))
	assert.Equal(t, uint64(2), got.Version)
}

func testUpdateStale(t *testing.T, s store.Store) {
	ctx := context.Background()
	note := create(t, s, "shared")

	first := *note
	first.Title = "first writer"
	require.NoError(t, s.UpdateNote(ctx, &first))

	second := *note
	second.Title = "second writer"
	err := s.UpdateNote(ctx, &second)
	require.ErrorIs(t, err, store.ErrConflict)
	assert.Equal(t, uint64(0), second.Version)

	got, err := s.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "first writer", got.Title)
	assert.Equal(t, uint64(1), got.Version)
}

func testUpdateMissing(t *testing.T, s store.Store) {
	err := s.UpdateNote(context.Background(), &models.Note{ID: 424242, Title: "ghost"})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testConcurrentUpdates(t *testing.T, s store.Store) {
	ctx := context.Background()
	note := create(t, s, "contended")

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			attempt := *note
			attempt.Title = fmt.Sprintf("writer-%d", i)
			err := s.UpdateNote(ctx, &attempt)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, store.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, writers-1, conflicts)

	got, err := s.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.Version)
}

func testDelete(t *testing.T, s store.Store) {
	ctx := context.Background()
	note := create(t, s, "doomed")

	require.NoError(t, s.DeleteNote(ctx, note.ID))

	_, err := s.GetNote(ctx, note.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	err = s.DeleteNote(ctx, note.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testPutNote(t *testing.T, s store.Store) {
	ctx := context.Background()
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	imported := &models.Note{
		ID:        100,
		Title:     "imported",
		Content:   "from elsewhere",
		Version:   7,
		CreatedAt: created,
		UpdatedAt: created,
	}
	require.NoError(t, s.PutNote(ctx, imported))

	got, err := s.GetNote(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "imported", got.Title)
	assert.Equal(t, uint64(7), got.Version)
	assert.True(t, created.Equal(got.CreatedAt), "created at %v", got.CreatedAt)

	imported.Title = "imported again"
	require.NoError(t, s.PutNote(ctx, imported))
	got, err = s.GetNote(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "imported again", got.Title)

	next := create(t, s, "after import")
	assert.Greater(t, uint64(next.ID), uint64(100))
}

func testCopy(t *testing.T, src, dst store.Store) {
	ctx := context.Background()
	a := create(t, src, "a")
	b := create(t, src, "b")
	b.Title = "b2"
	require.NoError(t, src.UpdateNote(ctx, b))

	stats, err := store.Copy(ctx, src, dst, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, store.CopyStats{Scanned: 2, Copied: 2}, stats)

	got, err := dst.GetNote(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "b2", got.Title)
	assert.Equal(t, uint64(1), got.Version)

	got, err = dst.GetNote(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Title)

	stats, err = store.Copy(ctx, src, dst, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, store.CopyStats{Scanned: 2, Copied: 0}, stats)
}

func testTransactionRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	boom := errors.New("boom")

	var id models.NoteID
	err := s.Transaction(ctx, func(tx store.Store) error {
		note := &models.Note{Title: "rolled back"}
		if err := tx.CreateNote(ctx, note); err != nil {
			return err
		}
		id = note.ID
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NotZero(t, id)

	_, err = s.GetNote(ctx, id)
	require.ErrorIs(t, err, store.ErrNotFound)
}
