package notes_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/notesapp/notesd/pkg/models"
	"github.com/notesapp/notesd/pkg/notes"
	"github.com/notesapp/notesd/pkg/store"
	"github.com/notesapp/notesd/pkg/store/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newStore(t *testing.T) store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	s, err := postgres.Open(sqlite.Open(dsn), postgres.Options{MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	svc := notes.NewService(newStore(t))

	created, err := svc.CreateNote(ctx, "Groceries", "milk, eggs")
	require.NoError(t, err)
	assert.Greater(t, uint64(created.ID), uint64(0))
	assert.Equal(t, uint64(0), created.Version)

	got, err := svc.GetNoteByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", got.Title)
	assert.Equal(t, "milk, eggs", got.Content)
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	svc := notes.NewService(st)

	for name, title := range map[string]string{
		"empty":    "",
		"blank":    "   ",
		"too long": strings.Repeat("a", 256),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateNote(ctx, title, "")
			var verr *notes.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, "title")
		})
	}

	all, err := st.ListNotes(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestGetAllNotes(t *testing.T) {
	ctx := context.Background()
	svc := notes.NewService(newStore(t))

	all, err := svc.GetAllNotes(ctx)
	require.NoError(t, err)
	require.NotNil(t, all)
	assert.Empty(t, all)

	for _, title := range []string{"one", "two", "three"} {
		_, err := svc.CreateNote(ctx, title, "")
		require.NoError(t, err)
	}

	all, err = svc.GetAllNotes(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "one", all[0].Title)
	assert.Equal(t, "three", all[2].Title)
}

func TestGetMissing(t *testing.T) {
	svc := notes.NewService(newStore(t))

	_, err := svc.GetNoteByID(context.Background(), 42)
	var nf *notes.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Note not found with id: 42", err.Error())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	svc := notes.NewService(newStore(t))

	created, err := svc.CreateNote(ctx, "draft", "")
	require.NoError(t, err)

	updated, err := svc.UpdateNote(ctx, created.ID, "final", "body", nil)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "final", updated.Title)
	assert.Equal(t, uint64(1), updated.Version)

	v := uint64(1)
	updated, err = svc.UpdateNote(ctx, created.ID, "final 2", "body", &v)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), updated.Version)
}

func TestUpdateMissing(t *testing.T) {
	svc := notes.NewService(newStore(t))

	_, err := svc.UpdateNote(context.Background(), 7, "title", "", nil)
	var nf *notes.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, int64(7), nf.ID)
}

func TestUpdateValidation(t *testing.T) {
	ctx := context.Background()
	svc := notes.NewService(newStore(t))
	created, err := svc.CreateNote(ctx, "ok", "")
	require.NoError(t, err)

	_, err = svc.UpdateNote(ctx, created.ID, " ", "", nil)
	var verr *notes.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Title is required", verr.Fields["title"])
}

func TestUpdateWithStaleExpectedVersion(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	svc := notes.NewService(st)

	created, err := svc.CreateNote(ctx, "shared", "")
	require.NoError(t, err)
	_, err = svc.UpdateNote(ctx, created.ID, "edited elsewhere", "", nil)
	require.NoError(t, err)

	stale := uint64(0)
	_, err = svc.UpdateNote(ctx, created.ID, "my edit", "", &stale)
	var ce *notes.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, uint64(0), ce.Expected)
	require.NotNil(t, ce.Actual)
	assert.Equal(t, uint64(1), *ce.Actual)

	got, err := st.GetNote(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited elsewhere", got.Title)
}

// racingStore bumps the version of every note it loads inside a transaction,
// simulating another writer committing between load and save.
type racingStore struct {
	store.Store
}

func (r *racingStore) Transaction(ctx context.Context, fn func(tx store.Store) error) error {
	return r.Store.Transaction(ctx, func(tx store.Store) error {
		return fn(&racingStore{Store: tx})
	})
}

func (r *racingStore) GetNote(ctx context.Context, id models.NoteID) (*models.Note, error) {
	loaded, err := r.Store.GetNote(ctx, id)
	if err != nil {
		return nil, err
	}
	other := *loaded
	other.Title = "other writer"
	if err := r.Store.UpdateNote(ctx, &other); err != nil {
		return nil, err
	}
	return loaded, nil
}

func TestUpdateLosesRace(t *testing.T) {
	ctx := context.Background()
	inner := newStore(t)

	created, err := notes.NewService(inner).CreateNote(ctx, "contended", "")
	require.NoError(t, err)

	_, err = notes.NewService(&racingStore{Store: inner}).UpdateNote(ctx, created.ID, "mine", "", nil)
	var ce *notes.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.Equal(t, uint64(0), ce.Expected)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc := notes.NewService(newStore(t))

	created, err := svc.CreateNote(ctx, "temp", "")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteNote(ctx, created.ID))

	_, err = svc.GetNoteByID(ctx, created.ID)
	var nf *notes.NotFoundError
	require.ErrorAs(t, err, &nf)

	err = svc.DeleteNote(ctx, created.ID)
	require.ErrorAs(t, err, &nf)
}

func TestReadOnlyPassesThrough(t *testing.T) {
	ctx := context.Background()
	inner := newStore(t)
	readOnly := false
	svc := notes.NewService(store.NewReadOnlyStore(inner, func() bool { return readOnly }))

	created, err := svc.CreateNote(ctx, "before", "")
	require.NoError(t, err)

	readOnly = true
	_, err = svc.CreateNote(ctx, "during", "")
	require.ErrorIs(t, err, store.ErrReadOnly)
	_, err = svc.UpdateNote(ctx, created.ID, "during", "", nil)
	require.ErrorIs(t, err, store.ErrReadOnly)
	require.ErrorIs(t, svc.DeleteNote(ctx, created.ID), store.ErrReadOnly)

	got, err := svc.GetNoteByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "before", got.Title)
}

func TestSpans(t *testing.T) {
	ctx := context.Background()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(ctx) }()

	svc := notes.NewService(newStore(t), notes.WithTracerProvider(tp))

	created, err := svc.CreateNote(ctx, "traced", "")
	require.NoError(t, err)
	_, err = svc.GetNoteByID(ctx, created.ID+100)
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "notes.CreateNote", spans[0].Name())
	assert.Equal(t, "notes.GetNoteByID", spans[1].Name())
	assert.Len(t, spans[1].Events(), 1, "error recorded on span")
}
