// Package surrealdb provides a SurrealDB implementation of the
// [github.com/notesapp/notesd/pkg/store.Store] interface using native SurrealQL.
//
// # CBOR
//
// The connection is configured with the surrealcbor codec so that
// [github.com/notesapp/notesd/pkg/models.NoteID] values travel as RecordIDs
// (notes:42) and time.Time values as SurrealDB datetimes. Notes are decoded
// straight into [github.com/notesapp/notesd/pkg/models.Note].
//
// # Identifiers
//
// SurrealDB has no auto-increment. CreateNote draws the next ID from a counter
// record (note_counters:notes) incremented by a single UPSERT, which is atomic.
// PutNote moves the counter forward when it writes a higher ID, so imported
// notes never collide with later inserts.
//
// # Optimistic Concurrency
//
// UpdateNote runs one conditional statement:
//
//	UPDATE $id SET ..., version += 1 WHERE version = $version
//
// An empty result means the note is missing or stale; a follow-up read tells
// which. A transaction conflict reported by the database for the same record is
// also surfaced as [github.com/notesapp/notesd/pkg/store.ErrConflict].
//
// # Transactions
//
// Every operation is a single statement, so [SurrealStore.Transaction] runs fn
// directly on the store without an enclosing transaction.
package surrealdb

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/notesapp/notesd/pkg/logger"
	"github.com/notesapp/notesd/pkg/models"
	"github.com/notesapp/notesd/pkg/store"
	"github.com/rs/zerolog"
	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	sdklogger "github.com/surrealdb/surrealdb.go/pkg/logger"
	"github.com/surrealdb/surrealdb.go/surrealcbor"
)

const counterTable = "note_counters"

// Options configures a [SurrealStore] connection.
type Options struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string

	Logger zerolog.Logger
}

// SurrealStore implements the Store interface on SurrealDB.
type SurrealStore struct {
	db  *surrealdb.DB
	log zerolog.Logger
}

var _ store.Store = (*SurrealStore)(nil)

// NewSurrealStore connects over WebSocket, signs in when credentials are given
// and selects the namespace and database.
func NewSurrealStore(ctx context.Context, opts Options) (*SurrealStore, error) {
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	conf := connection.NewConfig(u)
	codec := surrealcbor.New()
	conf.Marshaler = codec
	conf.Unmarshaler = codec
	conf.Logger = sdklogger.New(logger.NewSlogHandler(opts.Logger.With().Str("component", "surrealdb.sdk").Logger()))

	db, err := surrealdb.FromConnection(ctx, gorillaws.New(conf))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if opts.Username != "" && opts.Password != "" {
		if _, err := db.SignIn(ctx, map[string]any{
			"user": opts.Username,
			"pass": opts.Password,
		}); err != nil {
			_ = db.Close(ctx)
			return nil, fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := db.Use(ctx, opts.Namespace, opts.Database); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("failed to use namespace/database: %w", err)
	}

	log := opts.Logger.With().Str("component", "surrealdb").Logger()
	log.Debug().Str("url", u.Redacted()).Str("namespace", opts.Namespace).Str("database", opts.Database).Msg("connected")

	return &SurrealStore{db: db, log: log}, nil
}

// Migrate defines the notes table and its fields. Statements use IF NOT EXISTS
// so repeated runs are harmless.
func (s *SurrealStore) Migrate(ctx context.Context) error {
	const schema = `
DEFINE TABLE IF NOT EXISTS notes SCHEMAFULL;
DEFINE FIELD IF NOT EXISTS title ON notes TYPE string;
DEFINE FIELD IF NOT EXISTS content ON notes TYPE string;
DEFINE FIELD IF NOT EXISTS version ON notes TYPE int;
DEFINE FIELD IF NOT EXISTS createdAt ON notes TYPE datetime;
DEFINE FIELD IF NOT EXISTS updatedAt ON notes TYPE datetime;
DEFINE TABLE IF NOT EXISTS note_counters SCHEMALESS;
`
	if _, err := surrealdb.Query[any](ctx, s.db, schema, nil); err != nil {
		return fmt.Errorf("failed to define notes schema: %w", err)
	}
	return nil
}

func (s *SurrealStore) Ping(ctx context.Context) error {
	if _, err := surrealdb.Query[any](ctx, s.db, "RETURN true", nil); err != nil {
		return fmt.Errorf("surrealdb ping failed: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SurrealStore) Close() error {
	return s.db.Close(context.Background())
}

// Transaction runs fn against s. See the package documentation.
func (s *SurrealStore) Transaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

func (s *SurrealStore) ListNotes(ctx context.Context) ([]*models.Note, error) {
	rows, err := queryNotes(ctx, s.db, "SELECT * FROM notes ORDER BY id", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return rows, nil
}

func (s *SurrealStore) GetNote(ctx context.Context, id models.NoteID) (*models.Note, error) {
	rows, err := queryNotes(ctx, s.db, "SELECT * FROM $id", map[string]any{
		"id": id.RecordID(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get note %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("note %s: %w", id, store.ErrNotFound)
	}
	return rows[0], nil
}

func (s *SurrealStore) CreateNote(ctx context.Context, note *models.Note) error {
	id, err := s.nextID(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	rows, err := queryNotes(ctx, s.db,
		"CREATE $id SET title = $title, content = $content, version = 0, createdAt = $now, updatedAt = $now",
		map[string]any{
			"id":      id.RecordID(),
			"title":   note.Title,
			"content": note.Content,
			"now":     now,
		})
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("failed to create note %s: no record returned", id)
	}

	*note = *rows[0]
	return nil
}

func (s *SurrealStore) nextID(ctx context.Context) (models.NoteID, error) {
	type counter struct {
		Value uint64 `json:"value"`
	}
	res, err := surrealdb.Query[[]counter](ctx, s.db,
		"UPSERT type::thing($table, $name) SET value += 1",
		map[string]any{
			"table": counterTable,
			"name":  models.NoteTable,
		})
	if err != nil {
		return 0, fmt.Errorf("failed to allocate note ID: %w", err)
	}
	rows := firstResult(res)
	if len(rows) == 0 || rows[0].Value == 0 {
		return 0, fmt.Errorf("failed to allocate note ID: empty counter")
	}
	return models.NoteID(rows[0].Value), nil
}

func (s *SurrealStore) UpdateNote(ctx context.Context, note *models.Note) error {
	now := time.Now().UTC()
	rows, err := queryNotes(ctx, s.db,
		"UPDATE $id SET title = $title, content = $content, version += 1, updatedAt = $now WHERE version = $version",
		map[string]any{
			"id":      note.ID.RecordID(),
			"title":   note.Title,
			"content": note.Content,
			"version": note.Version,
			"now":     now,
		})
	if err != nil {
		if isTransactionConflict(err) {
			return fmt.Errorf("note %s at version %d: %w", note.ID, note.Version, store.ErrConflict)
		}
		return fmt.Errorf("failed to update note %s: %w", note.ID, err)
	}

	if len(rows) == 0 {
		if _, err := s.GetNote(ctx, note.ID); err != nil {
			return err
		}
		return fmt.Errorf("note %s at version %d: %w", note.ID, note.Version, store.ErrConflict)
	}

	note.Version = rows[0].Version
	note.UpdatedAt = rows[0].UpdatedAt
	return nil
}

func (s *SurrealStore) DeleteNote(ctx context.Context, id models.NoteID) error {
	rows, err := queryNotes(ctx, s.db, "DELETE $id RETURN BEFORE", map[string]any{
		"id": id.RecordID(),
	})
	if err != nil {
		return fmt.Errorf("failed to delete note %s: %w", id, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("note %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// PutNote upserts the note keeping its ID, version and timestamps, then moves
// the ID counter past it.
func (s *SurrealStore) PutNote(ctx context.Context, note *models.Note) error {
	_, err := surrealdb.Query[any](ctx, s.db, `
UPSERT $id SET title = $title, content = $content, version = $version, createdAt = $createdAt, updatedAt = $updatedAt;
UPSERT type::thing($table, $name) SET value = math::max([value ?? 0, $seq]);
`, map[string]any{
		"id":        note.ID.RecordID(),
		"title":     note.Title,
		"content":   note.Content,
		"version":   note.Version,
		"createdAt": note.CreatedAt.UTC(),
		"updatedAt": note.UpdatedAt.UTC(),
		"table":     counterTable,
		"name":      models.NoteTable,
		"seq":       uint64(note.ID),
	})
	if err != nil {
		return fmt.Errorf("failed to put note %s: %w", note.ID, err)
	}
	return nil
}

func queryNotes(ctx context.Context, db *surrealdb.DB, sql string, vars map[string]any) ([]*models.Note, error) {
	res, err := surrealdb.Query[[]models.Note](ctx, db, sql, vars)
	if err != nil {
		return nil, err
	}

	rows := firstResult(res)
	notes := make([]*models.Note, 0, len(rows))
	for i := range rows {
		notes = append(notes, &rows[i])
	}
	return notes, nil
}

func firstResult[T any](res *[]surrealdb.QueryResult[T]) T {
	var zero T
	if res == nil || len(*res) == 0 {
		return zero
	}
	return (*res)[0].Result
}

// isTransactionConflict reports whether SurrealDB aborted a write because a
// concurrent transaction touched the same record.
func isTransactionConflict(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "transaction conflict") ||
		strings.Contains(msg, "can be retried") ||
		strings.Contains(msg, "resource busy")
}
