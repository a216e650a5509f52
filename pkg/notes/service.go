// Package notes implements the note business rules on top of a
// [github.com/notesapp/notesd/pkg/store.Store].
//
// Every mutation runs inside [store.Store.Transaction]. Failures come back as
// [*NotFoundError], [*ConflictError] or [*ValidationError]; anything else
// (including [store.ErrReadOnly]) is returned wrapped as the store produced it.
package notes

import (
	"context"
	"errors"

	"github.com/notesapp/notesd/pkg/models"
	"github.com/notesapp/notesd/pkg/store"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/notesapp/notesd/pkg/notes"

// Service exposes the note operations used by the HTTP layer.
type Service struct {
	store  store.Store
	log    zerolog.Logger
	tracer trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) {
		s.log = log.With().Str("component", "notes").Logger()
	}
}

// WithTracerProvider sets where spans go. The global provider is used
// otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		s.tracer = tp.Tracer(instrumentationName)
	}
}

// NewService returns a Service backed by st.
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		log:    zerolog.Nop(),
		tracer: otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "notes."+name, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// CreateNote validates and stores a new note. The returned note carries its
// assigned ID and version 0.
func (s *Service) CreateNote(ctx context.Context, title, content string) (note *models.Note, err error) {
	ctx, span := s.start(ctx, "CreateNote")
	defer func() { finish(span, err) }()

	if err := validate(title, content); err != nil {
		return nil, err
	}

	note = &models.Note{Title: title, Content: content}
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		return tx.CreateNote(ctx, note)
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("note.id", note.ID.String()))
	s.log.Info().Stringer("id", note.ID).Msg("note created")
	return note, nil
}

// GetAllNotes returns every note. The slice is never nil.
func (s *Service) GetAllNotes(ctx context.Context) (notes []*models.Note, err error) {
	ctx, span := s.start(ctx, "GetAllNotes")
	defer func() { finish(span, err) }()

	notes, err = s.store.ListNotes(ctx)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("notes.count", len(notes)))
	return notes, nil
}

// GetNoteByID returns note id or a [*NotFoundError].
func (s *Service) GetNoteByID(ctx context.Context, id models.NoteID) (note *models.Note, err error) {
	ctx, span := s.start(ctx, "GetNoteByID", attribute.String("note.id", id.String()))
	defer func() { finish(span, err) }()

	note, err = s.store.GetNote(ctx, id)
	if err != nil {
		return nil, translate(err, id, 0)
	}
	return note, nil
}

// UpdateNote overwrites title and content of note id.
//
// The note is loaded and saved inside one transaction; the save only succeeds
// if the stored version still equals the loaded one. When expectedVersion is
// not nil it must also equal the loaded version, otherwise nothing is written.
func (s *Service) UpdateNote(ctx context.Context, id models.NoteID, title, content string, expectedVersion *uint64) (note *models.Note, err error) {
	ctx, span := s.start(ctx, "UpdateNote", attribute.String("note.id", id.String()))
	defer func() { finish(span, err) }()

	if err := validate(title, content); err != nil {
		return nil, err
	}

	var loadedVersion uint64
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		existing, err := tx.GetNote(ctx, id)
		if err != nil {
			return err
		}
		loadedVersion = existing.Version

		if expectedVersion != nil && *expectedVersion != existing.Version {
			actual := existing.Version
			return &ConflictError{ID: id, Expected: *expectedVersion, Actual: &actual}
		}

		existing.Title = title
		existing.Content = content
		if err := tx.UpdateNote(ctx, existing); err != nil {
			return err
		}
		note = existing
		return nil
	})
	if err != nil {
		err = translate(err, id, loadedVersion)
		var ce *ConflictError
		if errors.As(err, &ce) {
			s.log.Warn().Stringer("id", id).Uint64("version", loadedVersion).Msg("update rejected: stale version")
		}
		return nil, err
	}

	span.SetAttributes(attribute.Int64("note.version", int64(note.Version)))
	s.log.Info().Stringer("id", id).Uint64("version", note.Version).Msg("note updated")
	return note, nil
}

// DeleteNote removes note id.
func (s *Service) DeleteNote(ctx context.Context, id models.NoteID) (err error) {
	ctx, span := s.start(ctx, "DeleteNote", attribute.String("note.id", id.String()))
	defer func() { finish(span, err) }()

	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if _, err := tx.GetNote(ctx, id); err != nil {
			return err
		}
		return tx.DeleteNote(ctx, id)
	})
	if err != nil {
		return translate(err, id, 0)
	}

	s.log.Info().Stringer("id", id).Msg("note deleted")
	return nil
}
