package notes

import (
	"errors"
	"fmt"

	"github.com/notesapp/notesd/pkg/models"
	"github.com/notesapp/notesd/pkg/store"
)

// NotFoundError is returned when no note has the requested ID. ID is signed
// so that requests for zero or negative IDs report what was asked for.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Note not found with id: %d", e.ID)
}

func (e *NotFoundError) Unwrap() error { return store.ErrNotFound }

// ConflictError is returned when an update targets a version that is no
// longer current. Expected is the version the caller asked for (or loaded);
// Actual is set when the stored version is known.
type ConflictError struct {
	ID       models.NoteID
	Expected uint64
	Actual   *uint64
}

func (e *ConflictError) Error() string {
	if e.Actual != nil {
		return fmt.Sprintf("note %s was modified concurrently: expected version %d, found %d", e.ID, e.Expected, *e.Actual)
	}
	return fmt.Sprintf("note %s was modified concurrently: expected version %d", e.ID, e.Expected)
}

func (e *ConflictError) Unwrap() error { return store.ErrConflict }

// ValidationError carries one message per invalid field.
type ValidationError struct {
	Fields models.FieldErrors
}

func (e *ValidationError) Error() string {
	return e.Fields.Error()
}

func validate(title, content string) error {
	err := models.ValidateNote(title, content)
	if err == nil {
		return nil
	}
	var fields models.FieldErrors
	if errors.As(err, &fields) {
		return &ValidationError{Fields: fields}
	}
	return err
}

// translate turns store sentinels into domain errors. Domain errors pass
// through unchanged.
func translate(err error, id models.NoteID, version uint64) error {
	if err == nil {
		return nil
	}

	var (
		nf *NotFoundError
		ce *ConflictError
	)
	switch {
	case errors.As(err, &nf), errors.As(err, &ce):
		return err
	case errors.Is(err, store.ErrNotFound):
		return &NotFoundError{ID: int64(id)}
	case errors.Is(err, store.ErrConflict):
		return &ConflictError{ID: id, Expected: version}
	default:
		return err
	}
}
