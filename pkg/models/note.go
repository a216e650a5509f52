package models

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fxamacker/cbor/v2"
	surrealdb_models "github.com/surrealdb/surrealdb.go/pkg/models"
)

// NoteTable is the table name used by every store.
const NoteTable = "notes"

// MaxTitleLength is the maximum number of characters allowed in a title.
const MaxTitleLength = 255

// recordIDTag is the CBOR tag SurrealDB uses for record identifiers.
const recordIDTag = 8

// NoteID identifies a note. IDs are assigned by the store and are always
// greater than zero once a note has been persisted.
type NoteID uint64

// ParseNoteID parses a decimal note ID as found in request paths.
func ParseNoteID(s string) (NoteID, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid note ID: %q", s)
	}
	return NoteID(id), nil
}

func (id NoteID) String() string { return strconv.FormatUint(uint64(id), 10) }
func (id NoteID) IsZero() bool   { return id == 0 }

// RecordID returns the SurrealDB record identifier for this note.
func (id NoteID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: NoteTable,
		ID:    uint64(id),
	}
}

// MarshalCBOR encodes the ID as a SurrealDB RecordID (tag 8).
func (id NoteID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  recordIDTag,
		Content: []any{NoteTable, uint64(id)},
	})
}

// UnmarshalCBOR decodes a SurrealDB RecordID of the notes table.
func (id *NoteID) UnmarshalCBOR(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty CBOR data")
	}

	var tag cbor.Tag
	if err := cbor.Unmarshal(data, &tag); err != nil {
		return fmt.Errorf("failed to unmarshal CBOR tag: %w", err)
	}
	if tag.Number != recordIDTag {
		return fmt.Errorf("expected RecordID tag (%d), got %d", recordIDTag, tag.Number)
	}

	arr, ok := tag.Content.([]any)
	if !ok || len(arr) != 2 {
		return fmt.Errorf("invalid RecordID format: expected [table, id] array")
	}
	if table, ok := arr[0].(string); !ok || table != NoteTable {
		return fmt.Errorf("expected table %s, got %v", NoteTable, arr[0])
	}

	switch v := arr[1].(type) {
	case uint64:
		*id = NoteID(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("invalid note ID: %d", v)
		}
		*id = NoteID(v)
	case string:
		parsed, err := ParseNoteID(v)
		if err != nil {
			return err
		}
		*id = parsed
	default:
		return fmt.Errorf("invalid RecordID format: unsupported id type %T", v)
	}
	return nil
}

// Note is a persisted note.
type Note struct {
	ID        NoteID    `gorm:"primaryKey;autoIncrement" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Content   string    `gorm:"type:text" json:"content"`
	Version   uint64    `gorm:"not null" json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName pins the GORM table name.
func (Note) TableName() string {
	return NoteTable
}

// ETag returns the strong entity tag clients send back in If-Match.
func (n *Note) ETag() string {
	return strconv.Quote(strconv.FormatUint(n.Version, 10))
}
