package models_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/notesapp/notesd/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNoteID(t *testing.T) {
	id, err := models.ParseNoteID("42")
	require.NoError(t, err)
	assert.Equal(t, models.NoteID(42), id)
	assert.Equal(t, "42", id.String())

	for _, bad := range []string{"", "0", "-1", "abc", "1.5"} {
		_, err := models.ParseNoteID(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestNoteIDCBORRoundTrip(t *testing.T) {
	data, err := models.NoteID(7).MarshalCBOR()
	require.NoError(t, err)

	var tag cbor.Tag
	require.NoError(t, cbor.Unmarshal(data, &tag))
	assert.Equal(t, uint64(8), tag.Number)
	assert.Equal(t, []any{"notes", uint64(7)}, tag.Content)

	var id models.NoteID
	require.NoError(t, id.UnmarshalCBOR(data))
	assert.Equal(t, models.NoteID(7), id)
}

func TestNoteIDUnmarshalCBORRejectsOtherTables(t *testing.T) {
	data, err := cbor.Marshal(cbor.Tag{Number: 8, Content: []any{"users", uint64(1)}})
	require.NoError(t, err)

	var id models.NoteID
	require.Error(t, id.UnmarshalCBOR(data))
}

func TestNoteIDRecordID(t *testing.T) {
	rid := models.NoteID(3).RecordID()
	assert.Equal(t, "notes", rid.Table)
	assert.Equal(t, uint64(3), rid.ID)
}

func TestNoteETag(t *testing.T) {
	n := &models.Note{Version: 4}
	assert.Equal(t, `"4"`, n.ETag())
}

func TestValidateNote(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		wantMsg string
	}{
		{name: "empty", title: "", wantMsg: "Title is required"},
		{name: "blank", title: "   \t", wantMsg: "Title is required"},
		{name: "too long", title: strings.Repeat("a", 256), wantMsg: "Title must be less than 255 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := models.ValidateNote(tt.title, "body")
			require.Error(t, err)

			var fields models.FieldErrors
			require.True(t, errors.As(err, &fields))
			assert.Equal(t, tt.wantMsg, fields["title"])
			assert.Len(t, fields, 1)
		})
	}
}

func TestValidateNoteAccepts(t *testing.T) {
	require.NoError(t, models.ValidateNote("a", ""))
	require.NoError(t, models.ValidateNote(strings.Repeat("é", 255), strings.Repeat("x", 10000)))

	req := &models.NoteRequest{Title: "Groceries", Content: "milk"}
	require.NoError(t, req.Validate())
}

func TestFieldErrorsMessage(t *testing.T) {
	err := models.FieldErrors{"title": "Title is required"}
	assert.Equal(t, "validation failed: title: Title is required", err.Error())
}
