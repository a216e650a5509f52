// Package models defines the entities shared by every layer of notesd.
//
// # Note
//
// [Note] is the only persisted entity. The same struct is used by both store
// implementations and by the HTTP API:
//
//   - GORM tags map it to the notes table in PostgreSQL (or any other GORM
//     dialector used in tests).
//   - JSON tags define the REST representation.
//   - [NoteID] marshals to a SurrealDB RecordID (notes:N) through CBOR, so the
//     SurrealDB store can read and write the struct without a separate model.
//
// # Versioning
//
// Note.Version is the optimistic concurrency counter. It starts at 0 when a
// note is created and is incremented by the store on every successful update.
// Stores compare it in the WHERE clause of the update statement; callers never
// increment it themselves.
//
// # Requests
//
// [NoteRequest] is the body accepted by POST /notes and PUT /notes/{id}. Field
// rules are declared with go-playground/validator tags and reported as
// [FieldErrors], keyed by the JSON field name.
package models
