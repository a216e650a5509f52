package notesapp

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/notesapp/notesd/pkg/models"
	"github.com/notesapp/notesd/pkg/notes"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		response = []byte(`{"code":"` + CodeInternal + `","message":"` + msgInternal + `"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_, _ = w.Write(response)
	}
}

// respondNote writes a note with its ETag.
func respondNote(w http.ResponseWriter, status int, note *models.Note) {
	w.Header().Set("ETag", note.ETag())
	respondJSON(w, status, note)
}

// decodeJSON reads the whole body, capped at server.maxBodyBytes, before
// decoding it. A body over the cap fails with *http.MaxBytesError.
func (a *App) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := r.Body
	if limit := a.config.Server.MaxBodyBytes; limit > 0 {
		body = http.MaxBytesReader(w, body, limit)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return tooLarge
		}
		return badRequest("Failed to read request body", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return badRequest("Request body is required", nil)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return badRequest("Malformed JSON request body", err)
	}
	return nil
}

// noteIDFrom reads the {id} path variable. Text that is not a decimal int64
// is a bad request; zero and negative IDs can never exist and are reported
// as not found.
func noteIDFrom(r *http.Request) (models.NoteID, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, badRequest("Invalid note ID "+strconv.Quote(raw), nil)
	}
	if id <= 0 {
		return 0, &notes.NotFoundError{ID: id}
	}
	return models.NoteID(id), nil
}

// parseIfMatch reads an If-Match header carrying a note version. Absent
// headers and "*" impose no precondition.
func parseIfMatch(header string) (*uint64, error) {
	header = strings.TrimSpace(header)
	if header == "" || header == "*" {
		return nil, nil
	}
	header = strings.TrimPrefix(header, "W/")
	header = strings.Trim(header, `"`)

	v, err := strconv.ParseUint(header, 10, 64)
	if err != nil {
		return nil, badRequest("Invalid If-Match header", err)
	}
	return &v, nil
}

func (a *App) handleListNotes(w http.ResponseWriter, r *http.Request) {
	list, err := a.service.GetAllNotes(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (a *App) handleGetNote(w http.ResponseWriter, r *http.Request) {
	id, err := noteIDFrom(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	note, err := a.service.GetNoteByID(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	respondNote(w, http.StatusOK, note)
}

func (a *App) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req models.NoteRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		a.writeError(w, r, err)
		return
	}

	note, err := a.service.CreateNote(r.Context(), req.Title, req.Content)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/notes/"+note.ID.String())
	respondNote(w, http.StatusCreated, note)
}

// handleUpdateNote applies a PUT. An If-Match header takes precedence over a
// version field in the body; with neither, the version loaded by the service
// is the only precondition.
func (a *App) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	id, err := noteIDFrom(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	expected, err := parseIfMatch(r.Header.Get("If-Match"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	var req models.NoteRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		a.writeError(w, r, err)
		return
	}
	if expected == nil {
		expected = req.Version
	}

	note, err := a.service.UpdateNote(r.Context(), id, req.Title, req.Content, expected)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	respondNote(w, http.StatusOK, note)
}

func (a *App) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	id, err := noteIDFrom(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	if err := a.service.DeleteNote(r.Context(), id); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Backend  string `json:"backend"`
	ReadOnly bool   `json:"readOnly"`
	Time     int64  `json:"time"`
	Error    string `json:"error,omitempty"`
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "healthy",
		Backend:  a.config.Store.Backend,
		ReadOnly: a.IsReadOnly(),
		Time:     time.Now().Unix(),
	}

	status := http.StatusOK
	if err := a.store.Ping(r.Context()); err != nil {
		a.log.Warn().Err(err).Msg("health check failed")
		resp.Status = "unhealthy"
		resp.Error = "store unreachable"
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, resp)
}

// ReadOnlyRequest is the body of PUT /admin/read-only and of its responses.
type ReadOnlyRequest struct {
	ReadOnly *bool `json:"readOnly"`
}

func (a *App) handleGetReadOnly(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]bool{"readOnly": a.IsReadOnly()})
}

func (a *App) handleSetReadOnly(w http.ResponseWriter, r *http.Request) {
	var req ReadOnlyRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if req.ReadOnly == nil {
		a.writeError(w, r, models.FieldErrors{"readOnly": "ReadOnly is required"})
		return
	}

	a.SetReadOnly(*req.ReadOnly)
	respondJSON(w, http.StatusOK, map[string]bool{"readOnly": a.IsReadOnly()})
}

func (a *App) handleNotFound(w http.ResponseWriter, r *http.Request) {
	a.writeError(w, r, &routeError{
		status: http.StatusNotFound,
		code:   CodeNotFound,
		msg:    "No handler for " + r.Method + " " + r.URL.Path,
	})
}

func (a *App) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	a.writeError(w, r, &routeError{
		status: http.StatusMethodNotAllowed,
		code:   CodeMethodNotAllowed,
		msg:    "Method " + r.Method + " is not supported for " + r.URL.Path,
	})
}
