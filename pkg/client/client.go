// Package client provides a Go HTTP client for the notesd REST API.
//
// [Client] offers one typed method per endpoint and exchanges the same
// [github.com/notesapp/notesd/pkg/models.Note] values as the server. Non-2xx
// responses are returned as [*APIError], which carries the machine readable
// error code, so callers can branch on conflicts without parsing messages:
//
//	c := client.NewClient("http://localhost:8080")
//
//	note, err := c.GetNote(ctx, id)
//	if err != nil {
//		return err
//	}
//	note.Title = "Renamed"
//	updated, err := c.UpdateNote(ctx, note.ID, note.Title, note.Content, &note.Version)
//	if client.IsConflict(err) {
//		// someone else saved first: reload and retry
//	}
//
// Client instances are safe for concurrent use by multiple goroutines.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/notesapp/notesd/pkg/models"
)

// Client provides strongly typed access to the notesd REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL, e.g.
// "http://localhost:8080", without a trailing slash.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode  int               `json:"-"`
	Code        string            `json:"code"`
	Message     string            `json:"message"`
	Timestamp   time.Time         `json:"timestamp"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("API error: status=%d, code=%s: %s", e.StatusCode, e.Code, e.Message)
}

func hasCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

func IsNotFound(err error) bool   { return hasCode(err, "NOT_FOUND") }
func IsConflict(err error) bool   { return hasCode(err, "CONFLICT") }
func IsValidation(err error) bool { return hasCode(err, "VALIDATION_ERROR") }
func IsReadOnly(err error) bool   { return hasCode(err, "READ_ONLY") }

// Health is the body of GET /health.
type Health struct {
	Status   string `json:"status"`
	Backend  string `json:"backend"`
	ReadOnly bool   `json:"readOnly"`
	Time     int64  `json:"time"`
	Error    string `json:"error,omitempty"`
}

type noteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type readOnlyState struct {
	ReadOnly bool `json:"readOnly"`
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, header http.Header) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		req.Header[k] = vs
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

// decodeResponse decodes a successful response into target, or the error
// body into an *APIError.
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		body, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(body, apiErr); err != nil {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return apiErr
	}

	if target != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func notePath(id models.NoteID) string {
	return "/notes/" + id.String()
}

// CreateNote creates a note and returns it with its assigned ID.
func (c *Client) CreateNote(ctx context.Context, title, content string) (*models.Note, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/notes", noteRequest{Title: title, Content: content}, nil)
	if err != nil {
		return nil, err
	}

	var result models.Note
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListNotes returns every note.
func (c *Client) ListNotes(ctx context.Context) ([]*models.Note, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/notes", nil, nil)
	if err != nil {
		return nil, err
	}

	var result []*models.Note
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) GetNote(ctx context.Context, id models.NoteID) (*models.Note, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, notePath(id), nil, nil)
	if err != nil {
		return nil, err
	}

	var result models.Note
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateNote replaces the title and content of a note. When version is not
// nil it is sent as If-Match and the server rejects the update with a
// CONFLICT error if the note has moved on.
func (c *Client) UpdateNote(ctx context.Context, id models.NoteID, title, content string, version *uint64) (*models.Note, error) {
	var header http.Header
	if version != nil {
		header = http.Header{"If-Match": {strconv.Quote(strconv.FormatUint(*version, 10))}}
	}

	resp, err := c.doRequest(ctx, http.MethodPut, notePath(id), noteRequest{Title: title, Content: content}, header)
	if err != nil {
		return nil, err
	}

	var result models.Note
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) DeleteNote(ctx context.Context, id models.NoteID) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, notePath(id), nil, nil)
	if err != nil {
		return err
	}
	return decodeResponse(resp, nil)
}

// Health reports the server status. An unhealthy server answers 503, which
// is returned as an *APIError.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/health", nil, nil)
	if err != nil {
		return nil, err
	}

	var result Health
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Administrative operations

func (c *Client) GetReadOnly(ctx context.Context) (bool, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/admin/read-only", nil, nil)
	if err != nil {
		return false, err
	}

	var result readOnlyState
	if err := decodeResponse(resp, &result); err != nil {
		return false, err
	}
	return result.ReadOnly, nil
}

// SetReadOnly switches the server's maintenance mode.
func (c *Client) SetReadOnly(ctx context.Context, readOnly bool) error {
	resp, err := c.doRequest(ctx, http.MethodPut, "/admin/read-only", readOnlyState{ReadOnly: readOnly}, nil)
	if err != nil {
		return err
	}
	return decodeResponse(resp, nil)
}
