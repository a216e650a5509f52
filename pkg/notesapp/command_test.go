package notesapp

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Main(context.Background(), []string{"version"}, &out))
	assert.Equal(t, "notesd "+Version+"\n", out.String())
}

func TestUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetArgs([]string{"explode"})
	root.SetOut(&out)
	root.SetErr(&out)
	require.Error(t, root.Execute())
}

func TestSyncRejectsSameBackend(t *testing.T) {
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetArgs([]string{"sync", "--from", BackendPostgres, "--to", BackendPostgres})
	root.SetOut(&out)
	root.SetErr(&out)

	err := root.ExecuteContext(context.Background())
	require.ErrorContains(t, err, "both")
}

func TestSyncRejectsBadSince(t *testing.T) {
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetArgs([]string{"sync", "--since", "yesterday"})
	root.SetOut(&out)
	root.SetErr(&out)

	err := root.ExecuteContext(context.Background())
	require.ErrorContains(t, err, "invalid since")
}

func TestParseSince(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	got, err := ParseSince("", now)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = ParseSince("24h", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-24*time.Hour), got)

	got, err = ParseSince("2025-03-01T08:30:00Z", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC), got)

	_, err = ParseSince("-1h", now)
	require.Error(t, err)

	_, err = ParseSince("last week", now)
	require.Error(t, err)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	app := newTestAppWithStore(t, newSQLiteStore(t))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/health"
	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get(url)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", health.Status)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNewWithStoreStartsReadOnly(t *testing.T) {
	config := testConfig()
	config.ReadOnly = true

	app, err := NewWithStore(config, newSQLiteStore(t), zerolog.Nop())
	require.NoError(t, err)
	defer app.Close()

	assert.True(t, app.IsReadOnly())
}
