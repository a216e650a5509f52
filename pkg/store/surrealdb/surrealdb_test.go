package surrealdb_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/notesapp/notesd/pkg/store"
	"github.com/notesapp/notesd/pkg/store/storetest"
	"github.com/notesapp/notesd/pkg/store/surrealdb"
	"github.com/stretchr/testify/require"
)

func surrealURL(t *testing.T) string {
	t.Helper()
	u := os.Getenv("SURREALDB_URL")
	if u == "" {
		t.Skip("SURREALDB_URL not set")
	}
	return u
}

// newTestStore connects to a fresh database so tests never see each other's
// notes or ID counters.
func newTestStore(t *testing.T) store.Store {
	t.Helper()
	ctx := context.Background()

	s, err := surrealdb.NewSurrealStore(ctx, surrealdb.Options{
		URL:       surrealURL(t),
		Namespace: "notesd_test",
		Database:  "t_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Username:  envOr("SURREALDB_USER", "root"),
		Password:  envOr("SURREALDB_PASS", "root"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Migrate(ctx))
	return s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestConformance(t *testing.T) {
	surrealURL(t)
	storetest.Run(t, storetest.Options{}, newTestStore)
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
}
