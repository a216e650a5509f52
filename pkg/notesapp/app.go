package notesapp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/notesapp/notesd/pkg/notes"
	"github.com/notesapp/notesd/pkg/store"
	"github.com/notesapp/notesd/pkg/store/postgres"
	"github.com/notesapp/notesd/pkg/store/surrealdb"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// App holds the application state: the store, the note service built on it,
// metrics and the runtime read-only switch.
type App struct {
	config  *Config
	log     zerolog.Logger
	store   store.Store
	service *notes.Service
	metrics *metrics
	tracer  *sdktrace.TracerProvider

	readOnly atomic.Bool
}

// New connects to the configured backend and builds the application.
func New(ctx context.Context, config *Config, log zerolog.Logger) (*App, error) {
	st, err := OpenStore(ctx, config, config.Store.Backend, log)
	if err != nil {
		return nil, err
	}

	app, err := NewWithStore(config, st, log)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return app, nil
}

// NewWithStore builds the application on an already opened store. The App
// takes ownership of st and closes it in [App.Close].
func NewWithStore(config *Config, st store.Store, log zerolog.Logger) (*App, error) {
	tp, err := newTracerProvider(config.Trace, os.Stderr)
	if err != nil {
		return nil, err
	}

	app := &App{
		config:  config,
		log:     log,
		metrics: newMetrics(),
		tracer:  tp,
	}
	app.store = store.NewReadOnlyStore(st, app.IsReadOnly)
	app.service = notes.NewService(app.store,
		notes.WithLogger(log),
		notes.WithTracerProvider(tp),
	)
	app.SetReadOnly(config.ReadOnly)

	return app, nil
}

// OpenStore connects to the named backend using the connection settings in
// config.
func OpenStore(ctx context.Context, config *Config, backend string, log zerolog.Logger) (store.Store, error) {
	switch backend {
	case BackendPostgres:
		st, err := postgres.NewPostgresStore(config.Postgres.DSN, postgres.Options{
			MaxOpenConns:    config.Postgres.MaxOpenConns,
			MaxIdleConns:    config.Postgres.MaxIdleConns,
			ConnMaxLifetime: config.Postgres.ConnMaxLifetime,
			Logger:          log,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		log.Info().Msg("connected to PostgreSQL")
		return st, nil

	case BackendSurrealDB:
		st, err := surrealdb.NewSurrealStore(ctx, surrealdb.Options{
			URL:       config.SurrealDB.URL,
			Namespace: config.SurrealDB.Namespace,
			Database:  config.SurrealDB.Database,
			Username:  config.SurrealDB.Username,
			Password:  config.SurrealDB.Password,
			Logger:    log,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
		}
		log.Info().Msg("connected to SurrealDB")
		return st, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

// Close flushes pending spans and closes the store.
func (a *App) Close() error {
	var errs []error
	if a.tracer != nil {
		errs = append(errs, a.tracer.Shutdown(context.Background()))
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}

// Store returns the read-only guarded store.
func (a *App) Store() store.Store {
	return a.store
}

// SetReadOnly switches maintenance mode. While on, every store write fails
// with [store.ErrReadOnly]; reads keep working.
func (a *App) SetReadOnly(readOnly bool) {
	if a.readOnly.Swap(readOnly) != readOnly {
		a.log.Info().Bool("readOnly", readOnly).Msg("read-only mode changed")
	}
	if readOnly {
		a.metrics.readOnly.Set(1)
	} else {
		a.metrics.readOnly.Set(0)
	}
}

func (a *App) IsReadOnly() bool {
	return a.readOnly.Load()
}

// Migrate creates or upgrades the schema of the configured store.
func (a *App) Migrate(ctx context.Context) error {
	a.log.Info().Str("backend", a.config.Store.Backend).Msg("running migrations")
	if err := a.store.Migrate(ctx); err != nil {
		return err
	}
	a.log.Info().Msg("migrations complete")
	return nil
}
