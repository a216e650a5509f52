package notesapp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gorilla/mux"
)

// Handler returns the HTTP handler serving the API.
//
//	POST   /notes               create a note
//	GET    /notes               list notes
//	GET    /notes/{id}          fetch a note
//	PUT    /notes/{id}          update a note (If-Match or body version optional)
//	DELETE /notes/{id}          delete a note
//	GET    /health              store health and read-only state
//	GET    /admin/read-only     current maintenance mode
//	PUT    /admin/read-only     toggle maintenance mode
//	GET    /metrics             Prometheus metrics
func (a *App) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/notes", a.handleListNotes).Methods(http.MethodGet)
	router.HandleFunc("/notes", a.handleCreateNote).Methods(http.MethodPost)
	router.HandleFunc("/notes/{id}", a.handleGetNote).Methods(http.MethodGet)
	router.HandleFunc("/notes/{id}", a.handleUpdateNote).Methods(http.MethodPut)
	router.HandleFunc("/notes/{id}", a.handleDeleteNote).Methods(http.MethodDelete)

	router.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/admin/read-only", a.handleGetReadOnly).Methods(http.MethodGet)
	router.HandleFunc("/admin/read-only", a.handleSetReadOnly).Methods(http.MethodPut)
	router.Handle("/metrics", a.metrics.handler()).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(a.handleNotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(a.handleMethodNotAllowed)

	var h http.Handler = router
	h = a.recoverer(h)
	h = a.instrument(router, h)
	h = a.accessLog(h)
	h = requestID(h)
	h = cors(h)
	return h
}

// Run serves the API until ctx is cancelled, then shuts down gracefully,
// giving in-flight requests up to server.shutdownTimeout to finish.
func (a *App) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", a.config.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: a.config.Server.ReadHeaderTimeout,
	}

	a.log.Info().
		Str("addr", ln.Addr().String()).
		Str("backend", a.config.Store.Backend).
		Bool("readOnly", a.IsReadOnly()).
		Msg("starting notesd server")

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	case err := <-serverErr:
		return err
	}
}
