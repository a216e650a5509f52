package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/notesapp/notesd/pkg/notesapp"
)

func main() {
	// SIGINT and SIGTERM cancel the context, which triggers graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := notesapp.Main(ctx, os.Args[1:], os.Stdout); err != nil {
		stop()
		os.Exit(1)
	}
}
