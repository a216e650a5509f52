package notesapp

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/notesapp/notesd/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version is set at build time with -ldflags "-X ...notesapp.Version=...".
var Version = "dev"

// Main runs the notesd command line with the given arguments (without the
// program name).
func Main(ctx context.Context, args []string, stdout io.Writer) error {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	return root.ExecuteContext(ctx)
}

// NewRootCommand builds the notesd command tree. Flags are bound into a fresh
// viper instance so they override file and environment settings.
func NewRootCommand() *cobra.Command {
	v := NewViper()
	var cfgFile string

	root := &cobra.Command{
		Use:           "notesd",
		Short:         "A REST service for notes with optimistic concurrency",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: notesd.{yaml,json,toml} in . or /etc/notesd)")
	pf.String("backend", BackendPostgres, "store backend: postgres or surrealdb")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.Bool("log-pretty", false, "human readable console logs")
	bindFlags(v, pf, map[string]string{
		"store.backend": "backend",
		"log.level":     "log-level",
		"log.pretty":    "log-pretty",
	})

	setup := func(cmd *cobra.Command) (*Config, *logger.LogData, error) {
		if cfgFile != "" {
			v.SetConfigFile(cfgFile)
		}
		config, err := LoadConfig(v)
		if err != nil {
			return nil, nil, err
		}
		logData, err := logger.New().
			FromBuffer(cmd.ErrOrStderr()).
			FromPath(config.Log.File).
			Level(config.Log.Level).
			Pretty(config.Log.Pretty).
			Make()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create logger: %w", err)
		}
		return config, logData, nil
	}

	root.AddCommand(
		newRunCommand(v, setup),
		newMigrateCommand(setup),
		newSyncCommand(setup),
		newVersionCommand(),
	)
	return root
}

type setupFunc func(cmd *cobra.Command) (*Config, *logger.LogData, error)

// bindFlags maps config keys to flag names. Flags only override the config
// when set on the command line.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

func newRunCommand(v *viper.Viper, setup setupFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, logData, err := setup(cmd)
			if err != nil {
				return err
			}
			defer logData.Close()

			app, err := New(cmd.Context(), config, logData.Logger)
			if err != nil {
				return fmt.Errorf("failed to create application: %w", err)
			}
			defer app.Close()

			if err := app.Run(cmd.Context()); err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().Int("port", 8080, "HTTP listen port")
	cmd.Flags().Bool("read-only", false, "start in read-only maintenance mode")
	bindFlags(v, cmd.Flags(), map[string]string{
		"server.port": "port",
		"readOnly":    "read-only",
	})
	return cmd
}

func newMigrateCommand(setup setupFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, logData, err := setup(cmd)
			if err != nil {
				return err
			}
			defer logData.Close()

			app, err := New(cmd.Context(), config, logData.Logger)
			if err != nil {
				return fmt.Errorf("failed to create application: %w", err)
			}
			defer app.Close()

			if err := app.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			return nil
		},
	}
}

func newSyncCommand(setup setupFunc) *cobra.Command {
	var from, to, since string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy notes from one backend to another",
		Long: `Sync copies every note from the source backend into the destination,
preserving IDs, versions and timestamps. Put serving instances in read-only
mode first (PUT /admin/read-only) so no write is missed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sinceTime, err := ParseSince(since, time.Now())
			if err != nil {
				return err
			}

			config, logData, err := setup(cmd)
			if err != nil {
				return err
			}
			defer logData.Close()

			stats, err := Sync(cmd.Context(), config, from, to, sinceTime, logData.Logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scanned %d notes, copied %d\n", stats.Scanned, stats.Copied)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", BackendPostgres, "source backend")
	cmd.Flags().StringVar(&to, "to", BackendSurrealDB, "destination backend")
	cmd.Flags().StringVar(&since, "since", "", "only copy notes updated since this RFC 3339 time or duration ago")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "notesd %s\n", Version)
		},
	}
}
