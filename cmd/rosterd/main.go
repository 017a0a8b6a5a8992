package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/shift-roster/internal/application"
	"github.com/example/shift-roster/internal/config"
	"github.com/example/shift-roster/internal/metrics"
	"github.com/example/shift-roster/internal/notify"
	"github.com/example/shift-roster/internal/persistence/sqlite"
)

const appVersion = "0.3.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	configPath string
	cfg        config.Config
	logger     *slog.Logger
	stdout     io.Writer
	stderr     io.Writer
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "rosterd",
		Short:         "Weekly shift roster service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = slog.New(slog.NewJSONHandler(a.stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
			return nil
		},
	}
	root.Version = appVersion
	root.SetVersionTemplate("rosterd v{{.Version}}\n")
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (yaml, json or toml); environment variables take precedence")

	root.AddCommand(
		newServeCommand(a),
		newMigrateCommand(a),
		newCheckCommand(a),
		newWatchCommand(a),
		newHashTokenCommand(a),
	)
	return root
}

// openStore opens the configured database and applies pending migrations.
func (a *app) openStore(ctx context.Context) (*sqlite.Storage, error) {
	storage, err := sqlite.Open(ctx, a.cfg.SQLite(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	if _, err := storage.Migrate(ctx, a.logger); err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return storage, nil
}

// dialNotify connects to redis when configured. The returned client is nil
// when notifications are disabled.
func (a *app) dialNotify(ctx context.Context, m *metrics.Metrics) (*notify.Client, error) {
	if !a.cfg.RedisEnabled() {
		return nil, nil
	}
	client, err := notify.Dial(ctx, a.cfg.Notify(), a.logger, m)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (a *app) newService(storage *sqlite.Storage, publisher notify.Publisher, m *metrics.Metrics) *application.RosterService {
	return application.NewRosterService(application.RosterServiceDeps{
		Store:              storage,
		Publisher:          publisher,
		Metrics:            m,
		Laws:               a.cfg.LawOverrides(),
		Logger:             a.logger,
		SnapshotOnPublish:  a.cfg.SnapshotOnPublish,
		ComplianceCacheTTL: a.cfg.ComplianceCacheTTL,
	})
}

func (a *app) closeStore(storage *sqlite.Storage) {
	if err := storage.Close(); err != nil {
		a.logger.Error("failed to close storage", "error", err)
	}
}
