package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/shift-roster/internal/application"
	"github.com/example/shift-roster/internal/auth"
	"github.com/example/shift-roster/internal/compliance"
	"github.com/example/shift-roster/internal/liveview"
	"github.com/example/shift-roster/internal/metrics"
	"github.com/example/shift-roster/internal/persistence"
	"github.com/example/shift-roster/internal/persistence/sqlite"
)

// errHardIssues makes check exit non-zero when a hard rule is violated.
var errHardIssues = errors.New("hard compliance issues found")

func newMigrateCommand(a *app) *cobra.Command {
	var statusOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			storage, err := sqlite.Open(ctx, a.cfg.SQLite(), nil)
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer a.closeStore(storage)

			if !statusOnly {
				applied, err := storage.Migrate(ctx, a.logger)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "applied %d migration(s)\n", applied)
				return nil
			}

			status, err := storage.MigrationStatus(ctx, a.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "current version: %s\n", orNone(status.CurrentVersion))
			for _, m := range status.AppliedMigrations {
				fmt.Fprintf(a.stdout, "applied  %s  %s\n", m.Version, m.AppliedAt.Format("2006-01-02 15:04:05"))
			}
			for _, m := range status.PendingMigrations {
				fmt.Fprintf(a.stdout, "pending  %s  %s\n", m.Version, m.Description)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "Only report applied and pending migrations")
	return cmd
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

// weekFlags are shared by the commands that address one stored week.
type weekFlags struct {
	week string
	tz   string
}

func (f *weekFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.week, "week", "", "Week start date (YYYY-MM-DD, a Sunday)")
	cmd.Flags().StringVar(&f.tz, "tz", "", "Timezone id (defaults to the configured base timezone)")
	_ = cmd.MarkFlagRequired("week")
}

func (f *weekFlags) key(a *app) persistence.Key {
	tz := strings.TrimSpace(f.tz)
	if tz == "" {
		tz = a.cfg.BaseTZ
	}
	return persistence.Key{WeekStart: strings.TrimSpace(f.week), TZID: tz}
}

func newCheckCommand(a *app) *cobra.Command {
	var (
		wf         weekFlags
		kind       string
		failOnHard bool
		opts       application.ComplianceOptions
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate labor compliance for a stored week and print the issues as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			storage, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer a.closeStore(storage)

			report, err := a.newService(storage, nil, nil).Compliance(ctx, wf.key(a), persistence.Kind(kind), opts)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(a.stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if failOnHard && report.Hard > 0 {
				return fmt.Errorf("%w: %d hard, %d soft", errHardIssues, report.Hard, report.Soft)
			}
			return nil
		},
	}
	wf.register(cmd)
	cmd.Flags().StringVar(&kind, "kind", string(persistence.KindStage), "Document kind: stage or live")
	cmd.Flags().BoolVar(&opts.SuppressMealBreaks, "suppress-meal-breaks", false, "Skip the meal period rules")
	cmd.Flags().BoolVar(&failOnHard, "fail-on-hard", true, "Exit non-zero when any "+string(compliance.SeverityHard)+" issue is found")
	return cmd
}

func newWatchCommand(a *app) *cobra.Command {
	var wf weekFlags
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a week's live copy, printing a line per change",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			storage, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer a.closeStore(storage)

			m := metrics.New()
			opts := liveview.Options{
				PollInterval: a.cfg.PollInterval,
				Logger:       a.logger,
				Metrics:      m,
				OnChange: func(v liveview.View) {
					_ = json.NewEncoder(a.stdout).Encode(newWatchLine(v))
				},
			}

			client, err := a.dialNotify(ctx, m)
			if err != nil {
				return err
			}
			if client != nil {
				defer client.Close()
				sub, err := client.Subscribe(ctx)
				if err != nil {
					return err
				}
				defer sub.Close()
				opts.Events = sub.Events()
			}

			watcher := liveview.NewWatcher(a.newService(storage, nil, m), wf.key(a), opts)
			return watcher.Run(ctx)
		},
	}
	wf.register(cmd)
	return cmd
}

type watchLine struct {
	LiveUpdatedAt  string `json:"liveUpdatedAt,omitempty"`
	LiveRevision   int64  `json:"liveRevision,omitempty"`
	StageUpdatedAt string `json:"stageUpdatedAt,omitempty"`
	Shifts         int    `json:"liveShifts"`
	Behind         bool   `json:"stageBehind"`
}

func newWatchLine(v liveview.View) watchLine {
	line := watchLine{Behind: v.Behind}
	if v.Live != nil {
		line.LiveUpdatedAt = v.Live.UpdatedAt
		line.LiveRevision = v.Live.Revision
		line.Shifts = len(v.Live.Shifts)
	}
	if v.Stage != nil {
		line.StageUpdatedAt = v.Stage.UpdatedAt
	}
	return line
}

func newHashTokenCommand(a *app) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "hash-token",
		Short: "Hash a write token for SCHEDULER_WRITE_TOKEN_HASH, generating one when --token is empty",
		// Hashing needs no configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			generated := false
			if token == "" {
				var err error
				if token, err = auth.GenerateToken(); err != nil {
					return err
				}
				generated = true
			}
			hash, err := auth.HashToken(token, auth.DefaultArgon2idParams)
			if err != nil {
				return err
			}
			if generated {
				fmt.Fprintf(a.stdout, "token: %s\n", token)
			}
			fmt.Fprintf(a.stdout, "hash:  %s\n", hash)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Token to hash")
	return cmd
}
