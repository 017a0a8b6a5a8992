package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/shift-roster/internal/auth"
	"github.com/example/shift-roster/internal/config"
	httptransport "github.com/example/shift-roster/internal/http"
	"github.com/example/shift-roster/internal/metrics"
	"github.com/example/shift-roster/internal/notify"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the roster HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

// server bundles the HTTP server with the resources it must release.
type server struct {
	http    *http.Server
	cleanup func()
}

func (a *app) buildServer(ctx context.Context) (*server, error) {
	if err := a.cfg.RequireWriteToken(); err != nil {
		return nil, err
	}
	verifier, err := auth.NewVerifier(a.cfg.WriteTokenHash)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.EnvName("write_token_hash"), err)
	}

	storage, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	var publisher notify.Publisher = notify.Noop{}
	client, err := a.dialNotify(ctx, m)
	if err != nil {
		a.closeStore(storage)
		return nil, err
	}
	if client != nil {
		publisher = client
	}

	svc := a.newService(storage, publisher, m)
	router := httptransport.NewRouter(httptransport.RouterConfig{
		Roster:  httptransport.NewRosterHandler(svc, a.cfg.BaseTZ, a.logger),
		Metrics: m.Handler(),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(a.logger),
			httptransport.Instrument(m),
			httptransport.RequireWriteToken(verifier, a.logger),
		},
	})

	return &server{
		http: &http.Server{
			Addr:              fmt.Sprintf(":%d", a.cfg.HTTPPort),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		cleanup: func() {
			if client != nil {
				if err := client.Close(); err != nil {
					a.logger.Error("failed to close redis client", "error", err)
				}
			}
			a.closeStore(storage)
		},
	}, nil
}

func (a *app) serve(ctx context.Context) error {
	srv, err := a.buildServer(ctx)
	if err != nil {
		return err
	}
	defer srv.cleanup()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.http.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("failed to shutdown server", "error", err)
		}
	}()

	a.logger.Info("roster API listening",
		"addr", srv.http.Addr,
		"base_tz", a.cfg.BaseTZ,
		"notify", a.cfg.RedisEnabled())
	if err := srv.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server encountered error: %w", err)
	}
	return nil
}
