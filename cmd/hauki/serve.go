package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	httptransport "github.com/City-of-Helsinki/hauki-sub000/internal/http"
	"github.com/City-of-Helsinki/hauki-sub000/internal/importer"
	"github.com/City-of-Helsinki/hauki-sub000/internal/scheduler"
)

// importDirSource names the importer fed from HAUKI_IMPORT_DIR.
const importDirSource = "import-dir"

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run scheduled jobs",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			jobs, err := a.scheduler()
			if err != nil {
				return err
			}
			jobs.Start(ctx)
			defer jobs.Stop()

			server := &http.Server{
				Addr:              fmt.Sprintf(":%d", a.cfg.HTTPPort),
				Handler:           a.router(),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			return a.serve(ctx, server)
		}),
	}
}

// scheduler registers the configured jobs. Jobs without a spec stay off.
func (a *app) scheduler() (*scheduler.Runner, error) {
	runner := scheduler.New(a.logger)

	registry := importer.NewRegistry()
	if a.cfg.ImportDir != "" {
		if err := registry.Register(importer.NewDirSource(importDirSource, a.cfg.ImportDir)); err != nil {
			return nil, err
		}
	}
	for _, job := range []scheduler.Job{
		scheduler.ImportJob(a.cfg.ImportCron, a.imports, registry),
		scheduler.RecomputeJob(a.cfg.RecomputeCron, a.denormalizer),
	} {
		if err := runner.Add(job); err != nil {
			return nil, err
		}
	}
	return runner, nil
}

func (a *app) router() http.Handler {
	return httptransport.NewRouter(httptransport.RouterConfig{
		OpeningHours: httptransport.NewOpeningHoursHandler(a.openingHours, a.logger),
		DatePeriods:  httptransport.NewDatePeriodHandler(a.periods, a.logger),
		Health:       a.storage.Ping,
		Logger:       a.logger,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(a.logger),
			httptransport.CORS(a.cfg.CORSOrigins),
			httptransport.RateLimit(a.cfg.RateLimit),
		},
	})
}

// serve runs server until ctx is cancelled, then shuts it down gracefully.
func (a *app) serve(ctx context.Context, server *http.Server) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("failed to shutdown server", "error", err)
		}
	}()

	a.logger.Info("hauki API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error("server encountered error", "error", err)
		return err
	}
	return nil
}
