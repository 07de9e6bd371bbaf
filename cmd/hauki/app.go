package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/City-of-Helsinki/hauki-sub000/internal/application"
	"github.com/City-of-Helsinki/hauki-sub000/internal/cache"
	"github.com/City-of-Helsinki/hauki-sub000/internal/config"
	"github.com/City-of-Helsinki/hauki-sub000/internal/importer"
	"github.com/City-of-Helsinki/hauki-sub000/internal/logging"
	"github.com/City-of-Helsinki/hauki-sub000/internal/notify"
	"github.com/City-of-Helsinki/hauki-sub000/internal/persistence/sqlite"
)

// app holds what every command shares once opened.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	storage *sqlite.Storage

	denormalizer *application.Denormalizer
	resources    *application.ResourceService
	periods      *application.PeriodService
	openingHours *application.OpeningHoursService
	imports      *importer.Runner

	closers []func() error
}

// open loads configuration, migrates storage and wires the services. The
// caller must call close.
func (a *app) open(ctx context.Context, logOutput io.Writer) (err error) {
	a.cfg, err = config.Load()
	if err != nil {
		return err
	}
	a.logger = logging.New(a.cfg.LogLevel, logOutput)
	defer func() {
		if err != nil {
			_ = a.close()
		}
	}()

	a.storage, err = sqlite.Open(a.cfg.SQLiteConfig(), a.logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	a.closers = append(a.closers, a.storage.Close)
	if err := a.storage.Migrate(ctx); err != nil {
		return err
	}

	hoursCache, err := a.openCache(ctx)
	if err != nil {
		return err
	}
	notifier, err := a.openNotifier()
	if err != nil {
		return err
	}

	a.denormalizer = application.NewDenormalizer(a.storage, hoursCache, notifier, a.logger)
	a.resources = application.NewResourceService(a.storage, a.denormalizer, nil, nil, a.logger)
	a.periods = application.NewPeriodService(a.storage, a.denormalizer, nil, a.logger)
	a.openingHours = application.NewOpeningHoursService(a.storage, hoursCache, a.cfg.DefaultTimezone, nil, a.logger)
	a.imports = importer.NewRunner(a.storage, a.resources, a.periods, a.denormalizer, a.cfg.DefaultTimezone.String(), a.logger)
	return nil
}

func (a *app) openCache(ctx context.Context) (application.OpeningHoursCache, error) {
	if a.cfg.RedisURL != "" {
		opts, err := cache.RedisOptionsFromURL(a.cfg.RedisURL, a.cfg.CacheTTL)
		if err != nil {
			return nil, err
		}
		client, err := cache.NewRedisClient(ctx, opts)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		a.logger.Info("using redis cache", "addr", opts.Addr, "ttl", a.cfg.CacheTTL)
		return cache.NewRedis(client, opts), nil
	}
	if a.cfg.CacheSize == 0 {
		return nil, nil
	}
	return cache.NewMemory(a.cfg.CacheSize, a.cfg.CacheTTL), nil
}

func (a *app) openNotifier() (application.ChangeNotifier, error) {
	if a.cfg.AMQPURL == "" {
		return notify.Nop{}, nil
	}
	notifier, err := notify.DialAMQP(a.cfg.AMQPURL, a.cfg.AMQPExchange)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, notifier.Close)
	a.logger.Info("publishing change events", "exchange", a.cfg.AMQPExchange)
	return notifier, nil
}

// run wraps a command body so it runs against an opened app.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if err := a.open(cmd.Context(), cmd.ErrOrStderr()); err != nil {
			return err
		}
		defer func() {
			if cerr := a.close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		return fn(cmd, args)
	}
}

// close releases resources in reverse order of acquisition.
func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
