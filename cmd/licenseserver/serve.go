package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/jathurchan/seatlicense/config"
	"github.com/jathurchan/seatlicense/logger"
	"github.com/jathurchan/seatlicense/monitor"
	"github.com/jathurchan/seatlicense/server"
	"github.com/jathurchan/seatlicense/store"
)

const stopTimeout = 15 * time.Second

func serve(c *cli.Context) error {
	cfg, err := config.LoadServer(c.String("config"), c.String("env-file"))
	if err != nil {
		return err
	}

	log, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	if cfg.CreatedFile() {
		log.Infow("Wrote default config", "path", cfg.Path())
	}
	if cfg.UnresolvedIP() {
		log.Errorw("Bind address is still the placeholder, listening on all interfaces; set IpAddress in the config",
			"path", cfg.Path())
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, cfg, log)
}

// run serves until ctx is cancelled or one component fails.
func run(ctx context.Context, cfg *config.ServerConfig, log logger.Logger) error {
	persister, err := openPersister(cfg)
	if err != nil {
		return err
	}
	st, err := store.Open(ctx, persister, log)
	if err != nil {
		_ = persister.Close()
		return err
	}
	defer st.Close()

	metrics := server.NewPrometheusMetrics()
	srv, err := server.NewBuilder().
		WithStore(st).
		WithListenAddress(cfg.ListenAddress()).
		WithVersion(cfg.Version).
		WithLimits(0, cfg.MaxConnections).
		WithRateLimit(cfg.RateLimit > 0, cfg.RateLimit, max(cfg.RateLimitBurst, cfg.RateLimit), time.Second).
		WithLogger(log).
		WithMetrics(metrics).
		Build()
	if err != nil {
		return err
	}
	if err := srv.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		return srv.Stop(stopCtx)
	})

	if cfg.MonitorAddress != "" {
		mon := monitor.New(srv, monitor.Options{
			Gatherer: metrics.Registry,
			Reloader: st,
			Logger:   log,
		})
		g.Go(func() error {
			if err := mon.ListenAndServe(gctx, cfg.MonitorAddress); err != nil {
				return fmt.Errorf("monitor: %w", err)
			}
			return nil
		})
	}

	if cfg.HealthAddress != "" {
		hs := monitor.NewHealthServer(srv, 0, log)
		g.Go(func() error {
			if err := hs.ListenAndServe(gctx, cfg.HealthAddress); err != nil {
				return fmt.Errorf("health: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		reloadOnHangup(gctx, st, log)
		return nil
	})

	return g.Wait()
}

// reloadOnHangup re-reads the license store on every SIGHUP. A failed reload
// keeps the licenses already in memory.
func reloadOnHangup(ctx context.Context, st *store.Store, log logger.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := st.Reload(ctx); err != nil {
				log.Errorw("Reload failed, keeping current licenses", "error", err)
				continue
			}
			summary := st.Summary()
			log.Infow("Licenses reloaded", "licenses", summary.Licenses, "redeemedSeats", summary.RedeemedSeats)
		}
	}
}

func openPersister(cfg *config.ServerConfig) (store.Persister, error) {
	switch cfg.StoreBackend {
	case config.BackendBbolt:
		return store.OpenBoltPersister(cfg.LicenseFilePath)
	default:
		return store.NewJSONFilePersister(cfg.LicenseFilePath), nil
	}
}

// newLogger builds the logrus logger and, with LogFile set, appends every
// line to that file as well.
func newLogger(cfg *config.ServerConfig) (logger.Logger, func(), error) {
	var out io.Writer = os.Stdout
	closeFn := func() {}

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, f)
		closeFn = func() { _ = f.Close() }
	}

	log := logger.NewLogrusLogger(logger.LogrusOptions{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: out,
	})
	return log.WithComponent("licenseserver"), closeFn, nil
}

// importLicenses copies the licenses of a JSON file into a bbolt database
// after checking them the way the server does on load.
func importLicenses(ctx context.Context, from, to string) (int, error) {
	if _, err := os.Stat(from); err != nil {
		return 0, fmt.Errorf("import source: %w", err)
	}
	src, err := store.Open(ctx, store.NewJSONFilePersister(from), logger.NewNoOpLogger())
	if err != nil {
		return 0, err
	}
	defer src.Close()

	dst, err := store.OpenBoltPersister(to)
	if err != nil {
		return 0, err
	}
	defer dst.Close()

	entries := src.Entries()
	if err := dst.Save(entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}
