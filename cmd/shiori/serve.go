package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/metrics"
	"github.com/hyperjump/shiori/internal/server"
	"github.com/hyperjump/shiori/internal/style"
	"github.com/hyperjump/shiori/internal/watcher"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the search HTTP API",
		Long: `Start the HTTP API. The index artifact at index.path is loaded at startup
and reloaded when it changes. Searches that arrive before the first load wait
for it; only the latest waiting search is answered.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, resolved, err := loadConfigOrDefault(opts.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger, err := newLogger(cfg, opts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			logger.Info("config loaded",
				zap.String("config_path", resolved),
				zap.String("index_path", cfg.Index.Path),
				zap.Bool("debug", cfg.Debug || opts.debug),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, logger)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	mode, err := style.ParseMode(cfg.Search.Style)
	if err != nil {
		return err
	}
	m := metrics.New(nil)
	st, err := buildStack(cfg, style.New(mode), m, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	defer st.Close()

	srv := server.NewServer(st.session, st.store, &cfg.Server, m, logger)

	w := watcher.NewWatcher(cfg.Index.Path, srv.LoadIndex,
		watcher.WithLogger(logger),
		watcher.WithDebounce(cfg.Index.Debounce),
	)
	if loaded, err := w.Sync(); err != nil {
		logger.Warn("Initial index load failed", zap.String("path", cfg.Index.Path), zap.Error(err))
	} else if !loaded {
		logger.Info("No index yet, searches wait for the first load", zap.String("path", cfg.Index.Path))
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Index.WatchOrDefault() {
		if err := w.Start(gctx); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		defer w.Stop()
	}

	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})
	return g.Wait()
}
