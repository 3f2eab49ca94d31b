// Package main is the shiori CLI entry point.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/engine"
	"github.com/hyperjump/shiori/internal/metrics"
	"github.com/hyperjump/shiori/internal/search"
	"github.com/hyperjump/shiori/internal/storage"
	"github.com/hyperjump/shiori/internal/style"
	"github.com/hyperjump/shiori/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/shiori/config.yaml"

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	debug      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "shiori",
		Short: "Ranked, paginated, highlighted search over a prebuilt index",
		Long: `shiori serves searches over a prebuilt index artifact: it ranks the
engine's matches, pages them, extracts highlighted snippets and proposes
relaxed queries when nothing matches.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.SetVersionTemplate("shiori version {{.Version}}\n")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "config file path")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newPackCmd())
	cmd.AddCommand(newInitCmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "shiori version %s\n", version)
		},
	}
}

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// loadConfigOrDefault is loadConfig for commands that can run without a
// config file: a missing default config yields the built-in defaults.
func loadConfigOrDefault(path string) (*config.Config, string, error) {
	cfg, resolved, err := loadConfig(path)
	if err == nil {
		return cfg, resolved, nil
	}
	if path == defaultConfigPath {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return config.Default(), "", nil
		}
	}
	return nil, "", err
}

// stack is the engine, metadata store and session built from a config.
type stack struct {
	store   storage.MetadataStore
	engine  *engine.BleveEngine
	session *search.Session
}

func (s *stack) Close() {
	if s.engine != nil {
		_ = s.engine.Close()
	}
	if s.store != nil {
		_ = s.store.Close()
	}
}

func buildStack(cfg *config.Config, renderer style.Renderer, m *metrics.Metrics, logger *zap.Logger) (*stack, error) {
	stemmer, err := engine.ParseStemmer(cfg.Index.Stemmer)
	if err != nil {
		return nil, err
	}

	st := &stack{}
	switch cfg.Storage.Metadata {
	case config.MetadataSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		db, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
		if err != nil {
			return nil, err
		}
		st.store = db
	default:
		st.store = storage.NewMemoryStore()
	}

	st.engine, err = engine.NewBleveEngine(st.store,
		engine.WithLogger(logger),
		engine.WithProposalCacheSize(cfg.Search.ProposalCacheSize),
	)
	if err != nil {
		st.Close()
		return nil, err
	}

	st.session, err = search.NewSession(st.engine,
		search.WithEntriesPerPage(cfg.Search.EntriesPerPage),
		search.WithStemmer(stemmer),
		search.WithRenderer(renderer),
		search.WithSnippetWidth(cfg.Search.SnippetWidth),
		search.WithLogger(logger),
		search.WithMetrics(m),
	)
	if err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func newLogger(cfg *config.Config, opts *globalOptions) (*zap.Logger, error) {
	logger, err := utils.NewLogger(cfg.Debug || opts.debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger, nil
}
