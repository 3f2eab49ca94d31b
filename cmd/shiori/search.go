package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/cli"
	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/style"
)

type searchOptions struct {
	index  string
	page   int
	output string
	style  string
}

func newSearchCmd(opts *globalOptions) *cobra.Command {
	var so searchOptions
	cmd := &cobra.Command{
		Use:   "search [flags] <query>",
		Short: "Search an index artifact once and print a page of results",
		Long: `Load the index artifact and run one search against it.

Query is all remaining arguments joined by spaces. Terms are combined with AND;
"OR" joins a term to the previous one, a leading "-" excludes a term and quotes
match a term exactly.

Examples:
  shiori search run tests
  shiori search --page 2 "exact phrase"
  shiori search run OR walk -slow
  shiori search --output json --index ./public/search/index.okt run`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfigOrDefault(opts.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger, err := newLogger(cfg, opts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return runSearch(cmd.OutOrStdout(), cfg, logger, buildSearchQuery(args), so)
		},
	}
	cmd.Flags().StringVar(&so.index, "index", "", "index artifact path (default: index.path from config)")
	cmd.Flags().IntVar(&so.page, "page", 1, "result page to show")
	cmd.Flags().StringVar(&so.output, "output", "text", "output format: text or json")
	cmd.Flags().StringVar(&so.style, "style", "auto", "highlight style: auto, html, console or plain")
	return cmd
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// resolveStyle maps the --style flag onto a mode. auto picks console output
// for a terminal and plain text otherwise; JSON output is never styled for a
// terminal.
func resolveStyle(flag string, format cli.SearchOutputFormat, terminal bool) (style.Mode, error) {
	if strings.ToLower(strings.TrimSpace(flag)) != "auto" {
		return style.ParseMode(flag)
	}
	if terminal && format == cli.OutputText {
		return style.ModeConsole, nil
	}
	return style.ModePlain, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func runSearch(out io.Writer, cfg *config.Config, logger *zap.Logger, query string, so searchOptions) error {
	format, err := cli.ParseOutputFormat(so.output)
	if err != nil {
		return err
	}
	mode, err := resolveStyle(so.style, format, isTerminal(out))
	if err != nil {
		return err
	}
	if so.page < 1 {
		return fmt.Errorf("page must be at least 1: %d", so.page)
	}
	path := so.index
	if path == "" {
		path = cfg.Index.Path
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}

	st, err := buildStack(cfg, style.New(mode), nil, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	defer st.Close()

	if err := st.session.LoadIndexBase64(string(data)); err != nil {
		return err
	}

	start := time.Now()
	var response *models.SearchResponse
	err = st.session.Search(query, func(_, _ int) {
		st.session.SetCurrentPage(so.page)
		response = st.session.Snapshot(query)
		response.QueryTime = time.Since(start).Milliseconds()
	})
	if err != nil {
		return err
	}
	if response == nil {
		return fmt.Errorf("search did not complete")
	}
	return cli.WriteSearchResults(out, response, format)
}
