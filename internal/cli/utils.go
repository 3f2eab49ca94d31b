// Package cli renders search responses for the command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hyperjump/shiori/internal/models"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (SearchOutputFormat, error) {
	switch f := SearchOutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	if response.Total == 0 {
		fmt.Fprintf(w, "\nNo results for %q (%dms)\n", response.Query, response.QueryTime)
		writeProposals(w, response.Proposals)
		return
	}
	fmt.Fprintf(w, "\nFound %d results in %dms (page %d of %d)\n\n",
		response.Total, response.QueryTime, response.Page, response.TotalPages)
	if len(response.Results) == 0 {
		fmt.Fprintf(w, "Page %d is out of range\n", response.Page)
		return
	}
	for i, result := range response.Results {
		writeOneResult(w, i+1, result)
	}
	var nav []string
	if response.HasPrev {
		nav = append(nav, fmt.Sprintf("--page %d for previous", response.Page-1))
	}
	if response.HasNext {
		nav = append(nav, fmt.Sprintf("--page %d for next", response.Page+1))
	}
	if len(nav) > 0 {
		fmt.Fprintf(w, "(%s)\n", strings.Join(nav, ", "))
	}
}

func writeOneResult(w io.Writer, n int, result *models.Result) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "%d. %s | Score: %d\n", n, result.Title, result.Score)
	if result.URL != "" {
		fmt.Fprintf(w, "%s\n", result.URL)
	}
	fmt.Fprintf(w, "\n%s\n", result.Snippet)
	fmt.Fprintln(w)
}

func writeProposals(w io.Writer, proposals []*models.ProposalOption) {
	if len(proposals) == 0 {
		return
	}
	fmt.Fprintln(w, "\nTry dropping a term:")
	for _, p := range proposals {
		fmt.Fprintf(w, "  %s (%d)\n", p.Label, p.Count)
	}
}

// PrintSearchResults prints search results to stdout in text format.
func PrintSearchResults(response *models.SearchResponse) {
	_ = WriteSearchResults(os.Stdout, response, OutputText)
}
