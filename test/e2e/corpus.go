// Package e2e runs searches over a documentation-site corpus through the HTTP
// surface.
package e2e

import (
	"fmt"
	"strings"

	"github.com/hyperjump/shiori/internal/models"
)

// E2EDocument is one page of the corpus. Signature is a phrase that only this
// page is expected to be found by.
type E2EDocument struct {
	ID        string
	Title     string
	Signature string
	Content   string
}

// URL is the page address the document is published under.
func (d E2EDocument) URL() string {
	return "/docs/" + d.ID + ".html"
}

// QueryTestCase defines a query and the document ID(s) that must appear in search results.
// At least one of ExpectedDocIDs must be present on some page of the results.
type QueryTestCase struct {
	Query          string
	ExpectedDocIDs []string
	Description    string
}

// Corpus holds documents and query test cases for E2E tests.
type Corpus struct {
	Documents    []E2EDocument
	TestCases    []QueryTestCase
	TotalDocs    int
	TotalQueries int
}

// pages is the site content: title, signature phrase, body. The first sentence
// of each body becomes a heading.
var pages = [][3]string{
	{"Getting Started", "install the binary", "This page is the entry point. Download and install the binary for your platform, then run the init command."},
	{"Configuration File", "YAML configuration keys", "The configuration file is written in YAML. Every section lists its YAML configuration keys with their defaults."},
	{"Index Artifact", "base64 artifact envelope", "An index is shipped as one file. The base64 artifact envelope wraps a JSON list of documents."},
	{"Packing Documents", "pack command reads JSON", "Packing is how documents become an index. The pack command reads JSON from a file or standard input."},
	{"Search Syntax", "quoted phrases match exactly", "Query syntax is deliberately small. Terms are joined by AND and quoted phrases match exactly."},
	{"Excluding Terms", "minus prefix excludes", "Sometimes a term is unwanted. A minus prefix excludes every page containing that word."},
	{"Alternatives", "keyword joins a term", "Alternatives widen a query. The OR keyword joins a term to the one before it."},
	{"Ranking Rules", "weighted heading positions", "Ranking is positional. Matches in titles and weighted heading positions count ten times more."},
	{"Stemming", "stemmed forms score lower", "Stemming lets run match running. Exact spellings win because stemmed forms score lower."},
	{"Snippets", "excerpt window width", "A snippet is a short excerpt of the page. The excerpt window width defaults to two hundred and fifty bytes."},
	{"Highlighting", "Hit markup wraps matches", "Highlighting is applied after the excerpt is chosen. Hit markup wraps matches without splitting adjacent words."},
	{"Pagination", "ten entries per page", "Results are split into pages. The default is ten entries per page and the size is configurable."},
	{"Proposals", "drop one term suggestions", "A query without results is not a dead end. The page offers drop one term suggestions with their result counts."},
	{"Deferred Queries", "buffered until loaded", "A query sent early is not lost. It stays buffered until loaded and then runs once."},
	{"Superseded Queries", "newest buffered query wins", "Only one early query is kept. The newest buffered query wins and older callers are told so."},
	{"HTTP Server", "serve command listens", "The server is started with one command. The serve command listens on the configured host and port."},
	{"Search Endpoint", "POST search endpoint", "Searching over HTTP is a single call. The POST search endpoint accepts a query and a page number."},
	{"Index Endpoint", "upload a fresh index", "The index can be replaced while running. Clients upload a fresh index through the index endpoint."},
	{"Status Endpoint", "reports loading state", "Monitoring needs a cheap probe. The status endpoint reports loading state and document count."},
	{"Metrics", "Prometheus counters exported", "Operational data is available for scraping. Prometheus counters exported include searches and index loads."},
	{"Request Identifiers", "request id header", "Every search is traceable. Responses carry a request id header that also appears in the logs."},
	{"Watching the Index", "file watcher reloads", "The artifact on disk is observed. A file watcher reloads the index whenever its content changes."},
	{"Unchanged Files", "identical digest skips", "Rewrites are not always changes. An identical digest skips the reload entirely."},
	{"Metadata Storage", "SQLite metadata store", "Titles and bodies live in a store. The SQLite metadata store keeps them across restarts."},
	{"Memory Storage", "memory store default", "Small sites need no database. The memory store default is to hold everything in process."},
	{"Logging", "structured JSON logs", "Diagnostics go to standard error. Production mode writes structured JSON logs."},
	{"Debug Mode", "debug flag enables", "Verbose output is opt-in. The debug flag enables development logging with every search."},
	{"Output Styles", "console style colours", "Results can be rendered several ways. The console style colours hits when output is a terminal."},
	{"JSON Output", "machine readable output", "Scripts prefer structured data. The JSON format gives machine readable output for each page."},
	{"Container Deployment", "Kubernetes sidecar deployment", "Kubernetes sidecar deployment is a common setup. The index is mounted from a shared volume."},
	{"Reverse Proxy", "proxy strips prefix", "A proxy usually sits in front. Configure the proxy strips prefix rule before routing to the API."},
	{"Graceful Shutdown", "signals drain connections", "Stopping is orderly. Interrupt signals drain connections before the process exits."},
	{"Troubleshooting", "index not loaded error", "Most problems have a clear message. An index not loaded error means no artifact reached the server yet."},
	{"Language Support", "Snowball stemmers available", "Many languages are supported. Snowball stemmers available include French, German and Spanish."},
	{"Release Notes", "changelog per version", "Changes are recorded. The changelog per version lists fixes and new options."},
}

// BuildCorpus returns one document per site page and one query test case per
// signature phrase.
func BuildCorpus() *Corpus {
	docs := buildDocuments()
	cases := buildQueryTestCases(docs)
	return &Corpus{
		Documents:    docs,
		TestCases:    cases,
		TotalDocs:    len(docs),
		TotalQueries: len(cases),
	}
}

func buildDocuments() []E2EDocument {
	out := make([]E2EDocument, 0, len(pages))
	for i, p := range pages {
		out = append(out, E2EDocument{
			ID:        fmt.Sprintf("page-%02d", i+1),
			Title:     p[0],
			Signature: p[1],
			Content:   p[2],
		})
	}
	return out
}

func buildQueryTestCases(docs []E2EDocument) []QueryTestCase {
	cases := make([]QueryTestCase, 0, len(docs))
	for _, d := range docs {
		if !containsPhrase(d, d.Signature) {
			continue
		}
		cases = append(cases, QueryTestCase{
			Query:          d.Signature,
			ExpectedDocIDs: []string{d.ID},
			Description:    fmt.Sprintf("query %q should return doc %s", d.Signature, d.ID),
		})
	}
	return cases
}

func containsPhrase(d E2EDocument, phrase string) bool {
	return strings.Contains(d.Title, phrase) || strings.Contains(d.Content, phrase)
}

// ToDocuments converts the corpus into artifact documents. Content carries the
// title header and the first sentence is marked as a heading.
func (c *Corpus) ToDocuments() []*models.Document {
	out := make([]*models.Document, len(c.Documents))
	for i := range c.Documents {
		d := &c.Documents[i]
		header := models.EOB + d.Title + models.EOB
		doc := &models.Document{
			ID:      d.ID,
			Title:   d.Title,
			URL:     d.URL(),
			Content: header + d.Content,
		}
		if end := strings.Index(d.Content, ". "); end > 0 {
			doc.Headings = []models.Span{{Start: len(header), End: len(header) + end + 1}}
		}
		out[i] = doc
	}
	return out
}
