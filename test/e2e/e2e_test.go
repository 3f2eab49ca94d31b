package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/engine"
	"github.com/hyperjump/shiori/internal/metrics"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/search"
	"github.com/hyperjump/shiori/internal/server"
	"github.com/hyperjump/shiori/internal/storage"
	"github.com/hyperjump/shiori/pkg/utils"
)

const e2eMaxPages = 20

func startServer(t *testing.T, corpus *Corpus) *httptest.Server {
	t.Helper()
	store := storage.NewMemoryStore()
	eng, err := engine.NewBleveEngine(store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	session, err := search.NewSession(eng)
	require.NoError(t, err)
	srv := server.NewServer(session, store, &config.ServerConfig{SearchTimeout: 5 * time.Second},
		metrics.New(prometheus.NewRegistry()), zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	raw, err := engine.EncodeArtifact(engine.StemmerEnglish, corpus.ToDocuments())
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/api/v1/index", "text/plain", bytes.NewReader(utils.EncodeIndex(raw)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return ts
}

func searchPage(t *testing.T, baseURL, query string, page int) *models.SearchResponse {
	t.Helper()
	body, err := json.Marshal(models.SearchRequest{Query: query, Page: page})
	require.NoError(t, err)
	resp, err := http.Post(baseURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out models.SearchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return &out
}

// collectURLs pages through every result of query.
func collectURLs(t *testing.T, baseURL, query string) []string {
	t.Helper()
	var urls []string
	for page := 1; page <= e2eMaxPages; page++ {
		resp := searchPage(t, baseURL, query, page)
		for _, r := range resp.Results {
			urls = append(urls, r.URL)
		}
		if !resp.HasNext {
			break
		}
	}
	return urls
}

func TestE2E_SearchReturnsCorrectResults(t *testing.T) {
	corpus := BuildCorpus()
	if corpus.TotalDocs == 0 {
		t.Fatal("corpus has no documents")
	}
	if corpus.TotalQueries == 0 {
		t.Fatal("corpus has no query test cases")
	}
	ts := startServer(t, corpus)
	t.Logf("indexed %d documents; running %d query test cases", corpus.TotalDocs, corpus.TotalQueries)

	for _, tc := range corpus.TestCases {
		t.Run(tc.Description, func(t *testing.T) {
			urls := collectURLs(t, ts.URL, tc.Query)
			expected := make([]string, len(tc.ExpectedDocIDs))
			for i, id := range tc.ExpectedDocIDs {
				expected[i] = E2EDocument{ID: id}.URL()
			}
			if !containsAny(urls, expected) {
				t.Errorf("query %q: expected at least one of %v in results, got %d results (urls: %v)",
					tc.Query, expected, len(urls), urls)
			}
		})
	}
}

func TestE2E_PagesCoverEveryResultOnce(t *testing.T) {
	corpus := BuildCorpus()
	ts := startServer(t, corpus)

	first := searchPage(t, ts.URL, "is", 1)
	if first.Total <= 10 {
		t.Fatalf("expected more than one page of results, got %d", first.Total)
	}
	urls := collectURLs(t, ts.URL, "is")
	if len(urls) != first.Total {
		t.Errorf("paged through %d results, total is %d", len(urls), first.Total)
	}
	seen := make(map[string]bool)
	for _, u := range urls {
		if seen[u] {
			t.Errorf("result %s appears on more than one page", u)
		}
		seen[u] = true
	}
}

func TestE2E_ZeroResultsPropose(t *testing.T) {
	corpus := BuildCorpus()
	ts := startServer(t, corpus)

	resp := searchPage(t, ts.URL, "Kubernetes xylophone", 1)
	if resp.Total != 0 {
		t.Fatalf("expected no results, got %d", resp.Total)
	}
	if len(resp.Proposals) == 0 {
		t.Fatal("expected proposals for a two-term zero-result query")
	}
	best := resp.Proposals[0]
	if best.Options != "Kubernetes" || best.Count < 1 {
		t.Errorf("best proposal = %+v, want options Kubernetes with a positive count", best)
	}

	// searching the proposal again finds the documents it promised
	relaxed := searchPage(t, ts.URL, best.Options, 1)
	if relaxed.Total != best.Count {
		t.Errorf("proposal promised %d results, search returned %d", best.Count, relaxed.Total)
	}
}

func TestE2E_HeadingMatchesRankFirst(t *testing.T) {
	corpus := BuildCorpus()
	ts := startServer(t, corpus)

	// "Kubernetes" appears in the heading sentence of one document only
	resp := searchPage(t, ts.URL, "Kubernetes", 1)
	if len(resp.Results) == 0 {
		t.Fatal("expected results")
	}
	want := fmt.Sprintf("/docs/%s.html", findByTitle(t, corpus, "Kubernetes Docs").ID)
	if resp.Results[0].URL != want {
		t.Errorf("first result = %s, want %s", resp.Results[0].URL, want)
	}
}

func findByTitle(t *testing.T, c *Corpus, title string) E2EDocument {
	t.Helper()
	for _, d := range c.Documents {
		if d.Title == title {
			return d
		}
	}
	t.Fatalf("no document titled %q", title)
	return E2EDocument{}
}

func containsAny(got []string, expected []string) bool {
	set := make(map[string]bool)
	for _, id := range got {
		set[id] = true
	}
	for _, id := range expected {
		if set[id] {
			return true
		}
	}
	return false
}
