package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/hyperjump/shiori/internal/models"
)

func sampleResponse() *models.SearchResponse {
	return &models.SearchResponse{
		Query:      "run",
		State:      "ready",
		QueryTime:  42,
		Total:      12,
		TotalPages: 2,
		Page:       1,
		HasNext:    true,
		Results: []*models.Result{
			{Title: "Guide", URL: "/guide.html", Snippet: "run the suite ...", Score: 13},
			{Title: "Intro", URL: "/intro.html", Snippet: "nothing to run ...", Score: 3},
		},
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	response := sampleResponse()
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.NewDecoder(strings.NewReader(buf.String())).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Query != response.Query || decoded.QueryTime != response.QueryTime {
		t.Errorf("decoded query=%q query_time=%d, want query=%q query_time=%d",
			decoded.Query, decoded.QueryTime, response.Query, response.QueryTime)
	}
	if len(decoded.Results) != 2 || decoded.Results[0].Title != "Guide" {
		t.Errorf("decoded results: %+v", decoded.Results)
	}
	if !decoded.HasNext || decoded.TotalPages != 2 {
		t.Errorf("decoded paging: has_next=%v total_pages=%d", decoded.HasNext, decoded.TotalPages)
	}
}

func TestWriteSearchResults_JSON_proposals(t *testing.T) {
	response := &models.SearchResponse{
		Query:     "run zebra",
		Results:   []*models.Result{},
		Proposals: []*models.ProposalOption{{Options: "run", Label: "run ~zebra~", Count: 2}},
	}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputJSON); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, `"results": []`) {
		t.Errorf("empty results should encode as []: %s", out)
	}
	if !strings.Contains(out, `"options": "run"`) {
		t.Errorf("expected proposal options in output: %s", out)
	}
}

func TestWriteSearchResults_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Found 12 results in 42ms (page 1 of 2)",
		"1. Guide | Score: 13",
		"/guide.html",
		"run the suite ...",
		"2. Intro | Score: 3",
		"--page 2 for next",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output should contain %q; got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "previous") {
		t.Errorf("first page should not offer a previous page:\n%s", out)
	}
}

func TestWriteSearchResults_textOutOfRangePage(t *testing.T) {
	response := sampleResponse()
	response.Page = 5
	response.Results = nil
	var buf bytes.Buffer
	_ = WriteSearchResults(&buf, response, OutputText)
	if !strings.Contains(buf.String(), "Page 5 is out of range") {
		t.Errorf("got %q", buf.String())
	}
}

func TestWriteSearchResults_textProposals(t *testing.T) {
	response := &models.SearchResponse{
		Query: "run zebra",
		Proposals: []*models.ProposalOption{
			{Options: "run", Label: "run ~zebra~", Count: 2},
			{Options: "zebra", Label: "~run~ zebra", Count: 0},
		},
	}
	var buf bytes.Buffer
	_ = WriteSearchResults(&buf, response, OutputText)
	out := buf.String()
	if !strings.Contains(out, `No results for "run zebra"`) {
		t.Errorf("missing zero-result line:\n%s", out)
	}
	if !strings.Contains(out, "  run ~zebra~ (2)") || !strings.Contains(out, "  ~run~ zebra (0)") {
		t.Errorf("missing proposals:\n%s", out)
	}
}

func TestWriteSearchResults_unknownFormatTreatedAsText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), SearchOutputFormat("xml")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Found 12 results") {
		t.Errorf("unknown format should fall back to text; got %q", buf.String())
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    SearchOutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOutputFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrintSearchResults(t *testing.T) {
	response := &models.SearchResponse{Query: "print test", QueryTime: 1}
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	defer func() {
		os.Stdout = oldStdout
		_ = w.Close()
	}()
	PrintSearchResults(response)
	_ = w.Close()
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	if !strings.Contains(buf.String(), `No results for "print test"`) {
		t.Errorf("PrintSearchResults should write to stdout; got %q", buf.String())
	}
}
