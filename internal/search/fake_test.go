package search

import (
	"strings"

	"github.com/hyperjump/shiori/internal/engine"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/query"
)

// bracketRenderer renders hits as [x] and deletions as ~x~ so expectations
// stay readable.
type bracketRenderer struct{}

func (bracketRenderer) Convert(template string) string {
	return strings.NewReplacer("<hit>", "[", "</hit>", "]", "<del>", "~", "</del>", "~").Replace(template)
}

func (bracketRenderer) LineBreak() string { return "|" }

func (bracketRenderer) Separator() string { return "_" }

type fakeDoc struct {
	title, url, content string
}

type fakeMetadata map[string]fakeDoc

func (m fakeMetadata) GetInformation(id string) string {
	d, ok := m[id]
	if !ok {
		return ""
	}
	return d.title + models.EOB + d.url
}

func (m fakeMetadata) GetContent(id string) string {
	return m[id].content
}

// fakeEngine answers searches from a table keyed by the canonical query string.
type fakeEngine struct {
	docs      fakeMetadata
	summaries map[string]*models.MatchSummary
	weighted  map[string]int // offsets below the value are weighted
	loadErr   error
	searchErr error

	stemmer  engine.Stemmer
	loaded   [][]byte
	searched []string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		docs:      fakeMetadata{},
		summaries: map[string]*models.MatchSummary{},
		weighted:  map[string]int{},
	}
}

func (f *fakeEngine) SetStemmer(s engine.Stemmer) { f.stemmer = s }

func (f *fakeEngine) Load(data []byte) error {
	if f.loadErr != nil {
		return f.loadErr
	}
	f.loaded = append(f.loaded, data)
	return nil
}

func (f *fakeEngine) Search(queries []query.Query) (*models.MatchSummary, error) {
	key := query.Join(queries)
	f.searched = append(f.searched, key)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if s, ok := f.summaries[key]; ok {
		return s, nil
	}
	return &models.MatchSummary{}, nil
}

func (f *fakeEngine) PrimaryMetadata() engine.Metadata { return f.docs }

func (f *fakeEngine) IsStructurallyWeighted(id string, offset int) bool {
	return offset < f.weighted[id]
}

func (f *fakeEngine) DocumentCount() int { return len(f.docs) }

func hitUnit(id string, offsets ...int) models.SearchUnit {
	u := models.SearchUnit{ID: id}
	for _, o := range offsets {
		u.Positions = append(u.Positions, models.Position{Offset: o, Word: "w"})
	}
	return u
}
