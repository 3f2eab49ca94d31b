package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	unicodetok "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/query"
	"github.com/hyperjump/shiori/internal/storage"
)

const (
	contentField = "content"
	stemField    = "stem"

	exactAnalyzer = "shiori_exact"
	stemAnalyzer  = "shiori_stem"

	// DefaultProposalCacheSize bounds the relaxed-query count cache.
	DefaultProposalCacheSize = 256
)

// docLayout is what the position classifier needs to know about a document.
type docLayout struct {
	ordinal  int
	titleEnd int
	headings []models.Span
}

// BleveEngine implements Engine on an in-memory bleve index. Document
// metadata lives in a storage.MetadataStore.
type BleveEngine struct {
	mu        sync.RWMutex
	index     bleve.Index
	mapping   *mapping.IndexMappingImpl
	layouts   map[string]docLayout
	store     storage.MetadataStore
	stemmer   Stemmer
	counts    *lru.Cache[string, int]
	cacheSize int
	logger    *zap.Logger
}

// Option configures a BleveEngine.
type Option func(*BleveEngine)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *BleveEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithProposalCacheSize sets how many relaxed-query counts are cached.
func WithProposalCacheSize(n int) Option {
	return func(e *BleveEngine) {
		e.cacheSize = n
	}
}

// NewBleveEngine returns an engine with no index loaded. A nil store defaults
// to storage.NewMemoryStore().
func NewBleveEngine(store storage.MetadataStore, opts ...Option) (*BleveEngine, error) {
	if store == nil {
		store = storage.NewMemoryStore()
	}
	e := &BleveEngine{
		store:     store,
		layouts:   make(map[string]docLayout),
		cacheSize: DefaultProposalCacheSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	counts, err := lru.New[string, int](e.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create proposal cache: %w", err)
	}
	e.counts = counts
	return e, nil
}

// SetStemmer implements Engine. An explicit stemmer overrides the one recorded
// in the artifact.
func (e *BleveEngine) SetStemmer(s Stemmer) {
	e.mu.Lock()
	e.stemmer = s
	e.mu.Unlock()
}

// Load implements Engine.
func (e *BleveEngine) Load(data []byte) error {
	start := time.Now()
	artifact, err := DecodeArtifact(data)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	stemmer := e.stemmer
	if stemmer == "" {
		stemmer = artifact.Stemmer
	}
	if stemmer == "" {
		stemmer = StemmerEnglish
	}
	if _, ok := stemFilters[stemmer]; !ok {
		return loadError(fmt.Sprintf("unknown stemmer %q", stemmer), nil)
	}

	im, err := newIndexMapping(stemmer.filterName())
	if err != nil {
		return loadError("build index mapping", err)
	}
	idx, err := bleve.NewMemOnly(im)
	if err != nil {
		return loadError("create index", err)
	}

	layouts := make(map[string]docLayout, len(artifact.Documents))
	batch := idx.NewBatch()
	for i, doc := range artifact.Documents {
		if err := batch.Index(doc.ID, map[string]interface{}{
			contentField: doc.Content,
			stemField:    doc.Content,
		}); err != nil {
			_ = idx.Close()
			return loadError(fmt.Sprintf("index document %s", doc.ID), err)
		}
		layouts[doc.ID] = docLayout{ordinal: i, titleEnd: titleEnd(doc), headings: doc.Headings}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return loadError("execute batch", err)
	}
	if err := e.store.Replace(context.Background(), artifact.Documents); err != nil {
		_ = idx.Close()
		return loadError("store documents", err)
	}

	if e.index != nil {
		_ = e.index.Close()
	}
	e.index = idx
	e.mapping = im
	e.layouts = layouts
	e.counts.Purge()

	e.logger.Info("Index loaded",
		zap.Int("documents", len(artifact.Documents)),
		zap.String("stemmer", string(stemmer)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// DocumentCount returns the number of documents in the loaded index.
func (e *BleveEngine) DocumentCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.layouts)
}

// Search implements Engine. Units come back in artifact order.
func (e *BleveEngine) Search(queries []query.Query) (*models.MatchSummary, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.index == nil {
		return nil, ErrNotLoaded
	}

	summary := &models.MatchSummary{Units: []models.SearchUnit{}}
	owners := make(map[fieldTerm]int)
	q := e.compile(queries, owners)
	if q != nil {
		req := bleve.NewSearchRequest(q)
		req.Size = len(e.layouts)
		req.IncludeLocations = true
		res, err := e.index.Search(req)
		if err != nil {
			return nil, fmt.Errorf("bleve search failed: %w", err)
		}
		for _, hit := range res.Hits {
			if unit, ok := e.unitFromHit(hit, owners); ok {
				summary.Units = append(summary.Units, unit)
			}
		}
		sort.SliceStable(summary.Units, func(i, j int) bool {
			return e.layouts[summary.Units[i].ID].ordinal < e.layouts[summary.Units[j].ID].ordinal
		})
	}

	if len(summary.Units) == 0 && len(queries) > 1 {
		summary.Proposals = e.propose(queries)
	}
	return summary, nil
}

// PrimaryMetadata implements Engine.
func (e *BleveEngine) PrimaryMetadata() Metadata {
	return &storeMetadata{store: e.store, logger: e.logger}
}

// IsStructurallyWeighted implements Engine: the title header and the heading
// spans recorded in the artifact carry weight.
func (e *BleveEngine) IsStructurallyWeighted(docID string, offset int) bool {
	e.mu.RLock()
	layout, ok := e.layouts[docID]
	e.mu.RUnlock()
	if !ok {
		return false
	}
	if offset >= 0 && offset < layout.titleEnd {
		return true
	}
	for _, h := range layout.headings {
		if h.Contains(offset) {
			return true
		}
	}
	return false
}

// Close releases the index.
func (e *BleveEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.index == nil {
		return nil
	}
	err := e.index.Close()
	e.index = nil
	return err
}

// titleEnd returns the end of the leading EOB+title+EOB header, or 0. The
// header counts only when the first occurrence of the title is at offset 1.
func titleEnd(doc *models.Document) int {
	if doc.Title == "" || strings.Index(doc.Content, doc.Title) != 1 {
		return 0
	}
	end := len(doc.Title) + 2
	if end > len(doc.Content) {
		end = len(doc.Content)
	}
	return end
}

func newIndexMapping(stemFilter string) (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()

	filters := []string{lowercase.Name}
	err := im.AddCustomAnalyzer(exactAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicodetok.Name,
		"token_filters": filters,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add exact analyzer: %w", err)
	}

	if stemFilter != "" {
		filters = []string{lowercase.Name, stemFilter}
	}
	err = im.AddCustomAnalyzer(stemAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicodetok.Name,
		"token_filters": filters,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add stem analyzer: %w", err)
	}

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt(contentField, textField(exactAnalyzer))
	docMapping.AddFieldMappingsAt(stemField, textField(stemAnalyzer))
	im.DefaultMapping = docMapping
	im.DefaultAnalyzer = exactAnalyzer
	return im, nil
}

func textField(analyzer string) *mapping.FieldMapping {
	fm := bleve.NewTextFieldMapping()
	fm.Analyzer = analyzer
	fm.Store = false
	fm.IncludeInAll = false
	fm.IncludeTermVectors = true
	return fm
}

// fieldTerm identifies an indexed term; it keys hit locations back to the
// query that asked for them.
type fieldTerm struct {
	field string
	term  string
}

// compile turns queries into one bleve query. Optional terms join the group of
// the term before them, groups are conjoined and excluded terms are negated.
// It returns nil when no term can match anything. owners, when non-nil,
// receives the query index of every positive term.
func (e *BleveEngine) compile(queries []query.Query, owners map[fieldTerm]int) blevequery.Query {
	var groups [][]blevequery.Query
	var excluded []blevequery.Query
	for i, q := range queries {
		if q.Excluded() {
			excluded = append(excluded, e.clause(q, i, nil))
			continue
		}
		clause := e.clause(q, i, owners)
		if q.Optional() && len(groups) > 0 {
			groups[len(groups)-1] = append(groups[len(groups)-1], clause)
			continue
		}
		groups = append(groups, []blevequery.Query{clause})
	}
	if len(groups) == 0 {
		return nil
	}

	bq := bleve.NewBooleanQuery()
	for _, g := range groups {
		if len(g) == 1 {
			bq.AddMust(g[0])
		} else {
			bq.AddMust(bleve.NewDisjunctionQuery(g...))
		}
	}
	if len(excluded) > 0 {
		bq.AddMustNot(excluded...)
	}
	return bq
}

// clause matches one term: the exact field always, the stem field unless the
// term was quoted.
func (e *BleveEngine) clause(q query.Query, idx int, owners map[fieldTerm]int) blevequery.Query {
	fields := []string{contentField}
	if !q.Exact() {
		fields = append(fields, stemField)
	}

	alternatives := make([]blevequery.Query, 0, len(fields))
	for _, field := range fields {
		terms := e.analyze(field, q.Word)
		if len(terms) == 0 {
			continue
		}
		for _, t := range terms {
			key := fieldTerm{field: field, term: t}
			if _, taken := owners[key]; owners != nil && !taken {
				owners[key] = idx
			}
		}
		alternatives = append(alternatives, fieldQuery(field, terms))
	}

	switch len(alternatives) {
	case 0:
		return bleve.NewMatchNoneQuery()
	case 1:
		return alternatives[0]
	default:
		return bleve.NewDisjunctionQuery(alternatives...)
	}
}

func fieldQuery(field string, terms []string) blevequery.Query {
	if len(terms) == 1 {
		tq := bleve.NewTermQuery(terms[0])
		tq.SetField(field)
		return tq
	}
	return bleve.NewPhraseQuery(terms, field)
}

func (e *BleveEngine) analyze(field, text string) []string {
	name := exactAnalyzer
	if field == stemField {
		name = stemAnalyzer
	}
	analyzer := e.mapping.AnalyzerNamed(name)
	if analyzer == nil {
		return nil
	}
	tokens := analyzer.Analyze([]byte(text))
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		terms = append(terms, string(tok.Term))
	}
	return terms
}

// unitFromHit converts hit locations into positions ordered by offset. A
// position is stemmed when only the stem field matched at that offset.
func (e *BleveEngine) unitFromHit(hit *search.DocumentMatch, owners map[fieldTerm]int) (models.SearchUnit, bool) {
	doc, err := e.store.GetDocument(context.Background(), hit.ID)
	if err != nil {
		e.logger.Warn("Matched document missing from metadata store", zap.String("id", hit.ID), zap.Error(err))
		return models.SearchUnit{}, false
	}

	byOffset := make(map[int]*models.Position)
	// content locations first so an exact match claims the offset
	for _, field := range []string{contentField, stemField} {
		for term, locations := range hit.Locations[field] {
			owner := owners[fieldTerm{field: field, term: term}]
			for _, loc := range locations {
				start, end := int(loc.Start), int(loc.End)
				if start < 0 || end > len(doc.Content) || start >= end {
					continue
				}
				if _, seen := byOffset[start]; seen {
					continue
				}
				byOffset[start] = &models.Position{
					Offset:     start,
					Word:       doc.Content[start:end],
					Stemmed:    field == stemField,
					QueryIndex: owner,
				}
			}
		}
	}
	if len(byOffset) == 0 {
		return models.SearchUnit{}, false
	}

	positions := make([]models.Position, 0, len(byOffset))
	for _, p := range byOffset {
		positions = append(positions, *p)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Offset < positions[j].Offset })
	return models.SearchUnit{ID: hit.ID, Positions: positions}, true
}

// propose counts, for every term, the documents matched when that term is
// dropped. Proposals are ordered by expected count, highest first.
func (e *BleveEngine) propose(queries []query.Query) []models.Proposal {
	proposals := make([]models.Proposal, 0, len(queries))
	for i := range queries {
		relaxed := make([]query.Query, 0, len(queries)-1)
		relaxed = append(relaxed, queries[:i]...)
		relaxed = append(relaxed, queries[i+1:]...)
		proposals = append(proposals, models.Proposal{Omit: i, Expect: e.count(relaxed)})
	}
	sort.SliceStable(proposals, func(i, j int) bool {
		return proposals[i].Expect > proposals[j].Expect
	})
	return proposals
}

func (e *BleveEngine) count(queries []query.Query) int {
	key := query.Join(queries)
	if n, ok := e.counts.Get(key); ok {
		return n
	}
	n := 0
	if q := e.compile(queries, nil); q != nil {
		req := bleve.NewSearchRequest(q)
		req.Size = 0
		res, err := e.index.Search(req)
		if err != nil {
			e.logger.Warn("Relaxed query count failed", zap.String("query", key), zap.Error(err))
			return 0
		}
		n = int(res.Total)
	}
	e.counts.Add(key, n)
	return n
}

var _ Engine = (*BleveEngine)(nil)
