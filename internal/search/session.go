// Package search presents engine matches: it ranks and pages them, extracts
// highlighted snippets, formats relaxation proposals and defers searches until
// an index is loaded.
package search

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/engine"
	"github.com/hyperjump/shiori/internal/metrics"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/query"
	"github.com/hyperjump/shiori/internal/ranking"
	"github.com/hyperjump/shiori/internal/style"
	"github.com/hyperjump/shiori/pkg/utils"
)

// DefaultEntriesPerPage is the page size used when none is configured.
const DefaultEntriesPerPage = 10

// ErrInvalidPageSize is returned by NewSession for a page size below one.
var ErrInvalidPageSize = errors.New("entries per page must be positive")

// State is the lifecycle stage of a Session.
type State int

const (
	// StateEmpty: no index and nothing buffered.
	StateEmpty State = iota
	// StateLoading: no index yet, one search buffered.
	StateLoading
	// StateReady: an index is loaded and searches run immediately.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Callback receives the result count and page count of a finished search.
type Callback func(resultSize, totalPages int)

// pendingSearch is the one search held while the index is loading.
type pendingSearch struct {
	query    string
	callback Callback
}

// Session runs searches against an engine and holds the current result and
// proposal sets. It is not safe for concurrent use.
type Session struct {
	engine    engine.Engine
	state     State
	pending   *pendingSearch
	stemmer   engine.Stemmer
	renderer  style.Renderer
	extractor Extractor
	paginator Paginator
	queries   []query.Query
	units     []models.SearchUnit
	proposals []models.Proposal
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// Option configures a Session.
type Option func(*Session)

// WithEntriesPerPage sets the page size.
func WithEntriesPerPage(n int) Option {
	return func(s *Session) {
		s.paginator.EntriesPerPage = n
	}
}

// WithStemmer sets the stemmer handed to the engine before every load.
func WithStemmer(stemmer engine.Stemmer) Option {
	return func(s *Session) {
		s.stemmer = stemmer
	}
}

// WithRenderer sets the markup renderer for snippets and proposal labels.
func WithRenderer(r style.Renderer) Option {
	return func(s *Session) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithSnippetWidth sets the snippet window length in bytes.
func WithSnippetWidth(w int) Option {
	return func(s *Session) {
		s.extractor.Width = w
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records searches and loads in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// NewSession returns an empty session over eng.
func NewSession(eng engine.Engine, opts ...Option) (*Session, error) {
	if eng == nil {
		return nil, errors.New("search session needs an engine")
	}
	s := &Session{
		engine:    eng,
		state:     StateEmpty,
		renderer:  style.New(style.ModeHTML),
		extractor: Extractor{Width: DefaultSnippetWidth},
		paginator: Paginator{EntriesPerPage: DefaultEntriesPerPage, CurrentPage: 1},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.paginator.EntriesPerPage <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPageSize, s.paginator.EntriesPerPage)
	}
	if s.extractor.Width <= 0 {
		s.extractor.Width = DefaultSnippetWidth
	}
	s.extractor.Renderer = s.renderer
	return s, nil
}

// LoadIndex hands a decoded index artifact to the engine. On success the
// session becomes ready, the previous result set is dropped and a buffered
// search runs exactly once. On failure the state and any buffered search are
// kept and the error is an *engine.IndexLoadError.
func (s *Session) LoadIndex(data []byte) error {
	start := time.Now()
	if s.stemmer != "" {
		s.engine.SetStemmer(s.stemmer)
	}
	if err := s.engine.Load(data); err != nil {
		var loadErr *engine.IndexLoadError
		if !errors.As(err, &loadErr) {
			err = &engine.IndexLoadError{Reason: "engine load", Err: err}
		}
		s.metrics.IndexLoaded(err, 0)
		s.logger.Error("Index load failed",
			zap.Error(err),
			zap.Stringer("state", s.state),
			zap.Bool("buffered", s.pending != nil),
		)
		return err
	}

	docs := documentCount(s.engine)
	s.metrics.IndexLoaded(nil, docs)
	s.logger.Info("Index ready",
		zap.Int("documents", docs),
		zap.Duration("duration", time.Since(start)),
	)

	pending := s.pending
	s.pending = nil
	s.state = StateReady
	s.queries, s.units, s.proposals = nil, nil, nil
	s.paginator.Reset(0)

	if pending != nil {
		s.logger.Info("Replaying buffered search", zap.String("query", utils.Truncate(pending.query, 80)))
		if err := s.run(pending.query, pending.callback); err != nil {
			s.logger.Error("Buffered search failed", zap.Error(err))
		}
	}
	return nil
}

// LoadIndexBase64 decodes a base64 artifact and loads it. A decode failure is
// an *engine.IndexLoadError too.
func (s *Session) LoadIndexBase64(encoded string) error {
	data, err := utils.DecodeIndex([]byte(encoded))
	if err != nil {
		loadErr := &engine.IndexLoadError{Reason: "invalid base64", Err: err}
		s.metrics.IndexLoaded(loadErr, 0)
		s.logger.Error("Index load failed", zap.Error(loadErr))
		return loadErr
	}
	return s.LoadIndex(data)
}

// Search runs queryString and calls callback with the result and page counts
// before returning. Before an index is loaded the search is buffered instead,
// replacing any search buffered earlier, and callback is not called until the
// load. Errors come only from the engine; the callback is not called then.
func (s *Session) Search(queryString string, callback Callback) error {
	if s.state != StateReady {
		if s.pending != nil {
			s.logger.Info("Buffered search superseded",
				zap.String("previous", utils.Truncate(s.pending.query, 80)),
				zap.String("query", utils.Truncate(queryString, 80)),
			)
			s.metrics.Superseded()
		} else {
			s.logger.Debug("Index not loaded, buffering search", zap.String("query", utils.Truncate(queryString, 80)))
		}
		s.pending = &pendingSearch{query: queryString, callback: callback}
		s.state = StateLoading
		s.metrics.ObserveSearch(metrics.OutcomeBuffered, 0)
		return nil
	}
	return s.run(queryString, callback)
}

func (s *Session) run(queryString string, callback Callback) error {
	start := time.Now()
	queries := query.Parse(queryString)

	summary := &models.MatchSummary{}
	if len(queries) > 0 {
		var err error
		summary, err = s.engine.Search(queries)
		if err != nil {
			s.metrics.ObserveSearch(metrics.OutcomeError, time.Since(start))
			return fmt.Errorf("search failed: %w", err)
		}
		if summary == nil {
			summary = &models.MatchSummary{}
		}
	}

	s.queries = queries
	units := s.matchedUnits(summary.Units)
	outcome := metrics.OutcomeZero
	if len(units) > 0 {
		s.units = ranking.ScoreAndRank(units, s.engine)
		s.proposals = nil
		outcome = metrics.OutcomeHit
	} else {
		s.units = nil
		s.proposals = summary.Proposals
	}
	s.paginator.Reset(len(s.units))

	elapsed := time.Since(start)
	s.metrics.ObserveSearch(outcome, elapsed)
	s.logger.Debug("Search finished",
		zap.String("query", utils.Truncate(queryString, 80)),
		zap.Int("terms", len(queries)),
		zap.Int("results", len(s.units)),
		zap.Int("proposals", len(s.proposals)),
		zap.Duration("duration", elapsed),
	)

	if callback != nil {
		callback(s.ResultSize(), s.TotalPages())
	}
	return nil
}

// matchedUnits drops units without positions; the engine must never send them.
func (s *Session) matchedUnits(units []models.SearchUnit) []models.SearchUnit {
	out := make([]models.SearchUnit, 0, len(units))
	for _, u := range units {
		if len(u.Positions) == 0 {
			s.logger.Warn("Engine returned a match without positions", zap.String("id", u.ID))
			continue
		}
		out = append(out, u)
	}
	return out
}

// State returns the session's lifecycle stage.
func (s *Session) State() State { return s.state }

// ResultSize returns the number of ranked results of the last search.
func (s *Session) ResultSize() int { return len(s.units) }

// TotalPages returns the page count of the last search.
func (s *Session) TotalPages() int { return s.paginator.TotalPages() }

// CurrentPage returns the 1-based page shown by Results.
func (s *Session) CurrentPage() int { return s.paginator.CurrentPage }

// SetCurrentPage selects the page shown by Results. It is not validated; an
// out-of-range page shows no results.
func (s *Session) SetCurrentPage(n int) { s.paginator.SetCurrentPage(n) }

// HasPrevPage reports whether the current page is not the first.
func (s *Session) HasPrevPage() bool { return s.paginator.HasPrevPage() }

// HasNextPage reports whether the current page is not the last.
func (s *Session) HasNextPage() bool { return s.paginator.HasNextPage() }

// Queries returns the parsed terms of the last search.
func (s *Session) Queries() []query.Query {
	out := make([]query.Query, len(s.queries))
	copy(out, s.queries)
	return out
}

// Results returns the display-ready results of the current page.
func (s *Session) Results() []*models.Result {
	start, end := s.paginator.Bounds()
	results := make([]*models.Result, 0, end-start)
	if s.state != StateReady || start >= end {
		return results
	}
	md := s.engine.PrimaryMetadata()
	for _, unit := range s.units[start:end] {
		title, url, snippet := s.extractor.Extract(unit, md)
		results = append(results, &models.Result{
			Title:   title,
			URL:     url,
			Snippet: snippet,
			Score:   unit.Score,
		})
	}
	return results
}

// Proposals returns the display-ready relaxations of the last zero-result search.
func (s *Session) Proposals() []*models.ProposalOption {
	return FormatProposals(s.proposals, s.queries, s.renderer, s.logger)
}

func documentCount(eng engine.Engine) int {
	if c, ok := eng.(interface{ DocumentCount() int }); ok {
		return c.DocumentCount()
	}
	return 0
}

// Snapshot returns the current page of the last search as a response for
// queryString.
func (s *Session) Snapshot(queryString string) *models.SearchResponse {
	return &models.SearchResponse{
		Query:      queryString,
		State:      s.state.String(),
		Total:      s.ResultSize(),
		TotalPages: s.TotalPages(),
		Page:       s.CurrentPage(),
		HasPrev:    s.HasPrevPage(),
		HasNext:    s.HasNextPage(),
		Results:    s.Results(),
		Proposals:  s.Proposals(),
	}
}
