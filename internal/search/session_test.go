package search

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/shiori/internal/engine"
	"github.com/hyperjump/shiori/internal/metrics"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/style"
	"github.com/hyperjump/shiori/pkg/utils"
)

type callRecorder struct {
	calls [][2]int
}

func (r *callRecorder) callback() Callback {
	return func(size, pages int) {
		r.calls = append(r.calls, [2]int{size, pages})
	}
}

func newTestSession(t *testing.T, eng *fakeEngine, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{WithRenderer(bracketRenderer{})}, opts...)
	s, err := NewSession(eng, opts...)
	require.NoError(t, err)
	return s
}

func TestNewSession_Validation(t *testing.T) {
	_, err := NewSession(newFakeEngine(), WithEntriesPerPage(0))
	assert.True(t, errors.Is(err, ErrInvalidPageSize))

	_, err = NewSession(newFakeEngine(), WithEntriesPerPage(-5))
	assert.True(t, errors.Is(err, ErrInvalidPageSize))

	_, err = NewSession(nil)
	assert.Error(t, err)

	s, err := NewSession(newFakeEngine())
	require.NoError(t, err)
	assert.Equal(t, StateEmpty, s.State())
	assert.Equal(t, 1, s.CurrentPage())
}

func TestSession_DeferredQueryReplay(t *testing.T) {
	eng := newFakeEngine()
	eng.summaries["foo"] = &models.MatchSummary{Units: []models.SearchUnit{hitUnit("a", 5)}}
	eng.summaries["bar"] = &models.MatchSummary{Units: []models.SearchUnit{hitUnit("a", 5), hitUnit("b", 9)}}
	s := newTestSession(t, eng)

	var first, second callRecorder
	require.NoError(t, s.Search("foo", first.callback()))
	assert.Empty(t, first.calls)
	assert.Equal(t, StateLoading, s.State())

	require.NoError(t, s.Search("bar", second.callback()))
	assert.Empty(t, second.calls)
	assert.Equal(t, StateLoading, s.State())
	assert.Empty(t, eng.searched, "nothing reaches the engine before load")

	require.NoError(t, s.LoadIndex([]byte("index")))
	assert.Equal(t, StateReady, s.State())
	assert.Empty(t, first.calls, "superseded callback is never called")
	assert.Equal(t, [][2]int{{2, 1}}, second.calls)
	assert.Equal(t, []string{"bar"}, eng.searched)

	// a later load does not replay again
	require.NoError(t, s.LoadIndex([]byte("index")))
	assert.Len(t, second.calls, 1)
	assert.Equal(t, []string{"bar"}, eng.searched)
}

func TestSession_LoadFailureKeepsBufferedSearch(t *testing.T) {
	eng := newFakeEngine()
	eng.summaries["foo"] = &models.MatchSummary{Units: []models.SearchUnit{hitUnit("a", 1)}}
	s := newTestSession(t, eng)

	var rec callRecorder
	require.NoError(t, s.Search("foo", rec.callback()))

	eng.loadErr = &engine.IndexLoadError{Reason: "malformed artifact"}
	err := s.LoadIndex([]byte("garbage"))
	var loadErr *engine.IndexLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, StateLoading, s.State())
	assert.Empty(t, rec.calls)

	eng.loadErr = errors.New("disk on fire")
	err = s.LoadIndex([]byte("garbage"))
	require.True(t, errors.As(err, &loadErr), "plain engine errors are wrapped")
	assert.Equal(t, StateLoading, s.State())

	eng.loadErr = nil
	require.NoError(t, s.LoadIndex([]byte("index")))
	assert.Equal(t, [][2]int{{1, 1}}, rec.calls)
}

func TestSession_LoadFailureWhileEmpty(t *testing.T) {
	eng := newFakeEngine()
	eng.loadErr = &engine.IndexLoadError{Reason: "bad"}
	s := newTestSession(t, eng)

	assert.Error(t, s.LoadIndex(nil))
	assert.Equal(t, StateEmpty, s.State())
}

func TestSession_LoadIndexBase64(t *testing.T) {
	eng := newFakeEngine()
	s := newTestSession(t, eng)

	err := s.LoadIndexBase64("%%% not base64")
	var loadErr *engine.IndexLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, StateEmpty, s.State())

	require.NoError(t, s.LoadIndexBase64(string(utils.EncodeIndex([]byte("artifact")))))
	assert.Equal(t, StateReady, s.State())
	require.Len(t, eng.loaded, 1)
	assert.Equal(t, "artifact", string(eng.loaded[0]))
}

func TestSession_StemmerForwardedBeforeLoad(t *testing.T) {
	eng := newFakeEngine()
	s := newTestSession(t, eng, WithStemmer(engine.StemmerPorter2))
	require.NoError(t, s.LoadIndex([]byte("x")))
	assert.Equal(t, engine.StemmerPorter2, eng.stemmer)
}

func TestSession_SearchRanksAndPages(t *testing.T) {
	eng := newFakeEngine()
	units := make([]models.SearchUnit, 0, 21)
	for i := 0; i < 21; i++ {
		id := fmt.Sprintf("doc%02d", i)
		eng.docs[id] = fakeDoc{title: id, url: "/" + id, content: "some body text"}
		units = append(units, hitUnit(id, 3))
	}
	// doc20 matches in a heading and must rank first
	eng.weighted["doc20"] = 10
	eng.summaries["w"] = &models.MatchSummary{Units: units}

	s := newTestSession(t, eng)
	require.NoError(t, s.LoadIndex([]byte("x")))

	var rec callRecorder
	require.NoError(t, s.Search("w", rec.callback()))
	assert.Equal(t, [][2]int{{21, 3}}, rec.calls)
	assert.Equal(t, 21, s.ResultSize())
	assert.Equal(t, 3, s.TotalPages())

	page := s.Results()
	require.Len(t, page, 10)
	assert.Equal(t, "doc20", page[0].Title)
	assert.Equal(t, "/doc20", page[0].URL)
	assert.Equal(t, "doc00", page[1].Title, "equal scores keep engine order")
	assert.False(t, s.HasPrevPage())
	assert.True(t, s.HasNextPage())

	s.SetCurrentPage(3)
	page = s.Results()
	require.Len(t, page, 1)
	assert.Equal(t, "doc19", page[0].Title)
	assert.True(t, s.HasPrevPage())
	assert.False(t, s.HasNextPage())

	s.SetCurrentPage(4)
	assert.Empty(t, s.Results())

	// a new search starts on page 1 again
	require.NoError(t, s.Search("w", nil))
	assert.Equal(t, 1, s.CurrentPage())
}

func TestSession_ZeroResultsStoreProposals(t *testing.T) {
	eng := newFakeEngine()
	eng.summaries["alpha beta"] = &models.MatchSummary{
		Proposals: []models.Proposal{{Omit: 1, Expect: 4}, {Omit: 0, Expect: 2}},
	}
	s := newTestSession(t, eng)
	require.NoError(t, s.LoadIndex([]byte("x")))

	var rec callRecorder
	require.NoError(t, s.Search("alpha beta", rec.callback()))
	assert.Equal(t, [][2]int{{0, 0}}, rec.calls)
	assert.Empty(t, s.Results())
	assert.False(t, s.HasNextPage())

	proposals := s.Proposals()
	require.Len(t, proposals, 2)
	assert.Equal(t, &models.ProposalOption{Options: "alpha", Label: "[alpha]_~beta~", Count: 4}, proposals[0])
	assert.Equal(t, &models.ProposalOption{Options: "beta", Label: "~alpha~_[beta]", Count: 2}, proposals[1])
	assert.Len(t, s.Queries(), 2)
}

func TestSession_EmptyQueryIsZeroResult(t *testing.T) {
	eng := newFakeEngine()
	s := newTestSession(t, eng)
	require.NoError(t, s.LoadIndex([]byte("x")))

	var rec callRecorder
	require.NoError(t, s.Search("   ", rec.callback()))
	assert.Equal(t, [][2]int{{0, 0}}, rec.calls)
	assert.Empty(t, eng.searched)
	assert.Empty(t, s.Proposals())
}

func TestSession_DropsUnitsWithoutPositions(t *testing.T) {
	eng := newFakeEngine()
	eng.docs["a"] = fakeDoc{title: "A", content: "body"}
	eng.summaries["q"] = &models.MatchSummary{Units: []models.SearchUnit{{ID: "ghost"}, hitUnit("a", 0)}}
	s := newTestSession(t, eng)
	require.NoError(t, s.LoadIndex([]byte("x")))

	var rec callRecorder
	require.NoError(t, s.Search("q", rec.callback()))
	assert.Equal(t, [][2]int{{1, 1}}, rec.calls)
}

func TestSession_EngineErrorSkipsCallback(t *testing.T) {
	eng := newFakeEngine()
	s := newTestSession(t, eng)
	require.NoError(t, s.LoadIndex([]byte("x")))

	eng.searchErr = errors.New("boom")
	var rec callRecorder
	assert.Error(t, s.Search("q", rec.callback()))
	assert.Empty(t, rec.calls)
}

func TestSession_ReloadDropsResults(t *testing.T) {
	eng := newFakeEngine()
	eng.docs["a"] = fakeDoc{title: "A", content: "body"}
	eng.summaries["q"] = &models.MatchSummary{Units: []models.SearchUnit{hitUnit("a", 0)}}
	s := newTestSession(t, eng)
	require.NoError(t, s.LoadIndex([]byte("x")))
	require.NoError(t, s.Search("q", nil))
	require.Equal(t, 1, s.ResultSize())

	require.NoError(t, s.LoadIndex([]byte("y")))
	assert.Equal(t, 0, s.ResultSize())
	assert.Empty(t, s.Queries())
}

func TestSession_Metrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	eng := newFakeEngine()
	eng.docs["a"] = fakeDoc{title: "A", content: "body"}
	eng.summaries["q"] = &models.MatchSummary{Units: []models.SearchUnit{hitUnit("a", 0)}}
	s := newTestSession(t, eng, WithMetrics(m))

	require.NoError(t, s.Search("first", nil))
	require.NoError(t, s.Search("q", nil))
	require.NoError(t, s.LoadIndex([]byte("x")))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SearchesTotal.WithLabelValues(metrics.OutcomeBuffered)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SupersededTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchesTotal.WithLabelValues(metrics.OutcomeHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexDocuments))
}

func TestSession_HTMLRendering(t *testing.T) {
	eng := newFakeEngine()
	eng.docs["a"] = fakeDoc{title: "A", url: "/a", content: "run fast"}
	eng.summaries["run"] = &models.MatchSummary{Units: []models.SearchUnit{
		{ID: "a", Positions: []models.Position{{Offset: 0, Word: "run"}}},
	}}
	s, err := NewSession(eng, WithRenderer(style.New(style.ModeHTML)))
	require.NoError(t, err)
	require.NoError(t, s.LoadIndex([]byte("x")))
	require.NoError(t, s.Search("run", nil))

	results := s.Results()
	require.Len(t, results, 1)
	assert.Equal(t, `<span class="hit">run</span> fast ...`, results[0].Snippet)
	assert.Equal(t, 3, results[0].Score)
}

func TestSession_Snapshot(t *testing.T) {
	eng := newFakeEngine()
	units := make([]models.SearchUnit, 0, 12)
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("doc%02d", i)
		eng.docs[id] = fakeDoc{title: id, url: "/" + id, content: "body"}
		units = append(units, hitUnit(id, 0))
	}
	eng.summaries["w"] = &models.MatchSummary{Units: units}
	s := newTestSession(t, eng)
	require.NoError(t, s.LoadIndex([]byte("x")))
	require.NoError(t, s.Search("w", nil))
	s.SetCurrentPage(2)

	resp := s.Snapshot("w")
	assert.Equal(t, "w", resp.Query)
	assert.Equal(t, "ready", resp.State)
	assert.Equal(t, 12, resp.Total)
	assert.Equal(t, 2, resp.TotalPages)
	assert.Equal(t, 2, resp.Page)
	assert.True(t, resp.HasPrev)
	assert.False(t, resp.HasNext)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "doc10", resp.Results[0].Title)
	assert.Empty(t, resp.Proposals)
}
