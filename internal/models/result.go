package models

// Position is a single match inside a document, produced by the engine.
type Position struct {
	// Offset is the byte offset of the match in the document content.
	Offset int `json:"offset"`
	// Word is the literal matched text.
	Word string `json:"word"`
	// Stemmed is true when the match was only found through a stemmed form.
	Stemmed bool `json:"stemmed"`
	// QueryIndex points at the query term that produced the match.
	QueryIndex int `json:"query_index"`
}

// End returns the byte offset just past the matched word.
func (p Position) End() int {
	return p.Offset + len(p.Word)
}

// SearchUnit is a matched document. Positions are ordered by offset and never empty.
type SearchUnit struct {
	ID        string     `json:"id"`
	Positions []Position `json:"positions"`
	Score     int        `json:"score"`
}

// Proposal suggests dropping the query term at index Omit; Expect estimates
// how many documents the relaxed query would match.
type Proposal struct {
	Omit   int `json:"omit"`
	Expect int `json:"expect"`
}

// MatchSummary is the engine's answer to one search: matched units, or
// relaxation proposals when nothing matched.
type MatchSummary struct {
	Units     []SearchUnit `json:"units"`
	Proposals []Proposal   `json:"proposals,omitempty"`
}

// Size returns the number of matched units.
func (s *MatchSummary) Size() int {
	if s == nil {
		return 0
	}
	return len(s.Units)
}

// Result is a display-ready search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Score   int    `json:"score"`
}

// ProposalOption is a display-ready query relaxation.
type ProposalOption struct {
	// Options is the relaxed query, ready to be searched again.
	Options string `json:"options"`
	// Label shows every term, with the dropped one struck through.
	Label string `json:"label"`
	Count int    `json:"count"`
}
