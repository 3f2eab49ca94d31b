// Package models defines core data structures for documents, matches, and search results.
package models

// EOB is the end-of-block sentinel separating blocks of document content and
// the title from the URL in a document's information string.
const EOB = "\x01"

// Span is a half-open byte range [Start, End) inside a document's content.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether offset falls inside the span.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset < s.End
}

// Document is one searchable unit of an index artifact.
type Document struct {
	ID       string `json:"id" db:"id"`
	Title    string `json:"title" db:"title"`
	URL      string `json:"url" db:"url"`
	Content  string `json:"content" db:"content"`
	Headings []Span `json:"headings,omitempty" db:"-"`
}

// Information returns title and URL joined by the EOB sentinel.
func (d *Document) Information() string {
	return d.Title + EOB + d.URL
}
