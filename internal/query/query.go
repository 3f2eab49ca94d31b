// Package query parses raw search strings into an ordered list of query terms.
package query

import (
	"strings"
	"unicode"
)

// Mode describes how a single term takes part in a search.
type Mode uint8

const (
	// Optional terms are OR-ed with the term before them.
	Optional Mode = 1 << iota
	// Excluded terms must not appear in a matching document.
	Excluded
	// Exact terms are matched literally and never through a stemmed form.
	Exact
)

// Query is one parsed search term. It is immutable once returned by Parse.
type Query struct {
	Word string `json:"word"`
	Mode Mode   `json:"mode"`
}

// Optional reports whether the term is OR-ed with its predecessor.
func (q Query) Optional() bool { return q.Mode&Optional != 0 }

// Excluded reports whether the term is a negative term.
func (q Query) Excluded() bool { return q.Mode&Excluded != 0 }

// Exact reports whether the term was quoted.
func (q Query) Exact() bool { return q.Mode&Exact != 0 }

// String returns the canonical form of the term. Feeding the canonical forms of
// a query list back into Parse yields the same list.
func (q Query) String() string {
	var b strings.Builder
	if q.Optional() {
		b.WriteString("OR ")
	}
	if q.Excluded() {
		b.WriteByte('-')
	}
	if q.Exact() {
		b.WriteByte('"')
		b.WriteString(q.Word)
		b.WriteByte('"')
	} else {
		b.WriteString(q.Word)
	}
	return b.String()
}

// Join renders qs as a single re-submittable query string.
func Join(qs []Query) string {
	parts := make([]string, len(qs))
	for i, q := range qs {
		parts[i] = q.String()
	}
	return strings.Join(parts, " ")
}

// Parse splits raw into query terms.
//
// Terms are separated by whitespace. A double-quoted run is a single exact
// term, a leading '-' excludes a term and a bare OR makes the next term
// optional. Empty terms and an OR with nothing to attach to are dropped, so
// unparseable input yields an empty slice rather than an error.
func Parse(raw string) []Query {
	queries := make([]Query, 0)
	rs := []rune(raw)
	pendingOr := false
	for i := 0; i < len(rs); {
		if unicode.IsSpace(rs[i]) {
			i++
			continue
		}
		var mode Mode
		if rs[i] == '-' {
			mode |= Excluded
			i++
		}
		var word string
		if i < len(rs) && rs[i] == '"' {
			mode |= Exact
			j := i + 1
			for j < len(rs) && rs[j] != '"' {
				j++
			}
			word = strings.TrimSpace(string(rs[i+1 : j]))
			i = j + 1
		} else {
			j := i
			for j < len(rs) && !unicode.IsSpace(rs[j]) {
				j++
			}
			word = string(rs[i:j])
			i = j
		}

		if mode == 0 && word == "OR" {
			pendingOr = len(queries) > 0
			continue
		}
		if word == "" {
			continue
		}
		if pendingOr {
			mode |= Optional
			pendingOr = false
		}
		queries = append(queries, Query{Word: word, Mode: mode})
	}
	return queries
}
