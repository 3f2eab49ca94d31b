package search

import (
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/shiori/internal/engine"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/style"
)

// DefaultSnippetWidth is the excerpt length in bytes.
const DefaultSnippetWidth = 250

// Extractor builds highlighted excerpts of matched documents.
type Extractor struct {
	Width    int
	Renderer style.Renderer
}

// edit records one highlight: the original span [start, end) of the body and
// how many bytes the markup added.
type edit struct {
	start, end int
	grow       int
}

// Extract returns the title, URL and highlighted snippet of unit.
//
// The window is Width bytes from the start of the body. When the first match
// does not fit, the window is moved to end Width/2 bytes after it and the
// snippet is split into a lead-in and a tail. Matches are highlighted from the
// last one backwards so each replacement leaves the offsets of the matches
// before it valid; matches past the window end are not highlighted.
func (x *Extractor) Extract(unit models.SearchUnit, metadata engine.Metadata) (title, url, snippet string) {
	width := x.Width
	if width <= 0 {
		width = DefaultSnippetWidth
	}
	half := width / 2

	info := strings.SplitN(metadata.GetInformation(unit.ID), models.EOB, 2)
	title = info[0]
	if len(info) > 1 {
		url = info[1]
	}

	content := metadata.GetContent(unit.ID)
	start := 0
	if title != "" && strings.Index(content, title) == 1 {
		start = len(title) + 2
		if start > len(content) {
			start = len(content)
		}
	}
	body := content[start:]

	end := start + width
	split := false
	if first, ok := firstBodyPosition(unit.Positions, start); ok && first.Offset > end-len(first.Word) {
		end = first.Offset + half
		split = true
	}

	relEnd := clamp(end-start, 0, len(body))
	body, edits := x.highlight(body, unit.Positions, start, end)

	var text string
	if split {
		headEnd := clamp(half, 0, relEnd)
		tailStart := relEnd - half
		if tailStart < headEnd {
			tailStart = headEnd
		}
		text = body[:cut(body, edits, headEnd, true)] + " ..." +
			x.lineBreak() +
			body[cut(body, edits, tailStart, false):cut(body, edits, relEnd, true)]
	} else {
		text = body[:cut(body, edits, relEnd, true)] + " ..."
	}

	text = strings.ReplaceAll(text, models.EOB, " ")
	if lb := x.lineBreak(); lb != "" {
		for strings.Contains(text, lb+lb) {
			text = strings.ReplaceAll(text, lb+lb, lb)
		}
	}
	return title, url, text
}

// highlight wraps every in-window match of body in hit markup, last match
// first. Positions are absolute content offsets; start is the offset of body.
// A match overlapping one already wrapped is skipped. The returned edits are
// in ascending order.
func (x *Extractor) highlight(body string, positions []models.Position, start, end int) (string, []edit) {
	if x.Renderer == nil {
		return body, nil
	}
	template := x.Renderer.Convert("<hit>" + style.Placeholder + "</hit>")

	var edits []edit
	lowest := len(body) + 1
	for i := len(positions) - 1; i >= 0; i-- {
		pos := positions[i]
		if pos.Offset+len(pos.Word) >= end {
			continue
		}
		s, e := pos.Offset-start, pos.Offset+len(pos.Word)-start
		if s < 0 || e > len(body) || s >= e || e > lowest {
			continue
		}
		marked := strings.Replace(template, style.Placeholder, body[s:e], 1)
		body = body[:s] + marked + body[e:]
		edits = append(edits, edit{start: s, end: e, grow: len(marked) - (e - s)})
		lowest = s
	}

	for i, j := 0, len(edits)-1; i < j; i, j = i+1, j-1 {
		edits[i], edits[j] = edits[j], edits[i]
	}
	return body, edits
}

// cut maps offset x of the unhighlighted body onto the highlighted body. An
// offset inside a highlight moves to its end when forward is set, otherwise
// to its start, so markup is never split. Other offsets are moved back to a
// rune boundary.
func cut(body string, edits []edit, x int, forward bool) int {
	shift := 0
	for _, ed := range edits {
		if ed.end <= x {
			shift += ed.grow
			continue
		}
		if ed.start < x {
			if forward {
				return ed.end + shift + ed.grow
			}
			return ed.start + shift
		}
		break
	}
	y := clamp(x+shift, 0, len(body))
	for y > 0 && y < len(body) && !utf8.RuneStart(body[y]) {
		y--
	}
	return y
}

func firstBodyPosition(positions []models.Position, start int) (models.Position, bool) {
	for _, p := range positions {
		if p.Offset >= start {
			return p, true
		}
	}
	return models.Position{}, false
}

func (x *Extractor) lineBreak() string {
	if x.Renderer == nil {
		return "\n"
	}
	return x.Renderer.LineBreak()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
