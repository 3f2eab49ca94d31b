package search

// Paginator tracks page navigation over a result list of known size.
// CurrentPage is 1-based and is not clamped; Bounds clamps instead.
type Paginator struct {
	EntriesPerPage int
	CurrentPage    int
	TotalResults   int
}

// Reset starts a new result list on page 1.
func (p *Paginator) Reset(total int) {
	p.TotalResults = total
	p.CurrentPage = 1
}

// TotalPages returns ceil(TotalResults / EntriesPerPage), 0 for no results.
func (p *Paginator) TotalPages() int {
	if p.TotalResults <= 0 || p.EntriesPerPage <= 0 {
		return 0
	}
	return (p.TotalResults + p.EntriesPerPage - 1) / p.EntriesPerPage
}

// HasPrevPage reports whether a previous page can be shown.
func (p *Paginator) HasPrevPage() bool {
	return p.CurrentPage != 1
}

// HasNextPage reports whether a next page can be shown. An empty result list
// has no next page.
func (p *Paginator) HasNextPage() bool {
	total := p.TotalPages()
	return total > 0 && p.CurrentPage != total
}

// SetCurrentPage moves to page n without validating it.
func (p *Paginator) SetCurrentPage(n int) {
	p.CurrentPage = n
}

// Bounds returns the [start, end) slice bounds of the current page. Pages
// outside the result list give an empty range.
func (p *Paginator) Bounds() (start, end int) {
	if p.EntriesPerPage <= 0 || p.CurrentPage < 1 {
		return 0, 0
	}
	start = (p.CurrentPage - 1) * p.EntriesPerPage
	if start >= p.TotalResults {
		return p.TotalResults, p.TotalResults
	}
	end = start + p.EntriesPerPage
	if end > p.TotalResults {
		end = p.TotalResults
	}
	return start, end
}
