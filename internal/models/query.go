package models

import "fmt"

// SearchRequest is a search over the HTTP API.
type SearchRequest struct {
	Query string `json:"query"`
	Page  int    `json:"page,omitempty"`
}

// Validate ensures the request has valid fields and sets defaults.
// An empty query is allowed; it is answered as a zero-result search.
func (r *SearchRequest) Validate() error {
	if r.Page < 0 {
		return fmt.Errorf("page cannot be negative: %d", r.Page)
	}
	if r.Page == 0 {
		r.Page = 1
	}
	return nil
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	RequestID  string            `json:"request_id,omitempty"`
	Query      string            `json:"query"`
	State      string            `json:"state"`
	Total      int               `json:"total"`
	TotalPages int               `json:"total_pages"`
	Page       int               `json:"page"`
	HasPrev    bool              `json:"has_prev"`
	HasNext    bool              `json:"has_next"`
	Results    []*Result         `json:"results"`
	Proposals  []*ProposalOption `json:"proposals,omitempty"`
	QueryTime  int64             `json:"query_time_ms"`
}
