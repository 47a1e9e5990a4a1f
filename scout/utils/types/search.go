// scout/utils/types/search.go
package types

// SearchResult is a single organic result from the search provider,
// kept in provider order (assumed relevance-ranked, never re-sorted).
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Date    string `json:"date,omitempty"`
}

type SearchResponse struct {
	Organic []SearchResult `json:"organic"`
}
