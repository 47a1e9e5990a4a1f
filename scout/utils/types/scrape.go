// scout/utils/types/scrape.go
package types

const (
	SourceTypeHTML = "html"
	SourceTypePDF  = "pdf"
)

// CrawlOutcome is the per-URL result of a page fetch. When Success is
// true, SourceType and Data are set; otherwise Error carries the reason.
// Title is best effort and only set for HTML pages.
type CrawlOutcome struct {
	Success    bool   `json:"success"`
	SourceType string `json:"source_type,omitempty"`
	Title      string `json:"title,omitempty"`
	Data       string `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
}

type CrawlResult struct {
	URL    string       `json:"url"`
	Result CrawlOutcome `json:"result"`
}

// CrawlBatchResult aggregates per-URL outcomes in submission order.
// Success is true only when every URL succeeded; a false value never
// means individual successes were discarded, callers must inspect
// Results regardless.
type CrawlBatchResult struct {
	Success bool          `json:"success"`
	Results []CrawlResult `json:"results"`
}

// Source is the flattened projection of a CrawlResult consumed by the
// reasoning engine and the UI. Content and SourceType are nil exactly
// when the underlying fetch failed.
type Source struct {
	URL        string  `json:"url"`
	Content    *string `json:"content"`
	SourceType *string `json:"source_type"`
}

// Sources projects the batch into []Source so downstream consumers
// never have to branch on the batch Success flag.
func (b CrawlBatchResult) Sources() []Source {
	sources := make([]Source, 0, len(b.Results))
	for _, r := range b.Results {
		s := Source{URL: r.URL}
		if r.Result.Success {
			content := r.Result.Data
			sourceType := r.Result.SourceType
			s.Content = &content
			s.SourceType = &sourceType
		}
		sources = append(sources, s)
	}
	return sources
}
