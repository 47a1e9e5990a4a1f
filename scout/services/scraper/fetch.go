package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"scout/scout/utils/types"
)

// maxFetchBytes caps the response body so one huge page cannot blow up
// memory or the model context.
const maxFetchBytes = 8 << 20

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Fetcher resolves a single URL to a CrawlOutcome. Failures are data,
// not errors: a bad URL yields a failed outcome.
type Fetcher interface {
	Fetch(ctx context.Context, target string) types.CrawlOutcome
}

// HTTPFetcher is the default plain-HTTP fetcher with HTML and PDF
// support.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		client:   &http.Client{Timeout: 15 * time.Second},
		maxBytes: maxFetchBytes,
	}
}

func failedOutcome(err error) types.CrawlOutcome {
	return types.CrawlOutcome{Success: false, Error: err.Error()}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, target string) types.CrawlOutcome {
	u, err := url.Parse(strings.TrimSpace(target))
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return failedOutcome(fmt.Errorf("invalid url: %q", target))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return failedOutcome(err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return failedOutcome(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failedOutcome(fmt.Errorf("http status %d for %s", resp.StatusCode, u.String()))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return failedOutcome(fmt.Errorf("read body: %w", err))
	}

	if isPDF(resp.Header.Get("Content-Type"), u.Path) {
		text, err := extractPDFText(body)
		if err != nil {
			return failedOutcome(fmt.Errorf("pdf extract: %w", err))
		}
		return types.CrawlOutcome{Success: true, SourceType: types.SourceTypePDF, Data: text}
	}

	title, _ := PageMeta(string(body))
	return types.CrawlOutcome{
		Success:    true,
		SourceType: types.SourceTypeHTML,
		Title:      title,
		Data:       ExtractReadableText(string(body)),
	}
}

func isPDF(contentType, path string) bool {
	if strings.Contains(strings.ToLower(contentType), "application/pdf") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(path), ".pdf")
}

func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	text, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(text)), nil
}
