package scraper

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scout/scout/utils/types"
)

// fakeFetcher succeeds or fails per URL, optionally panicking or
// sleeping to exercise the fan-out.
type fakeFetcher struct {
	mu       sync.Mutex
	failOn   map[string]bool
	panicOn  map[string]bool
	delay    time.Duration
	inFlight int32
	maxSeen  int32
}

func (f *fakeFetcher) Fetch(ctx context.Context, target string) types.CrawlOutcome {
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	f.mu.Lock()
	if cur > f.maxSeen {
		f.maxSeen = cur
	}
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return types.CrawlOutcome{Success: false, Error: ctx.Err().Error()}
		}
	}
	if f.panicOn[target] {
		panic("fetcher exploded on " + target)
	}
	if f.failOn[target] {
		return types.CrawlOutcome{Success: false, Error: "robots.txt disallowed"}
	}
	return types.CrawlOutcome{Success: true, SourceType: types.SourceTypeHTML, Data: "text of " + target}
}

func TestScrapePagesPartialFailureKeepsOrder(t *testing.T) {
	f := &fakeFetcher{failOn: map[string]bool{"https://b.example": true}}
	svc := NewService(f, 2)

	urls := []string{"https://a.example", "https://b.example", "https://c.example"}
	batch, err := svc.ScrapePages(context.Background(), urls)
	require.NoError(t, err)

	assert.False(t, batch.Success, "one failure flips the batch flag")
	require.Len(t, batch.Results, 3)
	for i, u := range urls {
		assert.Equal(t, u, batch.Results[i].URL, "results must keep submission order")
	}
	assert.True(t, batch.Results[0].Result.Success)
	assert.False(t, batch.Results[1].Result.Success)
	assert.Equal(t, "robots.txt disallowed", batch.Results[1].Result.Error)
	assert.True(t, batch.Results[2].Result.Success)

	sources := batch.Sources()
	require.Len(t, sources, 3)
	assert.NotNil(t, sources[0].Content)
	assert.Nil(t, sources[1].Content, "failed fetch projects nil content")
	assert.Nil(t, sources[1].SourceType)
	require.NotNil(t, sources[2].SourceType)
	assert.Equal(t, types.SourceTypeHTML, *sources[2].SourceType)
}

func TestScrapePagesEmptyInput(t *testing.T) {
	called := int32(0)
	svc := NewService(fetcherFunc(func(ctx context.Context, target string) types.CrawlOutcome {
		atomic.AddInt32(&called, 1)
		return types.CrawlOutcome{Success: true}
	}), 2)

	_, err := svc.ScrapePages(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoURLs)
	assert.Zero(t, atomic.LoadInt32(&called), "no fetch may run for an empty batch")
}

type fetcherFunc func(ctx context.Context, target string) types.CrawlOutcome

func (f fetcherFunc) Fetch(ctx context.Context, target string) types.CrawlOutcome {
	return f(ctx, target)
}

func TestScrapePagesBoundsConcurrency(t *testing.T) {
	f := &fakeFetcher{delay: 20 * time.Millisecond}
	svc := NewService(f, 2)

	urls := make([]string, 8)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://site%d.example", i)
	}
	batch, err := svc.ScrapePages(context.Background(), urls)
	require.NoError(t, err)
	assert.True(t, batch.Success)
	assert.LessOrEqual(t, f.maxSeen, int32(2), "semaphore must cap concurrent fetches")
}

func TestScrapePagesPanicInFetchBecomesFailure(t *testing.T) {
	f := &fakeFetcher{panicOn: map[string]bool{"https://boom.example": true}}
	svc := NewService(f, 2)

	batch, err := svc.ScrapePages(context.Background(), []string{"https://ok.example", "https://boom.example"})
	require.NoError(t, err)
	assert.False(t, batch.Success)
	assert.True(t, batch.Results[0].Result.Success)
	assert.False(t, batch.Results[1].Result.Success)
	assert.Contains(t, batch.Results[1].Result.Error, "exploded")
}

func TestScrapePagesCancellation(t *testing.T) {
	f := &fakeFetcher{delay: time.Second}
	svc := NewService(f, 1)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	batch, err := svc.ScrapePages(ctx, []string{"https://s1.example", "https://s2.example", "https://s3.example"})
	require.NoError(t, err)
	assert.False(t, batch.Success)
	require.Len(t, batch.Results, 3, "cancelled URLs still get entries")
	for _, r := range batch.Results {
		if !r.Result.Success {
			assert.Contains(t, r.Result.Error, "context canceled")
		}
	}
}

type fakeSnapshots struct {
	mu   sync.Mutex
	urls []string
	fail bool
}

func (s *fakeSnapshots) UploadSnapshot(ctx context.Context, pageURL, text, sourceType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return "", fmt.Errorf("bucket offline")
	}
	s.urls = append(s.urls, pageURL)
	return "snapshots/" + pageURL, nil
}

func TestScrapePagesArchivesSuccesses(t *testing.T) {
	f := &fakeFetcher{failOn: map[string]bool{"https://down.example": true}}
	snaps := &fakeSnapshots{}
	svc := NewService(f, 2).WithSnapshots(snaps)

	_, err := svc.ScrapePages(context.Background(), []string{"https://up.example", "https://down.example"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://up.example"}, snaps.urls, "only successes get archived")
}

func TestScrapePagesSnapshotFailureIsBestEffort(t *testing.T) {
	f := &fakeFetcher{}
	svc := NewService(f, 2).WithSnapshots(&fakeSnapshots{fail: true})

	batch, err := svc.ScrapePages(context.Background(), []string{"https://up.example"})
	require.NoError(t, err)
	assert.True(t, batch.Success, "archive failure must not fail the scrape")
}

func TestAllFailedBatchShape(t *testing.T) {
	urls := []string{"https://a.example", "https://b.example"}
	batch := allFailedBatch(urls, "aggregation broke")
	assert.False(t, batch.Success)
	require.Len(t, batch.Results, 2)
	for i, u := range urls {
		assert.Equal(t, u, batch.Results[i].URL)
		assert.False(t, batch.Results[i].Result.Success)
		assert.Equal(t, "aggregation broke", batch.Results[i].Result.Error)
	}
	for _, s := range batch.Sources() {
		assert.Nil(t, s.Content)
		assert.Nil(t, s.SourceType)
	}
}

func TestHTTPFetcherRejectsBadURLs(t *testing.T) {
	f := NewHTTPFetcher()
	for _, target := range []string{"", "not-a-url", "ftp://files.example/x", "/relative/path"} {
		outcome := f.Fetch(context.Background(), target)
		assert.False(t, outcome.Success, "url %q must be rejected", target)
		assert.NotEmpty(t, outcome.Error)
	}
}

func TestIsPDF(t *testing.T) {
	assert.True(t, isPDF("application/pdf", "/paper"))
	assert.True(t, isPDF("application/pdf; charset=binary", "/paper"))
	assert.True(t, isPDF("application/octet-stream", "/papers/report.PDF"))
	assert.False(t, isPDF("text/html; charset=utf-8", "/article"))
}

func TestFetcherOutcomeRoundTrip(t *testing.T) {
	// A success must carry data and type, a failure only the error.
	ok := types.CrawlOutcome{Success: true, SourceType: types.SourceTypeHTML, Data: "body"}
	assert.True(t, ok.Success)
	bad := failedOutcome(fmt.Errorf("boom"))
	assert.False(t, bad.Success)
	assert.True(t, strings.Contains(bad.Error, "boom"))
	assert.Empty(t, bad.SourceType)
}
