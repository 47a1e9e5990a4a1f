// Package scraper turns lists of URLs into readable text, fanning out
// concurrent fetches and reassembling per-URL outcomes in input order.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"scout/scout/utils/logging"
	"scout/scout/utils/metrics"
	"scout/scout/utils/types"
)

// ErrNoURLs rejects an empty batch before any fetch is attempted.
var ErrNoURLs = errors.New("scrape requires at least one url")

const defaultMaxConcurrent = 3

// SnapshotStore archives successful scrapes, best effort.
type SnapshotStore interface {
	UploadSnapshot(ctx context.Context, pageURL, text, sourceType string) (string, error)
}

type Service struct {
	fetcher       Fetcher
	maxConcurrent int
	snapshots     SnapshotStore // nil disables archiving
}

func NewService(fetcher Fetcher, maxConcurrent int) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &Service{fetcher: fetcher, maxConcurrent: maxConcurrent}
}

// WithSnapshots enables best-effort archiving of fetched pages.
func (s *Service) WithSnapshots(store SnapshotStore) *Service {
	s.snapshots = store
	return s
}

// ScrapePages fetches every URL concurrently and reassembles outcomes in
// submission order. One URL failing never fails the batch; the batch
// Success flag is simply "all succeeded". A panic anywhere in the
// aggregation degrades to a uniform all-failed batch instead of
// propagating, so callers always get the same shape back.
func (s *Service) ScrapePages(ctx context.Context, urls []string) (batch types.CrawlBatchResult, err error) {
	if len(urls) == 0 {
		return types.CrawlBatchResult{}, ErrNoURLs
	}

	defer func() {
		if r := recover(); r != nil {
			logging.ErrorLogger.Error("scrape batch aggregation panicked", zap.Any("recover", r))
			batch = allFailedBatch(urls, fmt.Sprint(r))
			err = nil
		}
	}()

	sem := make(chan struct{}, s.maxConcurrent)
	var wg sync.WaitGroup
	results := make([]types.CrawlResult, len(urls))

	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i] = types.CrawlResult{URL: u, Result: types.CrawlOutcome{
						Success: false, Error: fmt.Sprint(r),
					}}
				}
			}()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[i] = types.CrawlResult{URL: u, Result: failedOutcome(ctx.Err())}
				return
			}
			defer func() { <-sem }()

			outcome := s.fetcher.Fetch(ctx, u)
			if outcome.Success {
				metrics.ScrapeOutcomes.WithLabelValues(outcome.SourceType).Inc()
				s.archive(ctx, u, outcome)
			} else {
				metrics.ScrapeOutcomes.WithLabelValues("error").Inc()
				logging.AppLogger.Info("page fetch failed",
					zap.String("url", u), zap.String("error", outcome.Error))
			}
			results[i] = types.CrawlResult{URL: u, Result: outcome}
		}(i, u)
	}
	wg.Wait()

	success := true
	for _, r := range results {
		if !r.Result.Success {
			success = false
			break
		}
	}
	return types.CrawlBatchResult{Success: success, Results: results}, nil
}

func (s *Service) archive(ctx context.Context, pageURL string, outcome types.CrawlOutcome) {
	if s.snapshots == nil {
		return
	}
	if _, err := s.snapshots.UploadSnapshot(ctx, pageURL, outcome.Data, outcome.SourceType); err != nil {
		logging.AppLogger.Info("snapshot upload failed",
			zap.String("url", pageURL), zap.Error(err))
	}
}

func allFailedBatch(urls []string, msg string) types.CrawlBatchResult {
	results := make([]types.CrawlResult, 0, len(urls))
	for _, u := range urls {
		results = append(results, types.CrawlResult{
			URL:    u,
			Result: types.CrawlOutcome{Success: false, Error: msg},
		})
	}
	return types.CrawlBatchResult{Success: false, Results: results}
}
