package scraper

import (
	"context"
	"runtime"

	"github.com/entrhq/textfrag/pkg/pagetext"
	"golang.org/x/sync/errgroup"
)

// Batch is the outcome of scraping one URL in ScrapeAll.
type Batch struct {
	URL     string   `json:"url" yaml:"url"`
	Results []Result `json:"results" yaml:"results"`
	Err     error    `json:"-" yaml:"-"`
}

// PolicyFunc picks the wait policy for a URL.
type PolicyFunc func(url string) pagetext.WaitPolicy

// ScrapeAll scrapes urls concurrently, at most concurrency at a time
// (GOMAXPROCS when concurrency <= 0). Batches are index-aligned with urls.
// A failing URL records its error in its Batch and does not stop the
// others; the returned error is only set when ctx ends the run.
func (s *Scraper) ScrapeAll(ctx context.Context, urls []string, policy PolicyFunc, concurrency int) ([]Batch, error) {
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	batches := make([]Batch, len(urls))
	if len(urls) == 0 {
		return batches, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(concurrency, len(urls)))

	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			batches[i].URL = url

			if err := gctx.Err(); err != nil {
				batches[i].Err = err
				return nil
			}

			batches[i].Results, batches[i].Err = s.Scrape(gctx, url, policy(url))
			return nil
		})
	}

	_ = g.Wait()
	return batches, ctx.Err()
}

// Fixed returns a PolicyFunc that always yields p.
func Fixed(p pagetext.WaitPolicy) PolicyFunc {
	return func(string) pagetext.WaitPolicy {
		return p
	}
}
