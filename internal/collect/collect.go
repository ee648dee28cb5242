// Package collect orchestrates a collection run: per-source fetch,
// normalize and filter under isolated error handling, one dedup pass
// per region, and assembly of the final result document.
package collect

import (
	"context"
	"sync"
	"time"

	"finnews/internal/feed"
	"finnews/internal/fetch"
	"finnews/internal/logger"
	"finnews/internal/metrics"
	"finnews/internal/news"
	"finnews/internal/sources"
	"finnews/internal/storage"
)

// SourceError names a source that contributed zero items and why.
type SourceError struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// RegionResult is one region's slice of the output document.
type RegionResult struct {
	Items   []news.Item   `json:"items"`
	Errors  []SourceError `json:"errors"`
	Sources []string      `json:"sources"`
}

// Result is the complete output document of one run.
type Result struct {
	GeneratedAt time.Time                `json:"generated_at"`
	WindowHours float64                  `json:"window_hours"`
	CutoffUTC   time.Time                `json:"cutoff_utc"`
	Regions     map[string]*RegionResult `json:"regions"`
}

// Collector runs the collection pipeline over a source registry.
type Collector struct {
	registry    *sources.Registry
	fetcher     *fetch.Fetcher
	windowHours float64
	concurrency int
	seen        *storage.SeenStore // optional cross-run suppression
}

type Options struct {
	WindowHours float64
	Concurrency int
	Seen        *storage.SeenStore
}

func New(registry *sources.Registry, fetcher *fetch.Fetcher, opts Options) *Collector {
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Collector{
		registry:    registry,
		fetcher:     fetcher,
		windowHours: opts.WindowHours,
		concurrency: concurrency,
		seen:        opts.Seen,
	}
}

// Run collects every region and always returns a complete result:
// source-level failures are recorded in the region's error list, never
// propagated. Each run starts from configuration only.
func (c *Collector) Run(ctx context.Context) *Result {
	start := time.Now()
	defer func() {
		metrics.Global.RecordCollectionTime(time.Since(start))
		metrics.Global.SetLastRun()
	}()

	now := time.Now().UTC()
	cutoff := now.Add(-time.Duration(c.windowHours * float64(time.Hour)))

	result := &Result{
		GeneratedAt: now,
		WindowHours: c.windowHours,
		CutoffUTC:   cutoff,
		Regions:     make(map[string]*RegionResult, len(c.registry.Regions)),
	}

	for _, region := range c.registry.Regions {
		result.Regions[region.Name] = c.collectRegion(ctx, region, cutoff)
	}
	return result
}

// collectRegion runs all of a region's sources with bounded parallelism
// and then a single dedup pass. The accumulating item and error lists
// are the only shared state; a mutex guards every append. Completion
// order does not matter because Dedup re-sorts by (published, weight).
func (c *Collector) collectRegion(ctx context.Context, region sources.Region, cutoff time.Time) *RegionResult {
	rr := &RegionResult{
		Items:   []news.Item{},
		Errors:  []SourceError{},
		Sources: make([]string, 0, len(region.Sources)),
	}
	for _, src := range region.Sources {
		rr.Sources = append(rr.Sources, src.ID)
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, c.concurrency)
	)

	for _, src := range region.Sources {
		wg.Add(1)
		sem <- struct{}{}
		go func(src sources.Source) {
			defer wg.Done()
			defer func() { <-sem }()

			items, err := c.collectSource(ctx, src, cutoff)
			metrics.Global.IncrementSourcesProcessed()

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Isolated failure boundary: record and move on, no
				// partial items from a failing source.
				metrics.Global.IncrementFetchErrors()
				logger.Warn("source failed", "region", region.Name, "source", src.ID, "error", err)
				rr.Errors = append(rr.Errors, SourceError{Source: src.ID, Error: err.Error()})
				return
			}
			rr.Items = append(rr.Items, items...)
		}(src)
	}
	wg.Wait()

	metrics.Global.AddItemsCollected(len(rr.Items))
	rr.Items = news.Dedup(rr.Items, c.registry.Threshold)

	if c.seen != nil {
		rr.Items = c.suppressSeen(rr.Items)
	}

	logger.Info("region collected", "region", region.Name,
		"items", len(rr.Items), "errors", len(rr.Errors), "sources", len(rr.Sources))
	return rr
}

// collectSource runs the per-source pipeline: resolve, fetch, normalize,
// filter. Any failure at any stage fails the whole source.
func (c *Collector) collectSource(ctx context.Context, src sources.Source, cutoff time.Time) ([]news.Item, error) {
	feedURL, err := sources.ResolveURL(src)
	if err != nil {
		return nil, err
	}

	raw, err := c.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	entries, err := feed.Normalize(raw)
	if err != nil {
		return nil, err
	}

	items := make([]news.Item, 0, len(entries))
	for _, e := range entries {
		var published time.Time
		if e.Published != nil {
			published = *e.Published
		}
		items = append(items, news.Item{
			Title:       e.Title,
			Link:        e.Link,
			PublishedAt: published,
			Source:      src.Name,
			SourceID:    src.ID,
			Language:    src.Language,
			Weight:      src.Weight,
			Tags:        tagsOrEmpty(src.Tags),
			RawSummary:  e.Summary,
			FeedURL:     feedURL,
		})
	}

	kept := news.FilterRecent(items, cutoff)
	metrics.Global.AddStaleDropped(len(items) - len(kept))
	logger.Debug("source collected", "source", src.ID, "parsed", len(items), "recent", len(kept))
	return kept, nil
}

// suppressSeen drops primaries already emitted by an earlier run and
// records the survivors. Runs after dedup: suppression only, never a
// merge record.
func (c *Collector) suppressSeen(items []news.Item) []news.Item {
	kept := items[:0]
	for _, it := range items {
		if c.seen.Seen(it.Link) {
			metrics.Global.IncrementLinksSuppressed()
			logger.Debug("suppressed previously emitted link", "link", it.Link)
			continue
		}
		c.seen.Mark(it.Link, it.Title, it.Source)
		kept = append(kept, it)
	}
	return kept
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
