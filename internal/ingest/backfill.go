package ingest

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kefis/kefis/internal/obs"
)

// BackfillOptions configures a historical re-crawl across one or more
// sources. Ported from original_source/etl/backfill.py's
// BACKFILL_SOURCES/BACKFILL_YEAR_FROM/BACKFILL_YEAR_TO/
// BACKFILL_CONCURRENCY environment knobs.
type BackfillOptions struct {
	Sources     []string
	YearFrom    int // 0 means unbounded
	YearTo      int // 0 means unbounded
	Concurrency int // default 3
}

// BackfillSummary is the JSON artifact a backfill run leaves behind,
// mirroring run_backfill's summary dict shape.
type BackfillSummary struct {
	Requested    int             `json:"requested"`
	Filtered     int             `json:"filtered"`
	QueuedUnique int             `json:"queued_unique"`
	Succeeded    int             `json:"succeeded"`
	Failed       int             `json:"failed"`
	Sources      []string        `json:"sources"`
	YearFrom     int             `json:"year_from,omitempty"`
	YearTo       int             `json:"year_to,omitempty"`
	PerSource    []*SourceResult `json:"per_source"`
}

var yearRangePattern = regexp.MustCompile(`(20\d{2})\s*[/\x{2013}-]\s*(20\d{2})`)
var yearSinglePattern = regexp.MustCompile(`(20\d{2})`)

// yearFromTitle extracts a publication year from a title or URL,
// preferring the first year of a "2019/2020"-style range. Returns 0
// (unknown) rather than Python's None, so callers treat 0 the same
// way the original treats a missing year: keep the document rather
// than drop it.
func yearFromTitle(title string) int {
	lower := strings.ToLower(title)
	if m := yearRangePattern.FindStringSubmatch(lower); m != nil {
		if y, err := strconv.Atoi(m[1]); err == nil {
			return y
		}
	}
	if m := yearSinglePattern.FindStringSubmatch(lower); m != nil {
		if y, err := strconv.Atoi(m[1]); err == nil {
			return y
		}
	}
	return 0
}

// filterByYear keeps docs with an unknown year (to avoid missing
// important documents) and drops only those whose extracted year
// falls outside [from, to]. from/to of 0 are treated as unbounded.
func filterByYear(docs []DiscoveredDocument, from, to int) []DiscoveredDocument {
	if from == 0 && to == 0 {
		return docs
	}
	var kept []DiscoveredDocument
	for _, d := range docs {
		y := d.FiscalYear
		if y == 0 {
			title := d.Title
			if title == "" {
				title = d.URL
			}
			y = yearFromTitle(title)
		}
		if y == 0 {
			kept = append(kept, d)
			continue
		}
		if from != 0 && y < from {
			continue
		}
		if to != 0 && y > to {
			continue
		}
		kept = append(kept, d)
	}
	return kept
}

// dedupeByURL preserves first-seen order, matching the Python
// original's seen-set queue construction.
func dedupeByURL(docs []DiscoveredDocument) []DiscoveredDocument {
	seen := make(map[string]bool, len(docs))
	var queue []DiscoveredDocument
	for _, d := range docs {
		if d.URL == "" || seen[d.URL] {
			continue
		}
		seen[d.URL] = true
		queue = append(queue, d)
	}
	return queue
}

// RunBackfill discovers documents across opts.Sources, filters by
// year window, dedupes by URL, and processes the resulting queue with
// bounded concurrency via errgroup.SetLimit — the Go analogue of
// run_backfill's asyncio.Semaphore-gated gather.
func (p *Pipeline) RunBackfill(ctx context.Context, opts BackfillOptions) (*BackfillSummary, error) {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 3
	}

	var allDocs []DiscoveredDocument
	perSourceRequested := map[string][]DiscoveredDocument{}
	for _, key := range opts.Sources {
		cfg, ok := p.Registry.Get(key)
		if !ok {
			obs.Source(key).Msg("backfill: unknown source, skipping")
			continue
		}
		strategy, ok := GlobalDiscoveryFactory.Get(cfg.Discovery)
		if !ok {
			continue
		}
		docs, err := strategy.Discover(ctx, cfg, p.Fetcher)
		if err != nil {
			obs.Source(key).Err(err).Msg("backfill: discovery failed")
			continue
		}
		perSourceRequested[key] = docs
		allDocs = append(allDocs, docs...)
	}

	filtered := filterByYear(allDocs, opts.YearFrom, opts.YearTo)
	queue := dedupeByURL(filtered)

	results := make([]bool, len(queue))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, doc := range queue {
		i, doc := i, doc
		g.Go(func() error {
			cfg, ok := p.Registry.Get(doc.SourceKey)
			if !ok {
				return nil
			}
			_, err := p.ingestOne(gctx, cfg, doc)
			results[i] = err == nil
			if err != nil {
				obs.Source(doc.SourceKey).Err(err).Str("url", doc.URL).Msg("backfill: document failed")
			}
			return nil // one failure must not cancel the rest of the queue
		})
	}
	_ = g.Wait()

	summary := &BackfillSummary{
		Requested:    len(allDocs),
		Filtered:     len(filtered),
		QueuedUnique: len(queue),
		Sources:      opts.Sources,
		YearFrom:     opts.YearFrom,
		YearTo:       opts.YearTo,
	}
	for _, ok := range results {
		if ok {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	for key, docs := range perSourceRequested {
		summary.PerSource = append(summary.PerSource, &SourceResult{SourceKey: key, DocsFound: len(docs)})
	}

	return summary, nil
}
