package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"paperdaily/internal/filter"
	"paperdaily/internal/publisher"
	"paperdaily/internal/source"
	"paperdaily/internal/store"
	"paperdaily/internal/summarizer"
)

// ErrAllSourcesFailed is returned when every configured source fails to
// fetch. A run with at least one working source proceeds with what it got.
var ErrAllSourcesFailed = errors.New("runner: all sources failed")

// Extractor pulls readable text out of a paper.
type Extractor interface {
	Extract(ctx context.Context, p source.Paper) (string, error)
}

// Deduplicator tracks which papers have already been archived.
type Deduplicator interface {
	Load(ctx context.Context, day time.Time) error
	Seen(id string) bool
	Archive(ctx context.Context, day time.Time, records []store.Record) error
}

// Stats reports what a single run did. FirstErrors keeps the first error
// message per pipeline stage for runs that degraded instead of failing.
type Stats struct {
	Fetched     int
	Filtered    int
	Deduped     int
	Summarized  int
	Delivered   int
	Archived    int
	FirstErrors map[string]string
}

func newStats() *Stats {
	return &Stats{FirstErrors: make(map[string]string)}
}

func (s *Stats) recordError(stage string, err error) {
	if _, ok := s.FirstErrors[stage]; !ok {
		s.FirstErrors[stage] = err.Error()
	}
}

// Deps carries everything a Runner needs. All fields except Workers,
// Lookback and NotifyEmpty are required.
type Deps struct {
	Sources     []source.Source
	Filter      *filter.Filter
	Dedup       Deduplicator
	Extractor   Extractor
	Summarizer  summarizer.Summarizer
	Publishers  []publisher.Publisher
	Lookback    time.Duration
	Workers     int
	NotifyEmpty bool
	Log         zerolog.Logger
}

// Runner orchestrates the fetch -> filter -> dedup -> summarize ->
// publish -> archive pipeline.
type Runner struct {
	deps Deps
}

func New(deps Deps) *Runner {
	if deps.Workers < 1 {
		deps.Workers = 1
	}
	return &Runner{deps: deps}
}

// Run executes the full pipeline once. Per-paper and per-publisher
// failures degrade the run; only config problems and a total fetch
// failure abort it.
func (r *Runner) Run(ctx context.Context) (*Stats, error) {
	stats := newStats()
	day := time.Now()
	since := day.Add(-r.deps.Lookback)

	// Fetch from every source. One bad source does not stop the run.
	var papers []source.Paper
	failed := 0
	for _, src := range r.deps.Sources {
		fetched, err := src.Fetch(ctx, since)
		if err != nil {
			failed++
			stats.recordError("fetch", err)
			r.deps.Log.Warn().Err(err).Str("source", src.Name()).Msg("fetch failed")
			continue
		}
		r.deps.Log.Debug().Str("source", src.Name()).Int("papers", len(fetched)).Msg("fetched")
		papers = append(papers, fetched...)
	}
	if len(r.deps.Sources) > 0 && failed == len(r.deps.Sources) {
		return stats, fmt.Errorf("%w: %s", ErrAllSourcesFailed, stats.FirstErrors["fetch"])
	}
	stats.Fetched = len(papers)

	var matched []source.Paper
	for _, p := range papers {
		if r.deps.Filter.Matches(p) {
			matched = append(matched, p)
		}
	}
	stats.Filtered = len(matched)

	// A partial dedup state read degrades to a smaller known set rather
	// than aborting. Worst case some papers are re-summarized; the
	// archival step skips entries already present in the issue body.
	if err := r.deps.Dedup.Load(ctx, day); err != nil {
		stats.recordError("dedup", err)
		r.deps.Log.Warn().Err(err).Msg("dedup state load incomplete")
	}

	// The same paper can arrive from several sources in one run. The
	// first occurrence wins.
	seen := make(map[string]bool)
	var fresh []source.Paper
	for _, p := range matched {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		if r.deps.Dedup.Seen(p.ID) {
			stats.Deduped++
			continue
		}
		fresh = append(fresh, p)
	}

	// Extract and summarize concurrently. A failed extraction falls back
	// to the abstract, a failed summarization to a placeholder. Workers
	// never fail the group, so every paper keeps its slot in results.
	results := make([]publisher.PaperSummary, len(fresh))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.deps.Workers)
	for i, p := range fresh {
		g.Go(func() error {
			text, err := r.deps.Extractor.Extract(gctx, p)
			if err != nil {
				mu.Lock()
				stats.recordError("extract", err)
				mu.Unlock()
				r.deps.Log.Warn().Err(err).Str("paper", p.ID).Msg("extraction failed, using abstract")
				text = p.Abstract
			}

			sum, err := r.deps.Summarizer.Summarize(gctx, p, text)
			if err != nil {
				mu.Lock()
				stats.recordError("summarize", err)
				mu.Unlock()
				r.deps.Log.Warn().Err(err).Str("paper", p.ID).Msg("summarization failed, using placeholder")
				sum = summarizer.Placeholder(p)
			} else {
				mu.Lock()
				stats.Summarized++
				mu.Unlock()
			}

			results[i] = publisher.PaperSummary{Paper: p, Summary: sum}
			return nil
		})
	}
	_ = g.Wait()

	if len(results) > 0 || r.deps.NotifyEmpty {
		digest := &publisher.Digest{Date: day, Papers: results}
		for _, pub := range r.deps.Publishers {
			if err := pub.Publish(ctx, digest); err != nil {
				stats.recordError("deliver", err)
				r.deps.Log.Error().Err(err).Msgf("publish via %T failed", pub)
				continue
			}
			stats.Delivered++
		}
	}

	// Archive after delivery so a broken tracker cannot hold the digest
	// hostage. A failure here means tomorrow's run may re-process these
	// papers; the issue append is idempotent, so no duplicates result.
	if len(results) > 0 {
		now := time.Now()
		records := make([]store.Record, 0, len(results))
		for _, ps := range results {
			records = append(records, store.Record{
				ID:          ps.Paper.ID,
				Title:       ps.Paper.Title,
				URL:         ps.Paper.URL,
				Source:      ps.Paper.Source,
				Summary:     ps.Summary,
				ProcessedAt: now,
				Delivered:   stats.Delivered > 0,
			})
		}
		if err := r.deps.Dedup.Archive(ctx, day, records); err != nil {
			stats.recordError("archive", err)
			r.deps.Log.Error().Err(err).Msg("archival failed; summaries were still delivered")
		} else {
			stats.Archived = len(records)
		}
	}

	r.logSummary(stats)
	return stats, nil
}

func (r *Runner) logSummary(stats *Stats) {
	ev := r.deps.Log.Info().
		Int("fetched", stats.Fetched).
		Int("filtered", stats.Filtered).
		Int("deduped", stats.Deduped).
		Int("summarized", stats.Summarized).
		Int("delivered", stats.Delivered).
		Int("archived", stats.Archived)
	for stage, msg := range stats.FirstErrors {
		ev = ev.Str("first_error_"+stage, msg)
	}
	ev.Msg("run complete")
}
