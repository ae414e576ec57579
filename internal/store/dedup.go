package store

import (
	"context"
	"time"
)

// Deduplicator answers whether a paper was already processed by loading
// archived IDs from a trailing window of daily aggregates.
type Deduplicator struct {
	store Store
	days  int
	known map[string]bool
}

// NewDeduplicator loads IDs from the given number of trailing days,
// including the current day.
func NewDeduplicator(store Store, trailingDays int) *Deduplicator {
	if trailingDays < 1 {
		trailingDays = 1
	}
	return &Deduplicator{
		store: store,
		days:  trailingDays,
		known: make(map[string]bool),
	}
}

// Load fetches archived IDs for the window ending at day. Days that fail
// to load are skipped so one bad read never blocks the pipeline; the
// first error is returned for reporting and the loaded subset is kept.
func (d *Deduplicator) Load(ctx context.Context, day time.Time) error {
	known := make(map[string]bool)
	var firstErr error

	for i := 0; i < d.days; i++ {
		ids, err := d.store.RecordedIDs(ctx, day.AddDate(0, 0, -i))
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for id := range ids {
			known[id] = true
		}
	}

	d.known = known
	return firstErr
}

// Seen reports whether the paper ID was archived inside the window.
func (d *Deduplicator) Seen(id string) bool {
	return d.known[id]
}

// Archive persists the records for the day. Empty batches are skipped
// so no aggregate is created for a day with no new papers.
func (d *Deduplicator) Archive(ctx context.Context, day time.Time, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	return d.store.Archive(ctx, day, records)
}
