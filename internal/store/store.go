// Package store persists processed papers as daily aggregate records in
// an external tracker and answers which papers were already handled.
package store

import (
	"context"
	"fmt"
	"time"

	"paperdaily/internal/config"
)

// Record is one processed paper ready for archival. Delivered reports
// whether at least one sink accepted the digest containing it.
type Record struct {
	ID          string
	Title       string
	URL         string
	Source      string
	Summary     string
	ProcessedAt time.Time
	Delivered   bool
}

// Store reads and appends daily aggregate records. Implementations must
// keep one aggregate per calendar day and never drop entries that are
// already archived.
type Store interface {
	// RecordedIDs returns the paper IDs already archived for the given day.
	RecordedIDs(ctx context.Context, day time.Time) (map[string]bool, error)
	// Archive appends the records to the day's aggregate, creating it if
	// missing. Records whose ID is already present are skipped.
	Archive(ctx context.Context, day time.Time, records []Record) error
}

var ErrUnsupportedStoreType = fmt.Errorf("store: unsupported store type")

// New builds a store from its configuration.
func New(cfg config.StoreConfig) (Store, error) {
	switch cfg.Type {
	case "github":
		return NewGitHubStore(cfg.Token, cfg.Owner, cfg.Repo, cfg.Label), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedStoreType, cfg.Type)
	}
}
