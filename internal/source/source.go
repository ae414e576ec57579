// Package source fetches paper candidates from external feeds and
// normalizes them into a common shape.
package source

import (
	"context"
	"fmt"
	"time"

	"paperdaily/internal/config"
)

// Paper is a normalized candidate from any feed.
type Paper struct {
	ID         string
	Title      string
	Authors    []string
	Abstract   string
	Categories []string
	Published  time.Time
	URL        string
	PDFURL     string
	Source     string
}

// Source fetches papers published at or after the given time. A zero
// since means no lower bound.
type Source interface {
	Name() string
	Fetch(ctx context.Context, since time.Time) ([]Paper, error)
}

var ErrUnsupportedSourceType = fmt.Errorf("source: unsupported source type")

// New builds a source from its configuration.
func New(cfg config.SourceConfig) (Source, error) {
	switch cfg.Type {
	case "arxiv":
		return NewArxivSource(cfg.Name, cfg.Categories, cfg.MaxResults), nil
	case "rss":
		return NewRSSSource(cfg.Name, cfg.FeedURL), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSourceType, cfg.Type)
	}
}
