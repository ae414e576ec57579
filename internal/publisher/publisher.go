// Package publisher delivers finished digests to their destinations.
package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"paperdaily/internal/config"
	"paperdaily/internal/source"
)

// PaperSummary pairs a paper with its markdown summary.
type PaperSummary struct {
	Paper   source.Paper
	Summary string
}

// Digest is one run's delivery payload.
type Digest struct {
	Date   time.Time
	Papers []PaperSummary
}

// Publisher delivers a digest to one destination.
type Publisher interface {
	Publish(ctx context.Context, digest *Digest) error
}

// New builds the enabled publishers. The web publisher is also returned
// separately because its HTTP server needs lifecycle management.
func New(cfg config.PublishersConfig, log zerolog.Logger) ([]Publisher, *WebPublisher, error) {
	var pubs []Publisher

	if cfg.Stdout.Enabled {
		pubs = append(pubs, NewStdoutPublisher())
	}
	if cfg.Webhook.Enabled {
		pubs = append(pubs, NewWebhookPublisher(cfg.Webhook.URL))
	}
	if cfg.Email.Enabled {
		pubs = append(pubs, NewEmailPublisher(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.Username, cfg.Email.Password, cfg.Email.From, cfg.Email.To))
	}

	var webPub *WebPublisher
	if cfg.Web.Enabled {
		webPub = NewWebPublisher(cfg.Web.Addr, log)
		pubs = append(pubs, webPub)
	}

	if len(pubs) == 0 {
		return nil, nil, fmt.Errorf("publisher: no publisher enabled")
	}
	return pubs, webPub, nil
}
