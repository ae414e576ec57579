package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// RSSSource fetches papers from an RSS or Atom feed such as a lab blog
// or conference proceedings feed.
type RSSSource struct {
	name    string
	feedURL string
	client  *http.Client
}

func NewRSSSource(name, feedURL string) *RSSSource {
	return &RSSSource{
		name:    name,
		feedURL: feedURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *RSSSource) Name() string { return s.name }

func (s *RSSSource) Fetch(ctx context.Context, since time.Time) ([]Paper, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("rss: failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rss: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rss: unexpected status %d", resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("rss: failed to parse feed: %w", err)
	}

	papers := make([]Paper, 0, len(feed.Items))
	for _, item := range feed.Items {
		var published time.Time
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			published = *item.UpdatedParsed
		}
		if !since.IsZero() && published.Before(since) {
			continue
		}

		id := item.GUID
		if id == "" {
			id = item.Link
		}

		var authors []string
		for _, a := range item.Authors {
			if a != nil && a.Name != "" {
				authors = append(authors, a.Name)
			}
		}

		var pdfURL string
		for _, enc := range item.Enclosures {
			if enc != nil && enc.Type == "application/pdf" {
				pdfURL = enc.URL
				break
			}
		}

		abstract := item.Description
		if abstract == "" {
			abstract = item.Content
		}

		papers = append(papers, Paper{
			ID:         id,
			Title:      strings.TrimSpace(item.Title),
			Authors:    authors,
			Abstract:   stripHTML(abstract),
			Categories: item.Categories,
			Published:  published,
			URL:        item.Link,
			PDFURL:     pdfURL,
			Source:     s.name,
		})
	}

	return papers, nil
}

// stripHTML reduces feed markup to plain text. Feeds commonly wrap
// abstracts in <p> tags or embed full HTML excerpts.
func stripHTML(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}
