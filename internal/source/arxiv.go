package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// arXiv Atom feed XML structures

type arxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string          `xml:"id"`
	Title     string          `xml:"title"`
	Summary   string          `xml:"summary"`
	Authors   []arxivAuthor   `xml:"author"`
	Links     []arxivLink     `xml:"link"`
	Published string          `xml:"published"`
	Category  []arxivCategory `xml:"category"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Type  string `xml:"type,attr"`
	Rel   string `xml:"rel,attr"`
	Title string `xml:"title,attr"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

var arxivVersionRegex = regexp.MustCompile(`v\d+$`)

// ArxivSource fetches papers from the arXiv API.
type ArxivSource struct {
	name       string
	categories []string
	maxResults int
	client     *http.Client
	baseURL    string
}

func NewArxivSource(name string, categories []string, maxResults int) *ArxivSource {
	return &ArxivSource{
		name:       name,
		categories: categories,
		maxResults: maxResults,
		client:     &http.Client{Timeout: 30 * time.Second},
		baseURL:    "http://export.arxiv.org/api/query",
	}
}

func (s *ArxivSource) Name() string { return s.name }

func (s *ArxivSource) Fetch(ctx context.Context, since time.Time) ([]Paper, error) {
	terms := make([]string, len(s.categories))
	for i, c := range s.categories {
		terms[i] = "cat:" + c
	}

	query := url.Values{}
	query.Set("search_query", strings.Join(terms, " OR "))
	query.Set("start", "0")
	query.Set("max_results", fmt.Sprintf("%d", s.maxResults))
	query.Set("sortBy", "submittedDate")
	query.Set("sortOrder", "descending")

	reqURL := fmt.Sprintf("%s?%s", s.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("arxiv: failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("arxiv: failed to read response: %w", err)
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("arxiv: failed to parse XML: %w", err)
	}

	papers := make([]Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		published, _ := time.Parse(time.RFC3339, entry.Published)
		if !since.IsZero() && published.Before(since) {
			continue
		}

		authors := make([]string, len(entry.Authors))
		for i, a := range entry.Authors {
			authors[i] = strings.TrimSpace(a.Name)
		}

		id := arxivID(entry.ID)

		var paperURL, pdfURL string
		for _, link := range entry.Links {
			switch {
			case link.Title == "pdf" || link.Type == "application/pdf":
				pdfURL = link.Href
			case link.Rel == "alternate" || (link.Type == "text/html" && paperURL == ""):
				paperURL = link.Href
			}
		}
		if paperURL == "" {
			paperURL = entry.ID
		}
		if pdfURL == "" && id != "" {
			pdfURL = "https://arxiv.org/pdf/" + id
		}
		if id == "" {
			id = paperURL
		}

		categories := make([]string, len(entry.Category))
		for i, c := range entry.Category {
			categories[i] = c.Term
		}

		papers = append(papers, Paper{
			ID:         id,
			Title:      strings.TrimSpace(entry.Title),
			Authors:    authors,
			Abstract:   strings.TrimSpace(entry.Summary),
			Categories: categories,
			Published:  published,
			URL:        paperURL,
			PDFURL:     pdfURL,
			Source:     s.name,
		})
	}

	return papers, nil
}

// arxivID extracts the bare identifier from an Atom entry ID such as
// http://arxiv.org/abs/2401.12345v2. The version suffix is stripped so
// revised papers keep the same identity.
func arxivID(entryID string) string {
	idx := strings.Index(entryID, "/abs/")
	if idx < 0 {
		return ""
	}
	id := entryID[idx+len("/abs/"):]
	return arxivVersionRegex.ReplaceAllString(id, "")
}
