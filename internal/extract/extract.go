// Package extract downloads paper PDFs and pulls plain text out of them
// for summarization.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"paperdaily/internal/config"
	"paperdaily/internal/source"
)

const (
	ModePartial = "partial"
	ModeFull    = "full"
)

var ErrNoPDF = errors.New("extract: paper has no pdf url")

// Extractor pulls text from paper PDFs. Partial mode reads the opening
// pages plus the closing pages, which is where abstract, design and
// evaluation content lives in most papers.
type Extractor struct {
	client     *http.Client
	mode       string
	firstPages int
	lastPages  int
	maxChars   int
}

func New(cfg config.ExtractConfig) *Extractor {
	return &Extractor{
		client:     &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		mode:       cfg.Mode,
		firstPages: cfg.FirstPages,
		lastPages:  cfg.LastPages,
		maxChars:   cfg.MaxChars,
	}
}

// Extract downloads the paper PDF and returns its text clipped to the
// configured character cap.
func (e *Extractor) Extract(ctx context.Context, p source.Paper) (string, error) {
	if p.PDFURL == "" {
		return "", ErrNoPDF
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.PDFURL, nil)
	if err != nil {
		return "", fmt.Errorf("extract: failed to create request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("extract: download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("extract: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("extract: failed to read pdf: %w", err)
	}

	text, err := e.extractText(data)
	if err != nil {
		return "", err
	}
	return clip(text, e.maxChars), nil
}

func (e *Extractor) extractText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("extract: failed to parse pdf: %w", err)
	}

	total := r.NumPage()
	var parts []string
	for _, n := range pagePlan(e.mode, total, e.firstPages, e.lastPages) {
		page := r.Page(n)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("[Page %d]\n%s", n, strings.TrimSpace(text)))
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("extract: no text extracted")
	}
	return strings.Join(parts, "\n\n"), nil
}

// pagePlan returns the 1-based page numbers to read. Partial plans never
// contain duplicates even when the ranges meet in the middle.
func pagePlan(mode string, total, firstN, lastN int) []int {
	if total <= 0 {
		return nil
	}
	if mode == ModeFull {
		pages := make([]int, total)
		for i := range pages {
			pages[i] = i + 1
		}
		return pages
	}

	if firstN > total {
		firstN = total
	}
	pages := make([]int, 0, firstN+lastN)
	for n := 1; n <= firstN; n++ {
		pages = append(pages, n)
	}
	lastStart := total - lastN + 1
	if lastStart <= firstN {
		lastStart = firstN + 1
	}
	for n := lastStart; n <= total; n++ {
		pages = append(pages, n)
	}
	return pages
}

func clip(s string, maxChars int) string {
	if maxChars <= 0 || len(s) <= maxChars {
		return s
	}
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "\n\n[truncated]"
}
