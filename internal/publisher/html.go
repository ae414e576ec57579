package publisher

import (
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// buildHTMLBody renders the digest as a standalone HTML document shared
// by the email and web publishers.
func buildHTMLBody(digest *Digest) string {
	var sb strings.Builder

	sb.WriteString(`<!DOCTYPE html><html><head><style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 700px; margin: 0 auto; padding: 20px; color: #333; }
h1 { color: #1a1a2e; border-bottom: 2px solid #e94560; padding-bottom: 10px; }
.paper { border: 1px solid #ddd; border-radius: 8px; padding: 15px; margin-bottom: 15px; }
.paper h2 { margin-top: 0; color: #0f3460; }
.meta { color: #666; font-size: 0.9em; margin-bottom: 10px; }
.summary h2 { font-size: 1.05em; color: #16213e; }
</style></head><body>`)

	sb.WriteString(fmt.Sprintf("<h1>Paper Digest %s</h1>", digest.Date.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("<p><em>%d papers</em></p>", len(digest.Papers)))

	for _, ps := range digest.Papers {
		sb.WriteString(`<div class="paper">`)
		sb.WriteString(fmt.Sprintf(`<h2><a href="%s">%s</a></h2>`,
			html.EscapeString(ps.Paper.URL), html.EscapeString(ps.Paper.Title)))

		var metaParts []string
		if len(ps.Paper.Authors) > 0 {
			metaParts = append(metaParts, html.EscapeString(strings.Join(ps.Paper.Authors, ", ")))
		}
		if ps.Paper.Source != "" {
			metaParts = append(metaParts, html.EscapeString(ps.Paper.Source))
		}
		if len(metaParts) > 0 {
			sb.WriteString(fmt.Sprintf(`<div class="meta">%s</div>`, strings.Join(metaParts, " | ")))
		}

		sb.WriteString(`<div class="summary">`)
		sb.WriteString(renderMarkdown(ps.Summary))
		sb.WriteString("</div></div>")
	}

	sb.WriteString("</body></html>")
	return sb.String()
}

// renderMarkdown converts summary markdown to HTML, falling back to
// escaped plain text when conversion fails.
func renderMarkdown(src string) string {
	var buf strings.Builder
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "<p>" + html.EscapeString(src) + "</p>"
	}
	return buf.String()
}
