package summarizer

import (
	"fmt"
	"strings"

	"paperdaily/internal/source"
)

func buildPrompt(p source.Paper, text string) string {
	var sb strings.Builder

	sb.WriteString("You are an expert reviewer of computer systems research. Summarize the paper below for a daily engineering digest.\n\n")
	sb.WriteString("Respond in markdown with exactly these four sections:\n\n")
	sb.WriteString("## Core Pain Point\nThe concrete problem the paper attacks and why existing approaches fall short.\n\n")
	sb.WriteString("## Key Design\nThe main technical ideas as a short bulleted list.\n\n")
	sb.WriteString("## Evaluation\nHow the work was evaluated and the headline results.\n\n")
	sb.WriteString("## Industrial Applicability\nWhere a practitioner could apply this today.\n\n")
	sb.WriteString("Do not add any other sections or preamble.\n\n")

	fmt.Fprintf(&sb, "Title: %s\n", p.Title)
	if len(p.Authors) > 0 {
		fmt.Fprintf(&sb, "Authors: %s\n", strings.Join(p.Authors, ", "))
	}
	if len(p.Categories) > 0 {
		fmt.Fprintf(&sb, "Categories: %s\n", strings.Join(p.Categories, ", "))
	}
	fmt.Fprintf(&sb, "\n--- Paper text ---\n%s\n", text)

	return sb.String()
}

// Placeholder is archived and delivered when summarization fails so a
// paper is never silently dropped from the digest.
func Placeholder(p source.Paper) string {
	return fmt.Sprintf("## Summary Unavailable\n\nAutomatic summarization failed for this paper. See the abstract at %s.", p.URL)
}

// stripFences removes a wrapping markdown code fence if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```markdown")
	s = strings.TrimPrefix(s, "```md")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// snippet caps provider error bodies so error messages stay readable.
func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
