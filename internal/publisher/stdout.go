package publisher

import (
	"context"
	"fmt"
	"strings"
)

// StdoutPublisher prints the digest to stdout.
type StdoutPublisher struct{}

func NewStdoutPublisher() *StdoutPublisher {
	return &StdoutPublisher{}
}

func (p *StdoutPublisher) Publish(_ context.Context, digest *Digest) error {
	fmt.Println(strings.Repeat("=", 72))
	fmt.Printf("Paper Digest %s\n", digest.Date.Format("2006-01-02"))
	fmt.Printf("Papers: %d\n", len(digest.Papers))
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println()

	for i, ps := range digest.Papers {
		fmt.Println(strings.Repeat("-", 72))
		fmt.Printf("%d. %s\n", i+1, ps.Paper.Title)
		if len(ps.Paper.Authors) > 0 {
			fmt.Printf("   Authors: %s\n", strings.Join(ps.Paper.Authors, ", "))
		}
		fmt.Printf("   URL: %s\n", ps.Paper.URL)
		fmt.Printf("   Source: %s\n", ps.Paper.Source)
		fmt.Println()
		fmt.Println(indent(ps.Summary, "   "))
		fmt.Println()
	}

	fmt.Println(strings.Repeat("=", 72))
	return nil
}

// indent prefixes every non-empty line of s.
func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
