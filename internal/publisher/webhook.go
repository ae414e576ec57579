package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"paperdaily/internal/retry"
)

// Discord embed structures

type discordEmbedFooter struct {
	Text string `json:"text"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	URL         string              `json:"url,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Footer      *discordEmbedFooter `json:"footer,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

// Slack Block Kit structures

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
}

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

// Slack caps messages at 50 blocks.
const maxSlackBlocks = 50

// WebhookPublisher posts the digest to a Discord or Slack incoming
// webhook. The payload format is chosen from the webhook URL.
type WebhookPublisher struct {
	webhookURL  string
	client      *http.Client
	retryConfig retry.Config
}

// NewWebhookPublisher creates a new WebhookPublisher.
func NewWebhookPublisher(webhookURL string) *WebhookPublisher {
	return &WebhookPublisher{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		retryConfig: retry.Config{
			MaxRetries: 3,
			BaseDelay:  1 * time.Second,
		},
	}
}

// Publish sends the digest as a series of webhook messages.
func (w *WebhookPublisher) Publish(ctx context.Context, digest *Digest) error {
	var payloads []any
	if strings.Contains(w.webhookURL, "discord") {
		for _, batch := range batchEmbeds(buildEmbeds(digest)) {
			payloads = append(payloads, discordPayload{Embeds: batch})
		}
	} else {
		for _, blocks := range batchBlocks(buildBlocks(digest)) {
			payloads = append(payloads, slackPayload{Blocks: blocks})
		}
	}

	for i, payload := range payloads {
		err := retry.WithBackoff(ctx, w.retryConfig, func(ctx context.Context) error {
			return w.send(ctx, payload)
		})
		if err != nil {
			return fmt.Errorf("webhook: failed to send message %d: %w", i+1, err)
		}

		// Delay between messages to avoid rate limits.
		if i < len(payloads)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(500 * time.Millisecond):
			}
		}
	}
	return nil
}

func (w *WebhookPublisher) send(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return nil
}

// buildEmbeds creates the header embed and one embed per paper.
func buildEmbeds(digest *Digest) []discordEmbed {
	embeds := make([]discordEmbed, 0, len(digest.Papers)+1)

	header := discordEmbed{
		Title:       fmt.Sprintf("Paper Digest %s", digest.Date.Format("2006-01-02")),
		Description: fmt.Sprintf("%d new papers", len(digest.Papers)),
		Color:       0x5865F2, // Discord blurple
		Timestamp:   digest.Date.Format(time.RFC3339),
	}
	embeds = append(embeds, header)

	for _, ps := range digest.Papers {
		e := discordEmbed{
			Title:       truncate(ps.Paper.Title, 256),
			URL:         ps.Paper.URL,
			Description: truncate(ps.Summary, 4096),
			Color:       0x5865F2,
		}

		var footerParts []string
		if len(ps.Paper.Authors) > 0 {
			footerParts = append(footerParts, strings.Join(ps.Paper.Authors, ", "))
		}
		if ps.Paper.Source != "" {
			footerParts = append(footerParts, ps.Paper.Source)
		}
		if len(footerParts) > 0 {
			e.Footer = &discordEmbedFooter{Text: truncate(strings.Join(footerParts, " | "), 2048)}
		}

		embeds = append(embeds, e)
	}

	return embeds
}

// batchEmbeds splits embeds into batches respecting Discord limits:
// max 10 embeds per message, max 6000 total characters per message.
func batchEmbeds(embeds []discordEmbed) [][]discordEmbed {
	var batches [][]discordEmbed
	var current []discordEmbed
	currentChars := 0

	for _, e := range embeds {
		ec := embedCharCount(e)

		if len(current) > 0 && (len(current) >= 10 || currentChars+ec > 6000) {
			batches = append(batches, current)
			current = nil
			currentChars = 0
		}

		current = append(current, e)
		currentChars += ec
	}

	if len(current) > 0 {
		batches = append(batches, current)
	}

	return batches
}

// buildBlocks creates the header block and one section per paper.
func buildBlocks(digest *Digest) []slackBlock {
	blocks := make([]slackBlock, 0, len(digest.Papers)+1)

	blocks = append(blocks, slackBlock{
		Type: "header",
		Text: &slackText{
			Type: "plain_text",
			Text: fmt.Sprintf("Paper Digest %s (%d papers)", digest.Date.Format("2006-01-02"), len(digest.Papers)),
		},
	})

	for _, ps := range digest.Papers {
		text := fmt.Sprintf("*<%s|%s>*\n%s", ps.Paper.URL, ps.Paper.Title, ps.Summary)
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: truncate(text, 2900)},
		})
	}

	return blocks
}

func batchBlocks(blocks []slackBlock) [][]slackBlock {
	var batches [][]slackBlock
	for len(blocks) > maxSlackBlocks {
		batches = append(batches, blocks[:maxSlackBlocks])
		blocks = blocks[maxSlackBlocks:]
	}
	if len(blocks) > 0 {
		batches = append(batches, blocks)
	}
	return batches
}

// truncate shortens s to max characters, preferring a sentence boundary.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	cut := s[:max-1]
	// Try to cut at a sentence boundary.
	if idx := strings.LastIndexAny(cut, ".!?"); idx > max/2 {
		return cut[:idx+1]
	}
	return cut + "…"
}

// embedCharCount returns the total character count of an embed for batching purposes.
func embedCharCount(e discordEmbed) int {
	n := len(e.Title) + len(e.Description)
	if e.Footer != nil {
		n += len(e.Footer.Text)
	}
	return n
}
