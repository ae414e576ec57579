package publisher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"paperdaily/internal/retry"
	"paperdaily/internal/source"
)

func TestWebhookPublishDiscord(t *testing.T) {
	var (
		mu       sync.Mutex
		payloads []discordPayload
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p discordPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("Failed to decode payload: %v", err)
		}
		mu.Lock()
		payloads = append(payloads, p)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	pub := &WebhookPublisher{
		webhookURL: ts.URL + "/discord/webhook",
		client:     ts.Client(),
	}

	if err := pub.Publish(context.Background(), sampleDigest()); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	if len(payloads) != 1 {
		t.Fatalf("Expected 1 payload, got %d", len(payloads))
	}
	embeds := payloads[0].Embeds
	if len(embeds) != 3 {
		t.Fatalf("Expected 3 embeds (header + 2 papers), got %d", len(embeds))
	}
	if !strings.Contains(embeds[0].Title, "Paper Digest") {
		t.Errorf("Expected header embed title to contain 'Paper Digest', got %q", embeds[0].Title)
	}
	if !strings.Contains(embeds[0].Description, "2 new papers") {
		t.Errorf("Expected header description to mention paper count, got %q", embeds[0].Description)
	}
	if embeds[1].Title != "Fast RDMA for Disaggregated Memory" {
		t.Errorf("Expected first paper title, got %q", embeds[1].Title)
	}
	if embeds[1].URL != "http://arxiv.org/abs/2401.12345" {
		t.Errorf("Expected paper URL, got %q", embeds[1].URL)
	}
	if embeds[1].Footer == nil || !strings.Contains(embeds[1].Footer.Text, "arxiv") {
		t.Error("Expected paper footer to mention the source")
	}
}

func TestWebhookPublishSlack(t *testing.T) {
	var (
		mu       sync.Mutex
		payloads []slackPayload
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p slackPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("Failed to decode payload: %v", err)
		}
		mu.Lock()
		payloads = append(payloads, p)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	pub := &WebhookPublisher{
		webhookURL: ts.URL + "/services/hook",
		client:     ts.Client(),
	}

	if err := pub.Publish(context.Background(), sampleDigest()); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	if len(payloads) != 1 {
		t.Fatalf("Expected 1 payload, got %d", len(payloads))
	}
	blocks := payloads[0].Blocks
	if len(blocks) != 3 {
		t.Fatalf("Expected 3 blocks (header + 2 papers), got %d", len(blocks))
	}
	if blocks[0].Type != "header" {
		t.Errorf("Expected first block type 'header', got %q", blocks[0].Type)
	}
	if blocks[0].Text == nil || blocks[0].Text.Type != "plain_text" {
		t.Error("Expected header block with plain_text")
	}
	if blocks[1].Type != "section" {
		t.Errorf("Expected second block type 'section', got %q", blocks[1].Type)
	}
	if blocks[1].Text == nil || !strings.Contains(blocks[1].Text.Text, "*<http://arxiv.org/abs/2401.12345|Fast RDMA for Disaggregated Memory>*") {
		t.Error("Expected section block with linked paper title")
	}
}

func TestWebhookPublishBatchesLargeDigest(t *testing.T) {
	var (
		mu    sync.Mutex
		posts int
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		posts++
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	digest := &Digest{Date: time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)}
	for i := 0; i < 12; i++ {
		digest.Papers = append(digest.Papers, PaperSummary{
			Paper:   source.Paper{ID: "p", Title: "Paper", URL: "http://example.com"},
			Summary: "summary",
		})
	}

	pub := &WebhookPublisher{
		webhookURL: ts.URL + "/discord/webhook",
		client:     ts.Client(),
	}

	if err := pub.Publish(context.Background(), digest); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	// 13 embeds (header + 12 papers) split into batches of 10.
	if posts != 2 {
		t.Errorf("Expected 2 POST requests, got %d", posts)
	}
}

func TestWebhookPublishBadStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	pub := &WebhookPublisher{
		webhookURL: ts.URL,
		client:     ts.Client(),
	}

	err := pub.Publish(context.Background(), sampleDigest())
	if err == nil {
		t.Fatal("Expected error for 400 response")
	}
	if !strings.Contains(err.Error(), "unexpected status 400") {
		t.Errorf("Expected status error, got: %v", err)
	}
}

func TestWebhookPublishRetriesServerError(t *testing.T) {
	var (
		mu       sync.Mutex
		attempts int
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	pub := &WebhookPublisher{
		webhookURL:  ts.URL,
		client:      ts.Client(),
		retryConfig: retry.Config{MaxRetries: 2, BaseDelay: time.Millisecond},
	}

	if err := pub.Publish(context.Background(), sampleDigest()); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
}
