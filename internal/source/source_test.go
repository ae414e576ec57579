package source

import (
	"errors"
	"testing"

	"paperdaily/internal/config"
)

func TestNewArxiv(t *testing.T) {
	src, err := New(config.SourceConfig{
		Type:       "arxiv",
		Name:       "systems",
		Categories: []string{"cs.OS"},
		MaxResults: 10,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if src.Name() != "systems" {
		t.Errorf("Expected name 'systems', got %q", src.Name())
	}
	if _, ok := src.(*ArxivSource); !ok {
		t.Errorf("Expected *ArxivSource, got %T", src)
	}
}

func TestNewRSS(t *testing.T) {
	src, err := New(config.SourceConfig{
		Type:    "rss",
		Name:    "blog",
		FeedURL: "https://example.com/feed.xml",
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, ok := src.(*RSSSource); !ok {
		t.Errorf("Expected *RSSSource, got %T", src)
	}
}

func TestNewUnsupportedType(t *testing.T) {
	_, err := New(config.SourceConfig{Type: "usenet"})
	if err == nil {
		t.Fatal("Expected error for unsupported source type")
	}
	if !errors.Is(err, ErrUnsupportedSourceType) {
		t.Errorf("Expected ErrUnsupportedSourceType, got: %v", err)
	}
}
