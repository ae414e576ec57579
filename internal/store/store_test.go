package store

import (
	"errors"
	"testing"

	"paperdaily/internal/config"
)

func TestNewGitHub(t *testing.T) {
	s, err := New(config.StoreConfig{
		Type:  "github",
		Token: "test-token",
		Owner: "octocat",
		Repo:  "papers",
		Label: "daily-paper",
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, ok := s.(*GitHubStore); !ok {
		t.Errorf("Expected *GitHubStore, got %T", s)
	}
}

func TestNewUnsupportedType(t *testing.T) {
	_, err := New(config.StoreConfig{Type: "dynamodb"})
	if err == nil {
		t.Fatal("Expected error for unsupported store type")
	}
	if !errors.Is(err, ErrUnsupportedStoreType) {
		t.Errorf("Expected ErrUnsupportedStoreType, got: %v", err)
	}
}
