package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// memStore is a hand-rolled Store for deduplicator tests.
type memStore struct {
	mu       sync.Mutex
	byDay    map[string]map[string]bool
	failDays map[string]error
	archived int
}

func newMemStore() *memStore {
	return &memStore{
		byDay:    make(map[string]map[string]bool),
		failDays: make(map[string]error),
	}
}

func dayKey(day time.Time) string {
	return day.Format("2006-01-02")
}

func (m *memStore) seed(day time.Time, ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.byDay[dayKey(day)]
	if set == nil {
		set = make(map[string]bool)
		m.byDay[dayKey(day)] = set
	}
	for _, id := range ids {
		set[id] = true
	}
}

func (m *memStore) RecordedIDs(ctx context.Context, day time.Time) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failDays[dayKey(day)]; err != nil {
		return nil, err
	}
	ids := make(map[string]bool)
	for id := range m.byDay[dayKey(day)] {
		ids[id] = true
	}
	return ids, nil
}

func (m *memStore) Archive(ctx context.Context, day time.Time, records []Record) error {
	m.mu.Lock()
	m.archived++
	m.mu.Unlock()
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	m.seed(day, ids...)
	return nil
}

func TestDeduplicatorWindow(t *testing.T) {
	day := time.Date(2024, 1, 20, 8, 0, 0, 0, time.UTC)
	m := newMemStore()
	m.seed(day, "today-1")
	m.seed(day.AddDate(0, 0, -1), "yesterday-1")
	m.seed(day.AddDate(0, 0, -2), "outside-window")

	d := NewDeduplicator(m, 2)
	if err := d.Load(context.Background(), day); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if !d.Seen("today-1") {
		t.Error("Expected today's ID to be seen")
	}
	if !d.Seen("yesterday-1") {
		t.Error("Expected yesterday's ID to be seen")
	}
	if d.Seen("outside-window") {
		t.Error("Expected ID outside the window to be unseen")
	}
	if d.Seen("never-archived") {
		t.Error("Expected unknown ID to be unseen")
	}
}

func TestDeduplicatorLoadFailureDegrades(t *testing.T) {
	day := time.Date(2024, 1, 20, 8, 0, 0, 0, time.UTC)
	m := newMemStore()
	m.seed(day.AddDate(0, 0, -1), "yesterday-1")
	m.failDays[dayKey(day)] = errors.New("unexpected status 500")

	d := NewDeduplicator(m, 2)
	err := d.Load(context.Background(), day)
	if err == nil {
		t.Fatal("Expected the first load error to be reported")
	}

	// The readable day still contributes to the known set.
	if !d.Seen("yesterday-1") {
		t.Error("Expected yesterday's ID despite today's load failure")
	}
}

func TestDeduplicatorMinimumWindow(t *testing.T) {
	day := time.Date(2024, 1, 20, 8, 0, 0, 0, time.UTC)
	m := newMemStore()
	m.seed(day, "today-1")

	d := NewDeduplicator(m, 0)
	if err := d.Load(context.Background(), day); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !d.Seen("today-1") {
		t.Error("Expected a zero window to clamp to one day")
	}
}

func TestDeduplicatorArchiveSkipsEmptyBatch(t *testing.T) {
	m := newMemStore()
	d := NewDeduplicator(m, 1)

	if err := d.Archive(context.Background(), time.Now(), nil); err != nil {
		t.Fatalf("Archive returned error: %v", err)
	}
	if m.archived != 0 {
		t.Error("Expected no archive call for an empty batch")
	}
}

func TestDeduplicatorArchiveDelegates(t *testing.T) {
	day := time.Date(2024, 1, 20, 8, 0, 0, 0, time.UTC)
	m := newMemStore()
	d := NewDeduplicator(m, 1)

	records := []Record{{ID: "2401.12345", Title: "T", URL: "u", Source: "arxiv"}}
	if err := d.Archive(context.Background(), day, records); err != nil {
		t.Fatalf("Archive returned error: %v", err)
	}
	if m.archived != 1 {
		t.Errorf("Expected 1 archive call, got %d", m.archived)
	}

	if err := d.Load(context.Background(), day); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !d.Seen("2401.12345") {
		t.Error("Expected archived ID to be seen after reload")
	}
}
