package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BenjaminSRussell/crawlchimp/internal/types"
)

func newPage(url string, status int) types.PageResult {
	return types.PageResult{
		RunID:         "run-1",
		URL:           url,
		Depth:         1,
		StatusCode:    status,
		ContentType:   "text/html",
		ContentLength: 1024,
		LinkCount:     5,
		CrawledAt:     time.Now(),
	}
}

func TestStorageSavePageAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	for _, url := range []string{"https://example.com/", "https://example.com/a"} {
		if err := store.SavePage(newPage(url, 200)); err != nil {
			t.Fatalf("Failed to save result: %v", err)
		}
	}

	results, err := store.LoadResults()
	if err != nil {
		t.Fatalf("Failed to load results: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[1].URL != "https://example.com/a" || results[1].RunID != "run-1" {
		t.Errorf("Unexpected second result: %+v", results[1])
	}

	if err := store.Close(); err != nil {
		t.Errorf("Failed to close storage: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Second close should be a no-op, got %v", err)
	}
}

func TestStorageAppendsAcrossRuns(t *testing.T) {
	tmpDir := t.TempDir()

	for i := 0; i < 2; i++ {
		store, err := New(tmpDir)
		if err != nil {
			t.Fatalf("Failed to create storage: %v", err)
		}
		if err := store.SavePage(newPage("https://example.com/", 200)); err != nil {
			t.Fatalf("Failed to save result: %v", err)
		}
		store.Close()
	}

	results, err := LoadResults(tmpDir)
	if err != nil {
		t.Fatalf("Failed to load results: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Expected 2 results, got %d", len(results))
	}
}

func TestLoadResultsSkipsBrokenLines(t *testing.T) {
	tmpDir := t.TempDir()
	journal := `{"url":"https://example.com/","status_code":200}

not json
{"url":"https://example.com/b","status_code":404}`
	if err := os.WriteFile(filepath.Join(tmpDir, JournalFile), []byte(journal), 0o644); err != nil {
		t.Fatal(err)
	}

	results, err := LoadResults(tmpDir)
	if err != nil {
		t.Fatalf("Failed to load results: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[1].StatusCode != 404 {
		t.Errorf("Expected status 404, got %d", results[1].StatusCode)
	}
}

func TestLoadResultsMissingJournal(t *testing.T) {
	results, err := LoadResults(t.TempDir())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected no results, got %d", len(results))
	}
}

func TestStorageSaveConfigOmitsSecrets(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer store.Close()

	config := types.Config{
		StartURL: "https://example.com",
		MaxDepth: 2,
		Timeout:  30 * time.Second,
		Username: "alice",
		Password: "s3cret",
		Headers:  map[string]string{"Authorization": "Bearer x"},
	}

	if err := store.SaveConfig(config); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, ConfigFile))
	if err != nil {
		t.Fatalf("Failed to read config: %v", err)
	}

	var saved map[string]any
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("Config is not JSON: %v", err)
	}
	if saved["start_url"] != "https://example.com" {
		t.Errorf("Expected start_url to be saved, got %v", saved["start_url"])
	}
	for _, key := range []string{"username", "password", "headers", "Username", "Password", "Headers"} {
		if _, ok := saved[key]; ok {
			t.Errorf("Config file should not contain %q", key)
		}
	}
}

func newSQLite(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create SQLite storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteSaveAndQuery(t *testing.T) {
	store := newSQLite(t)

	pages := []types.PageResult{
		newPage("https://example.com/", 200),
		newPage("https://example.com/missing", 404),
		newPage("https://example.com/a", 200),
	}
	pages[1].Error = "unexpected status 404"
	pages[2].Depth = 2

	for _, p := range pages {
		if err := store.SavePage(p); err != nil {
			t.Fatalf("Failed to save page: %v", err)
		}
	}

	all, err := store.QueryPages(PageFilter{})
	if err != nil {
		t.Fatalf("Failed to query pages: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 pages, got %d", len(all))
	}
	if all[0].URL != "https://example.com/" || all[0].ContentType != "text/html" {
		t.Errorf("Unexpected first page: %+v", all[0])
	}
	if d := all[0].CrawledAt.Sub(pages[0].CrawledAt); d > time.Second || d < -time.Second {
		t.Errorf("crawled_at did not round trip: %v vs %v", all[0].CrawledAt, pages[0].CrawledAt)
	}

	ok, err := store.QueryPages(PageFilter{StatusCode: 200})
	if err != nil {
		t.Fatalf("Failed to query pages: %v", err)
	}
	if len(ok) != 2 {
		t.Errorf("Expected 2 pages with status 200, got %d", len(ok))
	}

	depth := 2
	deep, err := store.QueryPages(PageFilter{RunID: "run-1", Depth: &depth})
	if err != nil {
		t.Fatalf("Failed to query pages: %v", err)
	}
	if len(deep) != 1 || deep[0].URL != "https://example.com/a" {
		t.Errorf("Unexpected depth 2 pages: %+v", deep)
	}
}

func TestSQLiteReplacesPageWithinRun(t *testing.T) {
	store := newSQLite(t)

	page := newPage("https://example.com/", 500)
	if err := store.SavePage(page); err != nil {
		t.Fatal(err)
	}
	page.StatusCode = 200
	if err := store.SavePage(page); err != nil {
		t.Fatal(err)
	}
	page.RunID = "run-2"
	if err := store.SavePage(page); err != nil {
		t.Fatal(err)
	}

	stats, err := store.GetStats("run-1")
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if stats != (PageStats{Total: 1, Successful: 1}) {
		t.Errorf("Unexpected run-1 stats: %+v", stats)
	}

	stats, err = store.GetStats("")
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if stats.Total != 2 {
		t.Errorf("Expected 2 pages across runs, got %d", stats.Total)
	}
}

func TestSQLiteStats(t *testing.T) {
	store := newSQLite(t)

	failed := newPage("https://example.com/x", 0)
	failed.Error = "request failed: timeout"
	for _, p := range []types.PageResult{
		newPage("https://example.com/", 200),
		newPage("https://example.com/gone", 410),
		failed,
	} {
		if err := store.SavePage(p); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := store.GetStats("run-1")
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	want := PageStats{Total: 3, Successful: 1, Failed: 2}
	if stats != want {
		t.Errorf("Expected %+v, got %+v", want, stats)
	}
}
