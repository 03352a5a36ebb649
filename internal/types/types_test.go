package types

import (
	"testing"
	"time"
)

func TestPolitenessDelay(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   time.Duration
	}{
		{
			name:   "normal mode",
			config: Config{Delay: 100 * time.Millisecond, SlowDelay: time.Second},
			want:   100 * time.Millisecond,
		},
		{
			name:   "slow mode",
			config: Config{Slow: true, Delay: 100 * time.Millisecond, SlowDelay: time.Second},
			want:   time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.config.PolitenessDelay(); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCredentialsHasLogin(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
		want  bool
	}{
		{"empty", Credentials{}, false},
		{"username only", Credentials{Username: "alice"}, false},
		{"password only", Credentials{Password: "secret"}, false},
		{"token only", Credentials{Token: "t"}, false},
		{"both", Credentials{Username: "alice", Password: "secret"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.creds.HasLogin(); got != tt.want {
				t.Errorf("Expected HasLogin=%v, got %v", tt.want, got)
			}
		})
	}
}

func TestCrawlStatsDuration(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	stats := CrawlStats{
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
	}

	if got := stats.Duration(); got != 90*time.Second {
		t.Errorf("Expected 90s, got %v", got)
	}

	running := CrawlStats{StartedAt: time.Now().Add(-time.Second)}
	if got := running.Duration(); got < time.Second {
		t.Errorf("Expected at least 1s for a running crawl, got %v", got)
	}
}

func TestPageResult(t *testing.T) {
	result := PageResult{
		URL:        "https://example.com",
		Depth:      1,
		StatusCode: 200,
		LinkCount:  3,
		CrawledAt:  time.Now(),
	}

	if result.URL != "https://example.com" {
		t.Errorf("Expected URL https://example.com, got %s", result.URL)
	}
	if result.Error != "" {
		t.Errorf("Expected no error, got %s", result.Error)
	}
}
