package types

import (
	"time"
)

// Config holds crawler configuration
type Config struct {
	StartURL string        `yaml:"start_url" json:"start_url"`
	MaxDepth int           `yaml:"max_depth" json:"max_depth"`
	MaxPages int           `yaml:"max_pages" json:"max_pages"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`

	// Politeness
	Slow      bool          `yaml:"slow" json:"slow"`
	Delay     time.Duration `yaml:"delay" json:"delay"`
	SlowDelay time.Duration `yaml:"slow_delay" json:"slow_delay"`

	// Output
	OutputFile  string `yaml:"output_file" json:"output_file"`
	SitemapFile string `yaml:"sitemap_file" json:"sitemap_file"`
	DataDir     string `yaml:"data_dir" json:"data_dir"`
	SQLitePath  string `yaml:"sqlite" json:"sqlite"`

	// Logging
	LogLevel string `yaml:"log_level" json:"log_level"`
	LogFile  string `yaml:"log_file" json:"log_file"`
	LogJSON  bool   `yaml:"log_json" json:"log_json"`

	// Authentication and session
	CredFile      string            `yaml:"cred_file" json:"cred_file"`
	Username      string            `yaml:"username" json:"-"`
	Password      string            `yaml:"password" json:"-"`
	Headers       map[string]string `yaml:"headers" json:"-"`
	HeaderProfile string            `yaml:"header_profile" json:"header_profile"`
	LoadSession   string            `yaml:"load_session" json:"load_session"`
	SaveSession   string            `yaml:"save_session" json:"save_session"`

	// Transport
	TLSFingerprint bool   `yaml:"tls_fingerprint" json:"tls_fingerprint"`
	Proxy          string `yaml:"proxy" json:"-"`
}

// PolitenessDelay returns the minimum gap between two requests.
func (c Config) PolitenessDelay() time.Duration {
	if c.Slow {
		return c.SlowDelay
	}
	return c.Delay
}

// Credentials holds everything the authenticator can attach to a session.
// Absent values disable the matching auth mode.
type Credentials struct {
	Username string            `json:"username,omitempty"`
	Password string            `json:"password,omitempty"`
	Token    string            `json:"token,omitempty"`
	APIKey   string            `json:"api_key,omitempty"`
	Cookies  map[string]string `json:"cookies,omitempty"`
}

// HasLogin reports whether a username and password pair is available.
func (c Credentials) HasLogin() bool {
	return c.Username != "" && c.Password != ""
}

// CrawlTarget is a URL waiting in the frontier
type CrawlTarget struct {
	URL   string
	Depth int
}

// CrawlStats contains crawl statistics
type CrawlStats struct {
	RunID        string    `json:"run_id"`
	StartURL     string    `json:"start_url"`
	PagesCrawled int       `json:"pages_crawled"`
	PagesFailed  int       `json:"pages_failed"`
	PagesSkipped int       `json:"pages_skipped"`
	Panics       int       `json:"panics"`
	LinksFound   int       `json:"links_found"`
	MaxDepth     int       `json:"max_depth"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Duration is the wall time of the run so far.
func (s CrawlStats) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Results is what a finished crawl hands to reporting
type Results struct {
	Links   []string
	Visited []string
	Stats   CrawlStats
}

// PageResult contains information about a crawled page
type PageResult struct {
	RunID         string    `json:"run_id"`
	URL           string    `json:"url"`
	Depth         int       `json:"depth"`
	StatusCode    int       `json:"status_code"`
	ContentType   string    `json:"content_type,omitempty"`
	ContentLength int64     `json:"content_length"`
	LinkCount     int       `json:"link_count"`
	CrawledAt     time.Time `json:"crawled_at"`
	Error         string    `json:"error,omitempty"`
}
