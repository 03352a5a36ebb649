package http

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// DefaultMaxBodyBytes caps how much of a page is read.
const DefaultMaxBodyBytes = 10 << 20

// Page is the outcome of fetching a URL
type Page struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	HTML        bool
	Body        []byte // only read for HTML pages
}

// StatusError reports a response outside the 2xx range
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}

// Fetcher performs page GETs through a session
type Fetcher struct {
	session      *Session
	maxBodyBytes int64
}

// FetcherOption configures a Fetcher
type FetcherOption func(*Fetcher)

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) FetcherOption {
	return func(f *Fetcher) {
		f.maxBodyBytes = n
	}
}

// NewFetcher creates a fetcher bound to s
func NewFetcher(s *Session, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		session:      s,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch GETs rawURL. A non-2xx answer returns the page together with a
// *StatusError. Non-HTML pages come back with HTML unset and no body.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	resp, err := f.session.Get(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	page := &Page{
		URL:         rawURL,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return page, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	page.HTML = IsHTML(page.ContentType)
	if !page.HTML {
		return page, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return page, fmt.Errorf("body read failed: %w", err)
	}
	page.Body = body

	return page, nil
}

// IsHTML reports whether a Content-Type header declares an HTML document.
func IsHTML(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/html")
}
