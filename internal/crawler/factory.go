package crawler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/BenjaminSRussell/crawlchimp/internal/types"
)

// PageSink receives a record for every page the crawler visits
type PageSink interface {
	SavePage(result types.PageResult) error
}

// Option configures a Crawler
type Option func(*Crawler)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// WithCredentials sets the credentials applied to the session.
func WithCredentials(creds types.Credentials) Option {
	return func(c *Crawler) {
		c.creds = creds
	}
}

// WithSink adds a page sink. Sinks are called in the order they were added.
func WithSink(sink PageSink) Option {
	return func(c *Crawler) {
		c.sinks = append(c.sinks, sink)
	}
}

// WithTransport replaces the base HTTP transport of the session.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Crawler) {
		c.transport = rt
	}
}

// validateConfig validates crawler configuration
func validateConfig(config types.Config) error {
	if config.MaxDepth < 0 {
		return fmt.Errorf("max depth cannot be negative, got %d", config.MaxDepth)
	}

	if config.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive, got %d", config.MaxPages)
	}

	if config.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative, got %v", config.Timeout)
	}

	if config.Delay < 0 || config.SlowDelay < 0 {
		return fmt.Errorf("politeness delays cannot be negative, got %v and %v", config.Delay, config.SlowDelay)
	}

	return nil
}
