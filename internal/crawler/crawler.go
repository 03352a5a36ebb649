package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/BenjaminSRussell/crawlchimp/internal/auth"
	chimphttp "github.com/BenjaminSRussell/crawlchimp/internal/http"
	"github.com/BenjaminSRussell/crawlchimp/internal/log"
	"github.com/BenjaminSRussell/crawlchimp/internal/parser"
	"github.com/BenjaminSRussell/crawlchimp/internal/proxy"
	"github.com/BenjaminSRussell/crawlchimp/internal/types"
	"github.com/google/uuid"
)

const (
	// progressEvery is how many pages pass between progress log lines
	progressEvery = 10

	// linksPerPageEstimate sizes the frontier's bloom filter
	linksPerPageEstimate = 50
)

// Crawler is the main crawler engine. It crawls sequentially from one
// goroutine; the session's limiter spaces out every request it makes.
type Crawler struct {
	config   types.Config
	seed     *url.URL
	scope    Scope
	frontier *Frontier

	session   *chimphttp.Session
	fetcher   *chimphttp.Fetcher
	robots    *RobotsChecker
	transport http.RoundTripper
	upstream  *url.URL

	creds    types.Credentials
	authMode auth.Mode
	login    *auth.LoginResult

	sinks  []PageSink
	logger *slog.Logger

	stats   types.CrawlStats
	started bool
}

// New creates a new crawler instance
func New(config types.Config, opts ...Option) (*Crawler, error) {
	seed, err := ParseSeed(config.StartURL)
	if err != nil {
		return nil, err
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	start, err := parser.Normalize(config.StartURL, config.StartURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}

	c := &Crawler{
		config: config,
		seed:   seed,
		scope:  NewScope(seed),
		logger: log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if config.Proxy != "" {
		if c.upstream, err = proxy.Parse(config.Proxy); err != nil {
			return nil, err
		}
	}

	c.session, err = chimphttp.NewSession(chimphttp.SessionOptions{
		Profile:        config.HeaderProfile,
		Headers:        config.Headers,
		Timeout:        config.Timeout,
		Delay:          config.PolitenessDelay(),
		TLSFingerprint: config.TLSFingerprint,
		Proxy:          c.upstream,
		Transport:      c.transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	c.fetcher = chimphttp.NewFetcher(c.session)
	c.robots = NewRobotsChecker(c.session)

	c.authMode = auth.Apply(c.session, seed, c.creds)

	if config.LoadSession != "" {
		cookies, err := auth.LoadSessionFile(config.LoadSession)
		if err != nil {
			c.logger.Warn("could not load session", "file", config.LoadSession, "error", err)
		} else {
			c.session.SetCookies(seed, cookies)
			c.logger.Info("session loaded", "file", config.LoadSession, "cookies", len(cookies))
		}
	}

	c.frontier = NewFrontier(config.MaxDepth, config.MaxPages*linksPerPageEstimate)
	c.frontier.Seed(start)

	c.stats = types.CrawlStats{
		RunID:    uuid.NewString(),
		StartURL: start,
		MaxDepth: config.MaxDepth,
	}
	c.logger = c.logger.With("run_id", c.stats.RunID)

	return c, nil
}

// Crawl runs the crawl until the frontier is empty, the page limit is hit or
// ctx is cancelled. Cancellation is only observed between pages.
func (c *Crawler) Crawl(ctx context.Context) (*types.Results, error) {
	if c.started {
		return nil, errors.New("crawler has already run")
	}
	c.started = true
	c.stats.StartedAt = time.Now()

	c.logger.Info("starting crawl",
		"url", c.stats.StartURL,
		"max_depth", c.config.MaxDepth,
		"max_pages", c.config.MaxPages,
		"delay", c.config.PolitenessDelay(),
		"proxy", proxy.Redacted(c.upstream),
	)

	c.checkRobots(ctx)
	c.authenticate(ctx)

	for c.stats.PagesCrawled < c.config.MaxPages {
		if err := ctx.Err(); err != nil {
			c.logger.Warn("crawl interrupted", "pages_crawled", c.stats.PagesCrawled, "error", err)
			break
		}

		target, ok := c.frontier.Pop()
		if !ok {
			break
		}

		if c.frontier.Visited(target.URL) || target.Depth > c.config.MaxDepth {
			continue
		}

		c.safeVisit(ctx, target)
		c.stats.PagesCrawled++

		if c.stats.PagesCrawled%progressEvery == 0 {
			c.reportProgress()
		}
	}

	c.stats.FinishedAt = time.Now()
	c.stats.LinksFound = c.frontier.Discovered()

	if c.config.SaveSession != "" {
		if err := c.SaveSession(c.config.SaveSession); err != nil {
			c.logger.Warn("could not save session", "file", c.config.SaveSession, "error", err)
		} else {
			c.logger.Info("session saved", "file", c.config.SaveSession)
		}
	}

	c.logger.Info("crawl completed",
		"pages_crawled", c.stats.PagesCrawled,
		"pages_failed", c.stats.PagesFailed,
		"panics", c.stats.Panics,
		"links_found", c.stats.LinksFound,
		"duration", c.stats.Duration(),
	)

	return &types.Results{
		Links:   c.frontier.Links(),
		Visited: c.frontier.VisitedLinks(),
		Stats:   c.stats,
	}, nil
}

// visit fetches one page and pushes its in-scope links.
func (c *Crawler) visit(ctx context.Context, target types.CrawlTarget) types.PageResult {
	c.frontier.MarkVisited(target.URL)
	c.logger.Info("crawling", "url", target.URL, "depth", target.Depth)

	result := types.PageResult{
		RunID:     c.stats.RunID,
		URL:       target.URL,
		Depth:     target.Depth,
		CrawledAt: time.Now(),
	}

	// An interrupt stops the loop, not the request already on the wire.
	page, err := c.fetcher.Fetch(context.WithoutCancel(ctx), target.URL)
	if page != nil {
		result.StatusCode = page.StatusCode
		result.ContentType = page.ContentType
		result.ContentLength = int64(len(page.Body))
	}
	if err != nil {
		var statusErr *chimphttp.StatusError
		if errors.As(err, &statusErr) {
			c.logger.Error("HTTP error", "url", target.URL, "status", statusErr.StatusCode)
		} else {
			c.logger.Error("error crawling page", "url", target.URL, "error", err)
		}
		result.Error = err.Error()
		c.stats.PagesFailed++
		return result
	}

	if !page.HTML {
		c.logger.Warn("skipping non-HTML content", "url", target.URL, "content_type", page.ContentType)
		c.stats.PagesSkipped++
		return result
	}

	found := 0
	for href := range parser.Links(bytes.NewReader(page.Body)) {
		link, err := parser.Normalize(href, target.URL)
		if err != nil {
			c.logger.Debug("dropping link", "href", href, "error", err)
			continue
		}
		if !c.scope.Contains(link) {
			continue
		}
		if c.frontier.Push(link, target.Depth) {
			found++
		}
	}

	result.LinkCount = found
	c.logger.Info("found new links", "url", target.URL, "count", found)

	return result
}

func (c *Crawler) checkRobots(ctx context.Context) {
	allowed, err := c.robots.Allowed(ctx, c.seed)
	if err != nil {
		c.logger.Warn("could not read robots.txt", "error", err)
		return
	}
	if !allowed {
		c.logger.Warn("robots.txt disallows crawling this URL, continuing anyway", "url", c.seed.String())
	}
}

func (c *Crawler) authenticate(ctx context.Context) {
	if c.authMode != auth.ModeNone {
		c.logger.Info("using HTTP authentication", "mode", c.authMode.String())
	}

	if !c.creds.HasLogin() {
		c.logger.Info("no credentials provided for form-based login")
		return
	}

	c.logger.Info("attempting form-based login")
	result, err := auth.NewAuthenticator(c.session, c.logger).Login(ctx, c.seed, c.creds)
	switch {
	case errors.Is(err, auth.ErrLoginPageNotFound):
		c.logger.Warn("could not find login page")
	case errors.Is(err, auth.ErrNoLoginForm):
		c.logger.Warn("no login form found", "url", result.LoginURL)
	case err != nil:
		c.logger.Warn("login attempt failed", "error", err)
	default:
		c.login = &result
		if result.Outcome == auth.LoginUnknown {
			c.logger.Warn("login may have failed", "status", result.StatusCode, "url", result.FinalURL)
		} else {
			c.logger.Info("login successful", "outcome", result.Outcome.String(), "url", result.FinalURL)
		}
	}
}

// reportProgress logs crawl progress
func (c *Crawler) reportProgress() {
	c.logger.Info("progress",
		"pages_crawled", c.stats.PagesCrawled,
		"links_found", c.frontier.Discovered(),
		"queued", c.frontier.Len(),
	)
}

// SaveSession writes the session cookies for the seed's origin to path.
func (c *Crawler) SaveSession(path string) error {
	return auth.SaveSessionFile(path, c.session.Cookies(c.seed))
}

// LoginResult returns the outcome of the form login, if one was submitted.
func (c *Crawler) LoginResult() (auth.LoginResult, bool) {
	if c.login == nil {
		return auth.LoginResult{}, false
	}
	return *c.login, true
}
