package crawler

import (
	"context"
	"fmt"
	"net/url"

	chimphttp "github.com/BenjaminSRussell/crawlchimp/internal/http"
	"github.com/temoto/robotstxt"
)

// robotsAgent is the user agent group robots.txt rules are looked up for.
const robotsAgent = "*"

// RobotsChecker reads a site's robots.txt. Its answer is advisory: the crawl
// logs a disallow and carries on.
type RobotsChecker struct {
	session *chimphttp.Session
}

// NewRobotsChecker creates a checker that fetches through s
func NewRobotsChecker(s *chimphttp.Session) *RobotsChecker {
	return &RobotsChecker{session: s}
}

// Allowed fetches robots.txt for target's origin and tests target's path.
func (r *RobotsChecker) Allowed(ctx context.Context, target *url.URL) (bool, error) {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", target.Scheme, target.Host)

	resp, err := r.session.Get(ctx, robotsURL)
	if err != nil {
		return false, fmt.Errorf("failed to fetch %s: %w", robotsURL, err)
	}
	defer resp.Body.Close()

	robots, err := robotstxt.FromResponse(resp)
	if err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", robotsURL, err)
	}

	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}

	return robots.TestAgent(path, robotsAgent), nil
}
