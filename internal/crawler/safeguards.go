package crawler

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/BenjaminSRussell/crawlchimp/internal/types"
)

// safeVisit wraps visit with panic recovery and hands the page record to the
// sinks. A page that panics counts as failed and the crawl moves on.
func (c *Crawler) safeVisit(ctx context.Context, target types.CrawlTarget) {
	result := types.PageResult{
		RunID: c.stats.RunID,
		URL:   target.URL,
		Depth: target.Depth,
	}

	defer func() {
		if r := recover(); r != nil {
			c.stats.Panics++
			c.stats.PagesFailed++
			c.logger.Error("panic while processing page",
				"url", target.URL,
				"depth", target.Depth,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			result.Error = fmt.Sprintf("panic during processing: %v", r)
		}
		c.record(result)
	}()

	result = c.visit(ctx, target)
}

func (c *Crawler) record(result types.PageResult) {
	for _, sink := range c.sinks {
		if err := sink.SavePage(result); err != nil {
			c.logger.Warn("failed to save page result", "url", result.URL, "error", err)
		}
	}
}
