package crawler

import (
	"slices"
	"sync"

	"github.com/BenjaminSRussell/crawlchimp/internal/types"
	"github.com/bits-and-blooms/bloom/v3"
)

const (
	// Bloom filter sizing floor and false positive rate
	minBloomEstimate = 1024
	bloomFalseRate   = 0.01
)

// Frontier is the breadth-first queue of pages still to crawl together with
// the set of discovered links and the set of visited pages.
//
// The bloom filter answers "never seen" without touching the maps; the maps
// stay authoritative, so a false positive costs a lookup and never a link.
type Frontier struct {
	mu sync.Mutex

	maxDepth int
	queue    []types.CrawlTarget

	output  map[string]struct{}
	visited map[string]struct{}
	seen    *bloom.BloomFilter
}

// NewFrontier creates a frontier that never queues pages deeper than maxDepth.
// expected is a rough count of links the crawl will discover.
func NewFrontier(maxDepth, expected int) *Frontier {
	return &Frontier{
		maxDepth: maxDepth,
		queue:    make([]types.CrawlTarget, 0),
		output:   make(map[string]struct{}),
		visited:  make(map[string]struct{}),
		seen:     bloom.NewWithEstimates(uint(max(expected, minBloomEstimate)), bloomFalseRate),
	}
}

// Seed records the start URL and queues it at depth 0.
func (f *Frontier) Seed(link string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.known(link) {
		return
	}
	f.record(link)
	f.queue = append(f.queue, types.CrawlTarget{URL: link, Depth: 0})
}

// Push records a link found on a page at depth. The link is queued at depth+1
// only while that stays within the depth limit. It returns false when the
// link was already known or the page itself was too deep.
func (f *Frontier) Push(link string, depth int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if depth > f.maxDepth || f.known(link) {
		return false
	}

	f.record(link)
	if depth < f.maxDepth {
		f.queue = append(f.queue, types.CrawlTarget{URL: link, Depth: depth + 1})
	}
	return true
}

// Pop removes the oldest queued target.
func (f *Frontier) Pop() (types.CrawlTarget, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		return types.CrawlTarget{}, false
	}

	target := f.queue[0]
	f.queue[0] = types.CrawlTarget{}
	f.queue = f.queue[1:]
	return target, true
}

// MarkVisited records that link has been fetched.
func (f *Frontier) MarkVisited(link string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.visited[link] = struct{}{}
	f.seen.AddString(link)
}

// Visited reports whether link has been fetched.
func (f *Frontier) Visited(link string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.visited[link]
	return ok
}

// Len returns the number of queued targets.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.queue)
}

// Discovered returns the number of distinct links recorded, the seed included.
func (f *Frontier) Discovered() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.output)
}

// Links returns every recorded link, sorted.
func (f *Frontier) Links() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return sortedKeys(f.output)
}

// VisitedLinks returns every fetched link, sorted.
func (f *Frontier) VisitedLinks() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return sortedKeys(f.visited)
}

func (f *Frontier) known(link string) bool {
	if !f.seen.TestString(link) {
		return false
	}
	if _, ok := f.output[link]; ok {
		return true
	}
	_, ok := f.visited[link]
	return ok
}

func (f *Frontier) record(link string) {
	f.output[link] = struct{}{}
	f.seen.AddString(link)
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
