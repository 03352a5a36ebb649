package crawler

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrInvalidSeed is returned for start URLs without a scheme or host.
var ErrInvalidSeed = errors.New("invalid start URL")

// ParseSeed validates the start URL of a crawl.
func ParseSeed(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q needs a scheme and a host", ErrInvalidSeed, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidSeed, u.Scheme)
	}
	return u, nil
}

// Scope keeps a crawl on the seed's network location. Only the host (with
// port) is compared, so http and https pages of the same site are both in scope.
type Scope struct {
	host string
}

// NewScope returns the scope of seed
func NewScope(seed *url.URL) Scope {
	return Scope{host: seed.Host}
}

// Contains reports whether a normalized URL is on the seed's host.
func (s Scope) Contains(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return u.Host == s.host
}
