// Package proxy parses the upstream proxy a crawl is sent through.
package proxy

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// ErrInvalidProxy is returned for proxy addresses Parse cannot use.
var ErrInvalidProxy = errors.New("invalid proxy")

var schemes = map[string]bool{
	"http":   true,
	"https":  true,
	"socks5": true,
}

// Parse reads a proxy address. Supported forms:
//   - host:port (an HTTP proxy)
//   - http://host:port, https://host:port
//   - socks5://host:port
//
// Credentials may be given as user:pass@ in the URL forms.
func Parse(raw string) (*url.URL, error) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return nil, fmt.Errorf("%w: empty address", ErrInvalidProxy)
	}

	if !strings.Contains(line, "://") {
		if _, _, err := net.SplitHostPort(line); err != nil {
			return nil, fmt.Errorf("%w: %q is not host:port", ErrInvalidProxy, raw)
		}
		line = "http://" + line
	}

	u, err := url.Parse(line)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProxy, err)
	}
	if !schemes[u.Scheme] {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxy, u.Scheme)
	}
	if u.Hostname() == "" || u.Port() == "" {
		return nil, fmt.Errorf("%w: %q needs a host and a port", ErrInvalidProxy, raw)
	}

	return u, nil
}

// Func returns the proxy selector for an http.Transport. A nil u falls back
// to the HTTP_PROXY, HTTPS_PROXY and NO_PROXY environment variables.
func Func(u *url.URL) func(*http.Request) (*url.URL, error) {
	if u == nil {
		return http.ProxyFromEnvironment
	}
	return http.ProxyURL(u)
}

// Redacted returns u for logging with any password masked.
func Redacted(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Redacted()
}
