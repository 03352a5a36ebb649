package http

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/BenjaminSRussell/crawlchimp/internal/proxy"
	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"
)

func newBaseTransport(upstream *url.URL) *http.Transport {
	return &http.Transport{
		Proxy: proxy.Func(upstream),
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

// pacer keeps the politeness delay between the end of one request and the
// start of the next. Its wait runs outside the HTTP client timeout.
type pacer struct {
	delay   time.Duration
	limiter *rate.Limiter
}

func newPacer(delay time.Duration) *pacer {
	p := &pacer{delay: delay}
	if delay > 0 {
		p.limiter = rate.NewLimiter(rate.Every(delay), 1)
	}
	return p
}

// Wait blocks until the delay since the last finished request has passed.
func (p *pacer) Wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("politeness wait: %w", err)
	}
	return nil
}

// Done restarts the delay from now with the single token spent.
func (p *pacer) Done() {
	if p.limiter == nil {
		return
	}
	now := time.Now()
	p.limiter = rate.NewLimiter(rate.Every(p.delay), 1)
	p.limiter.AllowN(now, 1)
}

// pacedBody marks the request finished once its body is closed.
type pacedBody struct {
	io.ReadCloser
	once sync.Once
	done func()
}

func (b *pacedBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.done)
	return err
}

// decodingTransport undoes the content codings the session advertises.
// Setting Accept-Encoding ourselves turns off net/http's transparent gzip.
type decodingTransport struct {
	next http.RoundTripper
}

func (t *decodingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	if encoding == "" || encoding == "identity" {
		return resp, nil
	}

	br := bufio.NewReader(resp.Body)
	if _, err := br.Peek(1); errors.Is(err, io.EOF) {
		// Empty bodies (HEAD, 204, 304) carry the header without any payload.
		resp.Header.Del("Content-Encoding")
		return resp, nil
	}

	var decoded io.Reader
	switch encoding {
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(br)
		if err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("gzip response from %s: %w", req.URL, err)
		}
		decoded = gz
	case "deflate":
		// Servers disagree on whether deflate means zlib-wrapped or raw.
		if hdr, err := br.Peek(2); err == nil && isZlibHeader(hdr) {
			zr, err := zlib.NewReader(br)
			if err != nil {
				resp.Body.Close()
				return nil, fmt.Errorf("deflate response from %s: %w", req.URL, err)
			}
			decoded = zr
		} else {
			decoded = flate.NewReader(br)
		}
	case "br":
		decoded = brotli.NewReader(br)
	default:
		// Unknown or stacked codings pass through, including the peeked bytes.
		resp.Body = &decodedBody{Reader: br, raw: resp.Body}
		return resp, nil
	}

	resp.Body = &decodedBody{Reader: decoded, raw: resp.Body}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true

	return resp, nil
}

func isZlibHeader(b []byte) bool {
	return b[0]&0x0f == 8 && (uint16(b[0])<<8|uint16(b[1]))%31 == 0
}

type decodedBody struct {
	io.Reader
	raw io.ReadCloser
}

func (b *decodedBody) Close() error {
	if c, ok := b.Reader.(io.Closer); ok {
		c.Close()
	}
	return b.raw.Close()
}
