package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// DefaultTimeout bounds every request made through a session.
const DefaultTimeout = 10 * time.Second

// SessionOptions configures a Session
type SessionOptions struct {
	Profile        string            // header profile name
	Headers        map[string]string // overrides applied on top of the profile
	Timeout        time.Duration
	Delay          time.Duration // pause between the end of one request and the next
	TLSFingerprint bool
	Proxy          *url.URL          // upstream proxy, environment when nil
	Transport      http.RoundTripper // base transport, mostly for tests
}

// Session holds the cookies, headers and credentials shared by every request
// of a crawl. A Session is used by a single crawl goroutine.
type Session struct {
	client *http.Client
	jar    http.CookieJar
	header http.Header
	pacer  *pacer

	basicUser string
	basicPass string
	hasBasic  bool
}

// NewSession builds a session with a cookie jar, decoding transport and
// politeness pacing.
func NewSession(opts SessionOptions) (*Session, error) {
	profile, err := LookupProfile(opts.Profile)
	if err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(&cookiejar.Options{
		PublicSuffixList: publicsuffix.List,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	base := opts.Transport
	if base == nil {
		if opts.TLSFingerprint {
			base = NewTLSFingerprinter().CreateTransport()
		} else {
			base = newBaseTransport(opts.Proxy)
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	header := profile.Header()
	for k, v := range opts.Headers {
		header.Set(k, v)
	}

	return &Session{
		client: &http.Client{
			Jar:       jar,
			Timeout:   timeout,
			Transport: &decodingTransport{next: base},
		},
		jar:    jar,
		header: header,
		pacer:  newPacer(opts.Delay),
	}, nil
}

// SetHeader sets a header sent with every request.
func (s *Session) SetHeader(key, value string) {
	s.header.Set(key, value)
}

// SetBasicAuth attaches HTTP basic credentials to every request.
func (s *Session) SetBasicAuth(username, password string) {
	s.basicUser = username
	s.basicPass = password
	s.hasBasic = true
}

// SetCookies stores name/value cookies for the origin of u.
func (s *Session) SetCookies(u *url.URL, cookies map[string]string) {
	if len(cookies) == 0 {
		return
	}
	list := make([]*http.Cookie, 0, len(cookies))
	for name, value := range cookies {
		list = append(list, &http.Cookie{Name: name, Value: value, Path: "/"})
	}
	s.jar.SetCookies(u, list)
}

// Cookies returns the cookies the session would send to u.
func (s *Session) Cookies(u *url.URL) map[string]string {
	out := make(map[string]string)
	for _, c := range s.jar.Cookies(u) {
		out[c.Name] = c.Value
	}
	return out
}

// Do sends req with the session headers and credentials. It first waits out
// the politeness delay since the previous response body was closed, so
// callers must close every body they get back.
func (s *Session) Do(req *http.Request) (*http.Response, error) {
	for key, values := range s.header {
		if _, ok := req.Header[key]; !ok {
			req.Header[key] = values
		}
	}
	if s.hasBasic {
		req.SetBasicAuth(s.basicUser, s.basicPass)
	}

	if err := s.pacer.Wait(req.Context()); err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.pacer.Done()
		return nil, err
	}
	resp.Body = &pacedBody{ReadCloser: resp.Body, done: s.pacer.Done}
	return resp, nil
}

// Get issues a GET request.
func (s *Session) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("request creation failed: %w", err)
	}
	return s.Do(req)
}

// PostForm issues a POST request with a urlencoded body.
func (s *Session) PostForm(ctx context.Context, rawURL string, values url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("request creation failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.Do(req)
}

// ReadBody reads at most limit bytes of a response body and closes it.
func ReadBody(resp *http.Response, limit int64) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}
