package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenjaminSRussell/crawlchimp/internal/auth"
	"github.com/BenjaminSRussell/crawlchimp/internal/types"
)

// site serves a fixed set of HTML pages; every other path is a 404.
func site(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func links(hrefs ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, h := range hrefs {
		fmt.Fprintf(&b, `<a href="%s">link</a>`, h)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func testConfig(start string) types.Config {
	return types.Config{
		StartURL: start,
		MaxDepth: 3,
		MaxPages: 100,
	}
}

func crawl(t *testing.T, config types.Config, opts ...Option) *types.Results {
	t.Helper()
	c, err := New(config, opts...)
	require.NoError(t, err)
	results, err := c.Crawl(context.Background())
	require.NoError(t, err)
	return results
}

type memorySink struct {
	mu    sync.Mutex
	pages []types.PageResult
	after func(types.PageResult)
}

func (s *memorySink) SavePage(result types.PageResult) error {
	s.mu.Lock()
	s.pages = append(s.pages, result)
	s.mu.Unlock()
	if s.after != nil {
		s.after(result)
	}
	return nil
}

func TestNewRejectsInvalidSeed(t *testing.T) {
	for _, start := range []string{"", "example.com", "/relative", "ftp://example.com/", "http://"} {
		_, err := New(testConfig(start))
		assert.ErrorIs(t, err, ErrInvalidSeed, start)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	config := testConfig("http://example.com/")
	config.MaxPages = 0
	_, err := New(config)
	assert.Error(t, err)

	config = testConfig("http://example.com/")
	config.MaxDepth = -1
	_, err = New(config)
	assert.Error(t, err)
}

func TestCrawlDropsFragmentsAndOtherHosts(t *testing.T) {
	srv := site(t, map[string]string{
		"/":  links("/a", "/a#x", "https://other.example/b"),
		"/a": links(),
	})

	results := crawl(t, testConfig(srv.URL+"/"))

	want := []string{srv.URL + "/", srv.URL + "/a"}
	assert.Equal(t, want, results.Links)
	assert.Equal(t, want, results.Visited)
	assert.Equal(t, 2, results.Stats.PagesCrawled)
	assert.Equal(t, 2, results.Stats.LinksFound)
}

func TestCrawlStopsAtMaxPages(t *testing.T) {
	srv := site(t, map[string]string{
		"/": links("/1", "/2", "/3", "/4", "/5"),
	})
	config := testConfig(srv.URL + "/")
	config.MaxPages = 1

	results := crawl(t, config)

	assert.Equal(t, []string{srv.URL + "/"}, results.Visited)
	assert.Len(t, results.Links, 6)
	assert.Equal(t, 1, results.Stats.PagesCrawled)
}

func TestCrawlHTTPErrorIsNotFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := &memorySink{}
	results := crawl(t, testConfig(srv.URL+"/"), WithSink(sink))

	assert.Equal(t, []string{srv.URL + "/"}, results.Links)
	assert.Equal(t, []string{srv.URL + "/"}, results.Visited)
	assert.Equal(t, 1, results.Stats.PagesFailed)

	require.Len(t, sink.pages, 1)
	assert.Equal(t, http.StatusInternalServerError, sink.pages[0].StatusCode)
	assert.NotEmpty(t, sink.pages[0].Error)
}

func TestCrawlSkipsNonHTML(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, links("/data.json"))
	})
	mux.HandleFunc("/data.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"href": "/hidden"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	results := crawl(t, testConfig(srv.URL+"/"))

	assert.Equal(t, []string{srv.URL + "/", srv.URL + "/data.json"}, results.Links)
	assert.Equal(t, 1, results.Stats.PagesSkipped)
}

func TestCrawlDepthLimit(t *testing.T) {
	srv := site(t, map[string]string{
		"/":  links("/a"),
		"/a": links("/b"),
		"/b": links("/c"),
	})

	tests := []struct {
		maxDepth    int
		wantLinks   []string
		wantVisited []string
	}{
		{0, []string{"/", "/a"}, []string{"/"}},
		{1, []string{"/", "/a", "/b"}, []string{"/", "/a"}},
		{5, []string{"/", "/a", "/b", "/c"}, []string{"/", "/a", "/b", "/c"}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("depth %d", tt.maxDepth), func(t *testing.T) {
			config := testConfig(srv.URL + "/")
			config.MaxDepth = tt.maxDepth

			results := crawl(t, config)

			assert.Equal(t, prefixed(srv.URL, tt.wantLinks), results.Links)
			assert.Equal(t, prefixed(srv.URL, tt.wantVisited), results.Visited)
		})
	}
}

func prefixed(base string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = base + p
	}
	return out
}

func TestCrawlIsDeterministic(t *testing.T) {
	srv := site(t, map[string]string{
		"/":  links("/b", "/a", "/c?x=1"),
		"/a": links("/d", "/b"),
		"/b": links("/a", "/e#top"),
	})

	first := crawl(t, testConfig(srv.URL+"/"))
	second := crawl(t, testConfig(srv.URL+"/"))

	assert.Equal(t, first.Links, second.Links)
	assert.Equal(t, first.Visited, second.Visited)
	assert.NotEqual(t, first.Stats.RunID, second.Stats.RunID)
}

func TestCrawlVisitsInBreadthFirstOrder(t *testing.T) {
	srv := site(t, map[string]string{
		"/":  links("/a", "/b"),
		"/a": links("/a1"),
		"/b": links("/b1"),
	})

	sink := &memorySink{}
	crawl(t, testConfig(srv.URL+"/"), WithSink(sink))

	var order []string
	for _, p := range sink.pages {
		order = append(order, strings.TrimPrefix(p.URL, srv.URL))
	}
	assert.Equal(t, []string{"/", "/a", "/b", "/a1", "/b1"}, order)
	assert.Equal(t, 0, sink.pages[0].Depth)
	assert.Equal(t, 2, sink.pages[4].Depth)
}

func TestCrawlIgnoresRobotsDisallow(t *testing.T) {
	srv := site(t, map[string]string{
		"/robots.txt": "User-agent: *\nDisallow: /\n",
		"/":           links("/a"),
		"/a":          links(),
	})

	results := crawl(t, testConfig(srv.URL+"/"))

	assert.Len(t, results.Visited, 2)
}

func TestCrawlPausesAfterSlowPages(t *testing.T) {
	const delay = 80 * time.Millisecond

	var mu sync.Mutex
	arrived := make(map[string]time.Time)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		arrived[r.URL.Path] = time.Now()
		mu.Unlock()
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		time.Sleep(2 * delay)
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, links("/a"))
	}))
	defer srv.Close()

	var homeDone time.Time
	sink := &memorySink{after: func(p types.PageResult) {
		if strings.HasSuffix(p.URL, "/") {
			homeDone = time.Now()
		}
	}}

	config := testConfig(srv.URL + "/")
	config.Delay = delay
	results := crawl(t, config, WithSink(sink))
	require.Len(t, results.Visited, 2)

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, arrived["/a"].Sub(homeDone), delay-5*time.Millisecond)
}

func TestCrawlRecoversFromPanics(t *testing.T) {
	srv := site(t, map[string]string{
		"/":   links("/boom", "/ok"),
		"/ok": links(),
	})

	sink := &memorySink{}
	c, err := New(testConfig(srv.URL+"/"), WithSink(sink), WithTransport(panicTransport{}))
	require.NoError(t, err)

	results, err := c.Crawl(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, results.Stats.Panics)
	assert.Equal(t, 1, results.Stats.PagesFailed)
	assert.Contains(t, results.Visited, srv.URL+"/ok")

	var boom types.PageResult
	for _, p := range sink.pages {
		if strings.HasSuffix(p.URL, "/boom") {
			boom = p
		}
	}
	assert.Contains(t, boom.Error, "panic")
}

type panicTransport struct{}

func (panicTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Path == "/boom" {
		panic("transport exploded")
	}
	return http.DefaultTransport.RoundTrip(req)
}

func TestCrawlStopsBetweenPagesWhenCancelled(t *testing.T) {
	srv := site(t, map[string]string{
		"/":  links("/a", "/b"),
		"/a": links(),
		"/b": links(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &memorySink{after: func(types.PageResult) { cancel() }}
	c, err := New(testConfig(srv.URL+"/"), WithSink(sink))
	require.NoError(t, err)

	results, err := c.Crawl(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{srv.URL + "/"}, results.Visited)
	assert.Len(t, results.Links, 3)
	require.Len(t, sink.pages, 1)
	assert.Empty(t, sink.pages[0].Error)
}

func TestCrawlRunsOnce(t *testing.T) {
	srv := site(t, map[string]string{"/": links()})

	c, err := New(testConfig(srv.URL + "/"))
	require.NoError(t, err)

	_, err = c.Crawl(context.Background())
	require.NoError(t, err)

	_, err = c.Crawl(context.Background())
	assert.Error(t, err)
}

func TestCrawlWithFormLogin(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<form action="/session" method="post">
			<input type="text" name="email">
			<input type="password" name="pwd">
			<input type="hidden" name="csrf" value="abc123">
		</form>`)
	})
	mux.HandleFunc("POST /session", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "alice", r.PostForm.Get("email"))
		assert.Equal(t, "s3cret", r.PostForm.Get("pwd"))
		assert.Equal(t, "abc123", r.PostForm.Get("csrf"))
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "ok", Path: "/"})
		http.Redirect(w, r, "/home", http.StatusSeeOther)
	})
	mux.HandleFunc("GET /home", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<p>Welcome back</p><a href="/logout">Logout</a>`)
	})
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if c, err := r.Cookie("sid"); err == nil && c.Value == "ok" {
			fmt.Fprint(w, links("/private"))
			return
		}
		fmt.Fprint(w, links())
	})
	mux.HandleFunc("GET /private", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, links())
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := New(testConfig(srv.URL+"/"), WithCredentials(types.Credentials{Username: "alice", Password: "s3cret"}))
	require.NoError(t, err)

	results, err := c.Crawl(context.Background())
	require.NoError(t, err)

	login, ok := c.LoginResult()
	require.True(t, ok)
	assert.Equal(t, auth.LoginSuccess, login.Outcome)
	assert.Equal(t, srv.URL+"/session", login.Action)
	assert.Contains(t, results.Visited, srv.URL+"/private")
}

func TestCrawlWithoutLoginPage(t *testing.T) {
	srv := site(t, map[string]string{"/": links()})

	c, err := New(testConfig(srv.URL+"/"), WithCredentials(types.Credentials{Username: "alice", Password: "s3cret"}))
	require.NoError(t, err)

	results, err := c.Crawl(context.Background())
	require.NoError(t, err)

	_, ok := c.LoginResult()
	assert.False(t, ok)
	assert.Len(t, results.Visited, 1)
}

func TestCrawlSendsBearerToken(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			got = r.Header.Get("Authorization")
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, links())
	}))
	defer srv.Close()

	crawl(t, testConfig(srv.URL+"/"), WithCredentials(types.Credentials{Token: "tok"}))

	assert.Equal(t, "Bearer tok", got)
}

func TestCrawlLoadsAndSavesSession(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			if c, err := r.Cookie("loaded"); err == nil {
				seen = c.Value
			}
			http.SetCookie(w, &http.Cookie{Name: "issued", Value: "yes", Path: "/"})
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, links())
	}))
	defer srv.Close()

	dir := t.TempDir()
	in := filepath.Join(dir, "in.json")
	out := filepath.Join(dir, "out.json")
	require.NoError(t, os.WriteFile(in, []byte(`{"loaded": "from-file"}`), 0o600))

	config := testConfig(srv.URL + "/")
	config.LoadSession = in
	config.SaveSession = out
	crawl(t, config)

	assert.Equal(t, "from-file", seen)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var saved map[string]string
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, "yes", saved["issued"])
	assert.Equal(t, "from-file", saved["loaded"])
}

func TestFrontierPush(t *testing.T) {
	f := NewFrontier(2, 0)
	f.Seed("http://h/")

	assert.True(t, f.Push("http://h/a", 0))
	assert.False(t, f.Push("http://h/a", 1), "duplicate")
	assert.True(t, f.Push("http://h/deep", 2), "recorded at the limit")
	assert.False(t, f.Push("http://h/deeper", 3), "beyond the limit")

	assert.Equal(t, 3, f.Discovered())
	assert.Equal(t, 2, f.Len())

	target, ok := f.Pop()
	require.True(t, ok)
	assert.Equal(t, types.CrawlTarget{URL: "http://h/", Depth: 0}, target)

	target, ok = f.Pop()
	require.True(t, ok)
	assert.Equal(t, types.CrawlTarget{URL: "http://h/a", Depth: 1}, target)

	_, ok = f.Pop()
	assert.False(t, ok)
}

func TestFrontierVisitedLinksAreKnown(t *testing.T) {
	f := NewFrontier(3, 0)
	f.MarkVisited("http://h/x")

	assert.True(t, f.Visited("http://h/x"))
	assert.False(t, f.Push("http://h/x", 0))
	assert.Equal(t, []string{"http://h/x"}, f.VisitedLinks())
	assert.Empty(t, f.Links())
}

func TestFrontierManyLinks(t *testing.T) {
	f := NewFrontier(1, 10)
	for i := range 5000 {
		require.True(t, f.Push(fmt.Sprintf("http://h/%d", i), 0))
	}
	assert.Equal(t, 5000, f.Discovered())
	assert.Len(t, f.Links(), 5000)
}

func TestScope(t *testing.T) {
	seed, err := ParseSeed("http://example.com:8080/start")
	require.NoError(t, err)
	scope := NewScope(seed)

	assert.True(t, scope.Contains("http://example.com:8080/a"))
	assert.True(t, scope.Contains("https://example.com:8080/a"))
	assert.False(t, scope.Contains("http://example.com/a"))
	assert.False(t, scope.Contains("http://sub.example.com:8080/a"))
	assert.False(t, scope.Contains("://bad"))
}
