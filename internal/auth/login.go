package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	chimphttp "github.com/BenjaminSRussell/crawlchimp/internal/http"
	"github.com/BenjaminSRussell/crawlchimp/internal/parser"
	"github.com/BenjaminSRussell/crawlchimp/internal/types"
)

var (
	// ErrLoginPageNotFound means none of the login paths answered 200.
	ErrLoginPageNotFound = errors.New("no login page found")
	// ErrNoLoginForm means the login page has no <form>.
	ErrNoLoginForm = errors.New("no login form found")
)

// DefaultLoginPaths are probed in order against the site origin.
var DefaultLoginPaths = []string{"/login", "/signin", "/auth/login", "/account/login", "/user/login"}

var (
	usernameHints     = []string{"user", "email", "login", "account"}
	usernameFallbacks = []string{"username", "user", "email", "login", "userid", "user_email", "account", "un", "uid"}
	passwordFallbacks = []string{"password", "pass", "pwd", "passwd", "pw", "user_password"}

	successKeywords = []string{"dashboard", "welcome", "logout", "profile", "account", "home", "main", "index", "admin", "user"}
	failureKeywords = []string{"error", "invalid", "incorrect", "failed", "denied", "login", "signin", "authentication"}
)

// LoginOutcome grades how sure we are that a form login worked
type LoginOutcome int

const (
	LoginUnknown LoginOutcome = iota
	LoginLikelySuccess
	LoginSuccess
)

func (o LoginOutcome) String() string {
	switch o {
	case LoginSuccess:
		return "success"
	case LoginLikelySuccess:
		return "likely-success"
	default:
		return "unknown"
	}
}

// LoginResult describes a submitted login form
type LoginResult struct {
	Outcome    LoginOutcome
	LoginURL   string
	Action     string
	Method     string
	StatusCode int
	FinalURL   string
}

// Authenticator performs the heuristic form login
type Authenticator struct {
	session      *chimphttp.Session
	logger       *slog.Logger
	paths        []string
	maxBodyBytes int64
}

// NewAuthenticator creates an authenticator that probes DefaultLoginPaths
func NewAuthenticator(s *chimphttp.Session, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		session:      s,
		logger:       logger,
		paths:        DefaultLoginPaths,
		maxBodyBytes: chimphttp.DefaultMaxBodyBytes,
	}
}

// Login finds the site's login form, fills it from creds and submits it.
// ErrLoginPageNotFound and ErrNoLoginForm mean nothing was submitted.
func (a *Authenticator) Login(ctx context.Context, base *url.URL, creds types.Credentials) (LoginResult, error) {
	origin := base.Scheme + "://" + base.Host

	loginURL, page, err := a.findLoginPage(ctx, origin)
	if err != nil {
		return LoginResult{}, err
	}
	a.logger.Info("found login page", "url", loginURL)

	form, err := parser.ParseLoginForm(bytes.NewReader(page))
	if err != nil {
		if errors.Is(err, parser.ErrNoForm) {
			return LoginResult{LoginURL: loginURL}, ErrNoLoginForm
		}
		return LoginResult{LoginURL: loginURL}, err
	}

	result := LoginResult{
		LoginURL: loginURL,
		Action:   ResolveAction(form.Action, origin, loginURL),
		Method:   http.MethodPost,
	}
	if strings.EqualFold(form.Method, http.MethodGet) {
		result.Method = http.MethodGet
	}

	values := BuildFormValues(form, creds)
	a.logger.Info("submitting login form", "action", result.Action, "method", result.Method, "fields", len(values))

	resp, err := a.submit(ctx, result.Method, result.Action, values)
	if err != nil {
		return result, fmt.Errorf("login submission failed: %w", err)
	}

	body, err := chimphttp.ReadBody(resp, a.maxBodyBytes)
	if err != nil {
		return result, fmt.Errorf("failed to read login response: %w", err)
	}

	result.StatusCode = resp.StatusCode
	result.FinalURL = resp.Request.URL.String()
	result.Outcome = ClassifyLogin(resp.StatusCode, result.FinalURL, body)

	return result, nil
}

func (a *Authenticator) findLoginPage(ctx context.Context, origin string) (string, []byte, error) {
	for _, path := range a.paths {
		candidate := origin + path

		resp, err := a.session.Get(ctx, candidate)
		if err != nil {
			a.logger.Debug("login page probe failed", "url", candidate, "error", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
			resp.Body.Close()
			continue
		}

		body, err := chimphttp.ReadBody(resp, a.maxBodyBytes)
		if err != nil {
			a.logger.Debug("login page read failed", "url", candidate, "error", err)
			continue
		}
		return candidate, body, nil
	}

	return "", nil, ErrLoginPageNotFound
}

func (a *Authenticator) submit(ctx context.Context, method, action string, values url.Values) (*http.Response, error) {
	if method == http.MethodGet {
		u, err := url.Parse(action)
		if err != nil {
			return nil, fmt.Errorf("invalid form action %q: %w", action, err)
		}
		q := u.Query()
		for key, vals := range values {
			for _, v := range vals {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
		return a.session.Get(ctx, u.String())
	}
	return a.session.PostForm(ctx, action, values)
}

// ResolveAction picks the URL a login form submits to.
func ResolveAction(action, origin, loginURL string) string {
	if strings.HasPrefix(action, "/") {
		return origin + action
	}
	if u, err := url.Parse(action); err != nil || !u.IsAbs() || u.Host == "" {
		return loginURL
	}
	return action
}

// BuildFormValues fills a login form: credentials go to the fields that look
// like username and password inputs, hidden values and checked boxes pass through.
func BuildFormValues(form *parser.Form, creds types.Credentials) url.Values {
	values := url.Values{}
	var haveUser, havePass bool

	for _, in := range form.Inputs {
		if in.Name == "" {
			continue
		}

		switch {
		case (in.Type == "text" || in.Type == "email") &&
			(containsAny(strings.ToLower(in.Name), usernameHints) || containsAny(strings.ToLower(in.ID), usernameHints)):
			values.Set(in.Name, creds.Username)
			haveUser = true
		case in.Type == "password":
			values.Set(in.Name, creds.Password)
			havePass = true
		case in.Type == "hidden" || in.Type == "token":
			values.Set(in.Name, in.Value)
		case in.Type == "checkbox" && in.Checked:
			v := in.Value
			if v == "" {
				v = "on"
			}
			values.Set(in.Name, v)
		case in.Type == "submit" && in.Value != "":
			values.Set(in.Name, in.Value)
		}
	}

	if !haveUser {
		fillFallback(form, values, usernameFallbacks, creds.Username)
	}
	if !havePass {
		fillFallback(form, values, passwordFallbacks, creds.Password)
	}

	return values
}

func fillFallback(form *parser.Form, values url.Values, keys []string, value string) {
	for _, key := range keys {
		in, ok := form.Lookup(key)
		if !ok {
			continue
		}
		name := in.Name
		if name == "" {
			name = key
		}
		values.Set(name, value)
		return
	}
}

// ClassifyLogin grades a login response. Keyword matching is a heuristic and
// can be wrong both ways.
func ClassifyLogin(status int, finalURL string, body []byte) LoginOutcome {
	if status != http.StatusOK {
		return LoginUnknown
	}

	text := strings.ToLower(string(body))
	location := strings.ToLower(finalURL)

	success := containsAny(text, successKeywords) || containsAny(location, successKeywords)
	failure := containsAny(text, failureKeywords)
	if success && !failure {
		return LoginSuccess
	}

	if !strings.Contains(location, "login") && !strings.Contains(location, "signin") {
		return LoginLikelySuccess
	}

	return LoginUnknown
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
