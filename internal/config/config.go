// Package config loads crawl settings from defaults, an optional YAML file and
// command line flags, in that order of precedence.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	chimphttp "github.com/BenjaminSRussell/crawlchimp/internal/http"
	"github.com/BenjaminSRussell/crawlchimp/internal/log"
	"github.com/BenjaminSRussell/crawlchimp/internal/proxy"
	"github.com/BenjaminSRussell/crawlchimp/internal/types"
)

// Defaults for a crawl
const (
	DefaultMaxDepth  = 3
	DefaultMaxPages  = 100
	DefaultTimeout   = 10 * time.Second
	DefaultDelay     = 100 * time.Millisecond
	DefaultSlowDelay = time.Second
	DefaultLogLevel  = "INFO"
)

// Default returns the configuration used when nothing else is set.
func Default() types.Config {
	return types.Config{
		MaxDepth:      DefaultMaxDepth,
		MaxPages:      DefaultMaxPages,
		Timeout:       DefaultTimeout,
		Delay:         DefaultDelay,
		SlowDelay:     DefaultSlowDelay,
		LogLevel:      DefaultLogLevel,
		HeaderProfile: chimphttp.DefaultProfile,
	}
}

// Load reads a YAML config file over the defaults. Unknown keys are errors.
// Durations are Go duration strings such as "250ms" or "10s".
func Load(path string) (types.Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks a merged configuration before a crawl starts.
func Validate(cfg types.Config) error {
	if strings.TrimSpace(cfg.StartURL) == "" {
		return ErrNoStartURL
	}
	u, err := url.Parse(cfg.StartURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidStartURL, cfg.StartURL)
	}

	if cfg.MaxDepth < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDepth, cfg.MaxDepth)
	}
	if cfg.MaxPages <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPages, cfg.MaxPages)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidTimeout, cfg.Timeout)
	}
	if cfg.Delay < 0 || cfg.SlowDelay < 0 {
		return ErrInvalidDelay
	}

	if cfg.Proxy != "" {
		if _, err := proxy.Parse(cfg.Proxy); err != nil {
			return err
		}
		if cfg.TLSFingerprint {
			return ErrProxyWithFingerprint
		}
	}

	if _, err := log.ParseLevel(cfg.LogLevel); err != nil {
		return err
	}
	if _, err := chimphttp.LookupProfile(cfg.HeaderProfile); err != nil {
		return err
	}

	return nil
}

// ParseHeaders decodes the --headers JSON object. Empty input means no headers.
func ParseHeaders(text string) (map[string]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var headers map[string]string
	if err := json.Unmarshal([]byte(text), &headers); err != nil {
		return nil, fmt.Errorf("invalid headers JSON: %w", err)
	}
	return headers, nil
}
