package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/BenjaminSRussell/crawlchimp/internal/auth"
	"github.com/BenjaminSRussell/crawlchimp/internal/config"
	"github.com/BenjaminSRussell/crawlchimp/internal/crawler"
	"github.com/BenjaminSRussell/crawlchimp/internal/export"
	chimphttp "github.com/BenjaminSRussell/crawlchimp/internal/http"
	"github.com/BenjaminSRussell/crawlchimp/internal/log"
	"github.com/BenjaminSRussell/crawlchimp/internal/storage"
	"github.com/BenjaminSRussell/crawlchimp/internal/types"
	"github.com/spf13/cobra"
)

// crawlFlags holds the raw flag values. They only override the config file
// when set on the command line.
type crawlFlags struct {
	configFile string
	flags      types.Config
	headers    string
}

// NewCrawlCmd creates the crawl command
func NewCrawlCmd() *cobra.Command {
	opts := &crawlFlags{flags: config.Default()}

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl a site from a start URL",
		Long: `Crawl a site breadth-first from --url, following only links on the same host,
and report every link discovered.

Examples:
  crawlchimp crawl -u https://example.com -d 2 -p 50 -f results.txt
  crawlchimp crawl -u https://example.com --cred-file credentials.json --save-session session.json
  crawlchimp crawl --config crawl.yaml --slow`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runCrawl(cmd, cfg)
		},
	}

	f := &opts.flags
	flags := cmd.Flags()
	flags.StringVar(&opts.configFile, "config", "", "YAML config file; flags override its values")
	flags.StringVarP(&f.StartURL, "url", "u", "", "Starting URL (required unless set in --config)")
	flags.BoolVarP(&f.Slow, "slow", "s", false, "Use the slow politeness delay between requests")
	flags.StringVarP(&f.OutputFile, "output-file", "f", "", "Write the sorted link report to this file")
	flags.IntVarP(&f.MaxDepth, "max-depth", "d", f.MaxDepth, "Maximum link depth from the start URL")
	flags.IntVarP(&f.MaxPages, "max-pages", "p", f.MaxPages, "Maximum number of pages to fetch")
	flags.DurationVar(&f.Timeout, "timeout", f.Timeout, "Per-request timeout")
	flags.DurationVar(&f.Delay, "delay", f.Delay, "Delay between requests")
	flags.DurationVar(&f.SlowDelay, "slow-delay", f.SlowDelay, "Delay between requests with --slow")
	flags.StringVar(&f.LogLevel, "log-level", f.LogLevel, "Log level: DEBUG, INFO, WARNING, ERROR")
	flags.StringVar(&f.LogFile, "log-file", "", "Also write logs to this file")
	flags.BoolVar(&f.LogJSON, "log-json", false, "Log as JSON")
	flags.StringVar(&f.CredFile, "cred-file", "", "JSON credentials file")
	flags.StringVar(&f.Username, "username", "", "Username for form login")
	flags.StringVar(&f.Password, "password", "", "Password for form login")
	flags.StringVar(&opts.headers, "headers", "", `Extra request headers as a JSON object, e.g. '{"X-Test": "1"}'`)
	flags.StringVar(&f.HeaderProfile, "header-profile", f.HeaderProfile,
		fmt.Sprintf("Browser header profile: %v", chimphttp.ProfileNames()))
	flags.StringVar(&f.LoadSession, "load-session", "", "Load session cookies from this file before crawling")
	flags.StringVar(&f.SaveSession, "save-session", "", "Save session cookies to this file after crawling")
	flags.StringVar(&f.SitemapFile, "sitemap", "", "Write discovered links as an XML sitemap")
	flags.StringVar(&f.DataDir, "data-dir", "", "Append a JSONL page journal to this directory")
	flags.StringVar(&f.SQLitePath, "sqlite", "", "Record pages in this SQLite database")
	flags.BoolVar(&f.TLSFingerprint, "tls-fingerprint", false, "Use a randomized browser TLS fingerprint")
	flags.StringVar(&f.Proxy, "proxy", "", "Send requests through this proxy (host:port, http://, https:// or socks5://)")

	return cmd
}

// resolveConfig merges defaults, the config file and explicitly set flags.
func resolveConfig(cmd *cobra.Command, opts *crawlFlags) (types.Config, error) {
	cfg := config.Default()
	if opts.configFile != "" {
		var err error
		if cfg, err = config.Load(opts.configFile); err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	f := opts.flags
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}

	set("url", func() { cfg.StartURL = f.StartURL })
	set("slow", func() { cfg.Slow = f.Slow })
	set("output-file", func() { cfg.OutputFile = f.OutputFile })
	set("max-depth", func() { cfg.MaxDepth = f.MaxDepth })
	set("max-pages", func() { cfg.MaxPages = f.MaxPages })
	set("timeout", func() { cfg.Timeout = f.Timeout })
	set("delay", func() { cfg.Delay = f.Delay })
	set("slow-delay", func() { cfg.SlowDelay = f.SlowDelay })
	set("log-level", func() { cfg.LogLevel = f.LogLevel })
	set("log-file", func() { cfg.LogFile = f.LogFile })
	set("log-json", func() { cfg.LogJSON = f.LogJSON })
	set("cred-file", func() { cfg.CredFile = f.CredFile })
	set("username", func() { cfg.Username = f.Username })
	set("password", func() { cfg.Password = f.Password })
	set("header-profile", func() { cfg.HeaderProfile = f.HeaderProfile })
	set("load-session", func() { cfg.LoadSession = f.LoadSession })
	set("save-session", func() { cfg.SaveSession = f.SaveSession })
	set("sitemap", func() { cfg.SitemapFile = f.SitemapFile })
	set("data-dir", func() { cfg.DataDir = f.DataDir })
	set("sqlite", func() { cfg.SQLitePath = f.SQLitePath })
	set("tls-fingerprint", func() { cfg.TLSFingerprint = f.TLSFingerprint })
	set("proxy", func() { cfg.Proxy = f.Proxy })

	if flags.Changed("headers") {
		headers, err := config.ParseHeaders(opts.headers)
		if err != nil {
			return cfg, err
		}
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			cfg.Headers[k] = v
		}
	}

	if err := config.Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func runCrawl(cmd *cobra.Command, cfg types.Config) error {
	logger, logCloser, err := log.New(log.Options{
		Level:  cfg.LogLevel,
		File:   cfg.LogFile,
		JSON:   cfg.LogJSON,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer logCloser.Close()

	creds, err := auth.LoadCredentials(cfg.CredFile, cfg.Username, cfg.Password)
	if err != nil {
		logger.Warn("continuing without the credentials file", "error", err)
	}

	opts := []crawler.Option{
		crawler.WithLogger(logger),
		crawler.WithCredentials(creds),
	}

	closers, db, sinkOpts, err := openSinks(cfg, logger)
	defer closeAll(closers, logger)
	if err != nil {
		return err
	}
	opts = append(opts, sinkOpts...)

	c, err := crawler.New(cfg, opts...)
	if err != nil {
		return fmt.Errorf("failed to create crawler: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := c.Crawl(ctx)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	if ctx.Err() != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Crawl interrupted, reporting partial results.")
	}

	if cfg.OutputFile != "" {
		if err := export.SaveReport(cfg.OutputFile, results); err != nil {
			logger.Error("error saving results", "file", cfg.OutputFile, "error", err)
		} else {
			logger.Info("results saved", "file", cfg.OutputFile)
		}
	}

	if cfg.SitemapFile != "" {
		if err := export.SaveSitemap(cfg.SitemapFile, results.Links); err != nil {
			logger.Error("error saving sitemap", "file", cfg.SitemapFile, "error", err)
		} else {
			logger.Info("sitemap saved", "file", cfg.SitemapFile, "urls", len(results.Links))
		}
	}

	summary := export.Summary{Results: results, OutputFile: cfg.OutputFile}
	if login, ok := c.LoginResult(); ok {
		summary.Login = login.Outcome.String()
	}
	if db != nil {
		stored, err := db.GetStats(results.Stats.RunID)
		if err != nil {
			logger.Warn("could not read stored page stats", "error", err)
		} else {
			summary.Stored = &stored
		}
	}
	export.WriteSummary(cmd.OutOrStdout(), summary)

	return nil
}

// openSinks opens the page journal and SQLite sinks that cfg asks for. The
// returned closers must be closed even when err is set. db is nil unless
// cfg names a SQLite database.
func openSinks(cfg types.Config, logger *slog.Logger) (closers []io.Closer, db *storage.SQLiteStorage, opts []crawler.Option, err error) {
	if cfg.DataDir != "" {
		store, err := storage.New(cfg.DataDir)
		if err != nil {
			return closers, nil, nil, err
		}
		closers = append(closers, store)

		if err := store.SaveConfig(cfg); err != nil {
			logger.Warn("could not save run configuration", "error", err)
		}
		opts = append(opts, crawler.WithSink(store))
	}

	if cfg.SQLitePath != "" {
		db, err = storage.NewSQLiteStorage(cfg.SQLitePath)
		if err != nil {
			return closers, nil, nil, err
		}
		closers = append(closers, db)
		opts = append(opts, crawler.WithSink(db))
	}

	return closers, db, opts, nil
}

func closeAll(closers []io.Closer, logger *slog.Logger) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Warn("failed to close sink", "error", err)
		}
	}
}

var (
	_ crawler.PageSink = (*storage.Storage)(nil)
	_ crawler.PageSink = (*storage.SQLiteStorage)(nil)
)
