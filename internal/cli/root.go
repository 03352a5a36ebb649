package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the crawlchimp command tree
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawlchimp",
		Short: "A polite same-site web crawler",
		Long: `crawlchimp crawls a single site breadth-first from a start URL, staying on
the start URL's host, and reports every same-site link it discovers.

It can log in through the site's login form, reuse session cookies and
write the results as a text report, an XML sitemap or a page journal.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewInitCredentialsCmd())
	cmd.AddCommand(NewExportSitemapCmd())
	cmd.AddCommand(NewExportPagesCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
