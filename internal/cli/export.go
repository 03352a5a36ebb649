package cli

import (
	"fmt"

	"github.com/BenjaminSRussell/crawlchimp/internal/export"
	"github.com/BenjaminSRussell/crawlchimp/internal/storage"
	"github.com/spf13/cobra"
)

// NewExportSitemapCmd creates the export-sitemap command
func NewExportSitemapCmd() *cobra.Command {
	config := export.SitemapConfig{}

	cmd := &cobra.Command{
		Use:   "export-sitemap",
		Short: "Export crawl results to sitemap",
		Long:  `Export the pages of a crawl journal that answered 200 to XML sitemap format`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := export.ExportSitemap(config)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Successfully exported %d URLs to %s\n", count, config.OutputFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&config.DataDir, "data-dir", "./data", "Data directory of the crawl journal")
	cmd.Flags().StringVar(&config.OutputFile, "output", "sitemap.xml", "Output file path")
	cmd.Flags().BoolVar(&config.IncludeLastmod, "include-lastmod", true, "Include lastmod in sitemap")
	cmd.Flags().BoolVar(&config.IncludeChangefreq, "include-changefreq", true, "Include changefreq in sitemap")
	cmd.Flags().Float64Var(&config.DefaultPriority, "default-priority", 0.5, "Default priority value")

	return cmd
}

// NewExportPagesCmd creates the export-pages command
func NewExportPagesCmd() *cobra.Command {
	var (
		dataDir, dbPath, output, format string
		filter                          storage.PageFilter
		depth                           int
	)

	cmd := &cobra.Command{
		Use:   "export-pages",
		Short: "Export recorded pages as JSON or CSV",
		Long: `Export the page records of a crawl as JSON or CSV. Records come from the
JSONL journal in --data-dir, or from a SQLite database with --sqlite, which
also accepts --run-id, --status and --depth filters.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			var count int
			if dbPath != "" {
				if cmd.Flags().Changed("depth") {
					filter.Depth = &depth
				}
				count, err = export.ExportSQLitePages(dbPath, filter, output, f)
			} else {
				count, err = export.ExportPages(dataDir, output, f)
			}
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Successfully exported %d pages to %s\n", count, output)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Data directory of the crawl journal")
	cmd.Flags().StringVar(&dbPath, "sqlite", "", "Read pages from this SQLite database instead of the journal")
	cmd.Flags().StringVar(&filter.RunID, "run-id", "", "Only export pages of this run (with --sqlite)")
	cmd.Flags().IntVar(&filter.StatusCode, "status", 0, "Only export pages with this HTTP status (with --sqlite)")
	cmd.Flags().IntVar(&depth, "depth", 0, "Only export pages at this depth (with --sqlite)")
	cmd.Flags().StringVar(&output, "output", "pages.json", "Output file path")
	cmd.Flags().StringVar(&format, "format", string(export.FormatJSON), "Output format: json or csv")

	return cmd
}
