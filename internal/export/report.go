package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/BenjaminSRussell/crawlchimp/internal/storage"
	"github.com/BenjaminSRussell/crawlchimp/internal/types"
)

const startedLayout = "2006-01-02 15:04:05"

// FormatDuration renders d as [D day[s], ]H:MM:SS[.ffffff]. Sub-second
// digits are dropped when the duration is a whole number of seconds.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Truncate(time.Microsecond)

	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	micros := (d - seconds*time.Second) / time.Microsecond

	out := fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	if micros > 0 {
		out += fmt.Sprintf(".%06d", micros)
	}

	switch {
	case days == 1:
		out = "1 day, " + out
	case days > 1:
		out = fmt.Sprintf("%d days, ", days) + out
	}
	return out
}

// WriteReport writes the results file: a commented header block, a blank
// line and every discovered URL in sorted order.
func WriteReport(w io.Writer, results *types.Results) error {
	bw := bufio.NewWriter(w)
	stats := results.Stats

	fmt.Fprintf(bw, "# Crawling results for %s\n", stats.StartURL)
	fmt.Fprintf(bw, "# Started: %s\n", stats.StartedAt.Format(startedLayout))
	fmt.Fprintf(bw, "# Duration: %s\n", FormatDuration(stats.Duration()))
	fmt.Fprintf(bw, "# Pages crawled: %d\n", stats.PagesCrawled)
	fmt.Fprintf(bw, "# Links found: %d\n", len(results.Links))
	fmt.Fprintf(bw, "# Max depth: %d\n\n", stats.MaxDepth)

	links := slices.Clone(results.Links)
	slices.Sort(links)
	for _, link := range links {
		fmt.Fprintln(bw, link)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// SaveReport writes the results file to path, creating its directory.
func SaveReport(path string, results *types.Results) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	defer file.Close()

	if err := WriteReport(file, results); err != nil {
		return err
	}
	return file.Close()
}

// Summary is the end of run overview printed for the user
type Summary struct {
	Results    *types.Results
	OutputFile string
	Login      string
	Stored     *storage.PageStats // pages recorded in the SQLite database, if any
}

// WriteSummary prints the end of run overview
func WriteSummary(w io.Writer, s Summary) {
	rule := "============================================================"
	stats := s.Results.Stats

	fmt.Fprintf(w, "\n%s\nCRAWLING SUMMARY\n%s\n", rule, rule)
	fmt.Fprintf(w, "Starting URL: %s\n", stats.StartURL)
	fmt.Fprintf(w, "Pages crawled: %d\n", stats.PagesCrawled)
	if stats.PagesFailed > 0 {
		fmt.Fprintf(w, "Pages failed: %d\n", stats.PagesFailed)
	}
	if stats.Panics > 0 {
		fmt.Fprintf(w, "Pages recovered from panics: %d\n", stats.Panics)
	}
	fmt.Fprintf(w, "Unique links found: %d\n", len(s.Results.Links))
	fmt.Fprintf(w, "Max depth: %d\n", stats.MaxDepth)
	fmt.Fprintf(w, "Duration: %s\n", FormatDuration(stats.Duration()))
	if s.Login != "" {
		fmt.Fprintf(w, "Login: %s\n", s.Login)
	}
	if s.Stored != nil {
		fmt.Fprintf(w, "Pages stored: %d (%d successful, %d failed)\n",
			s.Stored.Total, s.Stored.Successful, s.Stored.Failed)
	}
	if s.OutputFile != "" {
		fmt.Fprintf(w, "Results saved to: %s\n", s.OutputFile)
	}
	fmt.Fprintf(w, "%s\n", rule)
}
