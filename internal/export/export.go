package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/BenjaminSRussell/crawlchimp/internal/storage"
	"github.com/BenjaminSRussell/crawlchimp/internal/types"
)

// Format is a page journal export format
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts json and csv.
func ParseFormat(name string) (Format, error) {
	switch f := Format(name); f {
	case FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want json or csv)", name)
	}
}

// WriteJSON writes page records as an indented JSON array
func WriteJSON(w io.Writer, results []types.PageResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}

var csvHeader = []string{"run_id", "url", "depth", "status_code", "content_type", "content_length", "link_count", "crawled_at", "error"}

// WriteCSV writes page records as CSV with a header row
func WriteCSV(w io.Writer, results []types.PageResult) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, result := range results {
		record := []string{
			result.RunID,
			result.URL,
			strconv.Itoa(result.Depth),
			strconv.Itoa(result.StatusCode),
			result.ContentType,
			strconv.FormatInt(result.ContentLength, 10),
			strconv.Itoa(result.LinkCount),
			result.CrawledAt.Format(time.RFC3339),
			result.Error,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// ExportPages converts the page journal in dataDir to outputFile and
// returns the number of records written.
func ExportPages(dataDir, outputFile string, format Format) (int, error) {
	results, err := storage.LoadResults(dataDir)
	if err != nil {
		return 0, fmt.Errorf("failed to load results: %w", err)
	}
	return writePages(outputFile, format, results)
}

// ExportSQLitePages writes the pages of the SQLite database at dbPath that
// match filter to outputFile.
func ExportSQLitePages(dbPath string, filter storage.PageFilter, outputFile string, format Format) (int, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return 0, fmt.Errorf("failed to open database: %w", err)
	}

	db, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	results, err := db.QueryPages(filter)
	if err != nil {
		return 0, err
	}
	return writePages(outputFile, format, results)
}

func writePages(outputFile string, format Format, results []types.PageResult) (int, error) {
	file, err := os.Create(outputFile)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", outputFile, err)
	}
	defer file.Close()

	switch format {
	case FormatCSV:
		err = WriteCSV(file, results)
	default:
		err = WriteJSON(file, results)
	}
	if err != nil {
		return 0, err
	}

	if err := file.Close(); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", outputFile, err)
	}

	return len(results), nil
}
