package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BenjaminSRussell/crawlchimp/internal/storage"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

// SitemapConfig holds export configuration
type SitemapConfig struct {
	DataDir           string
	OutputFile        string
	IncludeLastmod    bool
	IncludeChangefreq bool
	DefaultPriority   float64
}

// URLSet represents the XML sitemap structure
type URLSet struct {
	XMLName xml.Name `xml:"urlset"`
	XMLNS   string   `xml:"xmlns,attr"`
	URLs    []URL    `xml:"url"`
}

// URL represents a single URL in the sitemap
type URL struct {
	Loc        string  `xml:"loc"`
	Lastmod    string  `xml:"lastmod,omitempty"`
	Changefreq string  `xml:"changefreq,omitempty"`
	Priority   float64 `xml:"priority,omitempty"`
}

// WriteSitemap writes links as a sitemap in the order given
func WriteSitemap(w io.Writer, links []string) error {
	urlSet := URLSet{XMLNS: sitemapNS, URLs: make([]URL, 0, len(links))}
	for _, link := range links {
		urlSet.URLs = append(urlSet.URLs, URL{Loc: link})
	}
	return encodeSitemap(w, urlSet)
}

// SaveSitemap writes links as a sitemap file
func SaveSitemap(path string, links []string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create sitemap: %w", err)
	}
	defer file.Close()

	if err := WriteSitemap(file, links); err != nil {
		return err
	}
	return file.Close()
}

// ExportSitemap builds a sitemap from the pages of a journal that answered
// 200. A URL journaled by several runs appears once, with its latest lastmod.
func ExportSitemap(config SitemapConfig) (int, error) {
	results, err := storage.LoadResults(config.DataDir)
	if err != nil {
		return 0, fmt.Errorf("failed to load results: %w", err)
	}

	urlSet := URLSet{
		XMLNS: sitemapNS,
		URLs:  make([]URL, 0),
	}
	index := make(map[string]int)
	latest := make(map[string]time.Time)

	for _, result := range results {
		if result.StatusCode != 200 || result.Error != "" {
			continue
		}

		if i, ok := index[result.URL]; ok {
			if config.IncludeLastmod && result.CrawledAt.After(latest[result.URL]) {
				latest[result.URL] = result.CrawledAt
				urlSet.URLs[i].Lastmod = result.CrawledAt.Format(time.RFC3339)
			}
			continue
		}

		u := URL{
			Loc:      result.URL,
			Priority: config.DefaultPriority,
		}

		if config.IncludeLastmod {
			u.Lastmod = result.CrawledAt.Format(time.RFC3339)
			latest[result.URL] = result.CrawledAt
		}

		if config.IncludeChangefreq {
			u.Changefreq = "weekly"
		}

		index[result.URL] = len(urlSet.URLs)
		urlSet.URLs = append(urlSet.URLs, u)
	}

	file, err := os.Create(config.OutputFile)
	if err != nil {
		return 0, fmt.Errorf("failed to write sitemap: %w", err)
	}
	defer file.Close()

	if err := encodeSitemap(file, urlSet); err != nil {
		return 0, err
	}
	if err := file.Close(); err != nil {
		return 0, fmt.Errorf("failed to write sitemap: %w", err)
	}

	return len(urlSet.URLs), nil
}

func encodeSitemap(w io.Writer, urlSet URLSet) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("failed to write sitemap: %w", err)
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(urlSet); err != nil {
		return fmt.Errorf("failed to marshal XML: %w", err)
	}

	_, err := io.WriteString(w, "\n")
	return err
}
