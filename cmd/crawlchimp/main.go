// Command crawlchimp crawls a single site breadth-first and reports the
// same-site links it finds.
//
// Usage:
//
//	crawlchimp crawl -u https://example.com -d 2 -f results.txt
//	crawlchimp init-credentials credentials.json
//
// See --help for all available options.
package main

import (
	"fmt"
	"os"

	"github.com/BenjaminSRussell/crawlchimp/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
