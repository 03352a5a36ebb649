package http

import (
	"fmt"
	"net/http"
	"slices"
)

// DefaultProfile is the header profile used unless another is selected.
const DefaultProfile = "default"

// BrowserProfile is the set of headers sent with every request of a session
type BrowserProfile struct {
	UserAgent       string
	Accept          string
	AcceptLanguage  string
	AcceptEncoding  string
	Connection      string
	UpgradeInsecure string
	SecFetchSite    string
	SecFetchMode    string
	SecFetchDest    string
}

var browserProfiles = map[string]BrowserProfile{
	DefaultProfile: {
		UserAgent:       "CrawlingChimp/2.0 (Educational Web Crawler)",
		Accept:          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		AcceptLanguage:  "en-US,en;q=0.5",
		AcceptEncoding:  "gzip, deflate",
		Connection:      "keep-alive",
		UpgradeInsecure: "1",
	},
	"chrome": {
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		Accept:          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		AcceptLanguage:  "en-US,en;q=0.9",
		AcceptEncoding:  "gzip, deflate, br",
		Connection:      "keep-alive",
		UpgradeInsecure: "1",
		SecFetchSite:    "none",
		SecFetchMode:    "navigate",
		SecFetchDest:    "document",
	},
	"firefox": {
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:134.0) Gecko/20100101 Firefox/134.0",
		Accept:          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		AcceptLanguage:  "en-US,en;q=0.5",
		AcceptEncoding:  "gzip, deflate, br",
		Connection:      "keep-alive",
		UpgradeInsecure: "1",
		SecFetchSite:    "none",
		SecFetchMode:    "navigate",
		SecFetchDest:    "document",
	},
}

// LookupProfile returns the named header profile. An empty name selects the default.
func LookupProfile(name string) (BrowserProfile, error) {
	if name == "" {
		name = DefaultProfile
	}
	p, ok := browserProfiles[name]
	if !ok {
		return BrowserProfile{}, fmt.Errorf("unknown header profile %q (available: %v)", name, ProfileNames())
	}
	return p, nil
}

// ProfileNames lists the known header profiles, sorted.
func ProfileNames() []string {
	names := make([]string, 0, len(browserProfiles))
	for name := range browserProfiles {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Header renders the profile as request headers.
func (p BrowserProfile) Header() http.Header {
	h := make(http.Header)
	set := func(key, value string) {
		if value != "" {
			h.Set(key, value)
		}
	}

	set("User-Agent", p.UserAgent)
	set("Accept", p.Accept)
	set("Accept-Language", p.AcceptLanguage)
	set("Accept-Encoding", p.AcceptEncoding)
	set("Connection", p.Connection)
	set("Upgrade-Insecure-Requests", p.UpgradeInsecure)
	set("Sec-Fetch-Site", p.SecFetchSite)
	set("Sec-Fetch-Mode", p.SecFetchMode)
	set("Sec-Fetch-Dest", p.SecFetchDest)

	return h
}
