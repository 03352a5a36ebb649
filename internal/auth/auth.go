// Package auth attaches credentials to a crawl session and performs the
// heuristic form login.
package auth

import (
	"net/url"

	chimphttp "github.com/BenjaminSRussell/crawlchimp/internal/http"
	"github.com/BenjaminSRussell/crawlchimp/internal/types"
)

// Mode is the HTTP-level authentication attached to a session
type Mode int

const (
	ModeNone Mode = iota
	ModeBasic
	ModeBearer
	ModeAPIKey
)

func (m Mode) String() string {
	switch m {
	case ModeBasic:
		return "basic"
	case ModeBearer:
		return "bearer"
	case ModeAPIKey:
		return "api-key"
	default:
		return "none"
	}
}

// Apply attaches exactly one of basic auth, a bearer token or an API key to s,
// in that order of preference, and seeds cookies for origin regardless.
func Apply(s *chimphttp.Session, origin *url.URL, creds types.Credentials) Mode {
	mode := ModeNone

	switch {
	case creds.HasLogin():
		s.SetBasicAuth(creds.Username, creds.Password)
		mode = ModeBasic
	case creds.Token != "":
		s.SetHeader("Authorization", "Bearer "+creds.Token)
		mode = ModeBearer
	case creds.APIKey != "":
		s.SetHeader("X-API-Key", creds.APIKey)
		mode = ModeAPIKey
	}

	s.SetCookies(origin, creds.Cookies)

	return mode
}
