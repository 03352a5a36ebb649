package parser

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// ErrUnsupportedScheme is returned for references that do not resolve to http or https.
var ErrUnsupportedScheme = errors.New("unsupported URL scheme")

// Links streams the href of every anchor in an HTML document, in document order.
// The sequence reads r as it goes and can only be ranged over once.
func Links(r io.Reader) iter.Seq[string] {
	return func(yield func(string) bool) {
		z := html.NewTokenizer(r)
		for {
			switch z.Next() {
			case html.ErrorToken:
				return
			case html.StartTagToken, html.SelfClosingTagToken:
				name, hasAttr := z.TagName()
				if !hasAttr || string(name) != "a" {
					continue
				}
				for {
					key, val, more := z.TagAttr()
					if string(key) == "href" {
						if !yield(string(val)) {
							return
						}
						break
					}
					if !more {
						break
					}
				}
			}
		}
	}
}

// Normalize resolves ref against the page it was found on and returns
// scheme://host/path[?query] with the fragment dropped.
func Normalize(ref, pageURL string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid page URL %q: %w", pageURL, err)
	}

	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("invalid reference %q: %w", ref, err)
	}

	resolved := base.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, resolved.Scheme)
	}

	var b strings.Builder
	b.WriteString(resolved.Scheme)
	b.WriteString("://")
	b.WriteString(resolved.Host)
	b.WriteString(resolved.EscapedPath())
	if resolved.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(resolved.RawQuery)
	}

	return b.String(), nil
}
