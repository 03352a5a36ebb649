package parser

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoForm is returned when a page has no <form> element.
var ErrNoForm = errors.New("no form found")

// FormInput is a single <input> element of a form
type FormInput struct {
	Name    string
	ID      string
	Type    string // lowercased, "text" when absent
	Value   string
	Checked bool
}

// Form is the first form of a page, as submitted by a browser
type Form struct {
	Action string
	Method string
	Inputs []FormInput
}

// ParseLoginForm extracts the first <form> of an HTML document with its inputs.
func ParseLoginForm(r io.Reader) (*Form, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	sel := doc.Find("form").First()
	if sel.Length() == 0 {
		return nil, ErrNoForm
	}

	form := &Form{
		Action: strings.TrimSpace(sel.AttrOr("action", "")),
		Method: strings.TrimSpace(sel.AttrOr("method", "")),
	}

	sel.Find("input").Each(func(i int, s *goquery.Selection) {
		_, checked := s.Attr("checked")
		form.Inputs = append(form.Inputs, FormInput{
			Name:    s.AttrOr("name", ""),
			ID:      s.AttrOr("id", ""),
			Type:    strings.ToLower(s.AttrOr("type", "text")),
			Value:   s.AttrOr("value", ""),
			Checked: checked,
		})
	})

	return form, nil
}

// Lookup returns the first input named key, or failing that the first with id key.
func (f *Form) Lookup(key string) (FormInput, bool) {
	for _, in := range f.Inputs {
		if in.Name == key {
			return in, true
		}
	}
	for _, in := range f.Inputs {
		if in.ID == key {
			return in, true
		}
	}
	return FormInput{}, false
}
