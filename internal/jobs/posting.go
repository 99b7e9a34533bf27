package jobs

import (
	"fmt"
	"strings"
)

// Posting is one job record as returned by a provider. Providers disagree on
// key names, so logical fields are resolved through fieldAliases.
type Posting map[string]any

// Field is a logical posting field.
type Field string

const (
	FieldTitle    Field = "title"
	FieldCompany  Field = "company"
	FieldLocation Field = "location"
	FieldURL      Field = "url"
)

// fieldAliases lists the accepted keys per field; the first non-empty one wins.
var fieldAliases = map[Field][]string{
	FieldTitle:    {"title"},
	FieldCompany:  {"company", "company_name", "companyName"},
	FieldLocation: {"location"},
	FieldURL:      {"link", "url"},
}

// Get resolves a logical field. Missing fields yield "".
func (p Posting) Get(f Field) string {
	for _, key := range fieldAliases[f] {
		if s := stringValue(p[key]); s != "" {
			return s
		}
	}
	return ""
}

func (p Posting) Title() string    { return p.Get(FieldTitle) }
func (p Posting) Company() string  { return p.Get(FieldCompany) }
func (p Posting) Location() string { return p.Get(FieldLocation) }
func (p Posting) URL() string      { return p.Get(FieldURL) }

// raw resolves a field without trimming. Any non-empty value counts as
// present, including whitespace.
func (p Posting) raw(f Field) string {
	for _, key := range fieldAliases[f] {
		switch v := p[key].(type) {
		case nil:
		case string:
			if v != "" {
				return v
			}
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// Key identifies a listing across queries: the URL when there is one,
// otherwise the title and company pair.
type Key struct {
	URL     string
	Title   string
	Company string
}

// DedupKey derives the deduplication key of p from the values as the
// provider sent them; a whitespace-only link is still a link.
func DedupKey(p Posting) Key {
	if u := p.raw(FieldURL); u != "" {
		return Key{URL: u}
	}
	return Key{Title: p.raw(FieldTitle), Company: p.raw(FieldCompany)}
}
