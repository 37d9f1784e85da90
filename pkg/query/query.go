// Package query builds per-record search queries from a user template.
//
// A template is plain text carrying the placeholder token exactly once,
// e.g. "latest news about {entity}". Rendering substitutes one record's
// entity value for the token and touches nothing else.
package query

import (
	"fmt"
	"strings"
)

// Placeholder is the token a template must contain exactly once.
const Placeholder = "{entity}"

// TemplateError reports a template that cannot produce well-formed queries.
type TemplateError struct {
	Template string
	Count    int
}

func (e *TemplateError) Error() string {
	if e == nil {
		return "invalid query template"
	}
	return fmt.Sprintf(
		"invalid query template %q: placeholder %s must appear exactly once (found %d)",
		e.Template, Placeholder, e.Count,
	)
}

// Template is a validated query template. The zero value is not usable;
// construct via New.
type Template struct {
	raw string
}

// New validates raw and returns a Template. The placeholder must appear
// exactly once; zero or repeated occurrences return a *TemplateError.
func New(raw string) (Template, error) {
	if n := strings.Count(raw, Placeholder); n != 1 {
		return Template{}, &TemplateError{Template: raw, Count: n}
	}
	return Template{raw: raw}, nil
}

// Render substitutes entity for the placeholder and returns the query.
// It is pure: same inputs, same output, no I/O.
func (t Template) Render(entity string) string {
	return strings.ReplaceAll(t.raw, Placeholder, entity)
}

// String returns the raw template text.
func (t Template) String() string {
	return t.raw
}
