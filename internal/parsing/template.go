// Package parsing expands "{field}" filename templates and normalizes
// tag values into filesystem-safe name components for the rename
// planner.
package parsing

import (
	"fmt"
	"strings"

	"github.com/simonhull/metanote/internal/types"
)

// segment is one run of a parsed template: either a literal emitted
// verbatim or a canonical field placeholder.
type segment struct {
	literal string
	field   types.Field
	isField bool
}

// Template is a parsed "{field}" filename pattern.
//
// Literals between placeholders pass through Render unchanged; the
// caller supplies placeholder values already normalized for use in a
// filename (see SanitizeFilename).
type Template struct {
	raw      string
	segments []segment
	fields   []types.Field
}

// ParseTemplate parses a pattern like "{artist} - {title}".
//
// Placeholder names are matched case-insensitively against the
// canonical fields. A pattern with an unknown field, an unterminated
// '{', or no placeholders at all is rejected: a template that
// references no fields would send every file to the same name.
func ParseTemplate(raw string) (*Template, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("empty rename template")
	}

	t := &Template{raw: raw}
	var literal strings.Builder
	seen := make(map[types.Field]bool)

	for i := 0; i < len(raw); {
		if raw[i] != '{' {
			literal.WriteByte(raw[i])
			i++
			continue
		}
		end := strings.IndexByte(raw[i:], '}')
		if end < 0 {
			return nil, fmt.Errorf("unterminated placeholder at offset %d in template %q", i, raw)
		}
		name := raw[i+1 : i+end]
		field, ok := types.ParseField(name)
		if !ok {
			return nil, fmt.Errorf("unknown field %q in template %q", name, raw)
		}
		if literal.Len() > 0 {
			t.segments = append(t.segments, segment{literal: literal.String()})
			literal.Reset()
		}
		t.segments = append(t.segments, segment{field: field, isField: true})
		if !seen[field] {
			seen[field] = true
			t.fields = append(t.fields, field)
		}
		i += end + 1
	}
	if literal.Len() > 0 {
		t.segments = append(t.segments, segment{literal: literal.String()})
	}

	if len(t.fields) == 0 {
		return nil, fmt.Errorf("template %q references no fields", raw)
	}
	return t, nil
}

// Fields returns the canonical fields the template references, in
// first-appearance order with duplicates removed.
func (t *Template) Fields() []types.Field {
	out := make([]types.Field, len(t.fields))
	copy(out, t.fields)
	return out
}

// Render expands the template. lookup is called once per placeholder
// occurrence and must return the final value to splice in; literals
// are copied verbatim, so spaces around separators like " - " survive.
func (t *Template) Render(lookup func(types.Field) string) string {
	var b strings.Builder
	for _, seg := range t.segments {
		if seg.isField {
			b.WriteString(lookup(seg.field))
		} else {
			b.WriteString(seg.literal)
		}
	}
	return b.String()
}

// String returns the original pattern text.
func (t *Template) String() string {
	return t.raw
}
