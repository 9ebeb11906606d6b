package types

import "strings"

// Field identifies one of the canonical metadata fields shared by all
// supported formats.
//
// Field values double as the names used in rename templates ("{artist}")
// and as CSV column headers, so they are lowercase strings rather than
// numeric constants.
type Field string

// The canonical fields, in projection order.
const (
	FieldTitle   Field = "title"
	FieldArtist  Field = "artist"
	FieldAlbum   Field = "album"
	FieldYear    Field = "year"
	FieldTrack   Field = "track"
	FieldGenre   Field = "genre"
	FieldComment Field = "comment"
	FieldLyrics  Field = "lyrics"
)

// Fields returns all canonical fields in projection order.
//
// The order is stable across releases: it defines the column order of
// CSV exports and the display order of CLI output.
func Fields() []Field {
	return []Field{
		FieldTitle,
		FieldArtist,
		FieldAlbum,
		FieldYear,
		FieldTrack,
		FieldGenre,
		FieldComment,
		FieldLyrics,
	}
}

// ParseField maps a field name to its Field constant.
//
// Matching is case-insensitive and ignores surrounding whitespace, so
// "Artist" and " ARTIST " both resolve to FieldArtist. The second return
// value reports whether the name is a known field.
func ParseField(name string) (Field, bool) {
	f := Field(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Fields() {
		if f == known {
			return f, true
		}
	}
	return "", false
}

// Tags holds the canonical metadata fields of an audio file.
//
// Every field is optional. A nil pointer means the field is absent from
// the file, which is distinct from a field that is present with an empty
// value. Readers must preserve this distinction: an absent field stays
// absent through a read-save round trip.
//
// Prefer the Get/Set/Clear accessors over touching pointers directly:
//
//	if title, ok := file.Tags.Get(types.FieldTitle); ok {
//		fmt.Println("Title:", title)
//	}
type Tags struct {
	Title   *string
	Artist  *string
	Album   *string
	Year    *string
	Track   *string
	Genre   *string
	Comment *string
	Lyrics  *string
}

// Get returns the value of a canonical field.
//
// The second return value reports whether the field is present. An
// absent field yields ("", false); a field present with an empty value
// yields ("", true).
func (t *Tags) Get(field Field) (string, bool) {
	p := t.ref(field)
	if p == nil || *p == nil {
		return "", false
	}
	return **p, true
}

// Set stores a value for a canonical field, marking it present.
//
// Setting an empty string is valid and distinct from clearing: the field
// stays present with an empty value.
func (t *Tags) Set(field Field, value string) {
	if p := t.ref(field); p != nil {
		*p = &value
	}
}

// Clear removes a canonical field entirely.
func (t *Tags) Clear(field Field) {
	if p := t.ref(field); p != nil {
		*p = nil
	}
}

// IsZero reports whether no canonical field is present.
func (t *Tags) IsZero() bool {
	for _, f := range Fields() {
		if _, ok := t.Get(f); ok {
			return false
		}
	}
	return true
}

// Clone creates a deep copy of the Tags.
func (t *Tags) Clone() *Tags {
	if t == nil {
		return nil
	}
	clone := &Tags{}
	for _, f := range Fields() {
		if v, ok := t.Get(f); ok {
			clone.Set(f, v)
		}
	}
	return clone
}

// Equal checks if two Tags hold the same fields with the same values.
//
// Presence matters: a Tags with an absent comment is not equal to one
// with an empty comment.
func (t *Tags) Equal(other *Tags) bool {
	if t == nil && other == nil {
		return true
	}
	if t == nil || other == nil {
		return false
	}
	for _, f := range Fields() {
		av, aok := t.Get(f)
		bv, bok := other.Get(f)
		if aok != bok || av != bv {
			return false
		}
	}
	return true
}

// ref returns the address of the pointer backing a field, or nil for an
// unknown field.
func (t *Tags) ref(field Field) **string {
	switch field {
	case FieldTitle:
		return &t.Title
	case FieldArtist:
		return &t.Artist
	case FieldAlbum:
		return &t.Album
	case FieldYear:
		return &t.Year
	case FieldTrack:
		return &t.Track
	case FieldGenre:
		return &t.Genre
	case FieldComment:
		return &t.Comment
	case FieldLyrics:
		return &t.Lyrics
	default:
		return nil
	}
}
