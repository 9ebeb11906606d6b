package metanote

import (
	"github.com/simonhull/metanote/internal/types"
)

// Tags is an alias to types.Tags.
// Re-exported from internal/types so callers never import internal packages.
type Tags = types.Tags

// Field is an alias to types.Field.
// Re-exported from internal/types so callers never import internal packages.
type Field = types.Field

// Re-export the canonical field constants.
const (
	FieldTitle   = types.FieldTitle
	FieldArtist  = types.FieldArtist
	FieldAlbum   = types.FieldAlbum
	FieldYear    = types.FieldYear
	FieldTrack   = types.FieldTrack
	FieldGenre   = types.FieldGenre
	FieldComment = types.FieldComment
	FieldLyrics  = types.FieldLyrics
)

// Fields returns all canonical fields in projection order.
// Delegates to types.Fields while keeping the public API in this package.
func Fields() []Field {
	return types.Fields()
}

// ParseField maps a field name ("artist", "Title", " GENRE ") to its Field
// constant. Delegates to types.ParseField.
func ParseField(name string) (Field, bool) {
	return types.ParseField(name)
}
