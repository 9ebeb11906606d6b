package metanote

import (
	"github.com/simonhull/metanote/internal/types"
)

// Cover is an alias to types.Cover.
// Re-exported from internal/types so callers never import internal packages.
type Cover = types.Cover

// Re-export the accepted cover MIME types.
const (
	MIMEJPEG = types.MIMEJPEG
	MIMEPNG  = types.MIMEPNG
)

// MaxCoverBytes is the largest cover image ReplaceCover accepts.
//
// The limit guards against embedding a wrong file (a video, an archive)
// picked by mistake; real cover scans sit far below it.
const MaxCoverBytes = 10 * 1024 * 1024

// ReplaceCover sets the embedded front cover to the given image data.
//
// The data must be a JPEG or PNG, identified by magic bytes rather than
// any claimed type: a GIF renamed to cover.png is still rejected with
// UnsupportedImageTypeError. Images over MaxCoverBytes are rejected with
// CoverTooLargeError. On any rejection the record is left untouched.
//
// The change is in-memory only until Save is called. Saving a replaced
// cover drops every image the file previously embedded and writes this
// one in its place.
func (f *File) ReplaceCover(data []byte) error {
	mime := types.DetectImageMIME(data)
	if mime != MIMEJPEG && mime != MIMEPNG {
		return &UnsupportedImageTypeError{Detected: mime}
	}
	if int64(len(data)) > MaxCoverBytes {
		return &CoverTooLargeError{
			Path: f.Path,
			Size: int64(len(data)),
			Max:  MaxCoverBytes,
		}
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	f.Cover = &Cover{MIME: mime, Data: buf}
	f.CoverDirty_ = true
	return nil
}

// RemoveCover removes the embedded cover.
//
// The change is in-memory only until Save is called. Saving after
// RemoveCover drops every image the file embeds, including secondary
// pictures that were never surfaced as the front cover.
func (f *File) RemoveCover() {
	f.Cover = nil
	f.CoverDirty_ = true
}

// ExtractCover returns a copy of the embedded front cover, or nil when
// the file has none. Mutating the copy does not affect the record.
func (f *File) ExtractCover() *Cover {
	return f.Cover.Clone()
}
