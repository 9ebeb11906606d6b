package metanote

import (
	"io"

	"github.com/simonhull/metanote/internal/types"
)

// Format is an alias to types.Format.
// Re-exported from internal/types so callers never import internal packages.
type Format = types.Format

// Re-export all format constants.
const (
	FormatUnknown = types.FormatUnknown
	FormatFLAC    = types.FormatFLAC
	FormatMP3     = types.FormatMP3
	FormatM4A     = types.FormatM4A
	FormatOgg     = types.FormatOgg
	FormatOpus    = types.FormatOpus
	FormatWAV     = types.FormatWAV
)

// DetectFormat identifies the audio container by magic bytes.
//
// The file extension is never consulted, so a FLAC file renamed to
// song.mp3 is still detected as FLAC. Content matching none of the
// supported formats returns UnsupportedFormatError.
func DetectFormat(r io.ReaderAt, size int64, path string) (Format, error) {
	return types.DetectFormat(r, size, path)
}
