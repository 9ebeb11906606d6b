package mp3

import (
	"io"

	binutil "github.com/simonhull/metanote/internal/binary"
	"github.com/simonhull/metanote/internal/registry"
	"github.com/simonhull/metanote/internal/types"
)

// parser implements the registry.FormatParser interface for MP3 files
type parser struct{}

// Parse parses a single MP3 file: the ID3v2 tag for fields and the
// MPEG frame headers for technical info.
func (p *parser) Parse(r io.ReaderAt, size int64, path string) (*types.File, error) {
	sr := binutil.NewSafeReader(r, size, path)

	file := &types.File{
		Path:   path,
		Format: types.FormatMP3,
		Size:   size,
		Tags:   types.Tags{},
		Audio:  types.AudioInfo{},
	}

	// Parse ID3v2 tag (if present)
	tagSize := int64(0)
	tag, err := readTag(sr, path)
	switch {
	case err != nil:
		// A broken or unreadable tag does not block technical parsing
		file.Warnings = append(file.Warnings, types.Warning{
			Stage:   "metadata",
			Message: "ID3v2 parsing failed: " + err.Error(),
		})
	case tag != nil:
		file.Warnings = append(file.Warnings, tag.Warnings...)
		fillTags(tag, file)
		tagSize = tag.TotalSize
	}

	// Parse MP3 frame headers for technical info (bitrate, duration, etc.)
	if err := parseTechnicalInfo(sr, tagSize, size, file); err != nil {
		file.Warnings = append(file.Warnings, types.Warning{
			Stage:   "technical",
			Message: "failed to parse MP3 technical info: " + err.Error(),
		})
	}

	return file, nil
}

// init registers the MP3 parser
func init() {
	registry.Register(types.FormatMP3, &parser{})
}
