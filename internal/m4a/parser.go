package m4a

import (
	"fmt"
	"io"

	"github.com/simonhull/metanote/internal/binary"
	"github.com/simonhull/metanote/internal/registry"
	"github.com/simonhull/metanote/internal/types"
)

// parser implements the registry.FormatParser interface for M4A files
type parser struct{}

// Parse parses an M4A file: the moov.udta.meta.ilst subtree for fields
// and cover art, mvhd and the first sample description for technical
// info.
func (p *parser) Parse(r io.ReaderAt, size int64, path string) (*types.File, error) {
	sr := binary.NewSafeReader(r, size, path)

	file := &types.File{
		Path:   path,
		Format: types.FormatM4A,
		Size:   size,
		Tags:   types.Tags{},
		Audio:  types.AudioInfo{},
	}

	// Find moov atom (movie container)
	moovAtom, err := findAtom(sr, 0, size, "moov")
	if err != nil {
		// No moov means no metadata and no technical info
		file.Warnings = append(file.Warnings, types.Warning{
			Stage:   "metadata",
			Message: fmt.Sprintf("no moov atom: %v", err),
		})
		return file, nil
	}

	// Metadata lives at moov.udta.meta.ilst; any missing link along the
	// way just means the file carries no tags
	if ilstAtom := findIlst(sr, moovAtom); ilstAtom != nil {
		if err := extractIlstMetadata(sr, ilstAtom, file); err != nil {
			file.Warnings = append(file.Warnings, types.Warning{
				Stage:   "metadata",
				Message: err.Error(),
			})
		}
	}

	// Parse technical info (duration, bitrate, codec, sample rate, channels)
	if err := parseTechnicalInfo(sr, moovAtom, file); err != nil {
		file.Warnings = append(file.Warnings, types.Warning{
			Stage:   "technical",
			Message: err.Error(),
		})
	}

	return file, nil
}

// findIlst locates the iTunes metadata list under moov, or nil when any
// ancestor is missing.
func findIlst(sr *binary.SafeReader, moovAtom *Atom) *Atom {
	udtaAtom, err := findAtom(sr, moovAtom.DataOffset(), moovAtom.DataOffset()+int64(moovAtom.DataSize()), "udta")
	if err != nil {
		return nil
	}

	metaAtom, err := findAtom(sr, udtaAtom.DataOffset(), udtaAtom.DataOffset()+int64(udtaAtom.DataSize()), "meta")
	if err != nil {
		return nil
	}

	// meta atom has 4 bytes of version+flags before the data
	metaDataOffset := metaAtom.DataOffset() + 4
	metaDataEnd := metaAtom.DataOffset() + int64(metaAtom.DataSize())

	ilstAtom, err := findAtom(sr, metaDataOffset, metaDataEnd, "ilst")
	if err != nil {
		return nil
	}

	return ilstAtom
}

// init registers the M4A parser
func init() {
	registry.Register(types.FormatM4A, &parser{})
}
