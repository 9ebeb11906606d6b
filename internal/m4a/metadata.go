package m4a

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/simonhull/metanote/internal/binary"
	"github.com/simonhull/metanote/internal/types"
)

// fieldAtoms maps canonical fields to their ilst atom types. The 0xA9
// byte is the © marker iTunes prefixes on text atoms. trkn and covr are
// binary atoms handled separately.
var fieldAtoms = map[types.Field]string{
	types.FieldTitle:   "\xA9nam",
	types.FieldArtist:  "\xA9ART",
	types.FieldAlbum:   "\xA9alb",
	types.FieldYear:    "\xA9day",
	types.FieldGenre:   "\xA9gen",
	types.FieldComment: "\xA9cmt",
	types.FieldLyrics:  "\xA9lyr",
}

// atomFields is the reverse of fieldAtoms.
var atomFields = map[string]types.Field{}

func init() {
	for field, atomType := range fieldAtoms {
		atomFields[atomType] = field
	}
}

// ownedAtom reports whether an ilst entry type belongs to the canonical
// model and is therefore rebuilt, not passed through, on write.
func ownedAtom(atomType string) bool {
	if _, ok := atomFields[atomType]; ok {
		return true
	}
	return atomType == "trkn" || atomType == "covr"
}

// extractIlstMetadata parses all metadata items from the ilst atom.
//
// The first occurrence of each canonical atom wins; later duplicates
// are ignored, matching the other codecs.
func extractIlstMetadata(sr *binary.SafeReader, ilstAtom *Atom, file *types.File) error {
	offset := ilstAtom.DataOffset()
	end := offset + int64(ilstAtom.DataSize())

	for offset < end {
		tagAtom, err := readAtomHeader(sr, offset)
		if err != nil {
			return err
		}
		if tagAtom.Size == 0 {
			return &types.CorruptedFileError{
				Offset: offset,
				Reason: "metadata item with zero size",
			}
		}

		switch {
		case tagAtom.Type == "trkn":
			if _, taken := file.Tags.Get(types.FieldTrack); !taken {
				if track, ok, err := parseTrackAtom(sr, tagAtom); err != nil {
					file.Warnings = append(file.Warnings, types.Warning{
						Stage:   "metadata",
						Message: fmt.Sprintf("failed to parse track number: %v", err),
						Offset:  tagAtom.Offset,
					})
				} else if ok {
					file.Tags.Set(types.FieldTrack, track)
				}
			}

		case tagAtom.Type == "covr":
			if file.Cover == nil {
				cover, err := parseCoverAtom(sr, tagAtom)
				if err != nil {
					file.Warnings = append(file.Warnings, types.Warning{
						Stage:   "cover",
						Message: fmt.Sprintf("failed to parse cover art: %v", err),
						Offset:  tagAtom.Offset,
					})
				} else {
					file.Cover = cover
				}
			}

		default:
			if field, ok := atomFields[tagAtom.Type]; ok {
				if _, taken := file.Tags.Get(field); !taken {
					value, ok, err := parseMetadataTag(sr, tagAtom)
					if err != nil {
						file.Warnings = append(file.Warnings, types.Warning{
							Stage:   "metadata",
							Message: fmt.Sprintf("failed to parse tag %s: %v", tagAtom.Type, err),
							Offset:  tagAtom.Offset,
						})
					} else if ok {
						file.Tags.Set(field, value)
					}
				}
			}
		}

		// Move to next tag
		offset += int64(tagAtom.Size)
	}

	return nil
}

// parseMetadataTag extracts the string value from an iTunes metadata
// tag atom. The boolean is false when the item carries no data atom;
// an existing but empty data atom is a present, empty value.
func parseMetadataTag(sr *binary.SafeReader, tagAtom *Atom) (string, bool, error) {
	// Tag atoms contain a "data" atom with the actual value
	// Format: tag atom → data atom → version/flags + locale → value

	if tagAtom.DataSize() == 0 {
		return "", false, nil
	}

	dataAtom, err := findAtom(sr, tagAtom.DataOffset(), tagAtom.DataOffset()+int64(tagAtom.DataSize()), "data")
	if err != nil {
		return "", false, nil
	}

	payload, err := dataAtomValue(sr, dataAtom)
	if err != nil {
		return "", false, err
	}

	// Tolerate writers that nul-terminate text values
	return strings.TrimRight(string(payload), "\x00"), true, nil
}

// dataAtomValue returns the value bytes of a data atom, skipping the
// version/flags word and the locale word.
func dataAtomValue(sr *binary.SafeReader, dataAtom *Atom) ([]byte, error) {
	valueOffset := dataAtom.DataOffset() + 8
	valueSize := int64(dataAtom.DataSize()) - 8

	if valueSize < 0 {
		return nil, fmt.Errorf("data atom too small for its type and locale words")
	}
	if valueSize == 0 {
		return nil, nil
	}

	buf := make([]byte, valueSize)
	if err := sr.ReadAt(buf, valueOffset, "metadata value"); err != nil {
		return nil, err
	}

	return buf, nil
}

// parseTrackAtom extracts the track number from a trkn atom as "N" or
// "N/Total".
//
// trkn value layout: two reserved bytes, a big-endian track number,
// a big-endian track total, then (usually) two more reserved bytes.
func parseTrackAtom(sr *binary.SafeReader, tagAtom *Atom) (string, bool, error) {
	dataAtom, err := findAtom(sr, tagAtom.DataOffset(), tagAtom.DataOffset()+int64(tagAtom.DataSize()), "data")
	if err != nil {
		return "", false, nil
	}

	if dataAtom.DataSize() < 8+6 {
		return "", false, fmt.Errorf("trkn data atom holds %d bytes, need at least 6", int64(dataAtom.DataSize())-8)
	}

	offset := dataAtom.DataOffset() + 8 + 2 // skip type, locale, reserved

	number, err := binary.Read[uint16](sr, offset, "track number")
	if err != nil {
		return "", false, err
	}

	total, err := binary.Read[uint16](sr, offset+2, "track total")
	if err != nil {
		return "", false, err
	}

	if number == 0 && total == 0 {
		return "", false, nil
	}

	if total > 0 {
		return fmt.Sprintf("%d/%d", number, total), true, nil
	}
	return strconv.Itoa(int(number)), true, nil
}

// Data atom type codes for covr payloads.
const (
	covrTypeGIF  = 12
	covrTypeJPEG = 13
	covrTypePNG  = 14
)

// parseCoverAtom extracts the first image from a covr atom.
func parseCoverAtom(sr *binary.SafeReader, tagAtom *Atom) (*types.Cover, error) {
	dataAtom, err := findAtom(sr, tagAtom.DataOffset(), tagAtom.DataOffset()+int64(tagAtom.DataSize()), "data")
	if err != nil {
		return nil, fmt.Errorf("covr atom has no data atom")
	}

	typeCode, err := binary.Read[uint32](sr, dataAtom.DataOffset(), "covr data type")
	if err != nil {
		return nil, err
	}

	data, err := dataAtomValue(sr, dataAtom)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("covr data atom is empty")
	}

	var mime string
	switch typeCode & 0xFF {
	case covrTypeJPEG:
		mime = types.MIMEJPEG
	case covrTypePNG:
		mime = types.MIMEPNG
	case covrTypeGIF:
		mime = "image/gif"
	default:
		// Implicit type: sniff the image bytes
		mime = types.DetectImageMIME(data)
	}

	return &types.Cover{
		MIME: mime,
		Data: data,
	}, nil
}
