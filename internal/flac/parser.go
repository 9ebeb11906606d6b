// Package flac parses and writes FLAC metadata blocks.
package flac

import (
	"fmt"
	"io"
	"time"

	"github.com/simonhull/metanote/internal/binary"
	"github.com/simonhull/metanote/internal/registry"
	"github.com/simonhull/metanote/internal/types"
	"github.com/simonhull/metanote/internal/vorbis"
)

// Metadata block types
const (
	blockTypeStreamInfo    = 0
	blockTypePadding       = 1
	blockTypeApplication   = 2
	blockTypeSeekTable     = 3
	blockTypeVorbisComment = 4
	blockTypeCueSheet      = 5
	blockTypePicture       = 6
)

// FLAC picture types (same numbering as ID3v2 APIC)
const (
	pictureTypeFrontCover = 3
)

// decodeBlockHeader splits a 4-byte metadata block header into its parts.
func decodeBlockHeader(header uint32) (isLast bool, blockType uint8, blockLength int64) {
	return (header >> 31) == 1, uint8((header >> 24) & 0x7F), int64(header & 0x00FFFFFF)
}

// parser implements the registry.FormatParser interface for FLAC files
type parser struct{}

// Parse parses a FLAC file and extracts metadata
func (p *parser) Parse(r io.ReaderAt, size int64, path string) (*types.File, error) {
	// Create safe reader
	sr := binary.NewSafeReader(r, size, path)

	// Verify FLAC magic bytes ("fLaC")
	magic := make([]byte, 4)
	if err := sr.ReadAt(magic, 0, "FLAC magic bytes"); err != nil {
		return nil, fmt.Errorf("read FLAC magic: %w", err)
	}
	if string(magic) != "fLaC" {
		return nil, &types.CorruptedFileError{
			Path:   path,
			Offset: 0,
			Reason: "invalid FLAC magic bytes",
		}
	}

	// Initialize file
	file := &types.File{
		Path:   path,
		Format: types.FormatFLAC,
		Size:   size,
		Tags:   types.Tags{},
		Audio:  types.AudioInfo{},
	}

	// Parse metadata blocks
	var fallbackCover *types.Cover
	offset := int64(4) // After "fLaC"
	for {
		if offset >= size {
			break
		}

		// Read metadata block header (4 bytes)
		header, err := binary.Read[uint32](sr, offset, "metadata block header")
		if err != nil {
			file.Warnings = append(file.Warnings, types.Warning{
				Stage:   "metadata",
				Message: fmt.Sprintf("failed to read metadata block header at offset %d: %v", offset, err),
				Offset:  offset,
			})
			break
		}

		isLast, blockType, blockLength := decodeBlockHeader(header)
		offset += 4 // Move past header

		// Parse block based on type
		switch blockType {
		case blockTypeStreamInfo:
			if err := parseStreamInfo(sr, offset, blockLength, file); err != nil {
				file.Warnings = append(file.Warnings, types.Warning{
					Stage:   "technical",
					Message: fmt.Sprintf("failed to parse STREAMINFO: %v", err),
					Offset:  offset,
				})
			}

		case blockTypeVorbisComment:
			if err := parseVorbisComment(sr, offset, blockLength, file); err != nil {
				file.Warnings = append(file.Warnings, types.Warning{
					Stage:   "metadata",
					Message: fmt.Sprintf("failed to parse Vorbis comments: %v", err),
					Offset:  offset,
				})
			}

		case blockTypePicture:
			cover, pictureType, err := parsePicture(sr, offset)
			if err != nil {
				file.Warnings = append(file.Warnings, types.Warning{
					Stage:   "cover",
					Message: fmt.Sprintf("failed to parse PICTURE block: %v", err),
					Offset:  offset,
				})
				break
			}
			// The front cover wins; any other image is only a
			// fallback when no front cover exists.
			if pictureType == pictureTypeFrontCover && file.Cover == nil {
				file.Cover = cover
			} else if fallbackCover == nil {
				fallbackCover = cover
			}

		case blockTypePadding, blockTypeApplication, blockTypeSeekTable, blockTypeCueSheet:
			// Not metadata we surface; preserved verbatim on write

		default:
			// Unknown block type - skip it
		}

		// Move to next block
		offset += blockLength

		// If this was the last metadata block, we're done
		if isLast {
			break
		}
	}

	if file.Cover == nil {
		file.Cover = fallbackCover
	}

	// Set codec properties
	file.Audio.Codec = "FLAC"
	file.Audio.Container = "FLAC"
	file.Audio.Lossless = true

	return file, nil
}

// parseStreamInfo extracts audio info from STREAMINFO block
func parseStreamInfo(sr *binary.SafeReader, offset, blockLength int64, file *types.File) error {
	// STREAMINFO is exactly 34 bytes
	if blockLength != 34 {
		return fmt.Errorf("invalid STREAMINFO size: %d (expected 34)", blockLength)
	}

	// Read all 34 bytes
	data := make([]byte, 34)
	if err := sr.ReadAt(data, offset, "STREAMINFO block"); err != nil {
		return err
	}

	// Bytes 10-17 pack: sample rate (20 bits), channels-1 (3 bits),
	// bits per sample-1 (5 bits), total samples (36 bits)
	packed := uint64(data[10])<<56 | uint64(data[11])<<48 | uint64(data[12])<<40 | uint64(data[13])<<32 |
		uint64(data[14])<<24 | uint64(data[15])<<16 | uint64(data[16])<<8 | uint64(data[17])

	sampleRate := (packed >> 44) & 0xFFFFF
	channels := ((packed >> 41) & 0x7) + 1
	bitsPerSample := ((packed >> 36) & 0x1F) + 1
	totalSamples := packed & 0xFFFFFFFFF

	// Calculate duration
	if sampleRate > 0 {
		durationSeconds := float64(totalSamples) / float64(sampleRate)
		file.Audio.Duration = time.Duration(durationSeconds * float64(time.Second))
	}

	// Set audio properties
	file.Audio.SampleRate = int(sampleRate)
	file.Audio.Channels = int(channels)
	file.Audio.BitDepth = int(bitsPerSample)

	// Calculate approximate bitrate (FLAC is variable bitrate)
	// Use file size and duration for a rough estimate
	if file.Audio.Duration > 0 {
		durationSeconds := file.Audio.Duration.Seconds()
		bitsPerSecond := (float64(file.Size) * 8) / durationSeconds
		file.Audio.Bitrate = int(bitsPerSecond)
	}

	return nil
}

// parseVorbisComment extracts tags from a VORBIS_COMMENT block
func parseVorbisComment(sr *binary.SafeReader, offset, blockLength int64, file *types.File) error {
	data := make([]byte, blockLength)
	if err := sr.ReadAt(data, offset, "VORBIS_COMMENT block"); err != nil {
		return err
	}

	comments, err := vorbis.Parse(data, file.Path)
	if err != nil {
		return err
	}
	comments.Fill(file)

	return nil
}

// parsePicture extracts the image from a PICTURE block.
//
// Returns the decoded cover and the FLAC picture type so the caller can
// prefer front covers over other image kinds.
func parsePicture(sr *binary.SafeReader, offset int64) (*types.Cover, uint32, error) {
	r := binary.NewReader(sr, offset)
	cr := binary.NewChainReader(r)

	pictureType := binary.ReadChained[uint32](cr, "picture type")

	mimeLength := binary.ReadChained[uint32](cr, "MIME type length")
	mimeType := cr.String(int(mimeLength), "MIME type")

	descLength := binary.ReadChained[uint32](cr, "description length")
	description := cr.String(int(descLength), "description")

	// Width, height, color depth, indexed colors: not surfaced
	cr.Skip(16)

	dataLength := binary.ReadChained[uint32](cr, "picture data length")
	pictureData := cr.Bytes(int(dataLength), "picture data")

	if err := cr.Error(); err != nil {
		return nil, 0, err
	}

	return &types.Cover{
		Data:        pictureData,
		MIME:        mimeType,
		Description: description,
	}, pictureType, nil
}

// init registers the FLAC parser
func init() {
	registry.Register(types.FormatFLAC, &parser{})
}
