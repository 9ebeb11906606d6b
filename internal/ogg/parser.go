package ogg

import (
	"fmt"
	"io"
	"strings"
	"time"

	binutil "github.com/simonhull/metanote/internal/binary"
	"github.com/simonhull/metanote/internal/registry"
	"github.com/simonhull/metanote/internal/types"
	"github.com/simonhull/metanote/internal/vorbis"
)

const (
	codecVorbis  = "vorbis"
	codecOpus    = "opus"
	containerOgg = "Ogg"

	// maxHeaderPages bounds the header scan. Comment packets span many
	// pages when they carry large cover art (base64 inflates a 10MiB
	// image to roughly 13MiB), so the cap stays generous: 256 pages is
	// about 16MiB of header.
	maxHeaderPages = 256
)

// frontCoverType is the FLAC picture type for a front cover, reused by
// the METADATA_BLOCK_PICTURE comment convention.
const frontCoverType = 3

// parser implements the registry.FormatParser interface for Ogg Vorbis
// and Ogg Opus files.
type parser struct{}

// Parse reads the header packets of an Ogg stream and extracts tags,
// cover art, and technical information.
func (p *parser) Parse(r io.ReaderAt, size int64, path string) (*types.File, error) {
	sr := binutil.NewSafeReader(r, size, path)

	magic := make([]byte, 4)
	if err := sr.ReadAt(magic, 0, "Ogg magic bytes"); err != nil {
		return nil, fmt.Errorf("read Ogg magic: %w", err)
	}
	if string(magic) != "OggS" {
		return nil, &types.CorruptedFileError{
			Path:   path,
			Offset: 0,
			Reason: "invalid Ogg magic bytes",
		}
	}

	file := &types.File{
		Path:   path,
		Format: types.FormatOgg,
		Size:   size,
		Tags:   types.Tags{},
		Audio:  types.AudioInfo{},
	}

	// Identification and comment headers both live at the front of the
	// stream; keep reading pages until those two packets are complete.
	var pages []*Page
	offset := int64(0)
	complete := 0
	for i := 0; complete < 2 && offset < size && i < maxHeaderPages; i++ {
		page, nextOffset, err := readPage(sr, offset)
		if err != nil {
			if i == 0 {
				return nil, fmt.Errorf("failed to read first Ogg page: %w", err)
			}
			file.Warnings = append(file.Warnings, types.Warning{
				Stage:   "metadata",
				Message: fmt.Sprintf("failed to read Ogg page %d: %v", i, err),
				Offset:  offset,
			})
			break
		}
		pages = append(pages, page)
		complete += completePackets(page)
		offset = nextOffset
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("no Ogg pages found")
	}

	packets := extractPackets(pages)
	if len(packets) == 0 {
		return nil, fmt.Errorf("no packets in first Ogg pages")
	}

	switch detectOggCodec(packets[0]) {
	case codecVorbis:
		file.Format = types.FormatOgg
		if err := parseVorbisIdentification(packets[0], file); err != nil {
			return nil, fmt.Errorf("failed to parse Vorbis identification header: %w", err)
		}

		if len(packets) > 1 {
			if payload, err := vorbisCommentPayload(packets[1]); err != nil {
				file.Warnings = append(file.Warnings, types.Warning{
					Stage:   "metadata",
					Message: fmt.Sprintf("failed to parse Vorbis comment header: %v", err),
				})
			} else {
				fillComments(payload, file)
			}
		}

		if file.Audio.SampleRate > 0 {
			duration, err := calculateDuration(sr, size, file.Audio.SampleRate)
			if err != nil {
				file.Warnings = append(file.Warnings, types.Warning{
					Stage:   "technical",
					Message: fmt.Sprintf("failed to calculate duration: %v", err),
				})
			} else {
				file.Audio.Duration = duration
			}
		}

	case codecOpus:
		file.Format = types.FormatOpus
		if err := parseOpusHead(packets[0], file); err != nil {
			return nil, fmt.Errorf("failed to parse OpusHead header: %w", err)
		}

		if len(packets) > 1 {
			if payload, err := opusTagsPayload(packets[1]); err != nil {
				file.Warnings = append(file.Warnings, types.Warning{
					Stage:   "metadata",
					Message: fmt.Sprintf("failed to parse OpusTags header: %v", err),
				})
			} else {
				fillComments(payload, file)
			}
		}

		// Opus always decodes at 48 kHz
		duration, err := calculateDuration(sr, size, 48000)
		if err != nil {
			file.Warnings = append(file.Warnings, types.Warning{
				Stage:   "technical",
				Message: fmt.Sprintf("failed to calculate duration: %v", err),
			})
		} else {
			file.Audio.Duration = duration
		}

		// The Opus header has no nominal bitrate field
		if file.Audio.Duration > 0 {
			file.Audio.Bitrate = estimateOpusBitrate(size, file.Audio.Duration)
		}

	default:
		return nil, fmt.Errorf("unknown or unsupported Ogg codec")
	}

	return file, nil
}

// fillComments parses a comment payload (everything after the packet
// magic), fills the canonical fields, and extracts embedded cover art
// from METADATA_BLOCK_PICTURE entries. A front cover wins over other
// picture types; otherwise the first readable picture is used.
func fillComments(payload []byte, file *types.File) {
	comments, err := vorbis.Parse(payload, file.Path)
	if err != nil {
		file.Warnings = append(file.Warnings, types.Warning{
			Stage:   "metadata",
			Message: fmt.Sprintf("failed to parse comments: %v", err),
		})
		return
	}
	comments.Fill(file)

	var fallback *types.Cover
	for _, item := range comments.Items {
		eq := strings.IndexByte(item, '=')
		if eq < 0 || !strings.EqualFold(item[:eq], vorbis.PictureKey) {
			continue
		}

		cover, picType, err := vorbis.ParsePictureItem(item[eq+1:])
		if err != nil {
			file.Warnings = append(file.Warnings, types.Warning{
				Stage:   "cover",
				Message: fmt.Sprintf("failed to parse embedded picture: %v", err),
			})
			continue
		}
		if picType == frontCoverType {
			file.Cover = cover
			return
		}
		if fallback == nil {
			fallback = cover
		}
	}
	if file.Cover == nil {
		file.Cover = fallback
	}
}

// detectOggCodec determines whether the stream is Vorbis or Opus by
// examining the magic marker in the first packet.
func detectOggCodec(firstPacket []byte) string {
	if len(firstPacket) >= 8 && string(firstPacket[0:8]) == "OpusHead" {
		return codecOpus
	}
	if len(firstPacket) >= 7 && firstPacket[0] == 0x01 && string(firstPacket[1:7]) == codecVorbis {
		return codecVorbis
	}
	return "unknown"
}

// estimateOpusBitrate estimates the bitrate from the file size and
// duration, subtracting roughly 5KB for headers and tags.
func estimateOpusBitrate(fileSize int64, duration time.Duration) int {
	if duration == 0 {
		return 0
	}

	audioSize := fileSize - 5000
	if audioSize < 0 {
		audioSize = fileSize
	}

	seconds := duration.Seconds()
	if seconds == 0 {
		return 0
	}

	return int((float64(audioSize) * 8) / seconds)
}

// calculateDuration computes granule_position / sample_rate for the
// last page in the file.
func calculateDuration(sr *binutil.SafeReader, fileSize int64, sampleRate int) (time.Duration, error) {
	if sampleRate == 0 {
		return 0, fmt.Errorf("sample rate is zero")
	}

	granule, err := findLastGranulePosition(sr, fileSize)
	if err != nil {
		return 0, err
	}

	// Granule position -1 means "not set"
	if granule < 0 {
		return 0, fmt.Errorf("granule position not set")
	}

	seconds := float64(granule) / float64(sampleRate)
	return time.Duration(seconds * float64(time.Second)), nil
}

// init registers the Ogg parser for both Vorbis and Opus formats.
func init() {
	p := &parser{}
	registry.Register(types.FormatOgg, p)
	registry.Register(types.FormatOpus, p)
}
