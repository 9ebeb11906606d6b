package mp3

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	binutil "github.com/simonhull/metanote/internal/binary"
	"github.com/simonhull/metanote/internal/types"
)

// Text encodings used in ID3v2 frames.
const (
	encLatin1  byte = 0
	encUTF16   byte = 1 // UTF-16 with BOM
	encUTF16BE byte = 2 // ID3v2.4 only
	encUTF8    byte = 3 // ID3v2.4 only
)

const (
	tagHeaderSize   = 10
	frameHeaderSize = 10

	// APIC picture type for the front cover (same numbering as FLAC)
	pictureTypeFrontCover = 3
)

var (
	errUnsupportedVersion = errors.New("unsupported ID3v2 version")

	errAPICTooShort    = errors.New("APIC frame too short")
	errAPICNoMIMETerm  = errors.New("APIC MIME type not null-terminated")
	errAPICTruncated   = errors.New("APIC frame truncated after MIME type")
	errAPICNoImageData = errors.New("APIC frame has no image data")
	errAPICLinkedImage = errors.New("APIC frame references an external image")
)

// ID3v2Header represents an ID3v2 tag header
type ID3v2Header struct {
	Version  byte // Major version (3 or 4)
	Revision byte // Minor version
	Flags    byte
	Size     uint32 // Tag size (excluding header), synchsafe
}

// ID3v2Frame represents a single ID3v2 frame
type ID3v2Frame struct {
	ID    string // 4-character frame ID (e.g. "TIT2", "APIC")
	Flags uint16 // Frame flags
	Data  []byte // Frame data, after any unsynchronisation is undone
}

// id3v2Tag is a fully read ID3v2 tag: header plus decoded frames.
type id3v2Tag struct {
	Header    ID3v2Header
	Frames    []ID3v2Frame
	TotalSize int64 // bytes the tag occupies on disk, including header
	Warnings  []types.Warning
}

// readTag reads the ID3v2 tag at the start of the file.
// Returns (nil, nil) when the file carries no tag at all.
func readTag(sr *binutil.SafeReader, path string) (*id3v2Tag, error) {
	buf := make([]byte, tagHeaderSize)
	if err := sr.ReadAt(buf, 0, "ID3v2 header"); err != nil {
		return nil, nil // file too small for a tag
	}
	if string(buf[0:3]) != "ID3" {
		return nil, nil
	}

	header := ID3v2Header{
		Version:  buf[3],
		Revision: buf[4],
		Flags:    buf[5],
		Size:     decodeSynchsafe(buf[6:10]),
	}

	// Only ID3v2.3 and ID3v2.4
	if header.Version != 3 && header.Version != 4 {
		return nil, fmt.Errorf("%w: 2.%d", errUnsupportedVersion, header.Version)
	}

	body := make([]byte, header.Size)
	if err := sr.ReadAt(body, tagHeaderSize, "ID3v2 tag body"); err != nil {
		return nil, &types.CorruptedFileError{
			Path:   path,
			Offset: tagHeaderSize,
			Reason: fmt.Sprintf("ID3v2 header claims %d tag bytes: %v", header.Size, err),
		}
	}

	// Tag-level unsynchronisation covers every frame at once
	if header.Flags&0x80 != 0 {
		body = removeUnsync(body)
	}

	// Skip the extended header; nothing in it affects frame content
	if header.Flags&0x40 != 0 && len(body) >= 4 {
		if header.Version == 4 {
			// ID3v2.4: synchsafe size, includes itself
			body = body[min(int(decodeSynchsafe(body[0:4])), len(body)):]
		} else {
			// ID3v2.3: regular size, excludes itself
			skip := int(binary.BigEndian.Uint32(body[0:4])) + 4
			body = body[min(skip, len(body)):]
		}
	}

	tag := &id3v2Tag{
		Header:    header,
		TotalSize: int64(tagHeaderSize + header.Size),
	}
	tag.Frames, tag.Warnings = readFrames(body, header.Version)
	return tag, nil
}

// readFrames walks the frame area until padding or the end of the tag.
func readFrames(body []byte, version byte) ([]ID3v2Frame, []types.Warning) {
	var frames []ID3v2Frame
	var warnings []types.Warning

	offset := 0
	for offset+frameHeaderSize <= len(body) {
		// Null bytes mark the start of padding
		if body[offset] == 0 {
			break
		}

		id := string(body[offset : offset+4])
		if !validFrameID(id) {
			warnings = append(warnings, types.Warning{
				Stage:   "metadata",
				Message: fmt.Sprintf("stopped at malformed frame ID %q", id),
				Offset:  int64(offset),
			})
			break
		}

		var size uint32
		if version == 4 {
			size = decodeSynchsafe(body[offset+4 : offset+8])
		} else {
			size = binary.BigEndian.Uint32(body[offset+4 : offset+8])
		}
		flags := binary.BigEndian.Uint16(body[offset+8 : offset+10])

		start := offset + frameHeaderSize
		end := start + int(size)
		if end > len(body) || end < start {
			warnings = append(warnings, types.Warning{
				Stage:   "metadata",
				Message: fmt.Sprintf("frame %s claims %d bytes past the end of the tag", id, size),
				Offset:  int64(offset),
			})
			break
		}
		data := body[start:end]

		// ID3v2.4 per-frame transforms: strip the data length
		// indicator, undo unsynchronisation, and clear both flag bits
		// so the stored frame matches its data.
		if version == 4 {
			if flags&0x0001 != 0 && len(data) >= 4 {
				data = data[4:]
				flags &^= 0x0001
			}
			if flags&0x0002 != 0 {
				data = removeUnsync(data)
				flags &^= 0x0002
			}
		}

		frames = append(frames, ID3v2Frame{ID: id, Flags: flags, Data: data})
		offset = end
	}

	return frames, warnings
}

// fillTags maps frames onto the canonical fields. The first occurrence
// of a repeated frame wins, except that the ID3v2.4 TDRC date always
// beats the ID3v2.3 TYER year.
func fillTags(tag *id3v2Tag, file *types.File) {
	yearFromTDRC := false
	var fallbackCover *types.Cover

	for _, f := range tag.Frames {
		if !interestingFrame(f.ID) {
			continue
		}
		if undecodable(f, tag.Header.Version) {
			file.Warnings = append(file.Warnings, types.Warning{
				Stage:   "metadata",
				Message: fmt.Sprintf("frame %s is compressed or encrypted; field left unread", f.ID),
			})
			continue
		}

		switch f.ID {
		case "TIT2":
			setTextFrame(&file.Tags, types.FieldTitle, f.Data)
		case "TPE1":
			setTextFrame(&file.Tags, types.FieldArtist, f.Data)
		case "TALB":
			setTextFrame(&file.Tags, types.FieldAlbum, f.Data)
		case "TRCK":
			setTextFrame(&file.Tags, types.FieldTrack, f.Data)
		case "TCON":
			setTextFrame(&file.Tags, types.FieldGenre, f.Data)

		case "TDRC": // ID3v2.4 recording time
			if text, ok := textFrameValue(f.Data); ok && !yearFromTDRC {
				file.Tags.Set(types.FieldYear, text)
				yearFromTDRC = true
			}
		case "TYER": // ID3v2.3 year
			if text, ok := textFrameValue(f.Data); ok && !yearFromTDRC {
				setIfAbsent(&file.Tags, types.FieldYear, text)
			}

		case "COMM":
			// Only the description-less comment is canonical; frames
			// like iTunNORM keep their description and stay foreign.
			if desc, text, ok := languageTextFrame(f.Data); ok && desc == "" {
				setIfAbsent(&file.Tags, types.FieldComment, text)
			}
		case "USLT":
			if desc, text, ok := languageTextFrame(f.Data); ok && desc == "" {
				setIfAbsent(&file.Tags, types.FieldLyrics, text)
			}

		case "APIC":
			cover, pictureType, err := parseAPIC(f.Data)
			if err != nil {
				if !errors.Is(err, errAPICLinkedImage) {
					file.Warnings = append(file.Warnings, types.Warning{
						Stage:   "cover",
						Message: fmt.Sprintf("failed to parse APIC frame: %v", err),
					})
				}
				continue
			}
			// The front cover wins; any other image is only a
			// fallback when no front cover exists.
			if pictureType == pictureTypeFrontCover && file.Cover == nil {
				file.Cover = cover
			} else if fallbackCover == nil {
				fallbackCover = cover
			}
		}
	}

	if file.Cover == nil {
		file.Cover = fallbackCover
	}
}

// interestingFrame reports whether fillTags maps this frame ID.
func interestingFrame(id string) bool {
	switch id {
	case "TIT2", "TPE1", "TALB", "TRCK", "TCON", "TDRC", "TYER", "COMM", "USLT", "APIC":
		return true
	}
	return false
}

// undecodable reports frames whose content cannot be read in place
// (compressed or encrypted).
func undecodable(f ID3v2Frame, version byte) bool {
	if version == 4 {
		return f.Flags&0x000C != 0
	}
	return f.Flags&0x00C0 != 0
}

// setTextFrame decodes a text frame and keeps the first occurrence.
func setTextFrame(tags *types.Tags, field types.Field, data []byte) {
	if text, ok := textFrameValue(data); ok {
		setIfAbsent(tags, field, text)
	}
}

// setIfAbsent sets a field unless an earlier frame already did.
func setIfAbsent(tags *types.Tags, field types.Field, value string) {
	if _, ok := tags.Get(field); !ok {
		tags.Set(field, value)
	}
}

// textFrameValue decodes a text frame body: [encoding][text].
// A null separates multiple values; the first one wins.
func textFrameValue(data []byte) (string, bool) {
	if len(data) < 1 {
		return "", false
	}
	encoding := data[0]
	text := data[1:]
	if idx := findNullTerminator(text, encoding); idx >= 0 {
		text = text[:idx]
	}
	return decodeText(text, encoding), true
}

// languageTextFrame decodes COMM and USLT bodies:
// [encoding][language(3)][description\0][text]
func languageTextFrame(data []byte) (desc, text string, ok bool) {
	if len(data) < 4 {
		return "", "", false
	}
	encoding := data[0]
	// Skip language (3 bytes)
	rest := data[4:]

	idx := findNullTerminator(rest, encoding)
	if idx < 0 {
		// No separator - treat everything as text
		return "", decodeText(rest, encoding), true
	}
	desc = decodeText(rest[:idx], encoding)
	text = decodeText(rest[idx+terminatorSize(encoding):], encoding)
	return desc, text, true
}

// parseAPIC parses an APIC (Attached Picture) frame.
// Format:
//
//	[1 byte]              Text encoding
//	[null-terminated]     MIME type
//	[1 byte]              Picture type
//	[null-terminated]     Description
//	[remaining]           Picture data
func parseAPIC(data []byte) (*types.Cover, byte, error) {
	if len(data) < 4 {
		return nil, 0, errAPICTooShort
	}

	encoding := data[0]
	pos := 1

	// MIME type is always ISO-8859-1
	mimeEnd := bytes.IndexByte(data[pos:], 0)
	if mimeEnd < 0 {
		return nil, 0, errAPICNoMIMETerm
	}
	mimeType := string(data[pos : pos+mimeEnd])
	pos += mimeEnd + 1

	// Legacy markers from old taggers
	switch mimeType {
	case "JPG", "jpg":
		mimeType = types.MIMEJPEG
	case "PNG", "png":
		mimeType = types.MIMEPNG
	case "-->":
		return nil, 0, errAPICLinkedImage
	}

	if pos >= len(data) {
		return nil, 0, errAPICTruncated
	}
	pictureType := data[pos]
	pos++

	description := ""
	if descEnd := findNullTerminator(data[pos:], encoding); descEnd >= 0 {
		description = decodeText(data[pos:pos+descEnd], encoding)
		pos += descEnd + terminatorSize(encoding)
	}
	// Missing terminator: some encoders skip it; the rest is image data

	if pos >= len(data) {
		return nil, 0, errAPICNoImageData
	}
	imageData := data[pos:]

	// The stored MIME type lies often enough that magic bytes win
	if detected := types.DetectImageMIME(imageData); detected != "" {
		mimeType = detected
	}

	return &types.Cover{
		MIME:        mimeType,
		Description: description,
		Data:        imageData,
	}, pictureType, nil
}

// validFrameID reports whether all four ID characters are A-Z or 0-9.
func validFrameID(id string) bool {
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// removeUnsync reverses ID3v2 unsynchronisation (FF 00 -> FF).
func removeUnsync(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		out = append(out, data[i])
		if data[i] == 0xFF && i+1 < len(data) && data[i+1] == 0 {
			i++
		}
	}
	return out
}

// decodeSynchsafe decodes a synchsafe integer (7 bits per byte)
// ID3v2 uses 7-bit encoding where bit 7 is always 0
func decodeSynchsafe(b []byte) uint32 {
	if len(b) != 4 {
		return 0
	}
	return uint32(b[0]&0x7F)<<21 |
		uint32(b[1]&0x7F)<<14 |
		uint32(b[2]&0x7F)<<7 |
		uint32(b[3]&0x7F)
}

// decodeText decodes text based on ID3v2 encoding byte
func decodeText(data []byte, encoding byte) string {
	if len(data) == 0 {
		return ""
	}

	switch encoding {
	case encLatin1:
		return decodeLatin1(data)

	case encUTF16:
		return decodeUTF16(data)

	case encUTF16BE:
		return decodeUTF16BE(data)

	case encUTF8:
		if utf8.Valid(data) {
			return string(data)
		}
		return string(data) // Return as-is even if invalid

	default:
		// Unknown encoding - try as ISO-8859-1
		return decodeLatin1(data)
	}
}

// decodeLatin1 decodes ISO-8859-1, where every byte is the code point.
func decodeLatin1(data []byte) string {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}

// decodeUTF16 decodes UTF-16 with BOM
func decodeUTF16(data []byte) string {
	if len(data) < 2 {
		return ""
	}

	// Check BOM
	if data[0] == 0xFF && data[1] == 0xFE {
		// Little-endian
		return decodeUTF16LE(data[2:])
	} else if data[0] == 0xFE && data[1] == 0xFF {
		// Big-endian
		return decodeUTF16BE(data[2:])
	}

	// No BOM - assume big-endian
	return decodeUTF16BE(data)
}

// decodeUTF16LE decodes UTF-16 little-endian
func decodeUTF16LE(data []byte) string {
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}

	u16 := make([]uint16, len(data)/2)
	for i := range u16 {
		u16[i] = uint16(data[i*2]) | uint16(data[i*2+1])<<8
	}

	return string(utf16.Decode(u16))
}

// decodeUTF16BE decodes UTF-16 big-endian
func decodeUTF16BE(data []byte) string {
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}

	u16 := make([]uint16, len(data)/2)
	for i := range u16 {
		u16[i] = uint16(data[i*2])<<8 | uint16(data[i*2+1])
	}

	return string(utf16.Decode(u16))
}

// findNullTerminator finds the null terminator based on encoding
func findNullTerminator(data []byte, encoding byte) int {
	switch encoding {
	case encLatin1, encUTF8: // single-byte null
		return bytes.IndexByte(data, 0)

	case encUTF16, encUTF16BE: // double-byte null
		for i := 0; i < len(data)-1; i += 2 {
			if data[i] == 0 && data[i+1] == 0 {
				return i
			}
		}
		return -1

	default:
		return bytes.IndexByte(data, 0)
	}
}

// terminatorSize returns the size of the null terminator for the encoding
func terminatorSize(encoding byte) int {
	switch encoding {
	case encUTF16, encUTF16BE:
		return 2
	default:
		return 1
	}
}
