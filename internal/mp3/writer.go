package mp3

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf16"

	binutil "github.com/simonhull/metanote/internal/binary"
	"github.com/simonhull/metanote/internal/registry"
	"github.com/simonhull/metanote/internal/types"
)

// maxSynchsafe is the largest value a synchsafe integer can hold.
const maxSynchsafe = 0x0FFFFFFF

// fieldFrameIDs maps fields to the text frame that carries them. Year
// is version-dependent and handled separately, as are the language
// frames (COMM, USLT) and pictures.
var fieldFrameIDs = map[types.Field]string{
	types.FieldTitle:  "TIT2",
	types.FieldArtist: "TPE1",
	types.FieldAlbum:  "TALB",
	types.FieldTrack:  "TRCK",
	types.FieldGenre:  "TCON",
}

// writer implements the registry.FormatWriter interface for MP3 files.
//
// The tag is rebuilt from the canonical fields plus every frame the
// engine does not own; the MPEG audio stream is copied through
// untouched. The replacement tag keeps the source file's ID3v2 major
// version so preserved frames stay valid; files without a tag get
// ID3v2.3, the most widely read version.
type writer struct{}

func (w *writer) Write(out io.Writer, file *types.File, original io.ReaderAt, originalSize int64) error {
	sr := binutil.NewSafeReader(original, originalSize, file.Path)

	tag, err := readTag(sr, file.Path)
	if err != nil {
		if errors.Is(err, errUnsupportedVersion) {
			return &types.UnsupportedWriteError{
				Format: types.FormatMP3,
				Reason: fmt.Sprintf("cannot rewrite tag: %v", err),
			}
		}
		return err
	}

	version := byte(3)
	audioStart := int64(0)
	var kept []ID3v2Frame
	if tag != nil {
		version = tag.Header.Version
		audioStart = tag.TotalSize
		kept = preservedFrames(tag.Frames, file.CoverDirty_)
	}

	frames := buildCanonicalFrames(&file.Tags, version)
	frames = append(frames, kept...)
	if file.CoverDirty_ && file.Cover != nil {
		frames = append(frames, buildAPICFrame(file.Cover, version))
	}

	// No frames means no tag: an untagged file stays untagged
	if len(frames) > 0 {
		if err := writeTag(out, version, frames); err != nil {
			return err
		}
	}

	// Audio stream passes through untouched
	_, err = io.Copy(out, io.NewSectionReader(original, audioStart, originalSize-audioStart))
	return err
}

// preservedFrames returns the frames the rewrite carries forward:
// everything except the canonical text frames, the year frames, the
// description-less comment and lyrics frames, and (when the cover
// changed) every picture.
func preservedFrames(frames []ID3v2Frame, coverDirty bool) []ID3v2Frame {
	var kept []ID3v2Frame
	for _, f := range frames {
		switch f.ID {
		case "TIT2", "TPE1", "TALB", "TRCK", "TCON", "TYER", "TDRC":
			continue
		case "COMM", "USLT":
			if desc, _, ok := languageTextFrame(f.Data); ok && desc == "" {
				continue
			}
		case "APIC":
			if coverDirty {
				continue
			}
		}
		kept = append(kept, f)
	}
	return kept
}

// buildCanonicalFrames encodes the present fields in canonical order.
// An explicitly empty field still gets a frame; absent fields get none.
func buildCanonicalFrames(tags *types.Tags, version byte) []ID3v2Frame {
	var frames []ID3v2Frame
	for _, field := range types.Fields() {
		value, ok := tags.Get(field)
		if !ok {
			continue
		}
		switch field {
		case types.FieldYear:
			id := "TDRC"
			if version == 3 {
				id = "TYER"
			}
			frames = append(frames, textFrame(id, value, version))
		case types.FieldComment:
			frames = append(frames, languageFrame("COMM", value, version))
		case types.FieldLyrics:
			frames = append(frames, languageFrame("USLT", value, version))
		default:
			frames = append(frames, textFrame(fieldFrameIDs[field], value, version))
		}
	}
	return frames
}

// textFrame builds a text frame body: [encoding][text]
func textFrame(id, value string, version byte) ID3v2Frame {
	encoding := chooseEncoding(value, version)
	data := append([]byte{encoding}, encodeText(value, encoding)...)
	return ID3v2Frame{ID: id, Data: data}
}

// languageFrame builds a COMM or USLT body with an empty description:
// [encoding][eng][description terminator][text]
func languageFrame(id, value string, version byte) ID3v2Frame {
	encoding := chooseEncoding(value, version)
	data := []byte{encoding}
	data = append(data, "eng"...)
	data = append(data, encodeText("", encoding)...)
	data = append(data, encodingTerminator(encoding)...)
	data = append(data, encodeText(value, encoding)...)
	return ID3v2Frame{ID: id, Data: data}
}

// buildAPICFrame encodes the front cover:
// [encoding][MIME\0][picture type][description terminator][data]
func buildAPICFrame(c *types.Cover, version byte) ID3v2Frame {
	encoding := chooseEncoding(c.Description, version)
	data := []byte{encoding}
	data = append(data, c.MIME...)
	data = append(data, 0)
	data = append(data, pictureTypeFrontCover)
	data = append(data, encodeText(c.Description, encoding)...)
	data = append(data, encodingTerminator(encoding)...)
	data = append(data, c.Data...)
	return ID3v2Frame{ID: "APIC", Data: data}
}

// writeTag emits the tag header and every frame. No padding is
// written; the whole file is rewritten anyway, so there is nothing to
// grow into.
func writeTag(out io.Writer, version byte, frames []ID3v2Frame) error {
	body := &bytes.Buffer{}
	sizeBuf := make([]byte, 4)
	flagBuf := make([]byte, 2)
	for _, f := range frames {
		if version == 4 {
			if len(f.Data) > maxSynchsafe {
				return &types.UnsupportedWriteError{
					Format: types.FormatMP3,
					Reason: fmt.Sprintf("frame %s of %d bytes exceeds the ID3v2.4 frame size limit", f.ID, len(f.Data)),
				}
			}
			encodeSynchsafe(sizeBuf, uint32(len(f.Data)))
		} else {
			binary.BigEndian.PutUint32(sizeBuf, uint32(len(f.Data)))
		}
		binary.BigEndian.PutUint16(flagBuf, f.Flags)

		body.WriteString(f.ID)
		body.Write(sizeBuf)
		body.Write(flagBuf)
		body.Write(f.Data)
	}

	if body.Len() > maxSynchsafe {
		return &types.UnsupportedWriteError{
			Format: types.FormatMP3,
			Reason: fmt.Sprintf("tag of %d bytes exceeds the ID3v2 size limit", body.Len()),
		}
	}

	header := make([]byte, tagHeaderSize)
	copy(header, "ID3")
	header[3] = version
	encodeSynchsafe(header[6:10], uint32(body.Len()))

	sw := binutil.NewSafeWriter(out)
	if err := sw.WriteBytes(header); err != nil {
		return err
	}
	return sw.WriteBytes(body.Bytes())
}

// chooseEncoding picks the leanest encoding that can carry the text.
// Every ID3v2.4 reader takes UTF-8; v2.3 predates it, so anything
// beyond Latin-1 goes out as UTF-16 with a BOM.
func chooseEncoding(text string, version byte) byte {
	if version == 4 {
		return encUTF8
	}
	for _, r := range text {
		if r > 0xFF {
			return encUTF16
		}
	}
	return encLatin1
}

// encodeText encodes text in the given ID3v2 encoding.
func encodeText(text string, encoding byte) []byte {
	switch encoding {
	case encUTF16:
		units := utf16.Encode([]rune(text))
		out := make([]byte, 2, 2+len(units)*2)
		out[0], out[1] = 0xFF, 0xFE // little-endian BOM
		for _, u := range units {
			out = append(out, byte(u), byte(u>>8))
		}
		return out

	case encLatin1:
		out := make([]byte, 0, len(text))
		for _, r := range text {
			out = append(out, byte(r))
		}
		return out

	default: // encUTF8
		return []byte(text)
	}
}

// encodingTerminator returns the null terminator for an encoding.
func encodingTerminator(encoding byte) []byte {
	if encoding == encUTF16 || encoding == encUTF16BE {
		return []byte{0, 0}
	}
	return []byte{0}
}

// encodeSynchsafe packs a value into 4 bytes of 7 bits each.
func encodeSynchsafe(dst []byte, v uint32) {
	dst[0] = byte(v >> 21 & 0x7F)
	dst[1] = byte(v >> 14 & 0x7F)
	dst[2] = byte(v >> 7 & 0x7F)
	dst[3] = byte(v & 0x7F)
}

// init registers the MP3 writer
func init() {
	registry.RegisterWriter(types.FormatMP3, &writer{})
}
