package ogg

import (
	"fmt"
	"io"

	binutil "github.com/simonhull/metanote/internal/binary"
	"github.com/simonhull/metanote/internal/registry"
	"github.com/simonhull/metanote/internal/types"
	"github.com/simonhull/metanote/internal/vorbis"
)

// writer implements the registry.FormatWriter interface for Ogg Vorbis
// and Ogg Opus files.
//
// The comment packet is rebuilt and re-paged; every other header
// packet and the audio pages pass through unchanged. When the new
// comment takes a different number of pages, the audio pages are
// renumbered and their checksums recomputed, so the stream stays valid
// for strict readers.
type writer struct{}

func (w *writer) Write(out io.Writer, file *types.File, original io.ReaderAt, originalSize int64) error {
	sr := binutil.NewSafeReader(original, originalSize, file.Path)

	magic := make([]byte, 4)
	if err := sr.ReadAt(magic, 0, "Ogg magic bytes"); err != nil {
		return err
	}
	if string(magic) != "OggS" {
		return &types.CorruptedFileError{
			Path:   file.Path,
			Offset: 0,
			Reason: "invalid Ogg magic bytes",
		}
	}

	// The identification packet always sits alone at the front; read
	// its pages first to find the codec and the header packet count.
	idPages, idEnd, err := readHeaderSection(sr, originalSize, file.Path, 1)
	if err != nil {
		return err
	}
	idPackets := extractPackets(idPages)
	if len(idPackets) != 1 {
		return &types.CorruptedFileError{
			Path:   file.Path,
			Reason: "first page carries more than the identification packet",
		}
	}

	var headerPacketCount int
	var buildComment func(*vorbis.Comments) []byte
	var commentPayload func([]byte) ([]byte, error)
	switch detectOggCodec(idPackets[0]) {
	case codecVorbis:
		// Identification, comment, setup
		headerPacketCount = 3
		buildComment = buildVorbisCommentPacket
		commentPayload = vorbisCommentPayload
	case codecOpus:
		// OpusHead, OpusTags
		headerPacketCount = 2
		buildComment = buildOpusTagsPacket
		commentPayload = opusTagsPayload
	default:
		return &types.UnsupportedWriteError{
			Format: file.Format,
			Reason: "unknown Ogg codec",
		}
	}

	headerPages, audioStart, err := readHeaderSection(sr, originalSize, file.Path, headerPacketCount)
	if err != nil {
		return err
	}
	// A spill of header or audio data across the boundary would get
	// re-paged wrongly, so the header section must hold exactly the
	// expected packets.
	packets := extractPackets(headerPages)
	if len(packets) != headerPacketCount {
		return &types.CorruptedFileError{
			Path:   file.Path,
			Reason: fmt.Sprintf("found %d header packets, need %d", len(packets), headerPacketCount),
		}
	}

	payload, err := commentPayload(packets[1])
	if err != nil {
		return &types.CorruptedFileError{
			Path:   file.Path,
			Reason: fmt.Sprintf("invalid comment packet: %v", err),
		}
	}
	comments, err := vorbis.Parse(payload, file.Path)
	if err != nil {
		return &types.CorruptedFileError{
			Path:   file.Path,
			Reason: fmt.Sprintf("invalid comment packet: %v", err),
		}
	}

	comments.Apply(&file.Tags)
	if file.CoverDirty_ {
		comments.Remove(vorbis.PictureKey)
		if file.Cover != nil {
			item, err := vorbis.BuildPictureItem(file.Cover)
			if err != nil {
				return &types.UnsupportedWriteError{
					Format: file.Format,
					Reason: fmt.Sprintf("cannot encode cover art: %v", err),
				}
			}
			comments.Add(vorbis.PictureKey, item)
		}
	}

	// The identification pages pass through byte-identical.
	sw := binutil.NewSafeWriter(out)
	idRaw := make([]byte, idEnd)
	if err := sr.ReadAt(idRaw, 0, "identification pages"); err != nil {
		return err
	}
	if err := sw.WriteBytes(idRaw); err != nil {
		return err
	}

	// Re-page the rebuilt comment packet and the remaining header
	// packets after it.
	rest := make([][]byte, 0, headerPacketCount-1)
	rest = append(rest, buildComment(comments))
	rest = append(rest, packets[2:]...)

	serial := headerPages[0].SerialNumber
	rebuilt := pagePackets(rest, serial, uint32(len(idPages)))
	for _, page := range rebuilt {
		if err := sw.WriteBytes(page); err != nil {
			return err
		}
	}

	delta := len(idPages) + len(rebuilt) - len(headerPages)
	if delta == 0 {
		_, err := io.Copy(out, io.NewSectionReader(original, audioStart, originalSize-audioStart))
		return err
	}

	// Page count changed: renumber the audio pages of this stream and
	// recompute their checksums.
	for offset := audioStart; offset < originalSize; {
		page, next, err := readPage(sr, offset)
		if err != nil {
			return &types.CorruptedFileError{
				Path:   file.Path,
				Offset: offset,
				Reason: fmt.Sprintf("unreadable audio page: %v", err),
			}
		}
		sequence := page.SequenceNumber
		if page.SerialNumber == serial {
			sequence = uint32(int(sequence) + delta)
		}
		raw := buildPage(page.HeaderType, page.GranulePosition, page.SerialNumber, sequence, page.Segments, page.Data)
		if err := sw.WriteBytes(raw); err != nil {
			return err
		}
		offset = next
	}

	return nil
}

// readHeaderSection reads pages from the start of the stream until
// want packets are complete. Returns the pages and the offset of the
// first page after them.
func readHeaderSection(sr *binutil.SafeReader, size int64, path string, want int) ([]*Page, int64, error) {
	var pages []*Page
	offset := int64(0)
	complete := 0
	for complete < want {
		if offset >= size || len(pages) >= maxHeaderPages {
			return nil, 0, &types.CorruptedFileError{
				Path:   path,
				Offset: offset,
				Reason: fmt.Sprintf("header ended after %d of %d packets", complete, want),
			}
		}
		page, next, err := readPage(sr, offset)
		if err != nil {
			return nil, 0, &types.CorruptedFileError{
				Path:   path,
				Offset: offset,
				Reason: fmt.Sprintf("unreadable header page: %v", err),
			}
		}
		pages = append(pages, page)
		complete += completePackets(page)
		offset = next
	}
	return pages, offset, nil
}

// init registers the Ogg writer for both Vorbis and Opus formats.
func init() {
	w := &writer{}
	registry.RegisterWriter(types.FormatOgg, w)
	registry.RegisterWriter(types.FormatOpus, w)
}
