package flac

import (
	"bytes"
	"fmt"
	"io"

	"github.com/simonhull/metanote/internal/binary"
	"github.com/simonhull/metanote/internal/registry"
	"github.com/simonhull/metanote/internal/types"
	"github.com/simonhull/metanote/internal/vorbis"
)

// maxBlockLength is the largest body a metadata block can carry: the
// block header stores the length in 24 bits.
const maxBlockLength = 0xFFFFFF

// rawBlock is one metadata block lifted out of the original file.
type rawBlock struct {
	typ  uint8
	body []byte
}

// writer implements the registry.FormatWriter interface for FLAC files.
//
// Only the VORBIS_COMMENT and (when the cover changed) PICTURE blocks
// are rebuilt; STREAMINFO, SEEKTABLE, CUESHEET, APPLICATION, PADDING,
// and unknown block types pass through byte for byte, as does the
// entire audio frame section.
type writer struct{}

func (w *writer) Write(out io.Writer, file *types.File, original io.ReaderAt, originalSize int64) error {
	sr := binary.NewSafeReader(original, originalSize, file.Path)

	magic := make([]byte, 4)
	if err := sr.ReadAt(magic, 0, "FLAC magic bytes"); err != nil {
		return fmt.Errorf("read FLAC magic: %w", err)
	}
	if string(magic) != "fLaC" {
		return &types.CorruptedFileError{
			Path:   file.Path,
			Offset: 0,
			Reason: "invalid FLAC magic bytes",
		}
	}

	blocks, audioStart, err := readBlocks(sr, originalSize, file.Path)
	if err != nil {
		return err
	}

	rebuilt, err := w.rebuildBlocks(blocks, file)
	if err != nil {
		return err
	}

	sw := binary.NewSafeWriter(out)
	if err := sw.WriteString("fLaC"); err != nil {
		return err
	}
	for i, b := range rebuilt {
		if len(b.body) > maxBlockLength {
			return &types.UnsupportedWriteError{
				Format: types.FormatFLAC,
				Reason: fmt.Sprintf("metadata block of %d bytes exceeds the 16MiB FLAC block limit", len(b.body)),
			}
		}
		header := uint32(b.typ)<<24 | uint32(len(b.body))
		if i == len(rebuilt)-1 {
			header |= 1 << 31
		}
		if err := binary.Write(sw, header); err != nil {
			return err
		}
		if err := sw.WriteBytes(b.body); err != nil {
			return err
		}
	}

	// Audio frames pass through untouched
	_, err = io.Copy(out, io.NewSectionReader(original, audioStart, originalSize-audioStart))
	return err
}

// readBlocks walks the metadata section strictly and returns every
// block plus the offset where audio frames begin. Unlike parsing for
// display, writing refuses to guess: a malformed block chain aborts the
// save before any bytes are produced.
func readBlocks(sr *binary.SafeReader, size int64, path string) ([]rawBlock, int64, error) {
	var blocks []rawBlock
	offset := int64(4)
	for {
		if offset >= size {
			return nil, 0, &types.CorruptedFileError{
				Path:   path,
				Offset: offset,
				Reason: "metadata blocks run past end of file",
			}
		}

		header, err := binary.Read[uint32](sr, offset, "metadata block header")
		if err != nil {
			return nil, 0, &types.CorruptedFileError{
				Path:   path,
				Offset: offset,
				Reason: fmt.Sprintf("unreadable metadata block header: %v", err),
			}
		}
		isLast, blockType, blockLength := decodeBlockHeader(header)
		offset += 4

		body := make([]byte, blockLength)
		if err := sr.ReadAt(body, offset, "metadata block body"); err != nil {
			return nil, 0, &types.CorruptedFileError{
				Path:   path,
				Offset: offset,
				Reason: fmt.Sprintf("truncated metadata block: %v", err),
			}
		}
		blocks = append(blocks, rawBlock{typ: blockType, body: body})
		offset += blockLength

		if isLast {
			return blocks, offset, nil
		}
	}
}

// rebuildBlocks produces the output block list from the original one.
func (w *writer) rebuildBlocks(blocks []rawBlock, file *types.File) ([]rawBlock, error) {
	// Recover the existing comment block so its vendor string and
	// foreign entries survive the rewrite.
	comments := &vorbis.Comments{Vendor: vorbis.DefaultVendor}
	hadComments := false
	for _, b := range blocks {
		if b.typ == blockTypeVorbisComment {
			parsed, err := vorbis.Parse(b.body, file.Path)
			if err != nil {
				return nil, &types.CorruptedFileError{
					Path:   file.Path,
					Reason: fmt.Sprintf("invalid VORBIS_COMMENT block: %v", err),
				}
			}
			comments = parsed
			hadComments = true
			break
		}
	}
	comments.Apply(&file.Tags)

	// A comment block is emitted when the file already had one or when
	// there is anything to say; a bare file stays bare.
	emitComments := hadComments || len(comments.Items) > 0

	var newPicture []byte
	if file.CoverDirty_ && file.Cover != nil {
		newPicture = buildPictureBlock(file.Cover)
	}

	out := make([]rawBlock, 0, len(blocks)+2)
	commentsDone, pictureDone := false, false
	for _, b := range blocks {
		switch {
		case b.typ == blockTypeVorbisComment:
			if !commentsDone && emitComments {
				out = append(out, rawBlock{typ: blockTypeVorbisComment, body: comments.Marshal()})
			}
			commentsDone = true

		case b.typ == blockTypePicture && file.CoverDirty_:
			// A dirty cover replaces every stored image
			if !pictureDone && newPicture != nil {
				out = append(out, rawBlock{typ: blockTypePicture, body: newPicture})
			}
			pictureDone = true

		default:
			out = append(out, b)
		}
	}

	if !commentsDone && emitComments {
		out = append(out, rawBlock{typ: blockTypeVorbisComment, body: comments.Marshal()})
	}
	if !pictureDone && newPicture != nil {
		out = append(out, rawBlock{typ: blockTypePicture, body: newPicture})
	}

	return out, nil
}

// buildPictureBlock encodes a PICTURE block body for the front cover.
//
// Width, height, depth, and color count are written as zero (unknown);
// players derive them from the image itself.
func buildPictureBlock(c *types.Cover) []byte {
	buf := &bytes.Buffer{}
	cw := binary.NewChainWriter(binary.NewSafeWriter(buf))

	binary.WriteChained(cw, uint32(pictureTypeFrontCover))
	binary.WriteChained(cw, uint32(len(c.MIME)))
	cw.String(c.MIME)
	binary.WriteChained(cw, uint32(len(c.Description)))
	cw.String(c.Description)
	binary.WriteChained(cw, uint32(0)) // width
	binary.WriteChained(cw, uint32(0)) // height
	binary.WriteChained(cw, uint32(0)) // color depth
	binary.WriteChained(cw, uint32(0)) // indexed colors
	binary.WriteChained(cw, uint32(len(c.Data)))
	cw.Bytes(c.Data)

	return buf.Bytes()
}

// init registers the FLAC writer
func init() {
	registry.RegisterWriter(types.FormatFLAC, &writer{})
}
