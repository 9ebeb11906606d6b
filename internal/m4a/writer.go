package m4a

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	binutil "github.com/simonhull/metanote/internal/binary"
	"github.com/simonhull/metanote/internal/registry"
	"github.com/simonhull/metanote/internal/types"
)

// writer implements the registry.FormatWriter interface for M4A files.
//
// The whole atom tree is parsed strictly up front; any structural
// problem aborts with an AtomTreeError before a single byte is
// written. The ilst list is rebuilt from the canonical fields with
// every unowned entry carried verbatim, ancestor sizes are recomputed
// bottom-up, and when the rebuilt moov changes size every stco/co64
// chunk offset pointing past it is shifted by the difference so the
// sample table keeps addressing the media data.
type writer struct{}

func (w *writer) Write(out io.Writer, file *types.File, original io.ReaderAt, originalSize int64) error {
	sr := binutil.NewSafeReader(original, originalSize, file.Path)

	tree, err := parseTree(sr, originalSize, file.Path)
	if err != nil {
		return err
	}

	moovIdx := tree.Find(noNode, "moov")
	if moovIdx == noNode {
		return &types.AtomTreeError{Path: file.Path, Atom: "moov", Reason: "atom not found"}
	}
	moov := tree.Nodes[moovIdx].Atom

	// moov stays small even for long files; work on it in memory
	moovBuf := make([]byte, moov.Size)
	if err := sr.ReadAt(moovBuf, moov.Offset, "moov atom"); err != nil {
		return err
	}

	newUdta, err := buildUdta(tree, sr, moovIdx, file)
	if err != nil {
		return err
	}

	// Region of moovBuf the rebuilt udta replaces; a file without udta
	// gets it appended as the last moov child
	relStart := int64(len(moovBuf))
	relEnd := relStart
	if udtaIdx := tree.Find(moovIdx, "udta"); udtaIdx != noNode {
		udta := tree.Nodes[udtaIdx].Atom
		relStart = udta.Offset - moov.Offset
		relEnd = relStart + int64(udta.Size)
	}

	delta := int64(len(newUdta)) - (relEnd - relStart)
	newMoovSize := int64(moov.Size) + delta
	if !moov.Extended && newMoovSize > math.MaxUint32 {
		return &types.AtomTreeError{Path: file.Path, Atom: "moov", Reason: "rebuilt moov exceeds the 32-bit atom size limit"}
	}

	// Everything after moov shifts by delta, so chunk offsets pointing
	// there must shift with it. Patching happens before the udta splice
	// while arena offsets still line up with moovBuf.
	if delta != 0 {
		if err := patchChunkOffsets(tree, moovIdx, moov, moovBuf, delta); err != nil {
			return err
		}
	}

	sw := binutil.NewSafeWriter(out)

	// Bytes before moov pass through untouched
	if moov.Offset > 0 {
		if _, err := io.Copy(out, io.NewSectionReader(original, 0, moov.Offset)); err != nil {
			return err
		}
	}

	// Rebuilt moov: new header, children before udta, new udta,
	// children after udta
	if err := writeAtomHeader(sw, "moov", uint64(newMoovSize), moov.Extended); err != nil {
		return err
	}
	if err := sw.WriteBytes(moovBuf[moov.HeaderSize():relStart]); err != nil {
		return err
	}
	if err := sw.WriteBytes(newUdta); err != nil {
		return err
	}
	if err := sw.WriteBytes(moovBuf[relEnd:]); err != nil {
		return err
	}

	// Bytes after moov pass through untouched
	moovEnd := moov.End()
	if moovEnd < originalSize {
		if _, err := io.Copy(out, io.NewSectionReader(original, moovEnd, originalSize-moovEnd)); err != nil {
			return err
		}
	}

	return nil
}

// writeAtomHeader emits an atom header, keeping the 64-bit form when
// the original used it so sibling offsets are preserved.
func writeAtomHeader(sw *binutil.SafeWriter, atomType string, size uint64, extended bool) error {
	if extended {
		if err := binutil.Write(sw, uint32(1)); err != nil {
			return err
		}
		if err := sw.WriteString(atomType); err != nil {
			return err
		}
		return binutil.Write(sw, size)
	}
	if err := binutil.Write(sw, uint32(size)); err != nil {
		return err
	}
	return sw.WriteString(atomType)
}

// patchChunkOffsets shifts every stco/co64 entry pointing past the old
// moov by delta, in place inside moovBuf. Offsets pointing before moov
// address bytes that do not move and stay untouched.
func patchChunkOffsets(tree *Tree, moovIdx int, moov Atom, moovBuf []byte, delta int64) error {
	moovEnd := moov.End()

	for idx := range tree.Nodes {
		node := &tree.Nodes[idx]
		if node.Type != "stco" && node.Type != "co64" {
			continue
		}
		if !underNode(tree, idx, moovIdx) {
			continue
		}

		// Payload: version/flags word, entry count, then entries
		rel := node.DataOffset() - moov.Offset
		if rel+8 > int64(len(moovBuf)) {
			return tree.invalid(node.Type, "atom too small for its entry count")
		}
		count := int64(binary.BigEndian.Uint32(moovBuf[rel+4 : rel+8]))

		entrySize := int64(4)
		if node.Type == "co64" {
			entrySize = 8
		}
		if rel+8+count*entrySize > int64(len(moovBuf)) {
			return tree.invalid(node.Type, fmt.Sprintf("entry count %d overruns the atom", count))
		}

		for i := int64(0); i < count; i++ {
			pos := rel + 8 + i*entrySize
			if node.Type == "co64" {
				offset := binary.BigEndian.Uint64(moovBuf[pos : pos+8])
				if offset < uint64(moovEnd) {
					continue
				}
				shifted := int64(offset) + delta
				if shifted < 0 {
					return tree.invalid(node.Type, fmt.Sprintf("chunk offset %d would shift below zero", offset))
				}
				binary.BigEndian.PutUint64(moovBuf[pos:pos+8], uint64(shifted))
				continue
			}

			offset := binary.BigEndian.Uint32(moovBuf[pos : pos+4])
			if int64(offset) < moovEnd {
				continue
			}
			shifted := int64(offset) + delta
			if shifted < 0 || shifted > math.MaxUint32 {
				return tree.invalid(node.Type, fmt.Sprintf("chunk offset %d does not fit 32 bits after shifting", offset))
			}
			binary.BigEndian.PutUint32(moovBuf[pos:pos+4], uint32(shifted))
		}
	}

	return nil
}

// underNode reports whether idx sits anywhere beneath ancestor.
func underNode(tree *Tree, idx, ancestor int) bool {
	for parent := tree.Nodes[idx].Parent; parent != noNode; parent = tree.Nodes[parent].Parent {
		if parent == ancestor {
			return true
		}
	}
	return false
}

// buildUdta rebuilds the udta atom: every child except meta is carried
// verbatim and meta is replaced in position (or appended when absent).
func buildUdta(tree *Tree, sr *binutil.SafeReader, moovIdx int, file *types.File) ([]byte, error) {
	udtaIdx := tree.Find(moovIdx, "udta")

	newMeta, err := buildMeta(tree, sr, udtaIdx, file)
	if err != nil {
		return nil, err
	}

	var payload bytes.Buffer
	replaced := false

	if udtaIdx != noNode {
		for _, childIdx := range tree.Children(udtaIdx) {
			child := tree.Nodes[childIdx].Atom
			if child.Type == "meta" {
				payload.Write(newMeta)
				replaced = true
				continue
			}
			raw, err := atomBytes(sr, child)
			if err != nil {
				return nil, err
			}
			payload.Write(raw)
		}
	}
	if !replaced {
		payload.Write(newMeta)
	}

	return wrapAtom("udta", payload.Bytes()), nil
}

// buildMeta rebuilds the meta atom around a fresh ilst. An existing
// meta keeps its version/flags word and every non-ilst child (the
// metadata handler among them); a created one gets the standard iTunes
// metadata handler.
func buildMeta(tree *Tree, sr *binutil.SafeReader, udtaIdx int, file *types.File) ([]byte, error) {
	metaIdx := noNode
	if udtaIdx != noNode {
		metaIdx = tree.Find(udtaIdx, "meta")
	}

	ilstIdx := noNode
	if metaIdx != noNode {
		ilstIdx = tree.Find(metaIdx, "ilst")
	}

	newIlst, err := buildIlst(tree, sr, ilstIdx, file)
	if err != nil {
		return nil, err
	}

	var payload bytes.Buffer

	if metaIdx == noNode {
		payload.Write([]byte{0, 0, 0, 0}) // version and flags
		payload.Write(metaHandlerAtom())
		payload.Write(newIlst)
		return wrapAtom("meta", payload.Bytes()), nil
	}

	meta := tree.Nodes[metaIdx].Atom
	versionFlags := make([]byte, 4)
	if err := sr.ReadAt(versionFlags, meta.DataOffset(), "meta version and flags"); err != nil {
		return nil, err
	}
	payload.Write(versionFlags)

	replaced := false
	for _, childIdx := range tree.Children(metaIdx) {
		child := tree.Nodes[childIdx].Atom
		if child.Type == "ilst" {
			payload.Write(newIlst)
			replaced = true
			continue
		}
		raw, err := atomBytes(sr, child)
		if err != nil {
			return nil, err
		}
		payload.Write(raw)
	}
	if !replaced {
		payload.Write(newIlst)
	}

	return wrapAtom("meta", payload.Bytes()), nil
}

// buildIlst rebuilds the metadata list: canonical entries first in
// field order, then every unowned entry verbatim in its original
// order. The cover entry passes through untouched unless the engine
// replaced or removed it.
func buildIlst(tree *Tree, sr *binutil.SafeReader, ilstIdx int, file *types.File) ([]byte, error) {
	var entries bytes.Buffer

	// The original total survives an edit that sets a bare track number
	originalTotal := originalTrackTotal(tree, sr, ilstIdx)

	for _, field := range types.Fields() {
		value, ok := file.Tags.Get(field)
		if !ok {
			continue
		}

		if field == types.FieldTrack {
			if entry, ok := trackEntry(value, originalTotal); ok {
				entries.Write(entry)
			}
			continue
		}

		entries.Write(textEntry(fieldAtoms[field], value))
	}

	if file.CoverDirty_ && file.Cover != nil {
		entries.Write(coverEntry(file.Cover))
	}

	if ilstIdx != noNode {
		for _, childIdx := range tree.Children(ilstIdx) {
			child := tree.Nodes[childIdx].Atom
			if child.Type == "covr" {
				if file.CoverDirty_ {
					continue
				}
			} else if ownedAtom(child.Type) {
				continue
			}
			raw, err := atomBytes(sr, child)
			if err != nil {
				return nil, err
			}
			entries.Write(raw)
		}
	}

	return wrapAtom("ilst", entries.Bytes()), nil
}

// originalTrackTotal reads the track total out of an existing trkn
// entry, or zero.
func originalTrackTotal(tree *Tree, sr *binutil.SafeReader, ilstIdx int) uint16 {
	if ilstIdx == noNode {
		return 0
	}
	trknIdx := tree.Find(ilstIdx, "trkn")
	if trknIdx == noNode {
		return 0
	}

	trkn := tree.Nodes[trknIdx].Atom
	dataAtom, err := findAtom(sr, trkn.DataOffset(), trkn.DataOffset()+int64(trkn.DataSize()), "data")
	if err != nil || dataAtom.DataSize() < 8+6 {
		return 0
	}

	total, err := binutil.Read[uint16](sr, dataAtom.DataOffset()+8+4, "track total")
	if err != nil {
		return 0
	}
	return total
}

// wrapAtom prefixes a payload with an 8-byte atom header.
func wrapAtom(atomType string, payload []byte) []byte {
	atom := make([]byte, 8, 8+len(payload))
	binary.BigEndian.PutUint32(atom, uint32(8+len(payload)))
	copy(atom[4:], atomType)
	return append(atom, payload...)
}

// dataAtom builds a data atom: type code, a zero locale word, then the
// value bytes.
func dataAtom(typeCode uint32, value []byte) []byte {
	payload := make([]byte, 8, 8+len(value))
	binary.BigEndian.PutUint32(payload, typeCode)
	return wrapAtom("data", append(payload, value...))
}

// textEntry builds an ilst text entry holding a UTF-8 data atom.
func textEntry(atomType, value string) []byte {
	return wrapAtom(atomType, dataAtom(1, []byte(value)))
}

// trackEntry encodes a canonical "N" or "N/Total" track value as a
// trkn entry. A value without a leading integer cannot be represented
// and produces no entry; a value without a total falls back to the
// original file's total so an edit to the bare number keeps it.
func trackEntry(value string, originalTotal uint16) ([]byte, bool) {
	numberPart, totalPart, hasTotal := strings.Cut(value, "/")

	number, err := strconv.ParseUint(strings.TrimSpace(numberPart), 10, 16)
	if err != nil {
		return nil, false
	}

	total := uint64(originalTotal)
	if hasTotal {
		if parsed, err := strconv.ParseUint(strings.TrimSpace(totalPart), 10, 16); err == nil {
			total = parsed
		}
	}

	payload := make([]byte, 8)
	binary.BigEndian.PutUint16(payload[2:4], uint16(number))
	binary.BigEndian.PutUint16(payload[4:6], uint16(total))
	return wrapAtom("trkn", dataAtom(0, payload)), true
}

// coverEntry encodes the cover image as a covr entry with the matching
// data atom type code.
func coverEntry(cover *types.Cover) []byte {
	var typeCode uint32
	switch cover.MIME {
	case types.MIMEJPEG:
		typeCode = covrTypeJPEG
	case types.MIMEPNG:
		typeCode = covrTypePNG
	case "image/gif":
		typeCode = covrTypeGIF
	}
	return wrapAtom("covr", dataAtom(typeCode, cover.Data))
}

// metaHandlerAtom builds the standard iTunes metadata handler placed in
// a created meta atom.
func metaHandlerAtom() []byte {
	payload := make([]byte, 25)
	copy(payload[8:], "mdirappl")
	return wrapAtom("hdlr", payload)
}

// atomBytes reads a whole atom, header included.
func atomBytes(sr *binutil.SafeReader, atom Atom) ([]byte, error) {
	raw := make([]byte, atom.Size)
	if err := sr.ReadAt(raw, atom.Offset, atom.Type+" atom"); err != nil {
		return nil, err
	}
	return raw, nil
}

// init registers the M4A writer
func init() {
	registry.RegisterWriter(types.FormatM4A, &writer{})
}
