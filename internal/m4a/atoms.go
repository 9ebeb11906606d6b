// Package m4a reads and writes iTunes-style metadata in MP4 audio
// containers (M4A).
package m4a

import (
	"fmt"

	"github.com/simonhull/metanote/internal/binary"
	"github.com/simonhull/metanote/internal/types"
)

// Atom represents an MP4 atom (box)
type Atom struct {
	Size     uint64 // Total size including header
	Type     string // 4-character type code
	Offset   int64  // Position in file
	Extended bool   // Whether this uses 64-bit extended size
}

// containerAtoms lists the atom types whose payload is a sequence of
// child atoms. meta is special: four version/flags bytes precede its
// children. ilst children are leaves here; their data atoms are
// handled by the metadata codec.
var containerAtoms = map[string]bool{
	"moov": true, // Movie container
	"udta": true, // User data
	"meta": true, // Metadata container
	"ilst": true, // iTunes metadata list
	"trak": true, // Track container
	"mdia": true, // Media container
	"minf": true, // Media information
	"stbl": true, // Sample table
	"dinf": true, // Data information
	"edts": true, // Edit list container
}

// HeaderSize returns the size of the atom's header in bytes.
func (a *Atom) HeaderSize() int64 {
	if a.Extended {
		return 16
	}
	return 8
}

// DataSize returns the size of the atom's data (excluding header)
func (a *Atom) DataSize() uint64 {
	headerSize := uint64(a.HeaderSize())
	if a.Size < headerSize {
		return 0
	}
	return a.Size - headerSize
}

// DataOffset returns the file offset where the atom's data starts
func (a *Atom) DataOffset() int64 {
	return a.Offset + a.HeaderSize()
}

// End returns the file offset just past the atom.
func (a *Atom) End() int64 {
	return a.Offset + int64(a.Size)
}

// IsContainer returns true if this atom type can contain other atoms
func (a *Atom) IsContainer() bool {
	return containerAtoms[a.Type]
}

// readAtomHeader reads an atom header at the given offset.
//
// A stored size of zero means the atom extends to the end of the file;
// the returned Size is zero in that case and the caller decides whether
// that is legal where the atom appears.
func readAtomHeader(sr *binary.SafeReader, offset int64) (*Atom, error) {
	// Read size (4 bytes)
	size32, err := binary.Read[uint32](sr, offset, "atom size")
	if err != nil {
		return nil, err
	}

	// Read type (4 bytes)
	typeBytes := make([]byte, 4)
	if err := sr.ReadAt(typeBytes, offset+4, "atom type"); err != nil {
		return nil, err
	}
	atomType := string(typeBytes)

	atom := &Atom{
		Type:   atomType,
		Offset: offset,
	}

	// Handle extended size (size == 1 means 64-bit size follows)
	if size32 == 1 {
		size64, err := binary.Read[uint64](sr, offset+8, "extended atom size")
		if err != nil {
			return nil, err
		}
		atom.Size = size64
		atom.Extended = true

		if atom.Size < 16 {
			return nil, &types.CorruptedFileError{
				Offset: offset,
				Reason: fmt.Sprintf("invalid extended atom size %d (minimum is 16)", atom.Size),
			}
		}
		return atom, nil
	}

	atom.Size = uint64(size32)

	// Validate atom size (0 is the to-end-of-file marker)
	if atom.Size != 0 && atom.Size < 8 {
		return nil, &types.CorruptedFileError{
			Offset: offset,
			Reason: fmt.Sprintf("invalid atom size %d (minimum is 8)", atom.Size),
		}
	}

	return atom, nil
}

// findAtom searches for an atom of the given type within a range
// Returns the first matching atom or an error if not found
func findAtom(sr *binary.SafeReader, start, end int64, atomType string) (*Atom, error) {
	offset := start

	for offset < end {
		atom, err := readAtomHeader(sr, offset)
		if err != nil {
			return nil, err
		}

		// An atom with stored size zero runs to the end of the range
		// and is therefore the last one
		if atom.Size == 0 {
			atom.Size = uint64(end - atom.Offset)
			if atom.Type == atomType {
				return atom, nil
			}
			break
		}

		if atom.Type == atomType {
			return atom, nil
		}

		// Move to next atom
		offset += int64(atom.Size)
	}

	return nil, fmt.Errorf("atom '%s' not found", atomType)
}
