package main

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/simonhull/metanote/internal/binary"
)

// Debug tool for checking what actually sits in an MP4 atom tree.
// Handy when a file tags fine in one player and not another.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: atom-dump <file.m4a>")
		os.Exit(1)
	}

	f, err := os.Open(os.Args[1])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	sr := binary.NewSafeReader(f, stat.Size(), os.Args[1])
	if err := dumpAtoms(sr, 0, stat.Size(), 0, false); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

var containers = map[string]bool{
	"moov": true,
	"trak": true,
	"mdia": true,
	"minf": true,
	"stbl": true,
	"udta": true,
	"meta": true,
	"ilst": true,
	"edts": true,
}

func dumpAtoms(sr *binary.SafeReader, offset, end int64, depth int, inItemList bool) error {
	indent := strings.Repeat("  ", depth)

	for offset < end {
		size, err := binary.ReadBE[uint32](sr, offset, "atom size")
		if err != nil {
			return err
		}
		var name [4]byte
		if err := sr.ReadAt(name[:], offset+4, "atom type"); err != nil {
			return err
		}
		atomType := string(name[:])

		atomSize := int64(size)
		headerSize := int64(8)
		switch size {
		case 0:
			// Runs to the end of the enclosing box.
			atomSize = end - offset
		case 1:
			ext, err := binary.ReadBE[uint64](sr, offset+8, "extended atom size")
			if err != nil {
				return err
			}
			atomSize = int64(ext)
			headerSize = 16
		}
		if atomSize < headerSize {
			return fmt.Errorf("atom %q at offset %d has impossible size %d", atomType, offset, atomSize)
		}

		fmt.Printf("%s%s (size: %d, offset: %d)\n", indent, atomType, atomSize, offset)

		dataOffset := offset + headerSize
		dataEnd := offset + atomSize

		switch {
		case containers[atomType]:
			// meta carries a version+flags word before its children.
			if atomType == "meta" {
				dataOffset += 4
			}
			if err := dumpAtoms(sr, dataOffset, dataEnd, depth+1, atomType == "ilst"); err != nil {
				return err
			}
		case inItemList:
			// ilst children wrap their payload in a data atom; preview it.
			if err := dumpItemData(sr, dataOffset, dataEnd, depth+1); err != nil {
				return err
			}
		}

		offset += atomSize
	}
	return nil
}

func dumpItemData(sr *binary.SafeReader, offset, end int64, depth int) error {
	indent := strings.Repeat("  ", depth)

	for offset+16 <= end {
		size, err := binary.ReadBE[uint32](sr, offset, "data atom size")
		if err != nil {
			return err
		}
		var name [4]byte
		if err := sr.ReadAt(name[:], offset+4, "data atom type"); err != nil {
			return err
		}
		if string(name[:]) != "data" || int64(size) < 16 || offset+int64(size) > end {
			return nil
		}

		flags, err := binary.ReadBE[uint32](sr, offset+8, "data flags")
		if err != nil {
			return err
		}

		payloadLen := int64(size) - 16
		preview := payloadLen
		if preview > 64 {
			preview = 64
		}
		payload := make([]byte, preview)
		if err := sr.ReadAt(payload, offset+16, "data payload"); err != nil {
			return err
		}

		fmt.Printf("%sdata (flags: %d, %d bytes) %s\n", indent, flags, payloadLen, previewString(payload, payloadLen))
		offset += int64(size)
	}
	return nil
}

func previewString(payload []byte, total int64) string {
	printable := true
	for _, b := range payload {
		if b >= 0x80 || (!unicode.IsPrint(rune(b)) && b != '\n') {
			printable = false
			break
		}
	}
	if !printable {
		return fmt.Sprintf("<binary %d bytes>", total)
	}
	s := strings.ReplaceAll(string(payload), "\n", `\n`)
	if int64(len(payload)) < total {
		s += "..."
	}
	return fmt.Sprintf("%q", s)
}
