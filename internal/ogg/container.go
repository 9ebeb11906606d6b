// Package ogg implements Ogg Vorbis and Ogg Opus parsing and writing.
package ogg

import (
	"encoding/binary"
	"fmt"

	binutil "github.com/simonhull/metanote/internal/binary"
)

// Page represents one Ogg page.
//
// An Ogg page is the fundamental unit of the Ogg container format.
// Each page carries a header, a lacing table, and payload data.
type Page struct {
	HeaderType      byte   // Bit flags: 0x01=continued, 0x02=BOS, 0x04=EOS
	GranulePosition int64  // Position in samples
	SerialNumber    uint32 // Logical bitstream identifier
	SequenceNumber  uint32 // Page sequence number
	Segments        []byte // Lacing values; a value below 255 ends a packet
	Data            []byte // Page payload (one or more packet fragments)
}

// readPage reads an Ogg page at the given offset.
//
// The page CRC is not verified; reading stays tolerant of files other
// tools wrote sloppily. Returns the page, the next page's offset, and
// any error encountered.
func readPage(sr *binutil.SafeReader, offset int64) (*Page, int64, error) {
	// Verify "OggS" magic marker
	magic := make([]byte, 4)
	if err := sr.ReadAt(magic, offset, "Ogg magic"); err != nil {
		return nil, 0, err
	}
	if string(magic) != "OggS" {
		return nil, 0, fmt.Errorf("invalid Ogg page at offset %d", offset)
	}

	// Stream structure version (must be 0x00)
	version, err := binutil.Read[uint8](sr, offset+4, "version")
	if err != nil {
		return nil, 0, err
	}
	if version != 0 {
		return nil, 0, fmt.Errorf("unsupported Ogg version: %d", version)
	}

	headerType, err := binutil.Read[uint8](sr, offset+5, "header type")
	if err != nil {
		return nil, 0, err
	}

	granule, err := binutil.ReadLE[uint64](sr, offset+6, "granule position")
	if err != nil {
		return nil, 0, err
	}

	serial, err := binutil.ReadLE[uint32](sr, offset+14, "serial number")
	if err != nil {
		return nil, 0, err
	}

	sequence, err := binutil.ReadLE[uint32](sr, offset+18, "sequence number")
	if err != nil {
		return nil, 0, err
	}

	segmentCount, err := binutil.Read[uint8](sr, offset+26, "segment count")
	if err != nil {
		return nil, 0, err
	}

	// Lacing table: each byte is the size of one segment (0-255)
	segments := make([]byte, segmentCount)
	if err := sr.ReadAt(segments, offset+27, "segment table"); err != nil {
		return nil, 0, err
	}

	dataSize := 0
	for _, seg := range segments {
		dataSize += int(seg)
	}

	data := make([]byte, dataSize)
	dataOffset := offset + 27 + int64(segmentCount)
	if err := sr.ReadAt(data, dataOffset, "page data"); err != nil {
		return nil, 0, err
	}

	page := &Page{
		HeaderType:      headerType,
		GranulePosition: int64(granule),
		SerialNumber:    serial,
		SequenceNumber:  sequence,
		Segments:        segments,
		Data:            data,
	}

	return page, dataOffset + int64(dataSize), nil
}

// extractPackets assembles packets from consecutive pages using the
// lacing table.
//
// A packet ends at the first lacing value below 255; a packet whose
// length is an exact multiple of 255 is closed by a zero lacing value.
// Packets that run past the final page are returned as-is.
func extractPackets(pages []*Page) [][]byte {
	var packets [][]byte
	var current []byte

	for _, page := range pages {
		offset := 0
		for _, lace := range page.Segments {
			current = append(current, page.Data[offset:offset+int(lace)]...)
			offset += int(lace)
			if lace < 255 {
				packets = append(packets, current)
				current = nil
			}
		}
	}

	if len(current) > 0 {
		packets = append(packets, current)
	}

	return packets
}

// completePackets counts the packets that finish within the page.
func completePackets(page *Page) int {
	n := 0
	for _, lace := range page.Segments {
		if lace < 255 {
			n++
		}
	}
	return n
}

// findLastGranulePosition searches backwards from the end of file for
// the last page's granule position, used to compute the duration.
func findLastGranulePosition(sr *binutil.SafeReader, fileSize int64) (int64, error) {
	// Search the last 64KB (typical max page size)
	searchStart := fileSize - 65536
	if searchStart < 0 {
		searchStart = 0
	}

	searchSize := fileSize - searchStart
	buf := make([]byte, searchSize)
	if err := sr.ReadAt(buf, searchStart, "search region"); err != nil {
		return 0, err
	}

	lastOggPos := int64(-1)
	for i := len(buf) - 4; i >= 0; i-- {
		if buf[i] == 'O' && buf[i+1] == 'g' && buf[i+2] == 'g' && buf[i+3] == 'S' {
			lastOggPos = searchStart + int64(i)
			break
		}
	}

	if lastOggPos < 0 {
		return 0, fmt.Errorf("could not find last Ogg page")
	}

	// Granule position sits at offset 6 from "OggS"
	granule, err := binutil.ReadLE[uint64](sr, lastOggPos+6, "granule position")
	if err != nil {
		return 0, err
	}

	return int64(granule), nil
}

// crcTable holds the Ogg page checksum table: polynomial 0x04c11db7,
// unreflected, zero initial value, no final inversion. This is not the
// reflected CRC-32 the standard library implements, so the table is
// built by hand.
var crcTable = makeCRCTable()

func makeCRCTable() [256]uint32 {
	var table [256]uint32
	for i := range table {
		r := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if r&0x80000000 != 0 {
				r = r<<1 ^ 0x04c11db7
			} else {
				r <<= 1
			}
		}
		table[i] = r
	}
	return table
}

// oggCRC computes the checksum of a full page with its CRC field
// zeroed.
func oggCRC(data []byte) uint32 {
	var crc uint32
	for _, b := range data {
		crc = crc<<8 ^ crcTable[byte(crc>>24)^b]
	}
	return crc
}

// buildPage serializes a page and fills in its CRC.
func buildPage(headerType byte, granule int64, serial, sequence uint32, segments, data []byte) []byte {
	page := make([]byte, 0, 27+len(segments)+len(data))
	page = append(page, "OggS"...)
	page = append(page, 0, headerType)
	page = binary.LittleEndian.AppendUint64(page, uint64(granule))
	page = binary.LittleEndian.AppendUint32(page, serial)
	page = binary.LittleEndian.AppendUint32(page, sequence)
	page = append(page, 0, 0, 0, 0) // CRC, patched below
	page = append(page, byte(len(segments)))
	page = append(page, segments...)
	page = append(page, data...)
	binary.LittleEndian.PutUint32(page[22:26], oggCRC(page))
	return page
}

// pagePackets lays packets out into pages: lacing values of 255 for
// full segments, at most 255 segments per page, the continuation flag
// on every page that starts mid-packet. Header pages carry granule
// position zero.
func pagePackets(packets [][]byte, serial, firstSequence uint32) [][]byte {
	var laces []byte
	var data []byte
	for _, p := range packets {
		n := len(p)
		for n >= 255 {
			laces = append(laces, 255)
			n -= 255
		}
		laces = append(laces, byte(n))
		data = append(data, p...)
	}

	var pages [][]byte
	sequence := firstSequence
	continued := false
	dataOffset := 0
	for start := 0; start < len(laces); start += 255 {
		end := start + 255
		if end > len(laces) {
			end = len(laces)
		}
		segments := laces[start:end]

		size := 0
		for _, lace := range segments {
			size += int(lace)
		}

		var headerType byte
		if continued {
			headerType = 0x01
		}
		pages = append(pages, buildPage(headerType, 0, serial, sequence, segments, data[dataOffset:dataOffset+size]))

		continued = segments[len(segments)-1] == 255
		dataOffset += size
		sequence++
	}

	return pages
}
