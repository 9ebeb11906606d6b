package metanote

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// testJPEG is a tiny but real JFIF image: SOI, APP0, and EOI markers.
var testJPEG = []byte{
	0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00,
	0x01, 0x01, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00,
	0xFF, 0xD9,
}

// testPNG is a PNG signature followed by a few filler bytes.
var testPNG = []byte{
	0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 'I', 'H', 'D', 'R',
}

// buildFLAC assembles a small but structurally valid FLAC file:
// STREAMINFO (44.1kHz stereo 16-bit, ten seconds), a Vorbis comment
// block holding the given "KEY=value" entries, an optional front-cover
// PICTURE block, and a dummy frame section.
func buildFLAC(comments []string, cover []byte) []byte {
	buf := &bytes.Buffer{}
	buf.WriteString("fLaC")

	info := make([]byte, 34)
	binary.BigEndian.PutUint16(info[0:2], 4096)
	binary.BigEndian.PutUint16(info[2:4], 4096)
	packed := uint64(44100)<<44 | uint64(1)<<41 | uint64(15)<<36 | uint64(441000)
	binary.BigEndian.PutUint64(info[10:18], packed)
	writeFLACBlock(buf, 0, info, false)

	vc := &bytes.Buffer{}
	writeVorbisString(vc, "metanote-test")
	writeU32LE(vc, uint32(len(comments)))
	for _, c := range comments {
		writeVorbisString(vc, c)
	}
	writeFLACBlock(buf, 4, vc.Bytes(), cover == nil)

	if cover != nil {
		pic := &bytes.Buffer{}
		writeU32BE(pic, 3) // front cover
		writeU32BE(pic, uint32(len("image/jpeg")))
		pic.WriteString("image/jpeg")
		writeU32BE(pic, 0) // description length
		writeU32BE(pic, 0) // width
		writeU32BE(pic, 0) // height
		writeU32BE(pic, 0) // color depth
		writeU32BE(pic, 0) // indexed colors
		writeU32BE(pic, uint32(len(cover)))
		pic.Write(cover)
		writeFLACBlock(buf, 6, pic.Bytes(), true)
	}

	// Frame section: opaque bytes to the metadata layer.
	buf.Write(bytes.Repeat([]byte{0xFF, 0xF8, 0x69, 0x18}, 16))
	return buf.Bytes()
}

// writeFLACBlock emits a metadata block header and body.
func writeFLACBlock(buf *bytes.Buffer, blockType uint8, body []byte, last bool) {
	header := uint32(len(body)) | uint32(blockType)<<24
	if last {
		header |= 1 << 31
	}
	writeU32BE(buf, header)
	buf.Write(body)
}

func writeU32BE(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU32LE(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeVorbisString(buf *bytes.Buffer, s string) {
	writeU32LE(buf, uint32(len(s)))
	buf.WriteString(s)
}

// buildWAV builds a canonical 44-byte-header PCM WAV file around the
// given sample data.
func buildWAV(sampleRate uint32, channels, bitDepth uint16, data []byte) []byte {
	buf := &bytes.Buffer{}
	byteRate := sampleRate * uint32(channels) * uint32(bitDepth) / 8
	blockAlign := channels * bitDepth / 8

	buf.WriteString("RIFF")
	writeU32LE(buf, uint32(36+len(data)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	writeU32LE(buf, 16)
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, channels)
	writeU32LE(buf, sampleRate)
	writeU32LE(buf, byteRate)
	binary.Write(buf, binary.LittleEndian, blockAlign)
	binary.Write(buf, binary.LittleEndian, bitDepth)

	buf.WriteString("data")
	writeU32LE(buf, uint32(len(data)))
	buf.Write(data)
	return buf.Bytes()
}

// writeFixture drops fixture bytes into dir and returns the full path.
func writeFixture(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}

// openFixture opens a path and registers cleanup.
func openFixture(t *testing.T, path string) *File {
	t.Helper()
	file, err := Open(path)
	if err != nil {
		t.Fatalf("Open(%s) error = %v", path, err)
	}
	t.Cleanup(func() { _ = file.Close() })
	return file
}

// readBytes slurps a file or fails the test.
func readBytes(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}
