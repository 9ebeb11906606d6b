package m4a

import (
	"bytes"
	"encoding/binary"
	"testing"

	binutil "github.com/simonhull/metanote/internal/binary"
	"github.com/simonhull/metanote/internal/types"
)

// createTypedDataAtom creates a data atom with the given type code.
func createTypedDataAtom(typeCode uint32, value []byte) []byte {
	buf := &bytes.Buffer{}

	// Size: header + type/locale words + value
	size := uint32(8 + 8 + len(value))
	binary.Write(buf, binary.BigEndian, size)
	buf.WriteString("data")

	binary.Write(buf, binary.BigEndian, typeCode)
	binary.Write(buf, binary.BigEndian, uint32(0)) // locale

	buf.Write(value)

	return buf.Bytes()
}

// createDataAtom creates a UTF-8 text data atom.
func createDataAtom(value []byte) []byte {
	return createTypedDataAtom(1, value)
}

// createMetadataItem wraps a text data atom in an ilst item of the given type.
func createMetadataItem(itemType string, value []byte) []byte {
	return createMockAtom(itemType, createDataAtom(value))
}

// createTrackItem creates a trkn item carrying the given numbers.
func createTrackItem(trackNum, trackTotal uint16) []byte {
	buf := &bytes.Buffer{}

	binary.Write(buf, binary.BigEndian, uint16(0)) // reserved
	binary.Write(buf, binary.BigEndian, trackNum)
	binary.Write(buf, binary.BigEndian, trackTotal)
	binary.Write(buf, binary.BigEndian, uint16(0)) // reserved

	return createMockAtom("trkn", createTypedDataAtom(0, buf.Bytes()))
}

func parseTestItem(t *testing.T, data []byte) (*binutil.SafeReader, *Atom) {
	t.Helper()
	sr := binutil.NewSafeReader(bytes.NewReader(data), int64(len(data)), "test.m4a")
	atom, err := readAtomHeader(sr, 0)
	if err != nil {
		t.Fatalf("failed to read item header: %v", err)
	}
	return sr, atom
}

func TestParseMetadataTag_String(t *testing.T) {
	item := createMetadataItem("\xA9nam", []byte("Test Title"))
	sr, atom := parseTestItem(t, item)

	value, ok, err := parseMetadataTag(sr, atom)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a present value")
	}
	if value != "Test Title" {
		t.Errorf("expected 'Test Title', got %q", value)
	}
}

func TestParseMetadataTag_NulTerminated(t *testing.T) {
	item := createMetadataItem("\xA9ART", []byte("Artist\x00"))
	sr, atom := parseTestItem(t, item)

	value, ok, err := parseMetadataTag(sr, atom)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a present value")
	}
	if value != "Artist" {
		t.Errorf("expected trailing nul trimmed, got %q", value)
	}
}

func TestParseMetadataTag_EmptyValue(t *testing.T) {
	// A data atom with no value bytes is a present, empty value
	item := createMetadataItem("\xA9cmt", nil)
	sr, atom := parseTestItem(t, item)

	value, ok, err := parseMetadataTag(sr, atom)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected empty value to count as present")
	}
	if value != "" {
		t.Errorf("expected empty string, got %q", value)
	}
}

func TestParseMetadataTag_NoDataAtom(t *testing.T) {
	item := createMockAtom("\xA9nam", nil)
	sr, atom := parseTestItem(t, item)

	_, ok, err := parseMetadataTag(sr, atom)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected absent value when item has no data atom")
	}
}

func TestExtractIlstMetadata(t *testing.T) {
	items := [][]byte{
		createMetadataItem("\xA9nam", []byte("Song")),
		createMetadataItem("\xA9ART", []byte("Band")),
		createMetadataItem("\xA9alb", []byte("Record")),
		createMetadataItem("\xA9day", []byte("2019")),
		createMetadataItem("\xA9gen", []byte("Ambient")),
		createMetadataItem("\xA9cmt", []byte("A note")),
		createMetadataItem("\xA9lyr", []byte("La la la")),
		createTrackItem(3, 12),
	}

	var payload []byte
	for _, item := range items {
		payload = append(payload, item...)
	}
	ilst := createMockAtom("ilst", payload)

	sr, ilstAtom := parseTestItem(t, ilst)

	file := &types.File{Tags: types.Tags{}}
	if err := extractIlstMetadata(sr, ilstAtom, file); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[types.Field]string{
		types.FieldTitle:   "Song",
		types.FieldArtist:  "Band",
		types.FieldAlbum:   "Record",
		types.FieldYear:    "2019",
		types.FieldGenre:   "Ambient",
		types.FieldComment: "A note",
		types.FieldLyrics:  "La la la",
		types.FieldTrack:   "3/12",
	}
	for field, wantValue := range want {
		got, ok := file.Tags.Get(field)
		if !ok {
			t.Errorf("field %s: expected %q, got absent", field, wantValue)
			continue
		}
		if got != wantValue {
			t.Errorf("field %s: expected %q, got %q", field, wantValue, got)
		}
	}
}

func TestExtractIlstMetadata_FirstWins(t *testing.T) {
	payload := append(
		createMetadataItem("\xA9nam", []byte("First")),
		createMetadataItem("\xA9nam", []byte("Second"))...,
	)
	ilst := createMockAtom("ilst", payload)

	sr, ilstAtom := parseTestItem(t, ilst)

	file := &types.File{Tags: types.Tags{}}
	if err := extractIlstMetadata(sr, ilstAtom, file); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if title, _ := file.Tags.Get(types.FieldTitle); title != "First" {
		t.Errorf("expected first occurrence to win, got %q", title)
	}
}

func TestExtractIlstMetadata_ForeignItemsIgnored(t *testing.T) {
	payload := append(
		createMetadataItem("aART", []byte("Album Artist")),
		createMetadataItem("\xA9nam", []byte("Song"))...,
	)
	ilst := createMockAtom("ilst", payload)

	sr, ilstAtom := parseTestItem(t, ilst)

	file := &types.File{Tags: types.Tags{}}
	if err := extractIlstMetadata(sr, ilstAtom, file); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if title, _ := file.Tags.Get(types.FieldTitle); title != "Song" {
		t.Errorf("expected 'Song', got %q", title)
	}
	if len(file.Warnings) != 0 {
		t.Errorf("expected no warnings for unrecognized items, got %v", file.Warnings)
	}
}

func TestParseTrackAtom(t *testing.T) {
	tests := []struct {
		name    string
		num     uint16
		total   uint16
		want    string
		present bool
	}{
		{"number and total", 1, 12, "1/12", true},
		{"number only", 3, 0, "3", true},
		{"empty", 0, 0, "", false},
		{"zero of total", 0, 10, "0/10", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := createTrackItem(tt.num, tt.total)
			sr, atom := parseTestItem(t, item)

			got, ok, err := parseTrackAtom(sr, atom)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.present {
				t.Fatalf("expected present=%v, got %v", tt.present, ok)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParseTrackAtom_NoDataAtom(t *testing.T) {
	item := createMockAtom("trkn", nil)
	sr, atom := parseTestItem(t, item)

	_, ok, err := parseTrackAtom(sr, atom)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected absent track when trkn has no data atom")
	}
}

func TestParseTrackAtom_Truncated(t *testing.T) {
	item := createMockAtom("trkn", createTypedDataAtom(0, []byte{0, 0, 0}))
	sr, atom := parseTestItem(t, item)

	_, _, err := parseTrackAtom(sr, atom)
	if err == nil {
		t.Fatal("expected error for truncated trkn payload")
	}
}

func TestParseCoverAtom(t *testing.T) {
	jpegData := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02}
	pngData := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n', 0x03}

	tests := []struct {
		name     string
		typeCode uint32
		data     []byte
		wantMIME string
	}{
		{"jpeg type code", covrTypeJPEG, jpegData, types.MIMEJPEG},
		{"png type code", covrTypePNG, pngData, types.MIMEPNG},
		{"implicit type sniffed", 0, jpegData, types.MIMEJPEG},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := createMockAtom("covr", createTypedDataAtom(tt.typeCode, tt.data))
			sr, atom := parseTestItem(t, item)

			cover, err := parseCoverAtom(sr, atom)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if cover.MIME != tt.wantMIME {
				t.Errorf("expected MIME %s, got %s", tt.wantMIME, cover.MIME)
			}
			if !bytes.Equal(cover.Data, tt.data) {
				t.Error("cover data does not match source image")
			}
		})
	}
}

func TestParseCoverAtom_Empty(t *testing.T) {
	item := createMockAtom("covr", createTypedDataAtom(covrTypeJPEG, nil))
	sr, atom := parseTestItem(t, item)

	_, err := parseCoverAtom(sr, atom)
	if err == nil {
		t.Fatal("expected error for empty cover data")
	}
}
