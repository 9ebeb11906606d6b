package mp3

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	id3v2lib "github.com/bogem/id3v2/v2"

	"github.com/simonhull/metanote/internal/types"
)

// TestInterop_BogemReadsOutput verifies that a tag produced by this
// package is readable by github.com/bogem/id3v2.
func TestInterop_BogemReadsOutput(t *testing.T) {
	original := mpegFrames()

	file := parseMP3(t, original)
	file.Tags.Set(types.FieldTitle, "Interop Title")
	file.Tags.Set(types.FieldArtist, "Interop Artist")
	file.Tags.Set(types.FieldAlbum, "Interop Album")
	file.Tags.Set(types.FieldYear, "2003")
	file.Tags.Set(types.FieldTrack, "7/10")
	file.Tags.Set(types.FieldGenre, "Ambient")
	file.Tags.Set(types.FieldComment, "made for interop")
	file.Cover = &types.Cover{MIME: types.MIMEJPEG, Description: "front", Data: jpegData}
	file.CoverDirty_ = true

	out := writeMP3(t, file, original)
	path := filepath.Join(t.TempDir(), "interop.mp3")
	if err := os.WriteFile(path, out, 0o644); err != nil {
		t.Fatal(err)
	}

	tag, err := id3v2lib.Open(path, id3v2lib.Options{Parse: true})
	if err != nil {
		t.Fatalf("id3v2.Open() error = %v", err)
	}
	defer tag.Close()

	if got := tag.Title(); got != "Interop Title" {
		t.Errorf("Title() = %q, want %q", got, "Interop Title")
	}
	if got := tag.Artist(); got != "Interop Artist" {
		t.Errorf("Artist() = %q, want %q", got, "Interop Artist")
	}
	if got := tag.Album(); got != "Interop Album" {
		t.Errorf("Album() = %q, want %q", got, "Interop Album")
	}
	if got := tag.Genre(); got != "Ambient" {
		t.Errorf("Genre() = %q, want %q", got, "Ambient")
	}
	if got := tag.GetTextFrame("TRCK").Text; got != "7/10" {
		t.Errorf("TRCK = %q, want %q", got, "7/10")
	}

	var comment string
	for _, f := range tag.GetFrames(tag.CommonID("Comments")) {
		if cf, ok := f.(id3v2lib.CommentFrame); ok && cf.Description == "" {
			comment = cf.Text
		}
	}
	if comment != "made for interop" {
		t.Errorf("comment = %q, want %q", comment, "made for interop")
	}

	pictures := tag.GetFrames(tag.CommonID("Attached picture"))
	if len(pictures) != 1 {
		t.Fatalf("attached pictures = %d, want 1", len(pictures))
	}
	pic, ok := pictures[0].(id3v2lib.PictureFrame)
	if !ok {
		t.Fatalf("picture frame has type %T", pictures[0])
	}
	if pic.MimeType != "image/jpeg" {
		t.Errorf("picture MIME = %q, want image/jpeg", pic.MimeType)
	}
	if pic.PictureType != id3v2lib.PTFrontCover {
		t.Errorf("picture type = %d, want front cover", pic.PictureType)
	}
	if !bytes.Equal(pic.Picture, jpegData) {
		t.Error("picture bytes do not match written cover")
	}
}

// TestInterop_ReadsBogemOutput verifies that tags written by
// github.com/bogem/id3v2 parse into the canonical fields.
func TestInterop_ReadsBogemOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogem.mp3")
	if err := os.WriteFile(path, mpegFrames(), 0o644); err != nil {
		t.Fatal(err)
	}

	tag, err := id3v2lib.Open(path, id3v2lib.Options{Parse: true})
	if err != nil {
		t.Fatalf("id3v2.Open() error = %v", err)
	}
	tag.SetDefaultEncoding(id3v2lib.EncodingUTF8)
	tag.SetTitle("Motörhead")
	tag.SetArtist("Bogem Artist")
	tag.SetAlbum("Bogem Album")
	tag.SetGenre("Rock")
	tag.SetYear("2020")
	tag.AddTextFrame(tag.CommonID("Track number/Position in set"), tag.DefaultEncoding(), "3/11")
	tag.AddCommentFrame(id3v2lib.CommentFrame{
		Encoding:    id3v2lib.EncodingUTF8,
		Language:    "eng",
		Description: "",
		Text:        "written by bogem",
	})
	tag.AddUnsynchronisedLyricsFrame(id3v2lib.UnsynchronisedLyricsFrame{
		Encoding:          id3v2lib.EncodingUTF8,
		Language:          "eng",
		ContentDescriptor: "",
		Lyrics:            "ace of spades",
	})
	tag.AddAttachedPicture(id3v2lib.PictureFrame{
		Encoding:    id3v2lib.EncodingUTF8,
		MimeType:    "image/jpeg",
		PictureType: id3v2lib.PTFrontCover,
		Description: "cover",
		Picture:     jpegData,
	})
	if err := tag.Save(); err != nil {
		t.Fatalf("tag.Save() error = %v", err)
	}
	if err := tag.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	file := parseMP3(t, data)

	requireField(t, file, types.FieldTitle, "Motörhead")
	requireField(t, file, types.FieldArtist, "Bogem Artist")
	requireField(t, file, types.FieldAlbum, "Bogem Album")
	requireField(t, file, types.FieldGenre, "Rock")
	requireField(t, file, types.FieldYear, "2020")
	requireField(t, file, types.FieldTrack, "3/11")
	requireField(t, file, types.FieldComment, "written by bogem")
	requireField(t, file, types.FieldLyrics, "ace of spades")

	if file.Cover == nil {
		t.Fatal("Cover = nil, want picture written by bogem")
	}
	if file.Cover.MIME != types.MIMEJPEG {
		t.Errorf("Cover.MIME = %q, want image/jpeg", file.Cover.MIME)
	}
	if !bytes.Equal(file.Cover.Data, jpegData) {
		t.Error("Cover.Data does not match bogem picture")
	}
}
