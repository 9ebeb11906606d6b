package metanote

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"
	"testing"
)

func TestColumns(t *testing.T) {
	want := []string{
		"path", "title", "artist", "album", "year", "track",
		"genre", "comment", "lyrics", "fileSizeBytes",
	}
	got := Columns()
	if len(got) != len(want) {
		t.Fatalf("got %d columns, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %d = %s, want %s", i, got[i], want[i])
		}
	}

	// Mutating the returned slice must not corrupt later calls.
	got[0] = "mangled"
	if Columns()[0] != "path" {
		t.Error("Columns() shares its backing array with callers")
	}
}

func TestProject(t *testing.T) {
	dir := t.TempDir()
	tagged := openTagged(t, dir, "full.flac",
		"TITLE=Night Drive",
		"ARTIST=The Headlights",
		"ALBUM=City Lights",
		"DATE=2021",
		"TRACKNUMBER=3",
		"GENRE=Synthwave",
		"COMMENT=remaster",
		"LYRICS=street lights flicker",
	)
	bare := openFixture(t, writeFixture(t, dir, "beep.wav", buildWAV(8000, 1, 16, make([]byte, 800))))

	rows := Project([]*File{tagged, bare})
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	want := []string{
		tagged.Path, "Night Drive", "The Headlights", "City Lights",
		"2021", "3", "Synthwave", "remaster", "street lights flicker",
		strconv.FormatInt(tagged.Size, 10),
	}
	for i, cell := range rows[0] {
		if cell != want[i] {
			t.Errorf("row 0 col %d = %q, want %q", i, cell, want[i])
		}
	}

	// Absent fields project as empty cells, never as placeholders.
	for i := 1; i <= 8; i++ {
		if rows[1][i] != "" {
			t.Errorf("row 1 col %d = %q, want empty", i, rows[1][i])
		}
	}
	if rows[1][0] != bare.Path {
		t.Errorf("row 1 path = %s, want %s", rows[1][0], bare.Path)
	}
	if rows[1][9] != strconv.FormatInt(bare.Size, 10) {
		t.Errorf("row 1 size = %s, want %d", rows[1][9], bare.Size)
	}
}

func TestProject_PresentEmptyField(t *testing.T) {
	dir := t.TempDir()
	file := openTagged(t, dir, "x.flac", "TITLE=", "ARTIST=The Headlights")

	rows := Project([]*File{file})
	if rows[0][1] != "" {
		t.Errorf("title cell = %q, want empty", rows[0][1])
	}
	if rows[0][2] != "The Headlights" {
		t.Errorf("artist cell = %q, want %q", rows[0][2], "The Headlights")
	}
}

func TestProject_KeepsNewlinesIntact(t *testing.T) {
	dir := t.TempDir()
	file := openTagged(t, dir, "x.flac", "LYRICS=line one\nline two")

	rows := Project([]*File{file})
	if rows[0][8] != "line one\nline two" {
		t.Errorf("lyrics cell = %q, want raw newline preserved", rows[0][8])
	}
}

func TestProject_RowOrderMatchesInput(t *testing.T) {
	dir := t.TempDir()
	a := openTagged(t, dir, "a.flac", "TITLE=First")
	b := openTagged(t, dir, "b.flac", "TITLE=Second")
	c := openTagged(t, dir, "c.flac", "TITLE=Third")

	rows := Project([]*File{c, a, b})
	got := []string{rows[0][1], rows[1][1], rows[2][1]}
	want := []string{"Third", "First", "Second"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d title = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestProject_Empty(t *testing.T) {
	if rows := Project(nil); len(rows) != 0 {
		t.Errorf("Project(nil) = %d rows, want 0", len(rows))
	}
}

// Projection rows feed encoding/csv directly; the writer owns quoting.
func TestProject_ThroughCSVWriter(t *testing.T) {
	dir := t.TempDir()
	file := openTagged(t, dir, "x.flac",
		"TITLE=Night Drive",
		"COMMENT=one, two\nthree",
	)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Columns()); err != nil {
		t.Fatal(err)
	}
	for _, row := range Project([]*File{file}) {
		if err := w.Write(row); err != nil {
			t.Fatal(err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "path,title,artist,album,year,track,genre,comment,lyrics,fileSizeBytes\n") {
		t.Errorf("header row = %q", strings.SplitN(out, "\n", 2)[0])
	}
	if !strings.Contains(out, `"one, two`+"\n"+`three"`) {
		t.Errorf("comment not quoted by csv writer:\n%s", out)
	}

	// The quoted output must survive a round trip through the reader.
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[1][7] != "one, two\nthree" {
		t.Errorf("comment after round trip = %q", records[1][7])
	}
}
