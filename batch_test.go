package metanote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
)

// openBatch writes n FLAC fixtures with distinct titles and opens them.
func openBatch(t *testing.T, dir string, n int) []*File {
	t.Helper()
	files := make([]*File, n)
	for i := range files {
		path := writeFixture(t, dir, fmt.Sprintf("track%02d.flac", i+1), buildFLAC([]string{
			fmt.Sprintf("TITLE=Track %d", i+1),
			"ARTIST=The Headlights",
			"COMMENT=draft",
		}, nil))
		files[i] = openFixture(t, path)
	}
	return files
}

func TestApplyDelta_SparseEdit(t *testing.T) {
	dir := t.TempDir()
	files := openBatch(t, dir, 3)

	delta := NewDelta(
		SetField(FieldAlbum, "Motorway"),
		ClearField(FieldComment),
	)

	result, err := ApplyDelta(context.Background(), files, delta)
	if err != nil {
		t.Fatalf("ApplyDelta() error = %v", err)
	}
	if result.SavedCount() != 3 || result.FailedCount() != 0 {
		t.Fatalf("saved/failed = %d/%d, want 3/0", result.SavedCount(), result.FailedCount())
	}

	for i, f := range files {
		reread := openFixture(t, f.Path)
		if got, _ := reread.Tags.Get(FieldAlbum); got != "Motorway" {
			t.Errorf("file %d album = %q, want %q", i, got, "Motorway")
		}
		if _, ok := reread.Tags.Get(FieldComment); ok {
			t.Errorf("file %d comment should be cleared", i)
		}
		// Fields the delta does not mention stay per-file.
		want := fmt.Sprintf("Track %d", i+1)
		if got, _ := reread.Tags.Get(FieldTitle); got != want {
			t.Errorf("file %d title = %q, want untouched %q", i, got, want)
		}
	}
}

func TestApplyDelta_OutcomesOrdered(t *testing.T) {
	dir := t.TempDir()
	files := openBatch(t, dir, 4)

	result, err := ApplyDelta(context.Background(), files, NewDelta(SetField(FieldGenre, "Electronic")))
	if err != nil {
		t.Fatalf("ApplyDelta() error = %v", err)
	}

	if len(result.Outcomes) != 4 {
		t.Fatalf("got %d outcomes, want 4", len(result.Outcomes))
	}
	for i, outcome := range result.Outcomes {
		if outcome.Path != files[i].Path {
			t.Errorf("outcome %d path = %s, want %s", i, outcome.Path, files[i].Path)
		}
	}
}

func TestApplyDelta_PartialFailure(t *testing.T) {
	dir := t.TempDir()
	files := openBatch(t, dir, 5)

	// Tamper with the third file so its save trips the stale guard.
	tamperedPath := files[2].Path
	tampered := append(readBytes(t, tamperedPath), 0x00)
	if err := os.WriteFile(tamperedPath, tampered, 0o644); err != nil {
		t.Fatal(err)
	}

	delta := NewDelta(SetField(FieldAlbum, "Motorway"))
	result, err := ApplyDelta(context.Background(), files, delta)
	if err != nil {
		t.Fatalf("ApplyDelta() error = %v", err)
	}

	if result.SavedCount() != 4 || result.FailedCount() != 1 {
		t.Fatalf("saved/failed = %d/%d, want 4/1", result.SavedCount(), result.FailedCount())
	}

	failures := result.Failures()
	if len(failures) != 1 || failures[0].Path != tamperedPath {
		t.Fatalf("failures = %+v, want one failure for %s", failures, tamperedPath)
	}
	var stale *StaleReadError
	if !errors.As(failures[0].Err, &stale) {
		t.Errorf("failure error = %v, want *StaleReadError", failures[0].Err)
	}

	// The failed file is untouched on disk and rolled back in memory.
	if !bytes.Equal(readBytes(t, tamperedPath), tampered) {
		t.Error("failed file changed on disk")
	}
	if _, ok := files[2].Tags.Get(FieldAlbum); ok {
		t.Error("failed file should not keep the delta in memory")
	}

	// Siblings saved normally.
	for _, i := range []int{0, 1, 3, 4} {
		reread := openFixture(t, files[i].Path)
		if got, _ := reread.Tags.Get(FieldAlbum); got != "Motorway" {
			t.Errorf("file %d album = %q, want %q", i, got, "Motorway")
		}
	}
}

func TestApplyDelta_InvalidCoverFailsWholeBatch(t *testing.T) {
	dir := t.TempDir()
	files := openBatch(t, dir, 3)

	before := make([][]byte, len(files))
	for i, f := range files {
		before[i] = readBytes(t, f.Path)
	}

	gif := append([]byte("GIF89a"), make([]byte, 16)...)
	result, err := ApplyDelta(context.Background(), files, NewDelta(
		SetField(FieldAlbum, "Motorway"),
		SetCover(gif),
	))

	var unsupported *UnsupportedImageTypeError
	if !errors.As(err, &unsupported) {
		t.Fatalf("error = %v, want *UnsupportedImageTypeError", err)
	}
	if result != nil {
		t.Errorf("result = %+v, want nil when the delta is invalid", result)
	}

	// No file was touched, on disk or in memory.
	for i, f := range files {
		if !bytes.Equal(readBytes(t, f.Path), before[i]) {
			t.Errorf("file %d changed on disk", i)
		}
		if _, ok := f.Tags.Get(FieldAlbum); ok {
			t.Errorf("file %d mutated in memory", i)
		}
	}
}

func TestApplyDelta_CoverReplaceAndRemove(t *testing.T) {
	dir := t.TempDir()
	files := openBatch(t, dir, 2)

	result, err := ApplyDelta(context.Background(), files, NewDelta(SetCover(testJPEG)))
	if err != nil || result.FailedCount() != 0 {
		t.Fatalf("ApplyDelta(SetCover) error = %v, failures = %d", err, result.FailedCount())
	}
	for i, f := range files {
		reread := openFixture(t, f.Path)
		if reread.Cover == nil || !bytes.Equal(reread.Cover.Data, testJPEG) {
			t.Errorf("file %d cover not written", i)
		}
	}

	result, err = ApplyDelta(context.Background(), files, NewDelta(ClearCover()))
	if err != nil || result.FailedCount() != 0 {
		t.Fatalf("ApplyDelta(ClearCover) error = %v, failures = %d", err, result.FailedCount())
	}
	for i, f := range files {
		reread := openFixture(t, f.Path)
		if reread.Cover != nil {
			t.Errorf("file %d cover should be removed", i)
		}
	}
}

func TestApplyDelta_EmptyDeltaSavesUnchanged(t *testing.T) {
	dir := t.TempDir()
	files := openBatch(t, dir, 2)

	result, err := ApplyDelta(context.Background(), files, NewDelta())
	if err != nil {
		t.Fatalf("ApplyDelta() error = %v", err)
	}
	if result.SavedCount() != 2 {
		t.Errorf("SavedCount = %d, want 2", result.SavedCount())
	}
}

func TestApplyDelta_Idempotent(t *testing.T) {
	dir := t.TempDir()
	files := openBatch(t, dir, 2)
	delta := NewDelta(SetField(FieldAlbum, "Motorway"), ClearField(FieldComment))

	if _, err := ApplyDelta(context.Background(), files, delta); err != nil {
		t.Fatal(err)
	}
	first := make([][]byte, len(files))
	for i, f := range files {
		first[i] = readBytes(t, f.Path)
	}

	if _, err := ApplyDelta(context.Background(), files, delta); err != nil {
		t.Fatal(err)
	}
	for i, f := range files {
		if !bytes.Equal(readBytes(t, f.Path), first[i]) {
			t.Errorf("file %d changed on second application", i)
		}
	}
}

func TestApplyDelta_ContextCanceled(t *testing.T) {
	dir := t.TempDir()
	files := openBatch(t, dir, 3)

	before := make([][]byte, len(files))
	for i, f := range files {
		before[i] = readBytes(t, f.Path)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := ApplyDelta(ctx, files, NewDelta(SetField(FieldAlbum, "Motorway")), WithConcurrency(1))
	if err != nil {
		t.Fatalf("ApplyDelta() error = %v", err)
	}
	if result.FailedCount() != 3 {
		t.Fatalf("FailedCount = %d, want 3", result.FailedCount())
	}
	for _, outcome := range result.Outcomes {
		if !errors.Is(outcome.Err, context.Canceled) {
			t.Errorf("outcome error = %v, want context.Canceled", outcome.Err)
		}
	}
	for i, f := range files {
		if !bytes.Equal(readBytes(t, f.Path), before[i]) {
			t.Errorf("file %d changed despite cancellation", i)
		}
	}
}

func TestApplyDelta_LastOptionWins(t *testing.T) {
	d := NewDelta(SetField(FieldTitle, "a"), ClearField(FieldTitle))
	if len(d.set) != 0 || !d.cleared[FieldTitle] {
		t.Errorf("ClearField after SetField should clear: set=%v cleared=%v", d.set, d.cleared)
	}

	d = NewDelta(ClearField(FieldTitle), SetField(FieldTitle, "b"))
	if d.set[FieldTitle] != "b" || d.cleared[FieldTitle] {
		t.Errorf("SetField after ClearField should set: set=%v cleared=%v", d.set, d.cleared)
	}
}

func TestBatchResult_Helpers(t *testing.T) {
	result := &BatchResult{Outcomes: []Outcome{
		{Path: "a.flac"},
		{Path: "b.flac", Err: errors.New("boom")},
		{Path: "c.flac"},
	}}

	if result.SavedCount() != 2 {
		t.Errorf("SavedCount = %d, want 2", result.SavedCount())
	}
	if result.FailedCount() != 1 {
		t.Errorf("FailedCount = %d, want 1", result.FailedCount())
	}
	failures := result.Failures()
	if len(failures) != 1 || failures[0].Path != "b.flac" {
		t.Errorf("Failures() = %+v, want the one failed outcome", failures)
	}
}
