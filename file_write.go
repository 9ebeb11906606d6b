package metanote

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/simonhull/metanote/internal/registry"
	"github.com/simonhull/metanote/internal/types"
)

// Save writes modified metadata back to the file.
//
// This is an atomic operation: the replacement file is written to a
// temporary file in the same directory, synced, then renamed over the
// original. If any step fails the original file remains unchanged.
//
// Save refuses to overwrite a file that changed on disk after it was
// opened (StaleReadError); pass WithForce to overwrite anyway. After a
// successful save the record tracks the new on-disk state, so repeated
// saves work without reopening.
//
// WAV files have no standard tag container: for them Save succeeds
// without touching the file, leaving it byte-identical.
//
// Options can be provided to customize save behavior:
//
//	err := file.Save(
//	    metanote.WithBackup(".bak"),
//	    metanote.WithVerify(),
//	)
func (f *File) Save(opts ...SaveOption) error { //nolint:gocyclo // Atomic file operations require sequential steps
	options := defaultSaveOptions()
	for _, opt := range opts {
		opt(options)
	}

	// Nothing to write for WAV; the no-op keeps batch operations over
	// mixed folders from failing on every .wav file.
	if f.Format == types.FormatWAV {
		return nil
	}

	// A replacement cover is re-checked here because Cover is an
	// exported field: callers that bypass ReplaceCover must not get
	// invalid image data onto disk. Covers parsed from the file and
	// left untouched pass through verbatim, whatever they are.
	if f.CoverDirty_ && f.Cover != nil {
		mime := types.DetectImageMIME(f.Cover.Data)
		if mime != types.MIMEJPEG && mime != types.MIMEPNG {
			return &types.UnsupportedImageTypeError{Detected: mime}
		}
		if int64(len(f.Cover.Data)) > MaxCoverBytes {
			return &types.CoverTooLargeError{
				Path: f.Path,
				Size: int64(len(f.Cover.Data)),
				Max:  MaxCoverBytes,
			}
		}
	}

	writer := registry.GetWriter(f.Format)
	if writer == nil {
		return &types.UnsupportedWriteError{
			Format: f.Format,
			Reason: "no writer registered",
		}
	}

	if f.Reader_ == nil {
		return fmt.Errorf("file not open: reader is nil")
	}

	info, err := os.Stat(f.Path)
	if err != nil {
		return &types.WriteIOError{Path: f.Path, Op: "stat", Err: err}
	}

	// Stale-read guard: mtime+size must still match the open snapshot.
	// Overwriting a file someone else rewrote would silently discard
	// their changes.
	if !options.force && !f.ModTime_.IsZero() {
		if !info.ModTime().Equal(f.ModTime_) || info.Size() != f.Size {
			return &types.StaleReadError{
				Path:      f.Path,
				OpenedAt:  f.ModTime_,
				ChangedAt: info.ModTime(),
			}
		}
	}

	outputDir := filepath.Dir(f.Path)
	tempFile, err := os.CreateTemp(outputDir, ".metanote-*.tmp")
	if err != nil {
		return &types.WriteIOError{Path: f.Path, Op: "create temp", Err: err}
	}
	tempPath := tempFile.Name()

	success := false
	defer func() {
		if !success {
			_ = tempFile.Close()    //nolint:errcheck // Best effort cleanup
			_ = os.Remove(tempPath) //nolint:errcheck // Best effort cleanup
		}
	}()

	if err := writer.Write(tempFile, &f.File, f.Reader_, f.Size); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		return &types.WriteIOError{Path: f.Path, Op: "sync", Err: err}
	}
	if err := tempFile.Close(); err != nil {
		return &types.WriteIOError{Path: f.Path, Op: "close temp", Err: err}
	}

	// Backups are copies, not moves: if the final rename fails the
	// original must still sit at its path.
	if options.backupSuffix != "" {
		if err := copyFile(f.Path, f.Path+options.backupSuffix); err != nil {
			return &types.WriteIOError{Path: f.Path, Op: "create backup", Err: err}
		}
	}

	if err := os.Rename(tempPath, f.Path); err != nil {
		return &types.WriteIOError{Path: f.Path, Op: "rename", Err: err}
	}
	success = true

	if options.preserveModTime {
		_ = os.Chtimes(f.Path, info.ModTime(), info.ModTime()) //nolint:errcheck // Non-fatal: file was written successfully
	}

	if err := f.refreshSnapshot(); err != nil {
		return err
	}

	if options.verify {
		if err := f.verifyWrittenFile(); err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
	}

	return nil
}

// refreshSnapshot reopens the record's handle on the just-written file
// and updates the size and modification snapshot, keeping the in-memory
// record coherent with disk so the next Save neither reads stale bytes
// nor trips its own stale guard.
func (f *File) refreshSnapshot() error {
	if closer, ok := f.Reader_.(io.Closer); ok {
		_ = closer.Close() //nolint:errcheck // The handle points at the replaced file
	}
	f.Reader_ = nil

	handle, err := os.Open(f.Path)
	if err != nil {
		return &types.WriteIOError{Path: f.Path, Op: "reopen", Err: err}
	}
	stat, err := handle.Stat()
	if err != nil {
		handle.Close()
		return &types.WriteIOError{Path: f.Path, Op: "stat", Err: err}
	}

	f.Reader_ = handle
	f.Size = stat.Size()
	f.ModTime_ = stat.ModTime()
	return nil
}

// verifyWrittenFile re-opens the written file and checks that the tags
// and cover read back as saved.
func (f *File) verifyWrittenFile() error {
	reread, err := Open(f.Path)
	if err != nil {
		return err
	}
	defer reread.Close()

	if !reread.Tags.Equal(&f.Tags) {
		return fmt.Errorf("tags read back differently")
	}
	if (reread.Cover == nil) != (f.Cover == nil) {
		return fmt.Errorf("cover presence read back differently")
	}
	if f.Cover != nil && len(reread.Cover.Data) != len(f.Cover.Data) {
		return fmt.Errorf("cover read back with %d bytes, wrote %d",
			len(reread.Cover.Data), len(f.Cover.Data))
	}
	return nil
}

// copyFile copies src to dst, replacing dst if it exists.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
