package metanote

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/simonhull/metanote/internal/registry"
	"github.com/simonhull/metanote/internal/types"

	// Format codecs register themselves with the registry in init().
	_ "github.com/simonhull/metanote/internal/flac"
	_ "github.com/simonhull/metanote/internal/m4a"
	_ "github.com/simonhull/metanote/internal/mp3"
	_ "github.com/simonhull/metanote/internal/ogg"
	_ "github.com/simonhull/metanote/internal/wav"
)

// File represents an opened audio file with parsed metadata.
//
// File provides access to the canonical tag fields (Tags), the embedded
// front cover (Cover, nil when the file has none), and technical audio
// properties (Audio). Edits accumulate in memory; Save writes them back
// atomically.
//
// Always call Close() when done to release the file handle:
//
//	file, err := metanote.Open("song.flac")
//	if err != nil {
//		return err
//	}
//	defer file.Close()
type File struct {
	types.File
}

// Open opens an audio file and reads its metadata.
//
// The format is detected from magic bytes, never the extension. Only
// the tag and header regions are parsed; audio content is not read
// into memory.
//
// If the file has damaged or unusual tag data, Open may return a
// partial File with warnings instead of an error. Check File.Warnings
// for details, or pass WithStrictParsing to turn any warning into a
// failure.
//
// Example:
//
//	file, err := metanote.Open("song.flac")
//	if err != nil {
//		return err
//	}
//	defer file.Close()
//	if artist, ok := file.Tags.Get(metanote.FieldArtist); ok {
//		fmt.Println(artist)
//	}
func Open(path string, opts ...Option) (*File, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &types.NotFoundError{Path: path, Err: err}
		}
		return nil, fmt.Errorf("open file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}

	file, err := openReader(f, stat.Size(), path, options)
	if err != nil {
		f.Close()
		return nil, err
	}

	// Keep the handle: Save re-reads the original through it, and the
	// modification snapshot backs the stale-read guard.
	file.Reader_ = f
	file.ModTime_ = stat.ModTime()

	if options.strictParsing && len(file.Warnings) > 0 {
		f.Close()
		return nil, fmt.Errorf("strict parsing failed: %s", file.Warnings[0].Message)
	}

	return file, nil
}

// openReader opens from an io.ReaderAt (internal, for testing)
func openReader(r io.ReaderAt, size int64, path string, options *openOptions) (*File, error) {
	format, err := types.DetectFormat(r, size, path)
	if err != nil {
		return nil, err
	}

	parser := registry.Get(format)
	if parser == nil {
		return nil, &types.UnsupportedFormatError{
			Path:   path,
			Reason: fmt.Sprintf("no parser available for format %s", format),
		}
	}

	parsed, err := parser.Parse(r, size, path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", format, err)
	}

	file := &File{File: *parsed}
	file.Path = path
	file.Format = format
	file.Size = size

	if options.ignoreWarnings {
		file.Warnings = nil
	}

	return file, nil
}

// Close releases the file handle held by the record.
//
// After Close, the File's parsed fields stay readable but Save will
// fail. Close is safe to call more than once.
func (f *File) Close() error {
	if closer, ok := f.Reader_.(io.Closer); ok {
		f.Reader_ = nil
		return closer.Close()
	}
	return nil
}

// OpenContext opens a file with context support for cancellation.
//
// This is a thin wrapper around Open() that checks the context before
// starting. Per-file parsing is fast enough that it is not interrupted
// midway; cancellation matters between files (see OpenMany).
func OpenContext(ctx context.Context, path string, opts ...Option) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Open(path, opts...)
}

// OpenMany opens multiple audio files concurrently.
//
// Files are parsed in parallel using up to runtime.NumCPU() goroutines.
// Results are returned in the same order as the input paths.
//
// If any file fails to open, all successfully opened files are closed
// and an error is returned.
//
// Example:
//
//	files, err := metanote.OpenMany(ctx, paths...)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer func() {
//		for _, f := range files {
//			f.Close()
//		}
//	}()
func OpenMany(ctx context.Context, paths ...string) ([]*File, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	results := make([]*File, len(paths))

	for i, path := range paths {
		// go directive < 1.22: capture per-iteration copies.
		i, path := i, path
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			file, err := Open(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			results[i] = file
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, file := range results {
			if file != nil {
				file.Close()
			}
		}
		return nil, err
	}

	return results, nil
}
