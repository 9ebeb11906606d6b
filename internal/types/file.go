// Package types provides core data structures for audio file metadata.
//
// This package defines the File, Tags, Cover, and AudioInfo types that
// represent parsed audio file information across all supported formats.
package types

import (
	"io"
	"time"
)

// File represents an opened audio file with parsed metadata.
//
// File provides access to the canonical tag fields (Tags), the embedded
// front cover (Cover, nil when the file has none), and technical audio
// properties (Audio).
//
// Always call Close() when done to release file resources:
//
//	file, err := metanote.Open("song.flac")
//	if err != nil {
//		return err
//	}
//	defer file.Close()
type File struct {
	Reader_  io.ReaderAt //nolint:revive // Underscore indicates internal/unexported semantics
	Cover    *Cover
	Path     string
	Warnings []Warning
	Tags     Tags
	Audio    AudioInfo
	Format   Format
	Size     int64
	ModTime_ time.Time //nolint:revive // Underscore indicates internal/unexported semantics

	// CoverDirty_ records that the cover was replaced or removed since
	// parsing. Writers preserve embedded images verbatim unless it is
	// set; when set, they drop every stored image and emit Cover alone.
	CoverDirty_ bool //nolint:revive // Underscore indicates internal/unexported semantics
}
