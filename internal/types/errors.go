package types

import (
	"fmt"
	"io/fs"
	"strings"
	"time"
)

// NotFoundError is returned when the target file does not exist.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: file not found", e.Path)
}

// Unwrap returns the underlying error so errors.Is(err, fs.ErrNotExist)
// keeps working.
func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return fs.ErrNotExist
}

// OutOfBoundsError is returned when attempting to read beyond file bounds.
type OutOfBoundsError struct {
	Path   string
	What   string
	Offset int64
	Length int
	Size   int64
}

func (e *OutOfBoundsError) Error() string {
	if e.Offset >= e.Size {
		return fmt.Sprintf("%s: offset %d out of bounds (file size: %d) while reading %s",
			e.Path, e.Offset, e.Size, e.What)
	}
	return fmt.Sprintf("%s: read of %d bytes at offset %d would exceed file size %d while reading %s",
		e.Path, e.Length, e.Offset, e.Size, e.What)
}

// UnsupportedFormatError is returned when the file content matches none
// of the supported formats. Detection looks at magic bytes only, so a
// renamed file fails with this error rather than being misparsed.
type UnsupportedFormatError struct {
	Path   string
	Reason string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("%s: unsupported format: %s", e.Path, e.Reason)
}

// CorruptedFileError is returned when file structure is invalid.
type CorruptedFileError struct {
	Path   string
	Reason string
	Offset int64
}

func (e *CorruptedFileError) Error() string {
	return fmt.Sprintf("%s: corrupted file at offset %d: %s", e.Path, e.Offset, e.Reason)
}

// UnsupportedWriteError indicates write is not supported for this format.
type UnsupportedWriteError struct {
	Reason string
	Format Format
}

func (e *UnsupportedWriteError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("write not supported for %s: %s", e.Format, e.Reason)
	}
	return fmt.Sprintf("write not supported for %s", e.Format)
}

// WriteIOError is returned when a filesystem operation fails during a
// save. Op names the failing step ("create temp", "rename", "sync").
type WriteIOError struct {
	Path string
	Op   string
	Err  error
}

func (e *WriteIOError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Path, e.Op, e.Err)
}

func (e *WriteIOError) Unwrap() error {
	return e.Err
}

// AtomTreeError is returned when an MP4 atom hierarchy is invalid or
// would become invalid after an edit. No bytes are written to disk when
// this error is returned.
type AtomTreeError struct {
	Path   string
	Atom   string
	Reason string
}

func (e *AtomTreeError) Error() string {
	if e.Atom != "" {
		return fmt.Sprintf("%s: invalid atom tree at %q: %s", e.Path, e.Atom, e.Reason)
	}
	return fmt.Sprintf("%s: invalid atom tree: %s", e.Path, e.Reason)
}

// CoverTooLargeError is returned when a cover image exceeds the
// configured size limit.
type CoverTooLargeError struct {
	Path string
	Size int64
	Max  int64
}

func (e *CoverTooLargeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("cover image is %d bytes, limit is %d", e.Size, e.Max)
	}
	return fmt.Sprintf("%s: cover image is %d bytes, limit is %d", e.Path, e.Size, e.Max)
}

// StaleReadError is returned when a save is refused because the file on
// disk changed after it was opened. Saving anyway would silently discard
// the other writer's changes; pass WithForce to overwrite deliberately.
type StaleReadError struct {
	Path      string
	OpenedAt  time.Time
	ChangedAt time.Time
}

func (e *StaleReadError) Error() string {
	return fmt.Sprintf("%s: file changed on disk since it was opened (opened %s, modified %s)",
		e.Path, e.OpenedAt.Format(time.RFC3339), e.ChangedAt.Format(time.RFC3339))
}

// UnsupportedImageTypeError is returned when cover data is not a PNG or
// JPEG image. Detected names what the bytes actually are ("image/gif"),
// or is empty when the data matches no known image type.
type UnsupportedImageTypeError struct {
	Detected string
}

func (e *UnsupportedImageTypeError) Error() string {
	if e.Detected == "" {
		return "unsupported image type: data is not a recognizable image"
	}
	return fmt.Sprintf("unsupported image type %s: only image/jpeg and image/png can be embedded", e.Detected)
}

// InvalidFieldValueError is returned when a field value cannot be
// represented in the target format.
type InvalidFieldValueError struct {
	Field  Field
	Value  string
	Reason string
}

func (e *InvalidFieldValueError) Error() string {
	return fmt.Sprintf("invalid value for %s: %s", e.Field, e.Reason)
}

// CollisionError is returned by the rename planner when two or more
// source files map to the same destination, or a destination already
// exists on disk. The planner never resolves collisions by overwriting.
type CollisionError struct {
	Target string
	Paths  []string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("rename collision: %d files map to %q: %s",
		len(e.Paths), e.Target, strings.Join(e.Paths, ", "))
}

// Warning represents a non-fatal issue encountered during parsing.
//
// Warnings indicate problems that don't prevent metadata extraction but
// may indicate corrupted or unusual data. Examples include:
//   - Invalid encoding in a tag
//   - A cover image with an unrecognized MIME type
//   - Unknown tag keys
//
// Warnings are collected in File.Warnings during parsing.
type Warning struct {
	// Stage where the warning occurred
	Stage string // "metadata", "technical", "cover"

	// Warning message
	Message string

	// File offset where the issue occurred (0 if not applicable)
	Offset int64
}

// String returns a human-readable warning message.
func (w Warning) String() string {
	if w.Offset > 0 {
		return fmt.Sprintf("%s (at offset %d): %s", w.Stage, w.Offset, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Stage, w.Message)
}
