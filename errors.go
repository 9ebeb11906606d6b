package metanote

import (
	"github.com/simonhull/metanote/internal/types"
)

// NotFoundError is an alias to types.NotFoundError.
// Re-exported from internal/types so callers never import internal packages.
type NotFoundError = types.NotFoundError

// OutOfBoundsError is an alias to types.OutOfBoundsError.
// Re-exported from internal/types so callers never import internal packages.
type OutOfBoundsError = types.OutOfBoundsError

// UnsupportedFormatError is an alias to types.UnsupportedFormatError.
// Re-exported from internal/types so callers never import internal packages.
type UnsupportedFormatError = types.UnsupportedFormatError

// CorruptedFileError is an alias to types.CorruptedFileError.
// Re-exported from internal/types so callers never import internal packages.
type CorruptedFileError = types.CorruptedFileError

// UnsupportedWriteError is an alias to types.UnsupportedWriteError.
// Re-exported from internal/types so callers never import internal packages.
type UnsupportedWriteError = types.UnsupportedWriteError

// WriteIOError is an alias to types.WriteIOError.
// Re-exported from internal/types so callers never import internal packages.
type WriteIOError = types.WriteIOError

// AtomTreeError is an alias to types.AtomTreeError.
// Re-exported from internal/types so callers never import internal packages.
type AtomTreeError = types.AtomTreeError

// CoverTooLargeError is an alias to types.CoverTooLargeError.
// Re-exported from internal/types so callers never import internal packages.
type CoverTooLargeError = types.CoverTooLargeError

// StaleReadError is an alias to types.StaleReadError.
// Re-exported from internal/types so callers never import internal packages.
type StaleReadError = types.StaleReadError

// UnsupportedImageTypeError is an alias to types.UnsupportedImageTypeError.
// Re-exported from internal/types so callers never import internal packages.
type UnsupportedImageTypeError = types.UnsupportedImageTypeError

// InvalidFieldValueError is an alias to types.InvalidFieldValueError.
// Re-exported from internal/types so callers never import internal packages.
type InvalidFieldValueError = types.InvalidFieldValueError

// CollisionError is an alias to types.CollisionError.
// Re-exported from internal/types so callers never import internal packages.
type CollisionError = types.CollisionError

// Warning is an alias to types.Warning.
// Re-exported from internal/types so callers never import internal packages.
type Warning = types.Warning
