package types

import (
	"bytes"
	"fmt"
)

// MIME types for embedded cover images.
const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
)

// Cover represents the embedded front cover image of an audio file.
//
// Only one cover per file is modeled. Files carrying multiple embedded
// images expose the front cover (or the first image when no picture is
// marked as such); the rest are ignored.
type Cover struct {
	// MIME type of the image data: "image/jpeg" or "image/png".
	MIME string

	// Description of the image (optional, preserved where the format
	// stores one).
	Description string

	// Image binary data.
	Data []byte
}

// Clone creates a deep copy of the cover.
func (c *Cover) Clone() *Cover {
	if c == nil {
		return nil
	}
	clone := &Cover{
		MIME:        c.MIME,
		Description: c.Description,
		Data:        make([]byte, len(c.Data)),
	}
	copy(clone.Data, c.Data)
	return clone
}

// String returns a human-readable description of the cover.
//
// Example output: "Front cover (JPEG, 245KB)"
func (c *Cover) String() string {
	return fmt.Sprintf("Front cover (%s, %s)", mimeToFormat(c.MIME), formatSize(len(c.Data)))
}

// DetectImageMIME determines the image type by examining magic bytes.
//
// Returns "image/jpeg" or "image/png" for the accepted types. For
// recognizable but unsupported images it returns a descriptive name
// ("image/gif", "image/webp", "image/bmp") so errors can say what was
// actually provided; unknown data returns "".
//
// The file name or claimed MIME type is never consulted: a GIF renamed
// to cover.png is still detected as a GIF.
func DetectImageMIME(data []byte) string {
	switch {
	case len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}):
		return MIMEPNG
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return MIMEJPEG
	case len(data) >= 6 && (bytes.Equal(data[:6], []byte("GIF87a")) || bytes.Equal(data[:6], []byte("GIF89a"))):
		return "image/gif"
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "image/webp"
	case len(data) >= 2 && data[0] == 'B' && data[1] == 'M':
		return "image/bmp"
	default:
		return ""
	}
}

// formatSize formats byte size in human-readable form.
func formatSize(bytes int) string {
	const (
		KB = 1024
		MB = 1024 * KB
	)

	switch {
	case bytes >= MB:
		return fmt.Sprintf("%.1fMB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%dKB", bytes/KB)
	default:
		return fmt.Sprintf("%dB", bytes)
	}
}

// mimeToFormat converts MIME type to short format name.
func mimeToFormat(mime string) string {
	switch mime {
	case "image/jpeg":
		return "JPEG"
	case "image/png":
		return "PNG"
	case "image/gif":
		return "GIF"
	case "image/bmp":
		return "BMP"
	case "image/webp":
		return "WebP"
	default:
		return "Image"
	}
}
