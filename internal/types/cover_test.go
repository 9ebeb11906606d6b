package types

import (
	"bytes"
	"testing"
)

func TestDetectImageMIME(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{
			name: "PNG",
			data: []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00},
			want: "image/png",
		},
		{
			name: "JPEG",
			data: []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10},
			want: "image/jpeg",
		},
		{
			name: "GIF87a",
			data: []byte("GIF87a\x01\x00"),
			want: "image/gif",
		},
		{
			name: "GIF89a",
			data: []byte("GIF89a\x01\x00"),
			want: "image/gif",
		},
		{
			name: "WebP",
			data: []byte("RIFF\x00\x00\x00\x00WEBPVP8 "),
			want: "image/webp",
		},
		{
			name: "BMP",
			data: []byte("BM\x00\x00\x00\x00"),
			want: "image/bmp",
		},
		{
			name: "garbage",
			data: []byte{0x00, 0x01, 0x02, 0x03},
			want: "",
		},
		{
			name: "empty",
			data: nil,
			want: "",
		},
		{
			name: "truncated PNG magic",
			data: []byte{0x89, 'P', 'N', 'G'},
			want: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := DetectImageMIME(tc.data)
			if got != tc.want {
				t.Errorf("DetectImageMIME() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCover_Clone(t *testing.T) {
	original := &Cover{
		MIME:        MIMEJPEG,
		Description: "Front",
		Data:        []byte{0xFF, 0xD8, 0xFF},
	}

	clone := original.Clone()
	clone.Data[0] = 0x00
	clone.MIME = MIMEPNG

	if original.Data[0] != 0xFF {
		t.Error("modifying clone data affected original")
	}
	if original.MIME != MIMEJPEG {
		t.Error("modifying clone MIME affected original")
	}
	if !bytes.Equal(clone.Data, []byte{0x00, 0xD8, 0xFF}) {
		t.Errorf("clone data = %v, want modified copy", clone.Data)
	}
}

func TestCover_Clone_Nil(t *testing.T) {
	var cover *Cover
	if clone := cover.Clone(); clone != nil {
		t.Error("Clone() of nil should return nil")
	}
}

func TestCover_String(t *testing.T) {
	tests := []struct {
		name  string
		cover Cover
		want  string
	}{
		{
			name:  "small JPEG",
			cover: Cover{MIME: MIMEJPEG, Data: make([]byte, 512)},
			want:  "Front cover (JPEG, 512B)",
		},
		{
			name:  "kilobyte PNG",
			cover: Cover{MIME: MIMEPNG, Data: make([]byte, 245*1024)},
			want:  "Front cover (PNG, 245KB)",
		},
		{
			name:  "megabyte image",
			cover: Cover{MIME: MIMEJPEG, Data: make([]byte, 2*1024*1024)},
			want:  "Front cover (JPEG, 2.0MB)",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.cover.String()
			if got != tc.want {
				t.Errorf("Cover.String() = %q, want %q", got, tc.want)
			}
		})
	}
}
