package metanote

import (
	"github.com/simonhull/metanote/internal/types"
)

// coverAction says what a delta does to the embedded cover.
type coverAction int

const (
	coverKeep coverAction = iota
	coverReplace
	coverRemove
)

// Delta is a sparse set of metadata edits applied uniformly to many
// files. Fields the delta does not mention are left exactly as each
// file has them; setting, clearing, and cover changes are all explicit.
//
// Build a Delta with NewDelta and the delta options:
//
//	delta := metanote.NewDelta(
//	    metanote.SetField(metanote.FieldAlbum, "Motorway"),
//	    metanote.ClearField(metanote.FieldComment),
//	    metanote.SetCover(jpegBytes),
//	)
//
// A Delta is immutable once built and safe to apply to any number of
// files, concurrently.
type Delta struct {
	set     map[types.Field]string
	cleared map[types.Field]bool
	cover   []byte
	action  coverAction
}

// DeltaOption adds one edit to a Delta under construction.
type DeltaOption func(*Delta)

// NewDelta builds a Delta from the given edits.
//
// Later options win over earlier ones for the same field, so
// NewDelta(SetField(f, "a"), ClearField(f)) clears f. A Delta with no
// options is valid and edits nothing; applying it saves files
// unchanged.
func NewDelta(opts ...DeltaOption) *Delta {
	d := &Delta{
		set:     make(map[types.Field]string),
		cleared: make(map[types.Field]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetField sets a canonical field to a value on every file the delta is
// applied to. An empty value is valid: the field stays present, empty.
func SetField(field Field, value string) DeltaOption {
	return func(d *Delta) {
		delete(d.cleared, field)
		d.set[field] = value
	}
}

// ClearField removes a canonical field from every file the delta is
// applied to.
func ClearField(field Field) DeltaOption {
	return func(d *Delta) {
		delete(d.set, field)
		d.cleared[field] = true
	}
}

// SetCover replaces the embedded front cover on every file the delta is
// applied to. The data is validated once, when the batch starts: it
// must be a JPEG or PNG within MaxCoverBytes, or the whole batch fails
// before any file is touched.
func SetCover(data []byte) DeltaOption {
	return func(d *Delta) {
		buf := make([]byte, len(data))
		copy(buf, data)
		d.cover = buf
		d.action = coverReplace
	}
}

// ClearCover removes the embedded cover (and any secondary images) from
// every file the delta is applied to.
func ClearCover() DeltaOption {
	return func(d *Delta) {
		d.cover = nil
		d.action = coverRemove
	}
}

// IsZero reports whether the delta edits nothing.
func (d *Delta) IsZero() bool {
	return len(d.set) == 0 && len(d.cleared) == 0 && d.action == coverKeep
}

// validate checks the parts of the delta that can fail independently of
// any file, so a bad delta aborts a batch before the first write.
func (d *Delta) validate() error {
	if d.action != coverReplace {
		return nil
	}
	mime := types.DetectImageMIME(d.cover)
	if mime != types.MIMEJPEG && mime != types.MIMEPNG {
		return &types.UnsupportedImageTypeError{Detected: mime}
	}
	if int64(len(d.cover)) > MaxCoverBytes {
		return &types.CoverTooLargeError{
			Size: int64(len(d.cover)),
			Max:  MaxCoverBytes,
		}
	}
	return nil
}

// apply mutates a single record in memory. The caller holds a snapshot
// for rollback if the save that follows fails.
func (d *Delta) apply(f *File) error {
	for field, value := range d.set {
		f.Tags.Set(field, value)
	}
	for field := range d.cleared {
		f.Tags.Clear(field)
	}

	switch d.action {
	case coverReplace:
		if err := f.ReplaceCover(d.cover); err != nil {
			return err
		}
	case coverRemove:
		f.RemoveCover()
	case coverKeep:
	}
	return nil
}
