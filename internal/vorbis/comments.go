// Package vorbis provides shared Vorbis comment parsing and encoding.
//
// Vorbis comments are used by FLAC, Ogg Vorbis, and Opus. The payload
// format is identical across all three: a vendor string followed by
// UTF-8 "KEY=VALUE" entries with little-endian length prefixes.
package vorbis

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/simonhull/metanote/internal/binary"
	"github.com/simonhull/metanote/internal/types"
)

// DefaultVendor is written when a file gains a comment block it never
// had (a bare FLAC being tagged for the first time, for example).
// Existing vendor strings are always preserved.
const DefaultVendor = "metanote"

// fieldKeys maps each canonical field to its Vorbis comment keys, in
// priority order. The first key is the one written; the rest are
// read-only aliases. All of a field's keys are consumed on write so a
// stale alias cannot shadow an edit.
var fieldKeys = map[types.Field][]string{
	types.FieldTitle:   {"TITLE"},
	types.FieldArtist:  {"ARTIST"},
	types.FieldAlbum:   {"ALBUM"},
	types.FieldYear:    {"DATE", "YEAR"},
	types.FieldTrack:   {"TRACKNUMBER"},
	types.FieldGenre:   {"GENRE"},
	types.FieldComment: {"COMMENT", "DESCRIPTION"},
	types.FieldLyrics:  {"LYRICS", "UNSYNCEDLYRICS"},
}

// Comments holds a parsed Vorbis comment block.
//
// Items preserves every entry in file order, including entries with
// keys this module knows nothing about and entries that are not even
// valid KEY=VALUE pairs. Marshal re-emits them verbatim, so foreign
// tags (MusicBrainz IDs, ReplayGain, encoder settings) survive a
// read-modify-write cycle untouched.
type Comments struct {
	Vendor string
	Items  []string
}

// Parse decodes a Vorbis comment payload.
//
// data must start at the vendor length field: for FLAC that is the
// whole VORBIS_COMMENT block body, for Ogg the packet content after the
// "\x03vorbis" or "OpusTags" magic. A trailing framing bit, if any, is
// the caller's concern.
func Parse(data []byte, path string) (*Comments, error) {
	sr := binary.NewSafeReader(bytes.NewReader(data), int64(len(data)), path)
	r := binary.NewReader(sr, 0)

	vendorLen, err := binary.ReadValueLE[uint32](r, "vendor length")
	if err != nil {
		return nil, err
	}
	vendor, err := r.ReadString(int(vendorLen), "vendor string")
	if err != nil {
		return nil, err
	}

	count, err := binary.ReadValueLE[uint32](r, "comment count")
	if err != nil {
		return nil, err
	}

	// Each entry needs at least its 4-byte length prefix; a count
	// larger than that is a length-field lie, not a real comment list.
	remaining := int64(len(data)) - r.Offset()
	if int64(count) > remaining/4 {
		return nil, fmt.Errorf("comment count %d exceeds available data (%d bytes)", count, remaining)
	}

	c := &Comments{
		Vendor: vendor,
		Items:  make([]string, 0, count),
	}
	for i := uint32(0); i < count; i++ {
		entryLen, err := binary.ReadValueLE[uint32](r, "comment length")
		if err != nil {
			return nil, err
		}
		entry, err := r.ReadString(int(entryLen), "comment entry")
		if err != nil {
			return nil, err
		}
		c.Items = append(c.Items, entry)
	}

	return c, nil
}

// Marshal encodes the comment block payload.
//
// The output starts at the vendor length field; callers add whatever
// framing their container requires (FLAC block header, Ogg packet
// magic).
func (c *Comments) Marshal() []byte {
	buf := &bytes.Buffer{}
	cw := binary.NewChainWriter(binary.NewSafeWriter(buf))

	binary.WriteChainedLE(cw, uint32(len(c.Vendor)))
	cw.String(c.Vendor)
	binary.WriteChainedLE(cw, uint32(len(c.Items)))
	for _, item := range c.Items {
		binary.WriteChainedLE(cw, uint32(len(item)))
		cw.String(item)
	}

	// Writes to a bytes.Buffer cannot fail
	return buf.Bytes()
}

// Fill populates the canonical tag fields of file from the comments.
//
// For fields with several accepted keys the highest-priority key
// present wins; repeated keys keep their first value. Entries that are
// not KEY=VALUE pairs produce a warning and are otherwise ignored.
func (c *Comments) Fill(file *types.File) {
	for _, item := range c.Items {
		if !strings.Contains(item, "=") {
			file.Warnings = append(file.Warnings, types.Warning{
				Stage:   "metadata",
				Message: fmt.Sprintf("malformed vorbis comment (no '='): %q", truncate(item, 40)),
			})
		}
	}

	for _, field := range types.Fields() {
		for _, key := range fieldKeys[field] {
			if v, ok := c.Get(key); ok {
				file.Tags.Set(field, v)
				break
			}
		}
	}
}

// Apply replaces the canonical entries with the fields present in tags.
//
// Canonical entries come first in field order, followed by all foreign
// entries in their original order. Absent fields produce no entry, and
// any stale aliases of edited fields are dropped.
func (c *Comments) Apply(tags *types.Tags) {
	kept := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		if _, canonical := fieldForKey(itemKey(item)); !canonical {
			kept = append(kept, item)
		}
	}

	out := make([]string, 0, len(kept)+8)
	for _, field := range types.Fields() {
		if v, ok := tags.Get(field); ok {
			out = append(out, fieldKeys[field][0]+"="+v)
		}
	}
	c.Items = append(out, kept...)
}

// Add appends a KEY=VALUE entry.
func (c *Comments) Add(key, value string) {
	c.Items = append(c.Items, key+"="+value)
}

// Remove drops every entry stored under key, case-insensitively.
func (c *Comments) Remove(key string) {
	kept := c.Items[:0]
	for _, item := range c.Items {
		if !strings.EqualFold(itemKey(item), key) {
			kept = append(kept, item)
		}
	}
	c.Items = kept
}

// Get returns the first value stored under key. Key comparison is
// case-insensitive, per the Vorbis comment specification.
func (c *Comments) Get(key string) (string, bool) {
	for _, item := range c.Items {
		eq := strings.IndexByte(item, '=')
		if eq < 0 {
			continue
		}
		if strings.EqualFold(item[:eq], key) {
			return item[eq+1:], true
		}
	}
	return "", false
}

// itemKey returns the key portion of a KEY=VALUE entry, or the whole
// entry when there is no '='.
func itemKey(item string) string {
	if eq := strings.IndexByte(item, '='); eq >= 0 {
		return item[:eq]
	}
	return item
}

// fieldForKey reports which canonical field, if any, a comment key
// belongs to.
func fieldForKey(key string) (types.Field, bool) {
	for field, keys := range fieldKeys {
		for _, k := range keys {
			if strings.EqualFold(key, k) {
				return field, true
			}
		}
	}
	return "", false
}

// truncate shortens s for warning messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
