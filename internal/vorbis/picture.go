package vorbis

import (
	"encoding/base64"
	"fmt"

	"github.com/go-flac/flacpicture"
	flaclib "github.com/go-flac/go-flac"

	"github.com/simonhull/metanote/internal/types"
)

// PictureKey is the comment key that carries embedded artwork in Ogg
// streams: a base64-encoded FLAC picture block, per the Vorbis comment
// extension FLAC-based players agreed on.
const PictureKey = "METADATA_BLOCK_PICTURE"

// ParsePictureItem decodes one METADATA_BLOCK_PICTURE value.
//
// Returns the cover and the FLAC picture type (3 = front cover).
func ParsePictureItem(value string) (*types.Cover, uint32, error) {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid base64: %w", err)
	}

	pic, err := flacpicture.ParseFromMetaDataBlock(flaclib.MetaDataBlock{
		Type: flaclib.Picture,
		Data: raw,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("invalid picture block: %w", err)
	}

	return &types.Cover{
		Data:        pic.ImageData,
		MIME:        pic.MIME,
		Description: pic.Description,
	}, uint32(pic.PictureType), nil
}

// BuildPictureItem encodes a cover as a METADATA_BLOCK_PICTURE value.
// The embedded picture block always uses the front cover type.
func BuildPictureItem(c *types.Cover) (string, error) {
	pic, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, c.Description, c.Data, c.MIME)
	if err != nil {
		return "", err
	}
	block := pic.Marshal()
	return base64.StdEncoding.EncodeToString(block.Data), nil
}
