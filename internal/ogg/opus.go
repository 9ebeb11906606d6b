package ogg

import (
	"encoding/binary"
	"fmt"

	"github.com/simonhull/metanote/internal/types"
	"github.com/simonhull/metanote/internal/vorbis"
)

const opusTagsMagic = "OpusTags"

// parseOpusHead parses the OpusHead identification header.
//
// Opus always decodes at 48 kHz; the input sample rate in the header
// records the original material and is informational only.
func parseOpusHead(data []byte, file *types.File) error {
	if len(data) < 19 {
		return fmt.Errorf("OpusHead packet too short: %d bytes (need at least 19)", len(data))
	}

	if string(data[0:8]) != "OpusHead" {
		return fmt.Errorf("invalid OpusHead magic: %q", string(data[0:8]))
	}

	version := data[8]
	if version != 1 {
		return fmt.Errorf("unsupported Opus version: %d (only version 1 is supported)", version)
	}

	channels := data[9]
	inputSampleRate := binary.LittleEndian.Uint32(data[12:16])
	outputGain := int16(binary.LittleEndian.Uint16(data[16:18]))

	file.Audio.Codec = "Opus"
	file.Audio.Container = containerOgg
	file.Audio.SampleRate = 48000
	file.Audio.Channels = int(channels)
	file.Audio.Lossless = false
	file.Audio.VBR = true

	if inputSampleRate != 48000 && inputSampleRate > 0 {
		file.Warnings = append(file.Warnings, types.Warning{
			Stage:   "technical",
			Message: fmt.Sprintf("original sample rate was %d Hz (Opus outputs at 48 kHz)", inputSampleRate),
		})
	}

	if outputGain != 0 {
		gainDB := float64(outputGain) / 256.0
		file.Warnings = append(file.Warnings, types.Warning{
			Stage:   "technical",
			Message: fmt.Sprintf("output gain: %.2f dB", gainDB),
		})
	}

	return nil
}

// opusTagsPayload strips the "OpusTags" packet framing and returns the
// comment data that follows it. The layout after the magic is
// identical to a Vorbis comment block.
func opusTagsPayload(packet []byte) ([]byte, error) {
	if len(packet) < 8 {
		return nil, fmt.Errorf("OpusTags packet too short: %d bytes", len(packet))
	}
	if string(packet[0:8]) != opusTagsMagic {
		return nil, fmt.Errorf("invalid OpusTags magic: %q", string(packet[0:8]))
	}
	return packet[8:], nil
}

// buildOpusTagsPacket frames a comment block as an OpusTags packet.
// Unlike Vorbis, Opus uses no trailing framing bit.
func buildOpusTagsPacket(c *vorbis.Comments) []byte {
	payload := c.Marshal()
	packet := make([]byte, 0, 8+len(payload))
	packet = append(packet, opusTagsMagic...)
	packet = append(packet, payload...)
	return packet
}
