package ogg

import (
	"encoding/binary"
	"fmt"

	"github.com/simonhull/metanote/internal/types"
	"github.com/simonhull/metanote/internal/vorbis"
)

// parseVorbisIdentification parses the Vorbis identification header
// (packet type 0x01): sample rate, channel count, and nominal bitrate.
func parseVorbisIdentification(data []byte, file *types.File) error {
	if len(data) < 30 {
		return fmt.Errorf("identification header too short: %d bytes", len(data))
	}

	// Packet type 0x01 = identification
	if data[0] != 0x01 {
		return fmt.Errorf("not an identification header (type 0x%02x)", data[0])
	}
	if string(data[1:7]) != "vorbis" {
		return fmt.Errorf("invalid vorbis magic: %q", string(data[1:7]))
	}

	vorbisVersion := binary.LittleEndian.Uint32(data[7:11])
	if vorbisVersion != 0 {
		return fmt.Errorf("unsupported Vorbis version: %d", vorbisVersion)
	}

	channels := data[11]
	sampleRate := binary.LittleEndian.Uint32(data[12:16])
	bitrateNominal := binary.LittleEndian.Uint32(data[20:24])

	file.Audio.Codec = "Vorbis"
	file.Audio.Container = containerOgg
	file.Audio.SampleRate = int(sampleRate)
	file.Audio.Channels = int(channels)
	file.Audio.Bitrate = int(bitrateNominal)
	file.Audio.Lossless = false
	file.Audio.VBR = true

	return nil
}

// vorbisCommentPayload strips the "\x03vorbis" packet framing and
// returns the comment data that follows it. The trailing framing bit,
// when present, is harmless: the comment parser reads exactly the
// entries the count announces.
func vorbisCommentPayload(packet []byte) ([]byte, error) {
	if len(packet) < 7 {
		return nil, fmt.Errorf("comment header too short: %d bytes", len(packet))
	}
	if packet[0] != 0x03 {
		return nil, fmt.Errorf("not a comment header (type 0x%02x)", packet[0])
	}
	if string(packet[1:7]) != "vorbis" {
		return nil, fmt.Errorf("invalid vorbis magic: %q", string(packet[1:7]))
	}
	return packet[7:], nil
}

// buildVorbisCommentPacket frames a comment block as a Vorbis comment
// packet, framing bit included.
func buildVorbisCommentPacket(c *vorbis.Comments) []byte {
	payload := c.Marshal()
	packet := make([]byte, 0, 7+len(payload)+1)
	packet = append(packet, 0x03)
	packet = append(packet, "vorbis"...)
	packet = append(packet, payload...)
	packet = append(packet, 0x01)
	return packet
}
