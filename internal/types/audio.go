package types

import (
	"fmt"
	"time"
)

// AudioInfo represents technical audio properties.
//
// AudioInfo provides format-agnostic access to technical metadata such
// as duration, sample rate, bit depth, and channel count. Fields a
// format cannot express are left zero (MP3 has no bit depth, for
// example).
type AudioInfo struct {
	Codec      string
	Container  string
	Duration   time.Duration
	SampleRate int
	BitDepth   int
	Channels   int
	Bitrate    int
	Lossless   bool
	VBR        bool
}

// String returns a human-readable representation of the audio info.
// Example output: "FLAC 44.1kHz 16-bit stereo lossless".
func (a AudioInfo) String() string {
	sampleRate := ""
	if a.SampleRate > 0 {
		sampleRate = fmt.Sprintf("%.1fkHz", float64(a.SampleRate)/1000)
	}

	bitDepth := ""
	if a.BitDepth > 0 {
		bitDepth = fmt.Sprintf("%d-bit", a.BitDepth)
	}

	channels := channelDescription(a.Channels)

	quality := ""
	if a.Lossless {
		quality = "lossless"
	} else if a.Bitrate > 0 {
		quality = fmt.Sprintf("%dkbps", a.Bitrate/1000)
		if a.VBR {
			quality += " VBR"
		}
	}

	return join([]string{a.Codec, sampleRate, bitDepth, channels, quality}, " ")
}

// channelDescription returns a human-readable channel description.
func channelDescription(channels int) string {
	switch channels {
	case 0:
		return ""
	case 1:
		return "mono"
	case 2:
		return "stereo"
	case 4:
		return "quad"
	case 6:
		return "5.1"
	case 8:
		return "7.1"
	default:
		return fmt.Sprintf("%dch", channels)
	}
}

// join concatenates strings with a separator, skipping empty strings.
func join(parts []string, sep string) string {
	var result string
	for _, part := range parts {
		if part == "" {
			continue
		}
		if result != "" {
			result += sep
		}
		result += part
	}
	return result
}
