// Package wav probes technical info from RIFF/WAVE files.
//
// WAV has no standard tag container, so parsed files carry no fields
// and no cover art; only the fmt chunk's technical properties are
// reported. There is no writer: saving a WAV file is a documented
// no-op at the engine level.
package wav

import (
	"fmt"
	"io"

	gowav "github.com/go-audio/wav"

	"github.com/simonhull/metanote/internal/registry"
	"github.com/simonhull/metanote/internal/types"
)

// Wave format codes from the fmt chunk.
const (
	formatPCM        = 1
	formatIEEEFloat  = 3
	formatALaw       = 6
	formatULaw       = 7
	formatExtensible = 0xFFFE
)

// parser implements the registry.FormatParser interface for WAV files
type parser struct{}

// Parse reads the fmt chunk through go-audio's decoder. Tags stay
// empty: absence of a tag container is part of the format contract,
// not a parse failure.
func (p *parser) Parse(r io.ReaderAt, size int64, path string) (*types.File, error) {
	file := &types.File{
		Path:   path,
		Format: types.FormatWAV,
		Size:   size,
		Tags:   types.Tags{},
		Audio:  types.AudioInfo{},
	}

	d := gowav.NewDecoder(io.NewSectionReader(r, 0, size))
	if !d.IsValidFile() {
		reason := "not a valid RIFF/WAVE file"
		if err := d.Err(); err != nil {
			reason = err.Error()
		}
		return nil, &types.CorruptedFileError{
			Path:   path,
			Reason: reason,
		}
	}
	d.ReadInfo()

	file.Audio.Container = "WAV"
	file.Audio.Codec = codecName(d.WavAudioFormat)
	file.Audio.SampleRate = int(d.SampleRate)
	file.Audio.Channels = int(d.NumChans)
	file.Audio.BitDepth = int(d.BitDepth)
	file.Audio.Lossless = isLossless(d.WavAudioFormat)
	file.Audio.Bitrate = int(d.AvgBytesPerSec) * 8

	if duration, err := d.Duration(); err == nil {
		file.Audio.Duration = duration
	} else {
		file.Warnings = append(file.Warnings, types.Warning{
			Stage:   "technical",
			Message: fmt.Sprintf("failed to compute duration: %v", err),
		})
	}

	return file, nil
}

// codecName maps a wave format code to a human-readable name.
func codecName(format uint16) string {
	switch format {
	case formatPCM:
		return "PCM"
	case formatIEEEFloat:
		return "PCM (float)"
	case formatALaw:
		return "A-law"
	case formatULaw:
		return "u-law"
	case formatExtensible:
		// Extensible wraps PCM in practice; the sub-format GUID is not
		// exposed by the decoder
		return "PCM"
	default:
		return fmt.Sprintf("WAVE format %d", format)
	}
}

// isLossless reports whether the format code is an uncompressed PCM
// variant. Companded A-law/u-law streams are lossy.
func isLossless(format uint16) bool {
	switch format {
	case formatPCM, formatIEEEFloat, formatExtensible:
		return true
	default:
		return false
	}
}

// init registers the WAV parser. No writer is registered: the format
// has nothing to write.
func init() {
	registry.Register(types.FormatWAV, &parser{})
}
