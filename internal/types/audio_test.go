package types

import "testing"

func TestAudioInfo_String(t *testing.T) {
	tests := []struct {
		name  string
		audio AudioInfo
		want  string
	}{
		{
			name: "full info",
			audio: AudioInfo{
				Codec:      "FLAC",
				SampleRate: 44100,
				BitDepth:   16,
				Channels:   2,
				Lossless:   true,
			},
			want: "FLAC 44.1kHz 16-bit stereo lossless",
		},
		{
			name: "lossy with bitrate",
			audio: AudioInfo{
				Codec:      "AAC",
				SampleRate: 44100,
				Channels:   2,
				Bitrate:    256000,
			},
			want: "AAC 44.1kHz stereo 256kbps",
		},
		{
			name: "VBR",
			audio: AudioInfo{
				Codec:      "MP3",
				SampleRate: 44100,
				Channels:   2,
				Bitrate:    320000,
				VBR:        true,
			},
			want: "MP3 44.1kHz stereo 320kbps VBR",
		},
		{
			name: "mono",
			audio: AudioInfo{
				Codec:      "AAC",
				SampleRate: 48000,
				Channels:   1,
			},
			want: "AAC 48.0kHz mono",
		},
		{
			name: "no sample rate",
			audio: AudioInfo{
				Codec:    "AC3",
				Channels: 6,
			},
			want: "AC3 5.1",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.audio.String()
			if got != tc.want {
				t.Errorf("AudioInfo.String() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestChannelDescription(t *testing.T) {
	tests := []struct {
		channels int
		want     string
	}{
		{0, ""},
		{1, "mono"},
		{2, "stereo"},
		{4, "quad"},
		{6, "5.1"},
		{8, "7.1"},
		{3, "3ch"},
		{10, "10ch"},
	}

	for _, tc := range tests {
		got := channelDescription(tc.channels)
		if got != tc.want {
			t.Errorf("channelDescription(%d) = %q, want %q", tc.channels, got, tc.want)
		}
	}
}
