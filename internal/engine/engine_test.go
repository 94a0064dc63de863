package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatExpression(t *testing.T) {
	tests := []struct {
		name      string
		format    Format
		quality   Quality
		haveMuxer bool
		expect    string
	}{
		{
			name:      "audio only with muxer",
			format:    FormatAudioOnly,
			quality:   QualityBest,
			haveMuxer: true,
			expect:    "bestaudio/best",
		},
		{
			name:      "audio only without muxer",
			format:    FormatAudioOnly,
			quality:   QualityBest,
			haveMuxer: false,
			expect:    "bestaudio[ext=m4a]/bestaudio/best",
		},
		{
			name:      "video only ignores muxer",
			format:    FormatVideoOnly,
			quality:   QualityBest,
			haveMuxer: false,
			expect:    "bestvideo[ext=mp4]/bestvideo/best",
		},
		{
			name:      "video+audio best with muxer",
			format:    FormatVideoAudio,
			quality:   QualityBest,
			haveMuxer: true,
			expect:    "bestvideo[ext=mp4]+bestaudio[ext=m4a]/bestvideo+bestaudio/best[ext=mp4]/best",
		},
		{
			name:      "video+audio 1080p with muxer",
			format:    FormatVideoAudio,
			quality:   Quality1080p,
			haveMuxer: true,
			expect:    "bestvideo[height<=1080][ext=mp4]+bestaudio[ext=m4a]/bestvideo[height<=1080]+bestaudio/best[height<=1080]",
		},
		{
			name:      "video+audio 720p with muxer",
			format:    FormatVideoAudio,
			quality:   Quality720p,
			haveMuxer: true,
			expect:    "bestvideo[height<=720][ext=mp4]+bestaudio[ext=m4a]/bestvideo[height<=720]+bestaudio/best[height<=720]",
		},
		{
			name:      "video+audio 480p without muxer",
			format:    FormatVideoAudio,
			quality:   Quality480p,
			haveMuxer: false,
			expect:    "best[height<=480][ext=mp4]/best[height<=480]/best",
		},
		{
			name:      "video+audio best without muxer",
			format:    FormatVideoAudio,
			quality:   QualityBest,
			haveMuxer: false,
			expect:    "best[ext=mp4]/best",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, FormatExpression(tt.format, tt.quality, tt.haveMuxer))
		})
	}
}

func TestProgressPercent(t *testing.T) {
	assert.InDelta(t, 50.0, Progress{DownloadedBytes: 50, TotalBytes: 100}.Percent(), 0.001)
	assert.Zero(t, Progress{DownloadedBytes: 50}.Percent())
	assert.InDelta(t, 100.0, Progress{DownloadedBytes: 200, TotalBytes: 200}.Percent(), 0.001)
}

func TestProgressSpeedString(t *testing.T) {
	assert.Empty(t, Progress{}.SpeedString())
	assert.NotEmpty(t, Progress{Speed: 2 * 1024 * 1024}.SpeedString())
}

func TestMetadataDurationString(t *testing.T) {
	assert.Equal(t, "3:25", (&Metadata{DurationSec: 205}).DurationString())
	assert.Equal(t, "0:05", (&Metadata{DurationSec: 5}).DurationString())
	assert.Equal(t, "1:01:05", (&Metadata{DurationSec: 3665}).DurationString())
}

func TestIsCancelMessage(t *testing.T) {
	assert.True(t, IsCancelMessage(CancelledMessage))
	assert.True(t, IsCancelMessage("operation Cancelled by user"))
	assert.False(t, IsCancelMessage("network timeout"))
	assert.False(t, IsCancelMessage(""))
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatAudioOnly, ParseFormat("mp3"))
	assert.Equal(t, FormatVideoOnly, ParseFormat("MP4_VIDEO"))
	assert.Equal(t, FormatVideoAudio, ParseFormat("mp4"))
	assert.Equal(t, FormatVideoAudio, ParseFormat("something-else"))
}

func TestParseQuality(t *testing.T) {
	assert.Equal(t, Quality1080p, ParseQuality("1080p"))
	assert.Equal(t, Quality720p, ParseQuality("720P"))
	assert.Equal(t, Quality480p, ParseQuality("480p"))
	assert.Equal(t, QualityBest, ParseQuality("best"))
	assert.Equal(t, QualityBest, ParseQuality("4k"))
}

func TestOutputTemplate(t *testing.T) {
	assert.Equal(t, "/tmp/out/%(title)s_1700000000000.%(ext)s", OutputTemplate("/tmp/out", 1700000000000))
}
