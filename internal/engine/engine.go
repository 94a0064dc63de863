package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// Format selects which streams of a video are fetched.
type Format string

const (
	FormatAudioOnly  Format = "mp3"
	FormatVideoOnly  Format = "mp4_video"
	FormatVideoAudio Format = "mp4"
)

// Quality caps the video resolution. Only meaningful for video formats.
type Quality string

const (
	QualityBest  Quality = "best"
	Quality1080p Quality = "1080p"
	Quality720p  Quality = "720p"
	Quality480p  Quality = "480p"
)

// Metadata describes a video without downloading its content.
type Metadata struct {
	Title        string
	DurationSec  int
	ThumbnailURL string
	Uploader     string
	ViewCount    int64
	URL          string
	VideoID      string
}

// DurationString formats the duration as H:MM:SS or M:SS.
func (m *Metadata) DurationString() string {
	hours := m.DurationSec / 3600
	minutes := (m.DurationSec % 3600) / 60
	seconds := m.DurationSec % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}

	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// Progress is a point-in-time report of an in-flight transfer.
type Progress struct {
	DownloadedBytes int64
	TotalBytes      int64 // 0 when the engine cannot estimate the total
	Speed           float64
	ETASec          int
}

// Percent derives the completion percentage, 0 when the total is unknown.
func (p Progress) Percent() float64 {
	if p.TotalBytes <= 0 {
		return 0
	}

	return float64(p.DownloadedBytes) / float64(p.TotalBytes) * 100
}

// SpeedString formats the instantaneous speed for display.
func (p Progress) SpeedString() string {
	if p.Speed <= 0 {
		return ""
	}

	return humanize.Bytes(uint64(p.Speed)) + "/s"
}

// ProgressFunc receives progress reports while a transfer runs. It stops
// being invoked once CompleteFunc has fired.
type ProgressFunc func(Progress)

// CompleteFunc fires exactly once per started download, on a background
// goroutine, after the last progress report.
type CompleteFunc func(success bool, message string)

// Request describes one content download.
type Request struct {
	URL        string
	OutputDir  string
	Format     Format
	Quality    Quality
	OnProgress ProgressFunc
	OnComplete CompleteFunc
}

// Handle identifies a started download and lets the caller request
// cancellation. Cancellation is cooperative: the transfer aborts at the
// next progress boundary and completes with a cancelled message.
type Handle interface {
	Cancel()
}

// Engine is the external fetch/download tool behind a stable contract.
type Engine interface {
	// FetchInfo retrieves metadata without transferring content. A failure
	// yields an error, never partial metadata.
	FetchInfo(ctx context.Context, url string) (*Metadata, error)

	// StartDownload begins a transfer and returns immediately. Progress and
	// completion are delivered through the request callbacks.
	StartDownload(ctx context.Context, req Request) (Handle, error)
}

// ErrCancelled marks a download aborted by a cancel request, so the caller
// can tell it apart from a genuine transfer failure.
var ErrCancelled = errors.New("download cancelled")

// CancelledMessage is the completion message reported for cancelled
// downloads.
const CancelledMessage = "Download cancelled"

// IsCancelMessage reports whether a completion message indicates the
// transfer was cancelled rather than failed.
func IsCancelMessage(message string) bool {
	return strings.Contains(strings.ToLower(message), "cancel")
}

// ParseFormat maps a configured format name to a Format, defaulting to
// video+audio for unrecognized values.
func ParseFormat(s string) Format {
	switch Format(strings.ToLower(s)) {
	case FormatAudioOnly:
		return FormatAudioOnly
	case FormatVideoOnly:
		return FormatVideoOnly
	default:
		return FormatVideoAudio
	}
}

// ParseQuality maps a configured quality name to a Quality, defaulting to
// best for unrecognized values.
func ParseQuality(s string) Quality {
	switch Quality(strings.ToLower(s)) {
	case Quality1080p:
		return Quality1080p
	case Quality720p:
		return Quality720p
	case Quality480p:
		return Quality480p
	default:
		return QualityBest
	}
}

// FormatExpression maps format/quality to a yt-dlp selector. When no muxer
// (ffmpeg) is available, the selection falls back to pre-muxed single
// streams instead of a video-only+audio-only pair that could not be merged.
func FormatExpression(f Format, q Quality, haveMuxer bool) string {
	switch f {
	case FormatAudioOnly:
		if haveMuxer {
			return "bestaudio/best"
		}

		return "bestaudio[ext=m4a]/bestaudio/best"
	case FormatVideoOnly:
		return "bestvideo[ext=mp4]/bestvideo/best"
	default:
		if haveMuxer {
			switch q {
			case Quality1080p:
				return "bestvideo[height<=1080][ext=mp4]+bestaudio[ext=m4a]/bestvideo[height<=1080]+bestaudio/best[height<=1080]"
			case Quality720p:
				return "bestvideo[height<=720][ext=mp4]+bestaudio[ext=m4a]/bestvideo[height<=720]+bestaudio/best[height<=720]"
			case Quality480p:
				return "bestvideo[height<=480][ext=mp4]+bestaudio[ext=m4a]/bestvideo[height<=480]+bestaudio/best[height<=480]"
			default:
				return "bestvideo[ext=mp4]+bestaudio[ext=m4a]/bestvideo+bestaudio/best[ext=mp4]/best"
			}
		}

		switch q {
		case Quality1080p:
			return "best[height<=1080][ext=mp4]/best[height<=1080]/best"
		case Quality720p:
			return "best[height<=720][ext=mp4]/best[height<=720]/best"
		case Quality480p:
			return "best[height<=480][ext=mp4]/best[height<=480]/best"
		default:
			return "best[ext=mp4]/best"
		}
	}
}

// OutputTemplate builds the yt-dlp output template for a download. The
// millisecond timestamp suffix keeps concurrent downloads of identically
// titled videos from colliding in the shared output directory.
func OutputTemplate(outputDir string, timestampMillis int64) string {
	return fmt.Sprintf("%s/%%(title)s_%d.%%(ext)s", outputDir, timestampMillis)
}
