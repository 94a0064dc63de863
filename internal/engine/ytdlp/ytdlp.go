// Package ytdlp adapts the yt-dlp command line tool to the engine contract.
// Metadata comes from --dump-json, content downloads stream progress through
// --newline output, and cancellation terminates the child process.
package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ytqueue/ytqueue/internal/engine"
	"github.com/ytqueue/ytqueue/internal/logctx"
)

// Engine drives the yt-dlp binary. It implements engine.Engine.
type Engine struct {
	binPath  string
	haveMux  bool
	infoArgs []string
}

// New probes for the muxer (ffmpeg) and returns a ready engine. A missing
// muxer is not an error; format selection falls back to pre-muxed streams.
func New(binPath, ffmpegPath string) *Engine {
	_, err := exec.LookPath(ffmpegPath)

	return &Engine{
		binPath:  binPath,
		haveMux:  err == nil,
		infoArgs: []string{"--dump-json", "--skip-download", "--no-warnings", "--no-playlist"},
	}
}

// HasMuxer reports whether ffmpeg was found at construction time.
func (e *Engine) HasMuxer() bool {
	return e.haveMux
}

// videoInfo mirrors the fields of yt-dlp's JSON dump that we consume.
type videoInfo struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Duration   float64 `json:"duration"`
	Thumbnail  string  `json:"thumbnail"`
	Uploader   string  `json:"uploader"`
	ViewCount  int64   `json:"view_count"`
	WebpageURL string  `json:"webpage_url"`
}

// FetchInfo retrieves metadata for a URL without downloading content.
func (e *Engine) FetchInfo(ctx context.Context, url string) (*engine.Metadata, error) {
	args := append(append([]string{}, e.infoArgs...), url)
	cmd := exec.CommandContext(ctx, e.binPath, args...)

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("fetch info failed: %w: %s", err, lastLine(stderr.String()))
	}

	info, err := parseInfoJSON(out)
	if err != nil {
		return nil, fmt.Errorf("fetch info failed: %w", err)
	}

	canonical := info.WebpageURL
	if canonical == "" {
		canonical = url
	}

	return &engine.Metadata{
		Title:        info.Title,
		DurationSec:  int(info.Duration),
		ThumbnailURL: info.Thumbnail,
		Uploader:     info.Uploader,
		ViewCount:    info.ViewCount,
		URL:          canonical,
		VideoID:      info.ID,
	}, nil
}

func parseInfoJSON(out []byte) (*videoInfo, error) {
	// --dump-json emits one JSON object per line; a single video yields one.
	line := bytes.TrimSpace(out)
	if idx := bytes.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}

	var info videoInfo
	if err := json.Unmarshal(line, &info); err != nil {
		return nil, fmt.Errorf("malformed info output: %w", err)
	}

	if info.Title == "" && info.ID == "" {
		return nil, fmt.Errorf("info output missing title and id")
	}

	return &info, nil
}

type handle struct {
	cancelled atomic.Bool
	stop      context.CancelFunc
}

func (h *handle) Cancel() {
	h.cancelled.Store(true)
	h.stop()
}

// StartDownload launches yt-dlp for the request and returns immediately.
// On success the completion message carries the output file path when it
// could be determined from the tool's output.
func (e *Engine) StartDownload(ctx context.Context, req engine.Request) (engine.Handle, error) {
	runCtx, stop := context.WithCancel(ctx)

	args := []string{
		"-f", engine.FormatExpression(req.Format, req.Quality, e.haveMux),
		"-o", engine.OutputTemplate(req.OutputDir, time.Now().UnixMilli()),
		"--newline",
		"--no-warnings",
		"--no-playlist",
	}

	switch {
	case req.Format == engine.FormatAudioOnly && e.haveMux:
		args = append(args, "-x", "--audio-format", "mp3", "--audio-quality", "192K")
	case req.Format == engine.FormatVideoAudio && e.haveMux:
		args = append(args, "--merge-output-format", "mp4")
	}

	args = append(args, req.URL)

	cmd := exec.CommandContext(runCtx, e.binPath, args...)

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stop()

		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stop()

		return nil, fmt.Errorf("failed to start %s: %w", e.binPath, err)
	}

	h := &handle{stop: stop}

	go e.pump(runCtx, cmd, stdout, &stderr, h, req)

	return h, nil
}

// pump consumes the process output, forwards progress, and fires the
// completion callback exactly once after the process exits.
func (e *Engine) pump(ctx context.Context, cmd *exec.Cmd, stdout io.Reader, stderr *bytes.Buffer, h *handle, req engine.Request) {
	logger := logctx.LoggerFromContext(ctx)

	var destPath string

	wg, _ := errgroup.WithContext(ctx)
	wg.Go(func() error {
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if h.cancelled.Load() {
				// Drain remaining output; the process is being torn down.
				continue
			}

			line := scanner.Text()
			if path, ok := parseDestination(line); ok {
				destPath = path

				continue
			}

			if p, ok := ParseProgressLine(line); ok && req.OnProgress != nil {
				req.OnProgress(p)
			}
		}

		return scanner.Err()
	})

	pumpErr := wg.Wait()
	waitErr := cmd.Wait()

	if h.cancelled.Load() {
		req.OnComplete(false, engine.CancelledMessage)

		return
	}

	if waitErr != nil {
		msg := lastLine(stderr.String())
		if msg == "" {
			msg = waitErr.Error()
		}

		if ctx.Err() != nil || engine.IsCancelMessage(msg) {
			req.OnComplete(false, engine.CancelledMessage)

			return
		}

		req.OnComplete(false, msg)

		return
	}

	if pumpErr != nil {
		logger.Warn("output scan ended early", "err", pumpErr)
	}

	if destPath != "" {
		req.OnComplete(true, destPath)

		return
	}

	req.OnComplete(true, "Download completed")
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}

	return ""
}
