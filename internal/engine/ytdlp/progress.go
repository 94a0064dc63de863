package ytdlp

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/ytqueue/ytqueue/internal/engine"
)

// Progress lines look like:
//
//	[download]  42.5% of 10.00MiB at 1.20MiB/s ETA 00:32
//	[download]  42.5% of ~10.00MiB at Unknown speed ETA Unknown
//	[download] 100% of 10.00MiB in 00:05
var progressRe = regexp.MustCompile(
	`^\[download\]\s+([\d.]+)% of ~?\s*([\d.]+[KMGTP]?i?B)(?:\s+at\s+(\S+))?(?:\s+ETA\s+(\S+))?`)

var destinationRe = regexp.MustCompile(
	`^\[(?:download|ExtractAudio)\] Destination: (.+)$|^\[Merger\] Merging formats into "(.+)"$`)

// ParseProgressLine converts one --newline progress line into a progress
// report. Lines that are not progress reports return ok=false.
func ParseProgressLine(line string) (engine.Progress, bool) {
	m := progressRe.FindStringSubmatch(line)
	if m == nil {
		return engine.Progress{}, false
	}

	percent, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return engine.Progress{}, false
	}

	var p engine.Progress

	if total, err := humanize.ParseBytes(m[2]); err == nil {
		p.TotalBytes = int64(total)
		p.DownloadedBytes = int64(percent / 100 * float64(total))
	}

	if m[3] != "" && strings.HasSuffix(m[3], "/s") {
		if speed, err := humanize.ParseBytes(strings.TrimSuffix(m[3], "/s")); err == nil {
			p.Speed = float64(speed)
		}
	}

	if m[4] != "" {
		p.ETASec = parseClock(m[4])
	}

	return p, true
}

// parseDestination extracts the output file path from destination and merge
// lines. The merger line wins when both appear, since it reports the final
// muxed file.
func parseDestination(line string) (string, bool) {
	m := destinationRe.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}

	if m[2] != "" {
		return m[2], true
	}

	return m[1], true
}

// parseClock parses MM:SS or HH:MM:SS, returning 0 for anything else.
func parseClock(s string) int {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}

	total := 0

	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0
		}

		total = total*60 + n
	}

	return total
}
