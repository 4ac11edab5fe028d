package catalog

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grafov/m3u8"
	"github.com/tszym/driveframe/internal/ui"
)

// probeTimeout bounds a single ffprobe invocation so a bad file can never
// stall a catalog build.
const probeTimeout = 10 * time.Second

// Probe annotates video items with their playback duration. HLS playlists
// are parsed in-process; everything else is handed to ffprobe. A missing
// ffprobe binary is reported once and the probe degrades to "no hint".
type Probe struct {
	FfprobeName string

	missingOnce sync.Once
	missing     bool
}

// NewProbe resolves the ffprobe binary name, defaulting to "ffprobe" on PATH.
func NewProbe(ffprobeName string) *Probe {
	if strings.TrimSpace(ffprobeName) == "" {
		ffprobeName = "ffprobe"
	}
	return &Probe{FfprobeName: ffprobeName}
}

// Duration returns the media duration and whether it is known. Absence is
// not an error: the caller's fallback timeout governs playback timing.
func (p *Probe) Duration(path string) (time.Duration, bool) {
	if strings.HasSuffix(strings.ToLower(path), ".m3u8") {
		return playlistDuration(path)
	}
	return p.ffprobeDuration(path)
}

// playlistDuration sums the segment durations of a local HLS media playlist.
// Master playlists carry no timing and yield no hint.
func playlistDuration(path string) (time.Duration, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	playlist, listType, err := m3u8.DecodeFrom(f, true)
	if err != nil || listType != m3u8.MEDIA {
		return 0, false
	}
	media := playlist.(*m3u8.MediaPlaylist)

	var total float64
	for _, seg := range media.Segments {
		if seg == nil {
			break
		}
		total += seg.Duration
	}
	if total <= 0 {
		return 0, false
	}
	return time.Duration(total * float64(time.Second)), true
}

// ffprobeDuration shells out to ffprobe for the container duration.
func (p *Probe) ffprobeDuration(path string) (time.Duration, bool) {
	if _, err := exec.LookPath(p.FfprobeName); err != nil {
		p.missingOnce.Do(func() {
			p.missing = true
			ui.PrintDebug(fmt.Sprintf("%s not installed; falling back to the default video timeout", p.FfprobeName))
		})
		return 0, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, p.FfprobeName,
		"-v", "error",
		"-of", "default=noprint_wrappers=1:nokey=1",
		"-show_entries", "format=duration",
		path,
	)
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		ui.PrintDebug(fmt.Sprintf("failed to probe duration for %s: %v", path, err))
		return 0, false
	}

	secs, err := strconv.ParseFloat(strings.TrimSpace(out.String()), 64)
	if err != nil || secs <= 0 {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}
