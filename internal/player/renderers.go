package player

import (
	"strconv"
	"time"

	"github.com/tszym/driveframe/internal/model"
)

// videoPadding is added on top of a probed duration so a renderer that is
// merely slow to tear down is not mistaken for a hang.
const videoPadding = 10 * time.Second

// command is one fully resolved render invocation.
type command struct {
	Name    string
	Args    []string
	Timeout time.Duration
}

// imageCommand builds the invocation for displaying a still image. feh has no
// self-exit mode, so its attempt relies on the runner timing out; that timeout
// is the normal end of a slide, not a failure. fbi exits on its own via
// --timeout, the runner deadline is only a backstop.
func imageCommand(renderer, path string, delay time.Duration) command {
	secs := int(delay / time.Second)
	if secs < 1 {
		secs = 1
	}
	switch renderer {
	case "fbi":
		return command{
			Name:    "fbi",
			Args:    []string{"--noverbose", "--autozoom", "--timeout", strconv.Itoa(secs), path},
			Timeout: delay + termBackstop,
		}
	default:
		if renderer == "" {
			renderer = "feh"
		}
		return command{
			Name:    renderer,
			Args:    []string{"--fullscreen", "--hide-pointer", "--auto-zoom", "--quiet", "--no-fehbg", path},
			Timeout: delay,
		}
	}
}

// termBackstop is the slack granted to renderers that exit on their own.
const termBackstop = 5 * time.Second

// videoCommand builds the invocation for a video. The attempt deadline is the
// probed duration plus padding, capped by the configured ceiling; with no
// probe result the ceiling applies directly.
func videoCommand(renderer string, item model.MediaItem, ceiling time.Duration) command {
	if renderer == "" {
		renderer = "cvlc"
	}
	timeout := ceiling
	if item.DurationHint > 0 {
		if padded := item.DurationHint + videoPadding; padded < ceiling {
			timeout = padded
		}
	}
	return command{
		Name:    renderer,
		Args:    []string{"--fullscreen", "--no-video-title-show", "--play-and-exit", "--quiet", item.Path},
		Timeout: timeout,
	}
}
