// Package player runs the playback loop: it builds the media catalog, walks
// it in order, and shows each item fullscreen through an external renderer
// process. The loop keeps the display alive no matter what individual items
// or renderers do; the only ways out are cancellation, single-pass mode, or
// having nothing playable at all (which backs off and retries).
package player

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tszym/driveframe/internal/eventlog"
	"github.com/tszym/driveframe/internal/model"
	"github.com/tszym/driveframe/internal/runner"
	"github.com/tszym/driveframe/internal/ui"
)

// State is the scheduler's current phase, exposed for the status snapshot.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateDisplaying
	StateAdvancing
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateDisplaying:
		return "displaying"
	case StateAdvancing:
		return "advancing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// emptyBackoff is how long the loop sleeps when the catalog has nothing
// playable, before rebuilding and trying again.
const emptyBackoff = model.DefaultEmptyCacheBackoff * time.Second

// runFunc matches runner.Run. Swappable in tests.
type runFunc func(ctx context.Context, command string, args []string, timeout time.Duration) (runner.Result, error)

// Player walks the catalog and renders each item. Not safe for concurrent
// use; run exactly one Loop per Player.
type Player struct {
	Build         func() ([]model.MediaItem, error)
	ImageRenderer string
	VideoRenderer string
	Delay         time.Duration
	VideoTimeout  time.Duration
	SinglePass    bool

	// OnState, when set, receives every state transition together with the
	// item on screen and the current catalog size.
	OnState func(state State, nowPlaying string, catalogSize int)

	run     runFunc
	skipped map[model.MediaKind]bool
}

// New builds a Player from the resolved configuration and a catalog builder
// already bound to the cache directory.
func New(cfg *model.Config, delay, videoTimeout time.Duration, build func() ([]model.MediaItem, error)) *Player {
	return &Player{
		Build:         build,
		ImageRenderer: cfg.ImageRenderer,
		VideoRenderer: cfg.VideoRenderer,
		Delay:         delay,
		VideoTimeout:  videoTimeout,
		SinglePass:    cfg.SinglePass,
		run:           runner.Run,
		skipped:       make(map[model.MediaKind]bool),
	}
}

// Loop runs the scheduler until ctx is cancelled or, in single-pass mode,
// until one full walk of the catalog completes. Cancellation is honored
// between items; the item currently on screen finishes its own bounded
// attempt first.
func (p *Player) Loop(ctx context.Context) error {
	p.setState(StateIdle, "", 0)
	for {
		if ctx.Err() != nil {
			p.setState(StateStopped, "", 0)
			return ctx.Err()
		}

		p.setState(StateLoading, "", 0)
		items, err := p.Build()
		if err != nil {
			ui.PrintError(fmt.Sprintf("Catalog build failed: %v", err))
			if !p.sleep(ctx, emptyBackoff) {
				p.setState(StateStopped, "", 0)
				return ctx.Err()
			}
			continue
		}
		if len(items) == 0 {
			ui.PrintInfo("Media cache is empty, waiting for content")
			if !p.sleep(ctx, emptyBackoff) {
				p.setState(StateStopped, "", 0)
				return ctx.Err()
			}
			continue
		}

		played := 0
		for _, item := range items {
			if ctx.Err() != nil {
				p.setState(StateStopped, "", len(items))
				return ctx.Err()
			}
			if p.skipped[item.Kind] {
				continue
			}
			p.setState(StateDisplaying, item.Path, len(items))
			if p.playItem(ctx, item) {
				played++
			}
			p.setState(StateAdvancing, "", len(items))
		}

		if p.SinglePass {
			p.setState(StateStopped, "", len(items))
			return nil
		}
		// Every walkable item was skipped (renderer missing for all kinds,
		// or files vanished under us). Back off instead of spinning.
		if played == 0 {
			ui.PrintWarning("No playable media this pass, waiting before retry")
			if !p.sleep(ctx, emptyBackoff) {
				p.setState(StateStopped, "", len(items))
				return ctx.Err()
			}
		}
	}
}

// playItem runs one render attempt and reports whether anything was actually
// shown. A failed or hung renderer never stops the loop; a missing renderer
// binary disables that media kind for the rest of the session.
func (p *Player) playItem(ctx context.Context, item model.MediaItem) bool {
	var cmd command
	switch item.Kind {
	case model.KindVideo:
		cmd = videoCommand(p.VideoRenderer, item, p.VideoTimeout)
	default:
		cmd = imageCommand(p.ImageRenderer, item.Path, p.Delay)
	}

	eventlog.ItemStart(item.Path, item.Kind.String())
	started := time.Now()
	res, err := p.run(ctx, cmd.Name, cmd.Args, cmd.Timeout)
	if err != nil {
		if errors.Is(err, model.ErrRendererMissing) {
			p.skipped[item.Kind] = true
			eventlog.RendererMissing(item.Kind.String(), cmd.Name)
			ui.PrintWarning(fmt.Sprintf("Renderer %s not found, skipping all %s items", cmd.Name, item.Kind))
			return false
		}
		ui.PrintError(fmt.Sprintf("Renderer failed to start for %s: %v", item.Path, err))
		return false
	}

	eventlog.ItemDone(item.Path, item.Kind.String(), res.ExitCode, res.TimedOut, time.Since(started))
	if res.ExitCode != 0 && !res.TimedOut {
		ui.PrintDebug(fmt.Sprintf("Renderer exited %d for %s", res.ExitCode, item.Path))
	}
	return true
}

// sleep waits for d or until ctx is cancelled. Returns false on cancellation.
func (p *Player) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (p *Player) setState(s State, nowPlaying string, catalogSize int) {
	if p.OnState != nil {
		p.OnState(s, nowPlaying, catalogSize)
	}
}
