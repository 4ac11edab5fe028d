package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/tszym/driveframe/internal/catalog"
	"github.com/tszym/driveframe/internal/config"
	"github.com/tszym/driveframe/internal/drive"
	"github.com/tszym/driveframe/internal/eventlog"
	"github.com/tszym/driveframe/internal/model"
	"github.com/tszym/driveframe/internal/notify"
	"github.com/tszym/driveframe/internal/player"
	"github.com/tszym/driveframe/internal/runtime"
	filesync "github.com/tszym/driveframe/internal/sync"
	"github.com/tszym/driveframe/internal/ui"
)

func handleErr(msg string, err error, fatal bool) {
	ui.PrintError(fmt.Sprintf("%s %v", msg, err))
	if fatal {
		os.Exit(1)
	}
}

func main() {
	args := config.ParseArgs()

	// status and setup run without a resolved config.
	if args.Status != nil {
		runtime.PrintStatus()
		return
	}
	if args.Setup != nil {
		if err := config.PromptForConfig(); err != nil {
			handleErr("Setup failed.", err, true)
		}
		return
	}

	// First run with no config at all: offer the setup flow before go-arg
	// style errors confuse anyone.
	if !configExists() {
		if err := config.PromptForConfig(); err != nil {
			handleErr("Failed to create config.", err, true)
		}
	}

	cfg, err := config.ParseCfg(args)
	if err != nil {
		handleErr("Failed to parse config/args.", err, true)
	}
	ui.VerboseEnabled = cfg.Verbose

	if cfg.EventLogPath != "" {
		if logErr := eventlog.Init(cfg.EventLogPath); logErr != nil {
			ui.PrintWarning(fmt.Sprintf("Event log disabled: %v", logErr))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runtime.Init("")
	defer runtime.Finalize("stopped")

	switch {
	case args.Sync != nil:
		err = runSync(ctx, cfg, args.Sync.Watch)
	case args.Play != nil:
		err = runPlay(ctx, cfg, args.Play.Once)
	default:
		// Bare invocation behaves like "run": an appliance boots into the
		// combined sync+playback mode.
		err = runCombined(ctx, cfg)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		handleErr("Exiting with error.", err, true)
	}
}

func configExists() bool {
	homeDir, _ := os.UserHomeDir()
	for _, p := range []string{
		"config.json",
		filepath.Join(homeDir, ".driveframe", "config.json"),
		filepath.Join(homeDir, ".config", "driveframe", "config.json"),
	} {
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	return false
}

// newReconciler wires the Drive client into a reconciler with the status and
// notification hooks attached.
func newReconciler(ctx context.Context, cfg *model.Config) (*filesync.Reconciler, error) {
	if cfg.Token == "" {
		return nil, errors.New("no access token configured (set token in config.json)")
	}
	return &filesync.Reconciler{
		Remote:   drive.NewClient(cfg.Token),
		FolderID: cfg.FolderID,
		MediaDir: cfg.MediaDir,
		OnPass: func(result model.SyncResult, passErr error) {
			runtime.UpdateSync(result)
			notify.SyncAlert(ctx, cfg, result, passErr)
		},
	}, nil
}

// newPlayer wires the catalog builder into a playback scheduler that reports
// its state transitions to the runtime status file.
func newPlayer(cfg *model.Config, singlePass bool) *player.Player {
	builder := catalog.NewBuilder(cfg, catalog.NewProbe("ffprobe"))
	cfg.SinglePass = cfg.SinglePass || singlePass
	p := player.New(cfg, config.SlideshowDelay(cfg), config.VideoTimeout(cfg), func() ([]model.MediaItem, error) {
		return builder.Build(cfg.MediaDir)
	})
	p.OnState = func(state player.State, nowPlaying string, catalogSize int) {
		runtime.UpdatePlayback(state.String(), nowPlaying, catalogSize)
	}
	return p
}

func runSync(ctx context.Context, cfg *model.Config, watch bool) error {
	rec, err := newReconciler(ctx, cfg)
	if err != nil {
		return err
	}
	if watch {
		ui.PrintInfo(fmt.Sprintf("Watching folder %s (every %s)", cfg.FolderID, config.SyncInterval(cfg)))
		rec.Loop(ctx, config.SyncInterval(cfg))
		return ctx.Err()
	}
	result, err := rec.Pass(ctx)
	if err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Sync complete: %d downloaded, %d up to date, %d failed",
		result.Downloaded, result.Skipped, len(result.Failed)))
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d file(s) failed to sync", len(result.Failed))
	}
	return nil
}

func runPlay(ctx context.Context, cfg *model.Config, once bool) error {
	return newPlayer(cfg, once).Loop(ctx)
}

// runCombined runs the sync loop in the background while the playback
// scheduler owns the foreground. Playback never waits for sync; it shows
// whatever the cache holds right now.
func runCombined(ctx context.Context, cfg *model.Config) error {
	rec, err := newReconciler(ctx, cfg)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		rec.Loop(ctx, config.SyncInterval(cfg))
	}()

	playErr := newPlayer(cfg, false).Loop(ctx)
	<-done
	return playErr
}
