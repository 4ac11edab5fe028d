package model

// SyncCmd runs reconciliation passes against the remote folder.
type SyncCmd struct {
	Watch bool `arg:"-w,--watch" help:"Keep syncing on the configured interval instead of exiting after one pass."`
}

// PlayCmd runs the playback scheduler against the local cache.
type PlayCmd struct {
	Once bool `arg:"--once" help:"Play through the catalog once and exit (no loop)."`
}

// RunCmd runs the sync loop and the playback scheduler in one process.
type RunCmd struct{}

// StatusCmd prints the runtime status file of a running instance.
type StatusCmd struct{}

// SetupCmd runs the interactive first-time configuration flow.
type SetupCmd struct{}

// Args holds CLI arguments parsed by go-arg.
type Args struct {
	Sync   *SyncCmd   `arg:"subcommand:sync" help:"Sync the remote folder into the media cache."`
	Play   *PlayCmd   `arg:"subcommand:play" help:"Loop the media cache on the display."`
	Run    *RunCmd    `arg:"subcommand:run" help:"Run sync and playback together."`
	Status *StatusCmd `arg:"subcommand:status" help:"Show the runtime status of a running instance."`
	Setup  *SetupCmd  `arg:"subcommand:setup" help:"Create config.json interactively."`

	FolderID       string `arg:"--folder-id" help:"Remote folder ID. Overrides the config file."`
	MediaDir       string `arg:"--media-dir" help:"Local media cache directory. Overrides the config file."`
	SlideshowDelay int    `arg:"--slideshow-delay" default:"-1" help:"Seconds each image stays on screen."`
	Framebuffer    bool   `arg:"--framebuffer" help:"Use fbi (framebuffer) for images instead of feh."`
	Verbose        bool   `arg:"-v,--verbose" help:"Enable debug output."`
}

// Description provides the help text header for go-arg.
func (Args) Description() string {
	return "driveframe keeps a local media cache in sync with a Drive folder and loops it fullscreen on the attached display."
}
