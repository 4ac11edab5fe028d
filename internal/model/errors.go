package model

import "errors"

// Sentinel errors shared across the sync and playback engines. Callers match
// with errors.Is; lower layers wrap them with context via %w.
var (
	// ErrRemoteTransient marks a remote failure that is expected to heal on
	// the next scheduled pass (network errors, rate limits, 5xx).
	ErrRemoteTransient = errors.New("transient remote error")

	// ErrRemotePermanent marks a remote failure that retrying will not fix
	// without external intervention (auth, permissions, missing folder).
	ErrRemotePermanent = errors.New("permanent remote error")

	// ErrSizeMismatch is returned when a completed transfer does not match
	// the byte count declared by the remote listing.
	ErrSizeMismatch = errors.New("downloaded size does not match remote listing")

	// ErrRendererMissing indicates the external renderer binary for a media
	// kind is not installed. The playback loop degrades to the kinds it can
	// render instead of aborting.
	ErrRendererMissing = errors.New("renderer binary not found")
)
