package model

import (
	"path/filepath"
	"strings"
	"time"
)

// Config holds the user's configuration.
type Config struct {
	FolderID              string   `json:"folderId"`
	Token                 string   `json:"token"`
	MediaDir              string   `json:"mediaDir"`
	SyncIntervalSeconds   int      `json:"syncIntervalSeconds,omitempty"`
	SlideshowDelaySeconds int      `json:"slideshowDelaySeconds,omitempty"`
	VideoTimeoutSeconds   int      `json:"videoTimeoutSeconds,omitempty"`
	SinglePass            bool     `json:"singlePass,omitempty"`
	ImageExtensions       []string `json:"imageExtensions,omitempty"`
	VideoExtensions       []string `json:"videoExtensions,omitempty"`
	ImageRenderer         string   `json:"imageRenderer,omitempty"`
	VideoRenderer         string   `json:"videoRenderer,omitempty"`
	EventLogPath          string   `json:"eventLogPath,omitempty"`
	GotifyURL             string   `json:"gotifyUrl,omitempty"`
	GotifyToken           string   `json:"gotifyToken,omitempty"`
	Verbose               bool     `json:"verbose,omitempty"`
}

// RemoteFile is an immutable snapshot of one remote object at listing time.
type RemoteFile struct {
	ID         string
	Name       string
	Token      string
	SizeBytes  int64
	ModifiedAt time.Time
	MimeType   string
}

// IsFolder reports whether the descriptor is a sub-folder rather than a file.
// Sub-folders are never recursed into.
func (r RemoteFile) IsFolder() bool {
	return r.MimeType == DriveFolderMimeType
}

// Extension returns the lowercased filename extension, including the dot.
func (r RemoteFile) Extension() string {
	return strings.ToLower(filepath.Ext(r.Name))
}

// CacheEntry is one file currently materialized in the local cache, keyed by
// the remote id it was downloaded for. The entry is persisted as a hidden
// per-file tag sidecar next to the media file, not in a central index.
type CacheEntry struct {
	LocalPath    string    `json:"-"`
	ID           string    `json:"id"`
	Token        string    `json:"token"`
	DownloadedAt time.Time `json:"downloadedAt"`
}

// MediaItem is one playable file in the catalog. Recomputed on every catalog
// build, never persisted.
type MediaItem struct {
	Path         string
	Kind         MediaKind
	DurationHint time.Duration // 0 = unknown, caller supplies the fallback
}

// SyncFailure records one candidate that could not be downloaded.
type SyncFailure struct {
	ID     string
	Name   string
	Reason error
}

// SyncResult summarizes one reconciliation pass.
type SyncResult struct {
	Downloaded int
	Skipped    int
	Failed     []SyncFailure
}

// RuntimeStatus is the snapshot written to runtime-status.json for external
// supervisors to poll.
type RuntimeStatus struct {
	PID          int    `json:"pid"`
	State        string `json:"state"`
	StartedAt    string `json:"startedAt"`
	UpdatedAt    string `json:"updatedAt"`
	LastSync     string `json:"lastSync,omitempty"`
	Downloaded   int    `json:"downloaded,omitempty"`
	Failed       int    `json:"failed,omitempty"`
	NowPlaying   string `json:"nowPlaying,omitempty"`
	CatalogItems int    `json:"catalogItems,omitempty"`
	Errors       int    `json:"errors,omitempty"`
	Warnings     int    `json:"warnings,omitempty"`
}
