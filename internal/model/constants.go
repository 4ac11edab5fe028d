package model

import "strings"

// DriveFolderMimeType marks a listing entry as a sub-folder. Folder entries
// are skipped during reconciliation, never recursed into.
const DriveFolderMimeType = "application/vnd.google-apps.folder"

// Documented defaults, applied by config.ApplyDefaults when the config file
// leaves a field unset.
const (
	DefaultSyncIntervalSeconds   = 300
	DefaultSlideshowDelaySeconds = 8
	DefaultVideoTimeoutSeconds   = 300
	DefaultEmptyCacheBackoff     = 30 // seconds between catalog retries on an empty cache
	DefaultImageRenderer         = "feh"
	DefaultVideoRenderer         = "cvlc"
)

// DefaultImageExtensions and DefaultVideoExtensions are the extension sets
// used when the config does not override them. The two sets are disjoint.
var (
	DefaultImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp"}
	DefaultVideoExtensions = []string{".mp4", ".mov", ".mkv", ".avi", ".webm", ".m3u8"}
)

// TagPrefix and TagSuffix frame the hidden sidecar filename that carries a
// cache entry's identity: media file "a.jpg" is tagged by ".a.jpg.dft".
const (
	TagPrefix = "."
	TagSuffix = ".dft"
)

// TmpSuffix marks an in-flight download in the cache directory. Tmp files
// are excluded from the catalog and overwritten by the next attempt.
const TmpSuffix = ".tmp"

// MediaKind classifies a cached file for playback.
type MediaKind int

const (
	KindUnknown MediaKind = 0
	KindImage   MediaKind = 1
	KindVideo   MediaKind = 2
)

// String returns the string representation of the MediaKind.
func (k MediaKind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// ParseMediaKind converts a string to a MediaKind.
func ParseMediaKind(s string) MediaKind {
	switch strings.ToLower(s) {
	case "image":
		return KindImage
	case "video":
		return KindVideo
	default:
		return KindUnknown
	}
}
