// Package catalog derives the ordered playable sequence from the media cache
// directory. The catalog is ephemeral: it is rebuilt from a fresh scan on
// every request and never persisted, so it always reflects whatever the
// reconciler has managed to materialize so far.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tszym/driveframe/internal/model"
	filesync "github.com/tszym/driveframe/internal/sync"
)

// Builder classifies cache entries into an ordered playable sequence.
// Extension sets come from the config; the probe annotates video durations.
type Builder struct {
	ImageExtensions map[string]bool
	VideoExtensions map[string]bool
	Probe           *Probe // nil disables duration probing
}

// NewBuilder builds the extension lookup sets once.
func NewBuilder(cfg *model.Config, probe *Probe) *Builder {
	return &Builder{
		ImageExtensions: extSet(cfg.ImageExtensions),
		VideoExtensions: extSet(cfg.VideoExtensions),
		Probe:           probe,
	}
}

func extSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		set[strings.ToLower(e)] = true
	}
	return set
}

// Classify maps a filename to its media kind. Unrecognized extensions are
// KindUnknown and excluded from the catalog — that is not an error.
func (b *Builder) Classify(name string) model.MediaKind {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case b.ImageExtensions[ext]:
		return model.KindImage
	case b.VideoExtensions[ext]:
		return model.KindVideo
	default:
		return model.KindUnknown
	}
}

// Build scans cacheDir and returns the playable sequence, lexicographic by
// filename so repeated builds over an unchanged directory are identical.
// Sidecar tags, in-flight tmp files, dotfiles and directories are excluded.
// Probe failures leave DurationHint at zero; they never fail the build.
func (b *Builder) Build(cacheDir string) ([]model.MediaItem, error) {
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan media dir %s: %w", cacheDir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") ||
			filesync.IsTagName(name) || strings.HasSuffix(name, model.TmpSuffix) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var items []model.MediaItem
	for _, name := range names {
		kind := b.Classify(name)
		if kind == model.KindUnknown {
			continue
		}
		item := model.MediaItem{Path: filepath.Join(cacheDir, name), Kind: kind}
		if kind == model.KindVideo && b.Probe != nil {
			if dur, ok := b.Probe.Duration(item.Path); ok {
				item.DurationHint = dur
			}
		}
		items = append(items, item)
	}
	return items, nil
}
