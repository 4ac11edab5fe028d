package sync

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tszym/driveframe/internal/model"
)

// The local cache index is the directory itself: each media file carries a
// hidden sidecar tag (".<name>.dft") holding the remote id and the version
// token it was downloaded with. There is no central index file; the index is
// rebuilt by scanning, so it can never drift from what is actually on disk.

// TagPath returns the sidecar tag path for a media file path.
func TagPath(mediaPath string) string {
	dir, name := filepath.Split(mediaPath)
	return filepath.Join(dir, model.TagPrefix+name+model.TagSuffix)
}

// IsTagName reports whether a directory entry name is a sidecar tag.
func IsTagName(name string) bool {
	return strings.HasPrefix(name, model.TagPrefix) && strings.HasSuffix(name, model.TagSuffix)
}

// ReadTag loads the cache entry recorded for a media file. A missing or
// corrupt tag is not an error to callers that treat untagged files as
// download candidates; they get (nil, err) and decide.
func ReadTag(mediaPath string) (*model.CacheEntry, error) {
	data, err := os.ReadFile(TagPath(mediaPath))
	if err != nil {
		return nil, err
	}
	var entry model.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("corrupt tag for %s: %w", mediaPath, err)
	}
	entry.LocalPath = mediaPath
	return &entry, nil
}

// WriteTag persists the cache entry for a media file, atomically: the tag is
// written to a tmp path and renamed into place. The tag is written only
// after the media file itself has been renamed into place, so a crash leaves
// at worst a fresh file with a stale tag — a candidate again on the next
// pass, never an entry pointing at partial data.
func WriteTag(mediaPath string, entry model.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal tag for %s: %w", mediaPath, err)
	}
	tagPath := TagPath(mediaPath)
	tmpPath := tagPath + model.TmpSuffix
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write tag for %s: %w", mediaPath, err)
	}
	if err := os.Rename(tmpPath, tagPath); err != nil {
		return fmt.Errorf("rename tag for %s: %w", mediaPath, err)
	}
	return nil
}

// BuildIndex scans the cache directory and returns the entries keyed by
// remote id, in lexicographic scan order. Files without a readable tag are
// simply absent from the index (they become candidates again — self-healing,
// never fatal). When two files claim the same id (a remote rename leaves the
// old name behind), both entries are kept: the remote's file is current as
// long as any of them carries its token.
func BuildIndex(cacheDir string) (map[string][]model.CacheEntry, error) {
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]model.CacheEntry{}, nil
		}
		return nil, fmt.Errorf("scan cache dir %s: %w", cacheDir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || IsTagName(e.Name()) || strings.HasSuffix(e.Name(), model.TmpSuffix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	index := make(map[string][]model.CacheEntry, len(names))
	for _, name := range names {
		entry, err := ReadTag(filepath.Join(cacheDir, name))
		if err != nil || entry.ID == "" {
			continue
		}
		index[entry.ID] = append(index[entry.ID], *entry)
	}
	return index, nil
}

// TokenKnown reports whether any indexed entry for one remote id was
// downloaded with the given version token.
func TokenKnown(entries []model.CacheEntry, token string) bool {
	for _, e := range entries {
		if e.Token == token {
			return true
		}
	}
	return false
}
