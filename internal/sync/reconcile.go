// Package sync implements the reconciliation engine: it diffs a remote
// folder listing against the local cache index and performs idempotent,
// resumable downloads. A candidate's failure never aborts the pass; its
// local token never advances, so it is simply a candidate again next time.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/tszym/driveframe/internal/eventlog"
	"github.com/tszym/driveframe/internal/helpers"
	"github.com/tszym/driveframe/internal/model"
	"github.com/tszym/driveframe/internal/ui"
)

// Remote abstracts the remote storage surface the reconciler consumes.
// *drive.Client satisfies it; tests supply fakes.
type Remote interface {
	ListFolder(ctx context.Context, folderID string) ([]model.RemoteFile, error)
	Download(ctx context.Context, fileID string) (io.ReadCloser, error)
}

// Reconciler runs reconciliation passes for one folder into one cache
// directory. The cache directory is its exclusive write domain.
type Reconciler struct {
	Remote   Remote
	FolderID string
	MediaDir string

	// OnPass, when set, receives every completed pass result (used to feed
	// the runtime status file and notifications). Called after logging.
	OnPass func(model.SyncResult, error)
}

// Pass runs one full reconciliation pass. The returned result is valid even
// when err is non-nil: a permanent remote error aborts the pass early but
// the counts up to that point stand.
func (r *Reconciler) Pass(ctx context.Context) (model.SyncResult, error) {
	var result model.SyncResult

	remote, err := r.Remote.ListFolder(ctx, r.FolderID)
	if err != nil {
		r.finish(result, err)
		return result, fmt.Errorf("list folder %s: %w", r.FolderID, err)
	}

	if err := os.MkdirAll(r.MediaDir, 0755); err != nil {
		err = fmt.Errorf("create media dir %s: %w", r.MediaDir, err)
		r.finish(result, err)
		return result, err
	}

	index, err := BuildIndex(r.MediaDir)
	if err != nil {
		r.finish(result, err)
		return result, err
	}

	// Candidates are processed sequentially in listing order. Files present
	// locally with no remote counterpart are left untouched: deletion is
	// deliberately out of scope.
	for _, rf := range remote {
		if rf.IsFolder() {
			ui.PrintDebug(fmt.Sprintf("skipping sub-folder %s", rf.Name))
			continue
		}
		if TokenKnown(index[rf.ID], rf.Token) {
			result.Skipped++
			continue
		}

		dlErr := r.download(ctx, rf)
		if dlErr == nil {
			result.Downloaded++
			continue
		}

		result.Failed = append(result.Failed, model.SyncFailure{ID: rf.ID, Name: rf.Name, Reason: dlErr})
		ui.PrintError(fmt.Sprintf("Failed to download %s: %v", rf.Name, dlErr))
		if errors.Is(dlErr, model.ErrRemotePermanent) {
			// Retrying the remaining candidates with dead credentials only
			// burns quota; surface and let the next scheduled pass retry.
			r.finish(result, dlErr)
			return result, dlErr
		}
	}

	r.finish(result, nil)
	return result, nil
}

// finish logs the pass outcome and invokes the OnPass hook.
func (r *Reconciler) finish(result model.SyncResult, passErr error) {
	eventlog.SyncPass(result.Downloaded, result.Skipped, len(result.Failed), passErr)
	if r.OnPass != nil {
		r.OnPass(result, passErr)
	}
}

// download materializes one candidate: stream to a tmp path, verify the byte
// count against the declared size, preserve the remote mtime, rename into
// place, then write the tag. Either the old file and old tag survive intact,
// or the new file and new tag are both in place.
// localName maps a remote name onto a safe cache filename. Names that
// collide with the cache's own bookkeeping shapes (tmp spill files, sidecar
// tags, hidden dotfiles) are renamed away rather than rejected: they would
// otherwise be invisible to the index scan and re-download every pass, or
// land on top of a tag.
func localName(remoteName string) string {
	name := strings.TrimLeft(helpers.Sanitise(remoteName), ".")
	if strings.HasSuffix(name, model.TmpSuffix) || strings.HasSuffix(name, model.TagSuffix) {
		name += "_"
	}
	return name
}

func (r *Reconciler) download(ctx context.Context, rf model.RemoteFile) error {
	name := localName(rf.Name)
	if name == "" {
		return fmt.Errorf("remote file %s has an empty name", rf.ID)
	}
	destPath := filepath.Join(r.MediaDir, name)
	tmpPath := destPath + model.TmpSuffix

	start := time.Now()
	body, err := r.Remote.Download(ctx, rf.ID)
	if err != nil {
		eventlog.Download(name, 0, time.Since(start), err)
		return err
	}
	defer body.Close()

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("create tmp file: %w", err)
	}

	written, copyErr := io.Copy(f, body)
	closeErr := f.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr == nil && rf.SizeBytes > 0 && written != rf.SizeBytes {
		copyErr = fmt.Errorf("%w: got %d bytes, listing declared %d",
			model.ErrSizeMismatch, written, rf.SizeBytes)
	}
	if copyErr != nil {
		_ = os.Remove(tmpPath)
		eventlog.Download(name, written, time.Since(start), copyErr)
		return copyErr
	}

	// Preserve the remote modified timestamp. The tag carries identity; the
	// mtime is an affordance for anyone inspecting the cache with ls.
	if !rf.ModifiedAt.IsZero() {
		_ = os.Chtimes(tmpPath, time.Now(), rf.ModifiedAt)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename into place: %w", err)
	}

	entry := model.CacheEntry{ID: rf.ID, Token: rf.Token, DownloadedAt: time.Now().UTC()}
	if err := WriteTag(destPath, entry); err != nil {
		// The media file is good; only its identity is missing. Next pass
		// re-downloads and re-tags it.
		return err
	}

	eventlog.Download(name, written, time.Since(start), nil)
	ui.PrintDownload(fmt.Sprintf("%s (%s)", name, humanize.Bytes(uint64(written))))
	return nil
}

// Loop runs a pass immediately, then keeps running passes on the given
// interval until ctx is cancelled. Cancellation means "do not start the next
// pass": an in-flight pass runs to completion or to its own per-candidate
// failures.
func (r *Reconciler) Loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, err := r.Pass(ctx)
		if err != nil {
			ui.PrintWarning(fmt.Sprintf("Sync pass failed (will retry in %s): %v", interval, err))
		} else {
			ui.PrintInfo(fmt.Sprintf("Sync pass complete: %d downloaded, %d up to date, %d failed",
				result.Downloaded, result.Skipped, len(result.Failed)))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
