package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tszym/driveframe/internal/model"
)

// fakeRemote serves canned listings and bodies. Downloads can be forced to
// fail per id, either with an error or with a short body.
type fakeRemote struct {
	files     []model.RemoteFile
	bodies    map[string]string
	failWith  map[string]error
	truncate  map[string]bool
	broken    map[string]bool
	listErr   error
	downloads int
}

func (f *fakeRemote) ListFolder(ctx context.Context, folderID string) ([]model.RemoteFile, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.files, nil
}

func (f *fakeRemote) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	f.downloads++
	if err := f.failWith[fileID]; err != nil {
		return nil, err
	}
	if f.broken[fileID] {
		return brokenReader{}, nil
	}
	body := f.bodies[fileID]
	if f.truncate[fileID] {
		body = body[:len(body)/2]
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func remoteFile(id, name, token, body string) (model.RemoteFile, string) {
	return model.RemoteFile{
		ID:         id,
		Name:       name,
		Token:      token,
		SizeBytes:  int64(len(body)),
		ModifiedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		MimeType:   "image/jpeg",
	}, body
}

func newTestReconciler(t *testing.T, remote *fakeRemote) *Reconciler {
	t.Helper()
	return &Reconciler{Remote: remote, FolderID: "folder-1", MediaDir: t.TempDir()}
}

func TestPass_DownloadsNewFiles(t *testing.T) {
	rf, body := remoteFile("id-1", "sunset.jpg", "tok-1", "jpeg-bytes")
	remote := &fakeRemote{files: []model.RemoteFile{rf}, bodies: map[string]string{"id-1": body}}
	rec := newTestReconciler(t, remote)

	result, err := rec.Pass(context.Background())
	if err != nil {
		t.Fatalf("Pass failed: %v", err)
	}
	if result.Downloaded != 1 || result.Skipped != 0 || len(result.Failed) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	dest := filepath.Join(rec.MediaDir, "sunset.jpg")
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("downloaded file missing: %v", err)
	}
	if string(data) != body {
		t.Fatalf("unexpected content: %q", data)
	}

	entry, err := ReadTag(dest)
	if err != nil {
		t.Fatalf("tag missing after download: %v", err)
	}
	if entry.ID != "id-1" || entry.Token != "tok-1" {
		t.Fatalf("unexpected tag: %+v", entry)
	}

	info, err := os.Stat(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(rf.ModifiedAt) {
		t.Fatalf("expected mtime %v, got %v", rf.ModifiedAt, info.ModTime())
	}
}

func TestPass_SecondPassIsIdempotent(t *testing.T) {
	rf, body := remoteFile("id-1", "sunset.jpg", "tok-1", "jpeg-bytes")
	remote := &fakeRemote{files: []model.RemoteFile{rf}, bodies: map[string]string{"id-1": body}}
	rec := newTestReconciler(t, remote)

	if _, err := rec.Pass(context.Background()); err != nil {
		t.Fatalf("first pass failed: %v", err)
	}
	result, err := rec.Pass(context.Background())
	if err != nil {
		t.Fatalf("second pass failed: %v", err)
	}
	if result.Downloaded != 0 || result.Skipped != 1 {
		t.Fatalf("expected pure skip on second pass, got %+v", result)
	}
	if remote.downloads != 1 {
		t.Fatalf("expected exactly 1 download across both passes, got %d", remote.downloads)
	}
}

func TestPass_TokenChangeTriggersRedownload(t *testing.T) {
	rf, body := remoteFile("id-1", "sunset.jpg", "tok-1", "jpeg-bytes")
	remote := &fakeRemote{files: []model.RemoteFile{rf}, bodies: map[string]string{"id-1": body}}
	rec := newTestReconciler(t, remote)

	if _, err := rec.Pass(context.Background()); err != nil {
		t.Fatal(err)
	}

	remote.files[0].Token = "tok-2"
	remote.bodies["id-1"] = "new-bytes!"
	remote.files[0].SizeBytes = int64(len("new-bytes!"))

	result, err := rec.Pass(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Downloaded != 1 {
		t.Fatalf("expected re-download on token change, got %+v", result)
	}
	data, _ := os.ReadFile(filepath.Join(rec.MediaDir, "sunset.jpg"))
	if string(data) != "new-bytes!" {
		t.Fatalf("expected replaced content, got %q", data)
	}
}

func TestPass_RemoteRenameWithStaleTagStaysIdempotent(t *testing.T) {
	// A remote rename leaves the old filename behind with a stale tag for
	// the same id. Passes after the rename must still be pure skips, no
	// matter how the stale name sorts against the new one.
	rf, body := remoteFile("id-1", "aa.jpg", "tok-2", "jpeg-bytes")
	remote := &fakeRemote{files: []model.RemoteFile{rf}, bodies: map[string]string{"id-1": body}}
	rec := newTestReconciler(t, remote)

	stale := filepath.Join(rec.MediaDir, "zz.jpg")
	if err := os.WriteFile(stale, []byte("old-bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := WriteTag(stale, model.CacheEntry{ID: "id-1", Token: "tok-1"}); err != nil {
		t.Fatal(err)
	}

	result, err := rec.Pass(context.Background())
	if err != nil {
		t.Fatalf("first pass failed: %v", err)
	}
	if result.Downloaded != 1 {
		t.Fatalf("expected the renamed file to download once, got %+v", result)
	}

	result, err = rec.Pass(context.Background())
	if err != nil {
		t.Fatalf("second pass failed: %v", err)
	}
	if result.Downloaded != 0 || result.Skipped != 1 {
		t.Fatalf("expected pure skip after rename settled, got %+v", result)
	}
	if remote.downloads != 1 {
		t.Fatalf("expected exactly 1 download across both passes, got %d", remote.downloads)
	}
}

func TestPass_ReservedNamesAreRenamedAway(t *testing.T) {
	cases := []struct {
		remote string
		local  string
	}{
		{"leftover" + model.TmpSuffix, "leftover" + model.TmpSuffix + "_"},
		{model.TagPrefix + "photo.jpg" + model.TagSuffix, "photo.jpg" + model.TagSuffix + "_"},
		{".hidden.jpg", "hidden.jpg"},
	}

	files := make([]model.RemoteFile, 0, len(cases))
	bodies := make(map[string]string, len(cases))
	for i, c := range cases {
		id := fmt.Sprintf("id-%d", i)
		rf, body := remoteFile(id, c.remote, "tok-1", "bytes")
		files = append(files, rf)
		bodies[id] = body
	}
	remote := &fakeRemote{files: files, bodies: bodies}
	rec := newTestReconciler(t, remote)

	result, err := rec.Pass(context.Background())
	if err != nil {
		t.Fatalf("Pass failed: %v", err)
	}
	if result.Downloaded != len(cases) {
		t.Fatalf("expected %d downloads, got %+v", len(cases), result)
	}
	for _, c := range cases {
		if _, err := os.Stat(filepath.Join(rec.MediaDir, c.local)); err != nil {
			t.Errorf("expected %q on disk for remote name %q: %v", c.local, c.remote, err)
		}
	}

	// With the reserved shapes renamed away, every file is indexable and
	// the next pass is a pure skip.
	result, err = rec.Pass(context.Background())
	if err != nil {
		t.Fatalf("second pass failed: %v", err)
	}
	if result.Downloaded != 0 || result.Skipped != len(cases) {
		t.Fatalf("expected pure skip on second pass, got %+v", result)
	}
}

func TestPass_SizeMismatchKeepsOldVersion(t *testing.T) {
	rf, body := remoteFile("id-1", "sunset.jpg", "tok-1", "jpeg-bytes")
	remote := &fakeRemote{files: []model.RemoteFile{rf}, bodies: map[string]string{"id-1": body}}
	rec := newTestReconciler(t, remote)

	if _, err := rec.Pass(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Remote advances to a new version but the body comes back short.
	remote.files[0].Token = "tok-2"
	remote.truncate = map[string]bool{"id-1": true}

	result, err := rec.Pass(context.Background())
	if err != nil {
		t.Fatalf("per-candidate failure must not fail the pass: %v", err)
	}
	if len(result.Failed) != 1 {
		t.Fatalf("expected 1 failure, got %+v", result)
	}
	if !errors.Is(result.Failed[0].Reason, model.ErrSizeMismatch) {
		t.Fatalf("expected ErrSizeMismatch, got %v", result.Failed[0].Reason)
	}

	// The old version and its tag are untouched; no tmp file remains.
	data, err := os.ReadFile(filepath.Join(rec.MediaDir, "sunset.jpg"))
	if err != nil || string(data) != body {
		t.Fatalf("old content lost: %q err=%v", data, err)
	}
	entry, err := ReadTag(filepath.Join(rec.MediaDir, "sunset.jpg"))
	if err != nil || entry.Token != "tok-1" {
		t.Fatalf("old tag lost: %+v err=%v", entry, err)
	}
	entries, _ := os.ReadDir(rec.MediaDir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), model.TmpSuffix) {
			t.Fatalf("leftover tmp file %s", e.Name())
		}
	}
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }
func (brokenReader) Close() error             { return nil }

func TestPass_InterruptedTransferLeavesCacheUntouched(t *testing.T) {
	rf, body := remoteFile("id-1", "sunset.jpg", "tok-1", "jpeg-bytes")
	remote := &fakeRemote{files: []model.RemoteFile{rf}, bodies: map[string]string{"id-1": body}}
	rec := newTestReconciler(t, remote)

	if _, err := rec.Pass(context.Background()); err != nil {
		t.Fatal(err)
	}

	remote.files[0].Token = "tok-2"
	remote.broken = map[string]bool{"id-1": true}

	result, err := rec.Pass(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Failed) != 1 {
		t.Fatalf("expected 1 failure, got %+v", result)
	}
	data, err := os.ReadFile(filepath.Join(rec.MediaDir, "sunset.jpg"))
	if err != nil || string(data) != body {
		t.Fatalf("old content lost after interrupted transfer: %q err=%v", data, err)
	}
	entry, err := ReadTag(filepath.Join(rec.MediaDir, "sunset.jpg"))
	if err != nil || entry.Token != "tok-1" {
		t.Fatalf("old tag lost after interrupted transfer: %+v err=%v", entry, err)
	}
}

func TestPass_TransientFailureContinues(t *testing.T) {
	rf1, body1 := remoteFile("id-1", "a.jpg", "tok-1", "aaaa")
	rf2, body2 := remoteFile("id-2", "b.jpg", "tok-2", "bbbb")
	remote := &fakeRemote{
		files:    []model.RemoteFile{rf1, rf2},
		bodies:   map[string]string{"id-1": body1, "id-2": body2},
		failWith: map[string]error{"id-1": fmt.Errorf("%w: status 503", model.ErrRemoteTransient)},
	}
	rec := newTestReconciler(t, remote)

	result, err := rec.Pass(context.Background())
	if err != nil {
		t.Fatalf("transient failure must not abort the pass: %v", err)
	}
	if result.Downloaded != 1 || len(result.Failed) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if _, statErr := os.Stat(filepath.Join(rec.MediaDir, "b.jpg")); statErr != nil {
		t.Fatalf("later candidate should still download: %v", statErr)
	}
}

func TestPass_PermanentFailureAbortsEarly(t *testing.T) {
	rf1, _ := remoteFile("id-1", "a.jpg", "tok-1", "aaaa")
	rf2, body2 := remoteFile("id-2", "b.jpg", "tok-2", "bbbb")
	remote := &fakeRemote{
		files:    []model.RemoteFile{rf1, rf2},
		bodies:   map[string]string{"id-2": body2},
		failWith: map[string]error{"id-1": fmt.Errorf("%w: status 401", model.ErrRemotePermanent)},
	}
	rec := newTestReconciler(t, remote)

	result, err := rec.Pass(context.Background())
	if !errors.Is(err, model.ErrRemotePermanent) {
		t.Fatalf("expected permanent error surfaced, got %v", err)
	}
	if len(result.Failed) != 1 {
		t.Fatalf("expected the failing candidate recorded, got %+v", result)
	}
	if remote.downloads != 1 {
		t.Fatalf("expected remaining candidates skipped after permanent error, got %d downloads", remote.downloads)
	}
}

func TestPass_SkipsSubFolders(t *testing.T) {
	remote := &fakeRemote{files: []model.RemoteFile{{
		ID: "dir-1", Name: "holiday", MimeType: model.DriveFolderMimeType,
	}}}
	rec := newTestReconciler(t, remote)

	result, err := rec.Pass(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Downloaded != 0 || result.Skipped != 0 || len(result.Failed) != 0 {
		t.Fatalf("folders should be invisible to the result, got %+v", result)
	}
	if remote.downloads != 0 {
		t.Fatal("folders must never be downloaded")
	}
}

func TestPass_ListFailureReportsError(t *testing.T) {
	remote := &fakeRemote{listErr: fmt.Errorf("%w: status 503", model.ErrRemoteTransient)}
	rec := newTestReconciler(t, remote)

	passes := 0
	rec.OnPass = func(result model.SyncResult, passErr error) {
		passes++
		if passErr == nil {
			t.Error("expected pass error in OnPass hook")
		}
	}

	if _, err := rec.Pass(context.Background()); !errors.Is(err, model.ErrRemoteTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if passes != 1 {
		t.Fatalf("expected OnPass called once, got %d", passes)
	}
}

func TestPass_LocalOnlyFilesSurvive(t *testing.T) {
	remote := &fakeRemote{}
	rec := newTestReconciler(t, remote)

	keep := filepath.Join(rec.MediaDir, "local-only.jpg")
	if err := os.WriteFile(keep, []byte("mine"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := rec.Pass(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(keep); err != nil {
		t.Fatalf("local-only file should never be deleted: %v", err)
	}
}
