// Package runtime maintains the runtime-status.json snapshot that external
// supervisors (systemd health checks, kiosk watchdogs) poll to see what the
// frame is doing without attaching to its output.
package runtime

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tszym/driveframe/internal/model"
	"github.com/tszym/driveframe/internal/ui"
)

// Package-level state for runtime status tracking.
var (
	statusMu        sync.Mutex
	statusPath      string
	status          model.RuntimeStatus
	statusLastWrite time.Time
	// statusWarnOnce suppresses duplicate warnings about status write
	// failures. The playback loop updates the snapshot on every item; if the
	// directory becomes read-only the first failure is enough to alert the
	// user and repeats would only drown real errors.
	statusWarnOnce sync.Once
)

// StatusPath returns the path of the runtime status file.
func StatusPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".driveframe", "runtime-status.json"), nil
}

// Init records the snapshot location and writes the initial "running" state.
// Passing an empty path resolves the default location; failures leave status
// tracking disabled and everything else continues.
func Init(path string) {
	if path == "" {
		p, err := StatusPath()
		if err != nil {
			return
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return
	}
	now := time.Now().UTC().Format(time.RFC3339)
	statusMu.Lock()
	statusPath = path
	status = model.RuntimeStatus{
		PID:       os.Getpid(),
		State:     "running",
		StartedAt: now,
		UpdatedAt: now,
	}
	statusMu.Unlock()
	write(true)
}

// UpdateSync folds the outcome of a reconciliation pass into the snapshot.
func UpdateSync(result model.SyncResult) {
	statusMu.Lock()
	if statusPath == "" {
		statusMu.Unlock()
		return
	}
	status.LastSync = time.Now().UTC().Format(time.RFC3339)
	status.Downloaded = result.Downloaded
	status.Failed = len(result.Failed)
	status.Errors = ui.RunErrorCount
	status.Warnings = ui.RunWarningCount
	status.UpdatedAt = status.LastSync
	statusMu.Unlock()
	write(true)
}

// UpdatePlayback records the scheduler state and the item currently shown.
func UpdatePlayback(state, nowPlaying string, catalogItems int) {
	statusMu.Lock()
	if statusPath == "" {
		statusMu.Unlock()
		return
	}
	status.State = state
	status.NowPlaying = nowPlaying
	status.CatalogItems = catalogItems
	status.Errors = ui.RunErrorCount
	status.Warnings = ui.RunWarningCount
	status.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	statusMu.Unlock()
	write(false)
}

// Finalize sets the terminal state and forces a write.
func Finalize(state string) {
	statusMu.Lock()
	if statusPath == "" {
		statusMu.Unlock()
		return
	}
	status.State = state
	status.NowPlaying = ""
	status.Errors = ui.RunErrorCount
	status.Warnings = ui.RunWarningCount
	status.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	statusMu.Unlock()
	write(true)
}

// write persists the current snapshot. Unless forced, writes are throttled
// to at most once per 250ms.
func write(force bool) {
	var (
		path string
		snap model.RuntimeStatus
	)

	statusMu.Lock()
	if statusPath == "" {
		statusMu.Unlock()
		return
	}
	now := time.Now()
	if !force && now.Sub(statusLastWrite) < 250*time.Millisecond {
		statusMu.Unlock()
		return
	}
	statusLastWrite = now
	path = statusPath
	snap = status
	statusMu.Unlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return
	}
	if err := WriteFileAtomic(path, data, 0644); err != nil {
		statusWarnOnce.Do(func() {
			fmt.Fprintf(os.Stderr, "warning: failed to write runtime status: %v\n", err)
		})
	}
}

// Read loads the snapshot from disk, downgrading "running" to "stale" when
// the recorded process is no longer alive.
func Read() (model.RuntimeStatus, error) {
	path, err := StatusPath()
	if err != nil {
		return model.RuntimeStatus{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.RuntimeStatus{}, err
	}
	var snap model.RuntimeStatus
	if err := json.Unmarshal(data, &snap); err != nil {
		return model.RuntimeStatus{}, err
	}
	if snap.State == "running" && snap.PID > 0 && !IsProcessAlive(snap.PID) {
		snap.State = "stale"
		snap.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
		refreshed, marshalErr := json.MarshalIndent(snap, "", "  ")
		if marshalErr == nil {
			_ = WriteFileAtomic(path, refreshed, 0644)
		}
	}
	return snap, nil
}

// PrintStatus reads and displays the current runtime status.
func PrintStatus() {
	snap, err := Read()
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("No runtime status found; is driveframe running?")
			return
		}
		fmt.Printf("Runtime status unavailable (%v)\n", err)
		return
	}
	ui.PrintHeader("Driveframe Status")
	stateColor := ui.ColorGreen
	if snap.State == "stale" || snap.State == "stopped" {
		stateColor = ui.ColorYellow
	}
	ui.PrintKeyValue("State", snap.State, stateColor)
	ui.PrintKeyValue("PID", fmt.Sprintf("%d", snap.PID), ui.ColorCyan)
	ui.PrintKeyValue("Updated", snap.UpdatedAt, ui.ColorCyan)
	if snap.LastSync != "" {
		ui.PrintKeyValue("Last sync", fmt.Sprintf("%s (downloaded=%d failed=%d)", snap.LastSync, snap.Downloaded, snap.Failed), ui.ColorCyan)
	}
	if snap.NowPlaying != "" {
		ui.PrintKeyValue("Now playing", snap.NowPlaying, ui.ColorYellow)
	}
	ui.PrintKeyValue("Catalog", fmt.Sprintf("%d items", snap.CatalogItems), ui.ColorYellow)
	ui.PrintKeyValue("Health", fmt.Sprintf("errors=%d warnings=%d", snap.Errors, snap.Warnings), ui.ColorYellow)
}

// WriteFileAtomic writes data to a file atomically using a temp file and rename.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, mode); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
