// Package eventlog writes structured JSON-line lifecycle events to a
// dedicated log file for external collectors to consume. All log functions
// are no-ops until Init is called, so library code can log unconditionally.
package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is a single structured record. Fields use snake_case JSON keys for
// easy grep/jq consumption; unused fields are omitted.
type Entry struct {
	Timestamp  string `json:"ts"`
	Event      string `json:"event"`                 // "sync_pass", "download", "item_start", "item_done", "renderer_missing", "request", "retry", "rate_limit_wait", "circuit_open", "circuit_closed", "circuit_rejected"
	Label      string `json:"label,omitempty"`       // endpoint name, file name, or media path
	Kind       string `json:"kind,omitempty"`        // media kind for playback events
	StatusCode int    `json:"status_code,omitempty"` // HTTP status (0 = network error)
	DurationMS int64  `json:"duration_ms,omitempty"`
	Attempt    int    `json:"attempt,omitempty"`
	Bytes      int64  `json:"bytes,omitempty"`
	Downloaded int    `json:"downloaded,omitempty"`
	Skipped    int    `json:"skipped,omitempty"`
	Failed     int    `json:"failed,omitempty"`
	ExitCode   int    `json:"exit_code,omitempty"`
	TimedOut   bool   `json:"timed_out,omitempty"`
	State      string `json:"state,omitempty"` // circuit state or scheduler state
	Error      string `json:"error,omitempty"`
}

// logger writes entries to the event log file. Safe for concurrent use.
type logger struct {
	mu  sync.Mutex
	enc *json.Encoder
	f   *os.File
}

// Logger is the package-level event logger. It is nil until Init is called.
var Logger *logger

var loggerOnce sync.Once

// Init opens (or creates) the event log file at logPath. Call once at
// startup. Returns a non-nil error only when the file cannot be opened; in
// that case logging stays disabled and everything else continues normally.
func Init(logPath string) error {
	var initErr error
	loggerOnce.Do(func() {
		if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
			initErr = fmt.Errorf("eventlog: mkdir %s: %w", filepath.Dir(logPath), err)
			return
		}
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			initErr = fmt.Errorf("eventlog: open %s: %w", logPath, err)
			return
		}
		Logger = &logger{f: f, enc: json.NewEncoder(f)}
	})
	return initErr
}

// write appends one entry. Failures are silently ignored; a logging error
// must never abort a sync pass or a playback step.
func (l *logger) write(e Entry) {
	e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.enc.Encode(e)
}

// Emit records a pre-built entry.
func Emit(e Entry) {
	if Logger == nil {
		return
	}
	Logger.write(e)
}

// SyncPass records the outcome of one reconciliation pass.
func SyncPass(downloaded, skipped, failed int, passErr error) {
	e := Entry{
		Event:      "sync_pass",
		Downloaded: downloaded,
		Skipped:    skipped,
		Failed:     failed,
	}
	if passErr != nil {
		e.Error = passErr.Error()
	}
	Emit(e)
}

// Download records one completed (or failed) candidate download.
func Download(name string, bytes int64, duration time.Duration, dlErr error) {
	e := Entry{
		Event:      "download",
		Label:      name,
		Bytes:      bytes,
		DurationMS: duration.Milliseconds(),
	}
	if dlErr != nil {
		e.Error = dlErr.Error()
	}
	Emit(e)
}

// ItemStart records the beginning of a playback attempt.
func ItemStart(path, kind string) {
	Emit(Entry{Event: "item_start", Label: path, Kind: kind})
}

// ItemDone records the end of a playback attempt.
func ItemDone(path, kind string, exitCode int, timedOut bool, duration time.Duration) {
	Emit(Entry{
		Event:      "item_done",
		Label:      path,
		Kind:       kind,
		ExitCode:   exitCode,
		TimedOut:   timedOut,
		DurationMS: duration.Milliseconds(),
	})
}

// RendererMissing records that a media kind was disabled for the session.
// Emitted once per kind, not per item.
func RendererMissing(kind, command string) {
	Emit(Entry{Event: "renderer_missing", Kind: kind, Label: command})
}

// Request records a completed remote HTTP request (success or failure).
func Request(label string, statusCode int, duration time.Duration, attempt int, circState string, reqErr error) {
	e := Entry{
		Event:      "request",
		Label:      label,
		StatusCode: statusCode,
		DurationMS: duration.Milliseconds(),
		Attempt:    attempt,
		State:      circState,
	}
	if reqErr != nil {
		e.Error = reqErr.Error()
	}
	if attempt > 0 {
		e.Event = "retry"
	}
	Emit(e)
}

// RateLimitWait records that a request was delayed by the rate limiter.
func RateLimitWait(label string, waited time.Duration) {
	Emit(Entry{Event: "rate_limit_wait", Label: label, DurationMS: waited.Milliseconds()})
}

// CircuitStateChange records a circuit breaker state transition.
func CircuitStateChange(event, label, fromState, toState string) {
	Emit(Entry{
		Event: event,
		Label: label,
		State: toState,
		Error: fmt.Sprintf("state transition: %s -> %s", fromState, toState),
	})
}

// CircuitRejected records a request rejected because the circuit is open.
func CircuitRejected(label string) {
	Emit(Entry{Event: "circuit_rejected", Label: label, State: "open"})
}
