// Package watchlog appends watch-mode diagnostics to a JSONL log file.
// Entries record filesystem events, restarts, and review triggers so a
// misbehaving watch session can be reconstructed after the fact.
package watchlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	logFileName   = ".lintwatch.log"
	logFileMode   = 0o600
	maxLogEntries = 10000 // truncate oldest entries when log exceeds this size
)

// Entry is a single log line.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Path      string    `json:"path,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Log writes entries to <dir>/.lintwatch.log. A nil *Log discards
// everything, so callers never need to guard their log calls.
type Log struct {
	path string
}

// New returns a log writing under dir, or nil when disabled.
func New(dir string, enabled bool) *Log {
	if !enabled {
		return nil
	}
	return &Log{path: filepath.Join(dir, logFileName)}
}

// Event appends an entry. Errors are discarded; diagnostics must never
// fail the watch session.
func (l *Log) Event(kind, path, detail string) {
	if l == nil {
		return
	}
	_ = l.append(Entry{Timestamp: time.Now(), Kind: kind, Path: path, Detail: detail})
}

func (l *Log) append(entry Entry) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, logFileMode) //nolint:gosec // log path from trusted project dir
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling log entry: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing log entry: %w", err)
	}

	// Truncation is best-effort; errors are non-fatal.
	_ = truncateIfNeeded(l.path)
	return nil
}

// Read returns all entries currently in the log. Malformed lines are
// skipped.
func (l *Log) Read() ([]Entry, error) {
	if l == nil {
		return nil, nil
	}
	data, err := os.ReadFile(l.path) //nolint:gosec // log path from trusted project dir
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading log file: %w", err)
	}

	var entries []Entry
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func truncateIfNeeded(path string) error {
	f, err := os.Open(path) //nolint:gosec // log path from trusted project dir
	if err != nil {
		return err
	}

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	_ = f.Close()
	if err := scanner.Err(); err != nil {
		return err
	}

	if len(lines) <= maxLogEntries {
		return nil
	}

	keep := lines[len(lines)-maxLogEntries:]
	return os.WriteFile(path, []byte(strings.Join(keep, "\n")+"\n"), logFileMode)
}
