package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// eventRecorder collects handle callbacks for assertions.
type eventRecorder struct {
	mu      sync.Mutex
	added   []string
	changed []string
	removed []string
}

func (r *eventRecorder) handlers() Handlers {
	return Handlers{
		OnAdd:    func(p string) { r.record(&r.added, p) },
		OnChange: func(p string) { r.record(&r.changed, p) },
		OnUnlink: func(p string) { r.record(&r.removed, p) },
	}
}

func (r *eventRecorder) record(dst *[]string, p string) {
	r.mu.Lock()
	*dst = append(*dst, p)
	r.mu.Unlock()
}

func (r *eventRecorder) count(dst *[]string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(*dst)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestHandleDeliversAddChangeUnlink(t *testing.T) {
	dir := t.TempDir()
	rec := &eventRecorder{}

	h, err := OpenHandle([]string{dir}, HandleOptions{
		Recursive: true,
		Match:     []string{"**/*.elm"},
		Handlers:  rec.handlers(),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	time.Sleep(50 * time.Millisecond)

	path := filepath.Join(dir, "Main.elm")
	if err := os.WriteFile(path, []byte("module Main"), 0600); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return rec.count(&rec.added) >= 1 }, "expected an add event")

	if err := os.WriteFile(path, []byte("module Main exposing (..)"), 0600); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return rec.count(&rec.changed) >= 1 }, "expected a change event")

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return rec.count(&rec.removed) >= 1 }, "expected an unlink event")
}

func TestHandleIgnoresExcludedDirectories(t *testing.T) {
	dir := t.TempDir()
	rec := &eventRecorder{}

	h, err := OpenHandle([]string{dir}, HandleOptions{
		Recursive:      true,
		Match:          []string{"**/*.elm"},
		IgnoreDefaults: true,
		Handlers:       rec.handlers(),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	time.Sleep(50 * time.Millisecond)

	// Files under excluded directories match the glob otherwise but must
	// never produce a notification.
	for _, sub := range []string{"node_modules", "elm-stuff", ".hidden"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, sub, "Ignored.elm"), []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, ".Dot.elm"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, vimProbeFile), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	// A visible file written afterwards proves the watch is alive and the
	// earlier events had their chance to arrive.
	if err := os.WriteFile(filepath.Join(dir, "Visible.elm"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return rec.count(&rec.added) >= 1 }, "expected an add event for the visible file")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, p := range rec.added {
		if filepath.Base(p) != "Visible.elm" {
			t.Errorf("unexpected add event for %s", p)
		}
	}
}

func TestHandleMatchPatterns(t *testing.T) {
	dir := t.TempDir()
	rec := &eventRecorder{}

	h, err := OpenHandle([]string{dir}, HandleOptions{
		Recursive: true,
		Match:     []string{"**/*.elm"},
		Handlers:  rec.handlers(),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Main.elm"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return rec.count(&rec.added) >= 1 }, "expected an add event")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, p := range rec.added {
		if filepath.Base(p) == "notes.txt" {
			t.Error("non-matching file produced an event")
		}
	}
}

func TestHandleCloseJoinsEventLoop(t *testing.T) {
	dir := t.TempDir()
	h, err := OpenHandle([]string{dir}, HandleOptions{})
	if err != nil {
		t.Fatal(err)
	}

	if err := h.Close(); err != nil {
		t.Fatal(err)
	}
	// The loop goroutine must have exited.
	select {
	case <-h.done:
	default:
		t.Error("done channel still open after Close")
	}
	// Close is safe to call again.
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestHandlePicksUpNewSubdirectories(t *testing.T) {
	dir := t.TempDir()
	rec := &eventRecorder{}

	h, err := OpenHandle([]string{dir}, HandleOptions{
		Recursive: true,
		Match:     []string{"**/*.elm"},
		Handlers:  rec.handlers(),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	time.Sleep(50 * time.Millisecond)

	sub := filepath.Join(dir, "Pages")
	if err := os.MkdirAll(sub, 0750); err != nil {
		t.Fatal(err)
	}
	// Give the watcher time to pick up the new directory.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(sub, "Home.elm"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return rec.count(&rec.added) >= 1 }, "expected an add event from the new subdirectory")
}
