package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// vimProbeFile is the file name vim creates to test whether a directory is
// writable. It shows up as a create/remove pair on every save.
const vimProbeFile = "4913"

// defaultIgnores are exclusion patterns applied to every source watch,
// regardless of project configuration. They cover dependency and
// build-artifact directories, dotfiles and dot-directories, and editor
// probe files, all of which generate high-frequency noise.
var defaultIgnores = []string{
	"**/node_modules",
	"**/node_modules/**",
	"**/elm-stuff",
	"**/elm-stuff/**",
	"**/.*",
	"**/.*/**",
	"**/" + vimProbeFile,
}

// Handlers are the event callbacks attached to a Handle. Any nil callback
// is skipped. Callbacks receive normalized paths and run on the handle's
// event loop, so a callback never interleaves with another callback of the
// same handle.
type Handlers struct {
	OnAdd    func(path string)
	OnChange func(path string)
	OnUnlink func(path string)
	OnError  func(err error)
}

// HandleOptions configure one logical watch target.
type HandleOptions struct {
	// Recursive watches subdirectories of each root, and picks up
	// directories created while watching.
	Recursive bool
	// Match restricts file events to paths matching at least one of these
	// doublestar patterns, evaluated against the path relative to its root.
	// Empty means every file matches.
	Match []string
	// Ignore lists doublestar patterns excluded from events, merged with
	// the built-in defaults when IgnoreDefaults is set.
	Ignore []string
	// IgnoreDefaults applies the always-on exclusion set for source trees.
	IgnoreDefaults bool

	Handlers Handlers
}

// Handle is one logical watch target: a root set with add/change/unlink
// notifications and a Close that returns only once the underlying watch
// resources are released and no callback is in flight.
//
// Files that already exist when the handle is installed never produce
// events; callers seed their caches separately before installing.
type Handle struct {
	fsw   *fsnotify.Watcher
	roots []string
	opts  HandleOptions

	mu       sync.Mutex
	handlers Handlers

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// OpenHandle installs a watch on the given roots and starts its event loop.
// Roots must exist; they are resolved to absolute paths so event paths
// normalize consistently with seeded cache keys.
func OpenHandle(roots []string, opts HandleOptions) (*Handle, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	h := &Handle{
		fsw:      fsw,
		opts:     opts,
		handlers: opts.Handlers,
		done:     make(chan struct{}),
	}

	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("resolving %s: %w", root, err)
		}
		h.roots = append(h.roots, Normalize(abs))
		if opts.Recursive {
			err = h.addTree(abs)
		} else {
			err = fsw.Add(abs)
		}
		if err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watching %s: %w", root, err)
		}
	}

	go h.loop()
	return h, nil
}

// Rebind swaps the handle's callbacks. Used when a handle outlives the
// generation that installed it and must deliver into the next one.
func (h *Handle) Rebind(handlers Handlers) {
	h.mu.Lock()
	h.handlers = handlers
	h.mu.Unlock()
}

// Close releases the underlying watch resources and waits for the event
// loop, and therefore any in-flight callback, to finish. Safe to call more
// than once.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		h.closeErr = h.fsw.Close()
	})
	<-h.done
	return h.closeErr
}

// addTree registers dir and every subdirectory that is not ignored.
func (h *Handle) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if h.ignored(h.rel(Normalize(path))) && path != dir {
			return filepath.SkipDir
		}
		if err := h.fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

func (h *Handle) loop() {
	defer close(h.done)
	for {
		select {
		case ev, ok := <-h.fsw.Events:
			if !ok {
				return
			}
			h.dispatch(ev)
		case err, ok := <-h.fsw.Errors:
			if !ok {
				return
			}
			h.current().onError(err)
		}
	}
}

func (h *Handle) current() Handlers {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.handlers
}

func (h *Handle) dispatch(ev fsnotify.Event) {
	path := Normalize(ev.Name)
	rel := h.rel(path)
	if h.ignored(rel) {
		return
	}

	switch {
	case ev.Op.Has(fsnotify.Create):
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if h.opts.Recursive {
				_ = h.addTree(ev.Name)
			}
			return
		}
		if h.matches(rel) {
			h.current().onAdd(path)
		}
	case ev.Op.Has(fsnotify.Write):
		if h.matches(rel) {
			h.current().onChange(path)
		}
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		if h.matches(rel) {
			h.current().onUnlink(path)
		}
	}
}

// rel maps a normalized event path to the form patterns are written
// against: relative to the root that contains it.
func (h *Handle) rel(path string) string {
	for _, root := range h.roots {
		if path == root {
			return filepath.ToSlash(filepath.Base(path))
		}
		if strings.HasPrefix(path, root+"/") {
			return path[len(root)+1:]
		}
	}
	return path
}

func (h *Handle) ignored(rel string) bool {
	return pathIgnored(rel, h.opts.Ignore, h.opts.IgnoreDefaults)
}

func (h *Handle) matches(rel string) bool {
	return pathMatches(rel, h.opts.Match)
}

// pathIgnored reports whether rel hits an exclusion pattern. The built-in
// defaults are consulted first when useDefaults is set.
func pathIgnored(rel string, extra []string, useDefaults bool) bool {
	if useDefaults {
		for _, pat := range defaultIgnores {
			if ok, _ := doublestar.Match(pat, rel); ok {
				return true
			}
		}
	}
	for _, pat := range extra {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

// pathMatches reports whether rel matches at least one pattern.
// An empty pattern list matches everything.
func pathMatches(rel string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pat := range patterns {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

func (hs Handlers) onAdd(path string) {
	if hs.OnAdd != nil {
		hs.OnAdd(path)
	}
}

func (hs Handlers) onChange(path string) {
	if hs.OnChange != nil {
		hs.OnChange(path)
	}
}

func (hs Handlers) onUnlink(path string) {
	if hs.OnUnlink != nil {
		hs.OnUnlink(path)
	}
}

func (hs Handlers) onError(err error) {
	if hs.OnError != nil {
		hs.OnError(err)
	}
}
