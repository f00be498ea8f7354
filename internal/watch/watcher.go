// Package watch implements the watch-mode core: the active set of file
// watches, the in-memory file cache they maintain, debouncing for noisy
// event bursts, and the restart protocol that hands off cleanly between
// watch generations.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/muesli/termenv"

	"github.com/henriquecbuss/lintwatch/internal/watchlog"
)

// stdinFlushOnce guards the once-per-process-lifetime input flush, so a
// keypress buffered before startup cannot later be consumed as an answer
// to the fix-acceptance prompt.
var stdinFlushOnce sync.Once

// Params configure one watch generation.
type Params struct {
	// ManifestPath is the project's dependency manifest. A change that is
	// not deep-equal to the parsed cached content restarts the generation.
	ManifestPath string
	// ReadmePath is the project readme; empty disables the readme watch.
	ReadmePath string
	// SourceDirs are the directories whose files feed the analysis engine.
	SourceDirs []string
	// SourcePatterns select source files within SourceDirs,
	// e.g. "**/*.elm". Empty selects every non-ignored file.
	SourcePatterns []string
	// Ignore lists extra exclusion globs, merged with the built-in set.
	Ignore []string
	// ConfigDir is the lint configuration directory; a change to any file
	// in it restarts the generation. Empty disables the config watch.
	ConfigDir string
	// SuppressionDir holds suppressed-error files; empty disables the
	// suppression watch.
	SuppressionDir string
	// Debounce is the quiescence window for the suppression refresh.
	// Zero falls back to DefaultDebounce.
	Debounce time.Duration

	// Engine receives collect/remove notifications and review requests.
	Engine Engine
	// Suppressions loads suppression data after the debounce window.
	// Required when SuppressionDir is set.
	Suppressions SuppressionLoader
	// Rebuild is invoked exactly once per restart, with the target whose
	// change triggered it, and is expected to produce the next generation.
	// The orchestrator takes no further action after invoking it.
	Rebuild func(trigger Target)
	// OnFatal receives watch-mechanism faults and unrecoverable read
	// errors. Fatal errors terminate watch mode; there is no retry.
	OnFatal func(error)

	// ClearScreen clears the terminal before the rebuild callback runs.
	// Callers suppress it for structured report output and when verbose
	// diagnostics are active.
	ClearScreen bool
	// Log records watch diagnostics; nil discards them.
	Log *watchlog.Log

	// adoptedConfig carries the configuration handle across a manifest
	// restart; it is owned and closed by the configuration-change path.
	adoptedConfig *Handle
}

// Watcher owns one generation's handles, cache, and restart protocol.
type Watcher struct {
	p          Params
	gen        *Generation
	cache      *FileCache
	dispatcher *Dispatcher

	suppressGate *Gate

	// manifest is the parsed cached manifest content, compared
	// structurally against re-reads. Guarded by manifestMu.
	manifestMu sync.Mutex
	manifest   any

	// detachedConfig is set during a manifest teardown, before Rebuild
	// runs, and handed to the next generation via AdoptConfigHandle.
	detachedConfig *Handle
}

// Install seeds the file cache, installs a fresh generation of watch
// handles, and returns the running watcher. The previous generation's
// handles must all be closed before Install is called again; the rebuild
// callback arranges that.
func Install(p Params) (*Watcher, error) {
	stdinFlushOnce.Do(drainStdin)

	if p.Engine == nil {
		return nil, fmt.Errorf("installing watch: no engine")
	}
	if p.ManifestPath == "" {
		return nil, fmt.Errorf("installing watch: no manifest path")
	}

	gen := newGeneration()
	w := &Watcher{
		p:          p,
		gen:        gen,
		cache:      NewFileCache(),
		dispatcher: NewDispatcher(p.Engine, gen),
	}

	if err := w.seed(); err != nil {
		return nil, err
	}
	if err := w.installHandles(); err != nil {
		_ = gen.closeHandles()
		return nil, err
	}
	p.Log.Event("install", "", fmt.Sprintf("%d files cached", w.cache.Len()))
	return w, nil
}

// Cache exposes the generation's file cache.
func (w *Watcher) Cache() *FileCache { return w.cache }

// Dispatcher exposes the generation's engine bridge.
func (w *Watcher) Dispatcher() *Dispatcher { return w.dispatcher }

// AdoptConfigHandle returns the configuration handle left open by a
// manifest restart, or nil. The next generation's Params must carry it so
// configuration changes keep restarting the right generation.
func (w *Watcher) AdoptConfigHandle() *Handle { return w.detachedConfig }

// WithConfigHandle attaches a handle adopted from the previous generation.
func (p Params) WithConfigHandle(h *Handle) Params {
	p.adoptedConfig = h
	return p
}

// Close tears down the generation without restarting: pending debounce
// timers are cancelled and every handle, including the configuration one,
// is closed. Used for shutdown.
func (w *Watcher) Close() error {
	w.gen.disableReview()
	w.gen.cancelGates()
	return w.gen.closeHandles()
}

// seed populates the cache with the current source tree, the readme, and
// the parsed manifest, so the ignore-initial watch policy has a baseline
// to compare against.
func (w *Watcher) seed() error {
	data, err := os.ReadFile(w.p.ManifestPath) //nolint:gosec // manifest path from project config
	if err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}
	w.manifest = parseManifest(data)

	if w.p.ReadmePath != "" {
		if data, err := os.ReadFile(w.p.ReadmePath); err == nil { //nolint:gosec // readme path from project config
			rec, _ := w.cache.Upsert(normalizeAbs(w.p.ReadmePath), string(data))
			w.dispatcher.CollectReadme(rec)
		}
	}

	for _, dir := range w.p.SourceDirs {
		if err := w.seedDir(dir); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) seedDir(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", dir, err)
	}
	root := Normalize(abs)

	return filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel := relativeTo(root, Normalize(path))
		if d.IsDir() {
			if path != abs && pathIgnored(rel, w.p.Ignore, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if pathIgnored(rel, w.p.Ignore, true) || !pathMatches(rel, w.p.SourcePatterns) {
			return nil
		}
		data, err := os.ReadFile(path) //nolint:gosec // path enumerated under configured source dir
		if err != nil {
			return nil
		}
		rec, _ := w.cache.Upsert(Normalize(path), string(data))
		w.dispatcher.CollectFile(rec)
		return nil
	})
}

func (w *Watcher) installHandles() error {
	fatal := func(err error) {
		w.p.Log.Event("watch-error", "", err.Error())
		if w.p.OnFatal != nil {
			w.p.OnFatal(err)
		}
	}

	manifest, err := openFileHandle(w.p.ManifestPath, Handlers{
		OnAdd:    w.onManifestEvent,
		OnChange: w.onManifestEvent,
		OnError:  fatal,
	})
	if err != nil {
		return err
	}
	w.gen.addHandle(TargetManifest, manifest)

	if w.p.ReadmePath != "" {
		readme, err := openFileHandle(w.p.ReadmePath, Handlers{
			OnAdd:    w.onReadmeAdd,
			OnChange: w.onReadmeChange,
			OnError:  fatal,
		})
		if err != nil {
			return err
		}
		w.gen.addHandle(TargetReadme, readme)
	}

	if len(w.p.SourceDirs) > 0 {
		sources, err := OpenHandle(w.p.SourceDirs, HandleOptions{
			Recursive:      true,
			Match:          w.p.SourcePatterns,
			Ignore:         w.p.Ignore,
			IgnoreDefaults: true,
			Handlers: Handlers{
				OnAdd:    w.onSourceAdd,
				OnChange: w.onSourceChange,
				OnUnlink: w.onSourceUnlink,
				OnError:  fatal,
			},
		})
		if err != nil {
			return err
		}
		w.gen.addHandle(TargetSources, sources)
	}

	if w.p.SuppressionDir != "" {
		w.suppressGate = NewGate(w.p.Debounce)
		w.gen.addGate(w.suppressGate)
		onSuppress := func(string) { w.suppressGate.Schedule(w.refreshSuppressions) }
		suppressions, err := OpenHandle([]string{w.p.SuppressionDir}, HandleOptions{
			Match: []string{"*.json"},
			Handlers: Handlers{
				OnAdd:    onSuppress,
				OnChange: onSuppress,
				OnUnlink: onSuppress,
				OnError:  fatal,
			},
		})
		if err != nil {
			return err
		}
		w.gen.addHandle(TargetSuppressions, suppressions)
	}

	if w.p.adoptedConfig != nil {
		// The configuration handle survives a manifest restart; rebind its
		// callbacks so events deliver into this generation.
		w.p.adoptedConfig.Rebind(Handlers{
			OnChange: w.onConfigChange,
			OnError:  fatal,
		})
		w.gen.addHandle(TargetConfig, w.p.adoptedConfig)
	} else if w.p.ConfigDir != "" {
		cfg, err := OpenHandle([]string{w.p.ConfigDir}, HandleOptions{
			Recursive:      true,
			Ignore:         w.configIgnores(),
			IgnoreDefaults: true,
			Handlers: Handlers{
				OnChange: w.onConfigChange,
				OnError:  fatal,
			},
		})
		if err != nil {
			return err
		}
		w.gen.addHandle(TargetConfig, cfg)
	}

	return nil
}

// configIgnores excludes the suppression folder from the configuration
// watch when it is nested inside it. Suppression files are rewritten by the
// review run itself; those writes must feed the debounced refresh, never a
// restart.
func (w *Watcher) configIgnores() []string {
	if w.p.SuppressionDir == "" || w.p.ConfigDir == "" {
		return nil
	}
	rel := relativeTo(normalizeAbs(w.p.ConfigDir), normalizeAbs(w.p.SuppressionDir))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return nil
	}
	return []string{rel, rel + "/**"}
}

// openFileHandle watches a single file by watching its parent directory
// and filtering to the file name. Watching the directory keeps the watch
// alive across editors that replace the file on save.
func openFileHandle(path string, handlers Handlers) (*Handle, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	return OpenHandle([]string{filepath.Dir(abs)}, HandleOptions{
		Match:    []string{filepath.Base(abs)},
		Handlers: handlers,
	})
}

func (w *Watcher) onManifestEvent(path string) {
	data, err := os.ReadFile(filepath.FromSlash(path)) //nolint:gosec // path delivered by own watch
	if err != nil {
		// A vanished manifest mid-save produces a follow-up create event;
		// nothing to compare yet.
		return
	}
	parsed := parseManifest(data)

	w.manifestMu.Lock()
	equal := reflect.DeepEqual(parsed, w.manifest)
	if !equal {
		w.manifest = parsed
	}
	w.manifestMu.Unlock()

	if equal {
		return
	}
	w.p.Log.Event("manifest-changed", path, "")
	w.restart(TargetManifest)
}

func (w *Watcher) onConfigChange(path string) {
	w.p.Log.Event("config-changed", path, "")
	w.restart(TargetConfig)
}

func (w *Watcher) onReadmeAdd(path string) {
	data, err := os.ReadFile(filepath.FromSlash(path)) //nolint:gosec // path delivered by own watch
	if err != nil {
		return
	}
	rec, _ := w.cache.Upsert(path, string(data))
	w.p.Log.Event("readme-add", path, "")
	w.dispatcher.CollectReadme(rec)
	w.dispatcher.RequestReview()
}

func (w *Watcher) onReadmeChange(path string) {
	data, err := os.ReadFile(filepath.FromSlash(path)) //nolint:gosec // path delivered by own watch
	if err != nil {
		return
	}
	rec, changed := w.cache.Upsert(path, string(data))
	if !changed {
		return
	}
	w.p.Log.Event("readme-changed", path, "")
	w.dispatcher.CollectReadme(rec)
	w.dispatcher.RequestReview()
}

func (w *Watcher) onSourceAdd(path string) {
	data, err := os.ReadFile(filepath.FromSlash(path))
	if err != nil {
		w.readFailed(path, err)
		return
	}
	rec, _ := w.cache.Upsert(path, string(data))
	w.p.Log.Event("source-add", path, "")
	w.dispatcher.CollectFile(rec)
	w.dispatcher.RequestReview()
}

func (w *Watcher) onSourceChange(path string) {
	data, err := os.ReadFile(filepath.FromSlash(path))
	if err != nil {
		w.readFailed(path, err)
		return
	}
	rec, changed := w.cache.Upsert(path, string(data))
	if !changed {
		// Touch without modification: no notification, no review.
		return
	}
	w.p.Log.Event("source-changed", path, "")
	w.dispatcher.CollectFile(rec)
	w.dispatcher.RequestReview()
}

func (w *Watcher) onSourceUnlink(path string) {
	w.cache.Remove(path)
	w.p.Log.Event("source-removed", path, "")
	w.dispatcher.RemoveFile(path)
	w.dispatcher.RequestReview()
}

// readFailed applies the vanished-file policy: a file deleted between the
// event and the read is an implicit unlink; any other failure is fatal.
func (w *Watcher) readFailed(path string, err error) {
	if os.IsNotExist(err) {
		w.onSourceUnlink(path)
		return
	}
	w.p.Log.Event("read-error", path, err.Error())
	if w.p.OnFatal != nil {
		w.p.OnFatal(fmt.Errorf("reading %s: %w", path, err))
	}
}

func (w *Watcher) refreshSuppressions() {
	if w.p.Suppressions == nil {
		return
	}
	data, err := w.p.Suppressions.Load(context.Background())
	if err != nil {
		// Suppression files are rewritten by the review run itself; a read
		// racing a rewrite retries on the next event burst.
		w.p.Log.Event("suppressions-error", "", err.Error())
		return
	}
	w.p.Log.Event("suppressions-refreshed", "", "")
	w.dispatcher.UpdateSuppressedErrors(data)
}

// restart moves the generation from Active to Restarting. Review requests
// are disabled before any teardown begins, closing the race where an
// in-flight request could be issued after teardown starts. Teardown runs
// off the event loop so closing the triggering handle cannot deadlock.
func (w *Watcher) restart(trigger Target) {
	if !w.gen.disableReview() {
		// The other trigger already fired within this generation.
		return
	}
	w.p.Log.Event("restart", "", trigger.String())
	go w.teardown(trigger)
}

func (w *Watcher) teardown(trigger Target) {
	w.gen.cancelGates()

	if trigger == TargetManifest {
		// The configuration handle is owned, and eventually closed, by the
		// configuration-change path; a manifest restart leaves it open for
		// the next generation to adopt.
		w.detachedConfig = w.gen.detachHandle(TargetConfig)
	}
	if err := w.gen.closeHandles(); err != nil {
		w.p.Log.Event("teardown-error", "", err.Error())
	}

	if w.p.ClearScreen {
		termenv.NewOutput(os.Stdout).ClearScreen()
	}

	w.p.Rebuild(trigger)
}

// parseManifest decodes manifest bytes for structural comparison. Parse
// failures are not this core's concern; undecodable content falls back to
// raw byte comparison.
func parseManifest(data []byte) any {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}
	return v
}

func normalizeAbs(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Normalize(path)
	}
	return Normalize(abs)
}
