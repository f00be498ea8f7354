package cmd

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/henriquecbuss/lintwatch/internal/clierr"
	"github.com/henriquecbuss/lintwatch/internal/filelock"
	"github.com/henriquecbuss/lintwatch/internal/output"
	"github.com/henriquecbuss/lintwatch/internal/review"
	"github.com/henriquecbuss/lintwatch/internal/suppress"
	"github.com/henriquecbuss/lintwatch/internal/watch"
	"github.com/henriquecbuss/lintwatch/internal/watchlog"
)

const lockFileName = ".lintwatch.lock"

// session owns the state that survives watch restarts: the engine, the
// event log, and the handle to the currently active generation.
type session struct {
	dir    string
	format output.Format
	engine *review.CommandEngine
	log    *watchlog.Log

	mu      sync.Mutex
	current *watch.Watcher

	fatalCh chan error
}

func runWatch(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if _, err := exec.LookPath(cfg.Command[0]); err != nil {
		return clierr.Newf(clierr.EngineFailed,
			"lint command %q not found in PATH", cfg.Command[0])
	}

	lockPath := filepath.Join(cfg.Dir(), lockFileName)
	unlock, err := filelock.TryLock(lockPath)
	if err != nil {
		if errors.Is(err, filelock.ErrLocked) {
			return clierr.New(clierr.LockHeld,
				"another lintwatch is already running in "+cfg.Dir()).
				WithDetails(map[string]any{"lock_file": lockPath})
		}
		return err
	}
	defer func() { _ = unlock() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	format := output.Detect(flagJSON, cfg.Report)
	s := &session{
		dir:     cfg.Dir(),
		format:  format,
		log:     watchlog.New(cfg.Dir(), flagDebug),
		fatalCh: make(chan error, 1),
	}
	s.engine = review.NewCommandEngine(ctx, cfg.Command, cfg.Dir(), func(res review.Result) {
		output.RunResult(os.Stdout, format, res)
	})

	if err := s.install(); err != nil {
		return clierr.Newf(clierr.WatchFailed, "installing watchers: %v", err)
	}
	if format == output.FormatHuman {
		output.Watching(os.Stdout, s.dir)
	}

	// Initial run over the seeded project.
	s.watcher().Dispatcher().RequestReview()

	select {
	case <-ctx.Done():
		_ = s.watcher().Close()
		s.engine.Wait()
		return nil
	case err := <-s.fatalCh:
		_ = s.watcher().Close()
		werr := clierr.Newf(clierr.WatchFailed, "watch error: %v", err)
		if format == output.FormatJSON {
			// Config-driven JSON mode is invisible to Execute's error
			// rendering; emit the envelope here and exit silently.
			output.JSONError(os.Stdout, werr.Code, werr.Message, werr.Details)
			return &clierr.SilentError{Code: werr.ExitCode()}
		}
		return werr
	}
}

func (s *session) watcher() *watch.Watcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// install builds one watch generation. On restart the settings are
// re-read: a manifest or review-config change may have altered source
// directories or ignore patterns.
func (s *session) install() error {
	cfg, err := loadConfigIn(s.dir)
	if err != nil {
		return err
	}

	params := watch.Params{
		ManifestPath:   cfg.ManifestPath(),
		ReadmePath:     cfg.ReadmePath(),
		SourceDirs:     cfg.SourcePaths(),
		SourcePatterns: cfg.SourcePatterns(),
		Ignore:         cfg.Ignore,
		ConfigDir:      cfg.ReviewPath(),
		SuppressionDir: cfg.SuppressionPath(),
		Debounce:       cfg.DebounceDuration(),
		Engine:         s.engine,
		Rebuild:        s.rebuild,
		OnFatal:        s.fatal,
		ClearScreen:    s.clearScreen(),
		Log:            s.log,
	}
	if cfg.SuppressionPath() != "" {
		params.Suppressions = suppress.NewDirLoader(cfg.SuppressionPath())
	}

	s.mu.Lock()
	prev := s.current
	s.mu.Unlock()
	if prev != nil {
		params = params.WithConfigHandle(prev.AdoptConfigHandle())
	}

	w, err := watch.Install(params)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.current = w
	s.mu.Unlock()
	return nil
}

// rebuild forms the next generation after a restart trigger tore down the
// previous one, then kicks off a review of the freshly seeded project.
func (s *session) rebuild(trigger watch.Target) {
	if err := s.install(); err != nil {
		s.fatal(err)
		return
	}
	if s.format == output.FormatHuman {
		reason := "manifest"
		if trigger == watch.TargetConfig {
			reason = "lint configuration"
		}
		output.Restarted(os.Stdout, reason)
	}
	s.watcher().Dispatcher().RequestReview()
}

func (s *session) fatal(err error) {
	select {
	case s.fatalCh <- err:
	default:
	}
}

// clearScreen reports whether restarts should clear the terminal:
// suppressed for structured output, under verbose diagnostics, by flag,
// and when stdout is not a terminal.
func (s *session) clearScreen() bool {
	return s.format == output.FormatHuman &&
		!flagDebug &&
		!flagNoClear &&
		term.IsTerminal(int(os.Stdout.Fd()))
}
