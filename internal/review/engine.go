// Package review runs the external analysis engine for watch mode. The
// shipped engine executes a configured lint command; the watch core only
// ever sees the narrow Engine message interface.
package review

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"time"

	"github.com/henriquecbuss/lintwatch/internal/watch"
)

// Result is the outcome of one review run.
type Result struct {
	Command  []string      `json:"command"`
	Output   string        `json:"output"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration_ns"`
	// Files is the number of files the engine currently tracks.
	Files int `json:"files"`
	// StartErr is set when the command could not be started at all.
	StartErr error `json:"-"`
}

// CommandEngine implements watch.Engine by running a lint command on each
// review request. Runs are serialized: a request arriving while a run is
// in flight coalesces into exactly one trailing run.
type CommandEngine struct {
	ctx    context.Context
	argv   []string
	dir    string
	report func(Result)

	// run produces one review result; swapped out in tests.
	run func() Result

	mu      sync.Mutex
	files   map[string]struct{}
	running bool
	pending bool
	idle    chan struct{}
}

// NewCommandEngine returns an engine running argv in dir, delivering each
// run's outcome to report. The context bounds command execution.
func NewCommandEngine(ctx context.Context, argv []string, dir string, report func(Result)) *CommandEngine {
	e := &CommandEngine{
		ctx:    ctx,
		argv:   argv,
		dir:    dir,
		report: report,
		files:  make(map[string]struct{}),
		idle:   make(chan struct{}),
	}
	close(e.idle)
	e.run = e.runCommand
	return e
}

// CollectReadme records the readme; the command re-reads it from disk.
func (e *CommandEngine) CollectReadme(rec *watch.FileRecord) {
	e.trackFile(rec.Path)
}

// CollectFile records a source file; the command re-reads it from disk.
func (e *CommandEngine) CollectFile(rec *watch.FileRecord) {
	e.trackFile(rec.Path)
}

// RemoveFile forgets a source file.
func (e *CommandEngine) RemoveFile(path string) {
	e.mu.Lock()
	delete(e.files, path)
	e.mu.Unlock()
}

// UpdateSuppressedErrors is a no-op for the command engine: the command
// reads its own suppression files on each run.
func (e *CommandEngine) UpdateSuppressedErrors(any) {}

// RequestReview triggers a run. If one is already in flight, a single
// trailing run is scheduled no matter how many requests arrive meanwhile.
func (e *CommandEngine) RequestReview() {
	e.mu.Lock()
	if e.running {
		e.pending = true
		e.mu.Unlock()
		return
	}
	e.running = true
	e.idle = make(chan struct{})
	e.mu.Unlock()

	go e.loop()
}

// Wait blocks until no run is in flight or pending. Used on shutdown.
func (e *CommandEngine) Wait() {
	e.mu.Lock()
	idle := e.idle
	e.mu.Unlock()
	<-idle
}

func (e *CommandEngine) trackFile(path string) {
	e.mu.Lock()
	e.files[path] = struct{}{}
	e.mu.Unlock()
}

func (e *CommandEngine) loop() {
	for {
		res := e.run()

		e.mu.Lock()
		res.Files = len(e.files)
		done := !e.pending
		e.pending = false
		if done {
			e.running = false
			close(e.idle)
		}
		e.mu.Unlock()

		if e.report != nil {
			e.report(res)
		}
		if done {
			return
		}
	}
}

func (e *CommandEngine) runCommand() Result {
	start := time.Now()
	cmd := exec.CommandContext(e.ctx, e.argv[0], e.argv[1:]...) //nolint:gosec // command comes from the project's own config
	cmd.Dir = e.dir
	out, err := cmd.CombinedOutput()

	res := Result{
		Command:  e.argv,
		Output:   string(out),
		Duration: time.Since(start),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.StartErr = err
			res.ExitCode = -1
		}
	}
	return res
}
