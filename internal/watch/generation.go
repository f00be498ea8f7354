package watch

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Target identifies one logical watch target within a generation.
type Target int

// Watch targets, each mapped 1:1 to a Handle.
const (
	TargetManifest Target = iota
	TargetReadme
	TargetSources
	TargetSuppressions
	TargetConfig
)

var targetNames = map[Target]string{
	TargetManifest:     "manifest",
	TargetReadme:       "readme",
	TargetSources:      "sources",
	TargetSuppressions: "suppressions",
	TargetConfig:       "config",
}

// String returns the target's stable name, used in logs.
func (t Target) String() string { return targetNames[t] }

// Generation is one complete, self-consistent set of active watch handles
// plus the shared control state, alive between installation and the next
// restart. At most one generation is active at a time: a new one is not
// installed until the previous one's handles have all reported closed.
type Generation struct {
	// reviewEnabled gates review requests. It transitions true→false
	// exactly once, the instant a restart trigger fires, and never back.
	reviewEnabled atomic.Bool

	mu      sync.Mutex
	handles map[Target]*Handle
	gates   []*Gate
}

func newGeneration() *Generation {
	g := &Generation{handles: make(map[Target]*Handle)}
	g.reviewEnabled.Store(true)
	return g
}

// ReviewEnabled reports whether review requests may still be dispatched.
func (g *Generation) ReviewEnabled() bool {
	return g.reviewEnabled.Load()
}

// disableReview flips the review gate off. It returns true only for the
// caller that performed the transition, so exactly one restart trigger
// proceeds to teardown; firing twice is safe.
func (g *Generation) disableReview() bool {
	return g.reviewEnabled.CompareAndSwap(true, false)
}

func (g *Generation) addHandle(t Target, h *Handle) {
	g.mu.Lock()
	g.handles[t] = h
	g.mu.Unlock()
}

func (g *Generation) addGate(gate *Gate) {
	g.mu.Lock()
	g.gates = append(g.gates, gate)
	g.mu.Unlock()
}

// handle returns the handle for t, or nil if the target is not installed.
func (g *Generation) handle(t Target) *Handle {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.handles[t]
}

// cancelGates clears every pending debounce timer in the generation.
func (g *Generation) cancelGates() {
	g.mu.Lock()
	gates := append([]*Gate(nil), g.gates...)
	g.mu.Unlock()
	for _, gate := range gates {
		gate.Cancel()
	}
}

// closeHandles concurrently closes every handle except those named in skip,
// removes them from the generation, and waits for all closures to complete.
func (g *Generation) closeHandles(skip ...Target) error {
	skipped := make(map[Target]bool, len(skip))
	for _, t := range skip {
		skipped[t] = true
	}

	g.mu.Lock()
	var closing []*Handle
	for t, h := range g.handles {
		if skipped[t] {
			continue
		}
		closing = append(closing, h)
		delete(g.handles, t)
	}
	g.mu.Unlock()

	var eg errgroup.Group
	for _, h := range closing {
		eg.Go(h.Close)
	}
	return eg.Wait()
}

// detachHandle removes and returns the handle for t without closing it.
// Used for the configuration handle, which outlives a manifest restart.
func (g *Generation) detachHandle(t Target) *Handle {
	g.mu.Lock()
	defer g.mu.Unlock()
	h := g.handles[t]
	delete(g.handles, t)
	return h
}
