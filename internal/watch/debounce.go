package watch

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiescence window applied when no explicit window
// is configured. Suppression files are rewritten several times in quick
// succession by the review run's own output; a raw per-event refresh would
// cause redundant loads and visible flicker.
const DefaultDebounce = 300 * time.Millisecond

// Gate coalesces bursts of events into a single action. Each Schedule call
// replaces any pending action and restarts the quiescence timer; only the
// most recently scheduled action fires, once the window elapses with no
// further calls.
type Gate struct {
	window time.Duration

	mu    sync.Mutex
	seq   uint64
	timer *time.Timer
}

// NewGate returns a gate with the given quiescence window.
// A zero or negative window falls back to DefaultDebounce.
func NewGate(window time.Duration) *Gate {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &Gate{window: window}
}

// Schedule replaces any pending action with fn and restarts the timer.
func (g *Gate) Schedule(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.timer != nil {
		g.timer.Stop()
	}
	g.seq++
	seq := g.seq
	g.timer = time.AfterFunc(g.window, func() {
		g.mu.Lock()
		// A timer that lost the race against a later Schedule or a Cancel
		// must not fire its stale action.
		if g.seq != seq {
			g.mu.Unlock()
			return
		}
		g.timer = nil
		g.mu.Unlock()
		fn()
	})
}

// Cancel clears any pending timer. Used during teardown so a coalesced
// action cannot fire into a closed generation.
func (g *Gate) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.seq++
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}
