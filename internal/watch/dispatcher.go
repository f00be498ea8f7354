package watch

import "context"

// Engine is the narrow message interface to the external analysis engine.
// Notifications are fire-and-forget; no return values are awaited here.
// Records passed to CollectFile and CollectReadme are shared by reference
// and may mutate on later edits.
type Engine interface {
	CollectReadme(rec *FileRecord)
	CollectFile(rec *FileRecord)
	RemoveFile(path string)
	UpdateSuppressedErrors(data any)
	RequestReview()
}

// SuppressionLoader reads the current suppressed-error data. It is invoked
// only after the debounce quiescence window elapses.
type SuppressionLoader interface {
	Load(ctx context.Context) (any, error)
}

// Dispatcher bridges watch handlers to the analysis engine. Notifications
// always forward, but RequestReview consults the generation's review gate:
// the instant a restart trigger fires, every subsequent request becomes a
// no-op for the remainder of that generation, so no review can start
// against a generation that is mid-teardown.
type Dispatcher struct {
	engine Engine
	gen    *Generation
}

// NewDispatcher returns a dispatcher delivering into engine, gated by gen.
func NewDispatcher(engine Engine, gen *Generation) *Dispatcher {
	return &Dispatcher{engine: engine, gen: gen}
}

// CollectReadme forwards a readme record to the engine.
func (d *Dispatcher) CollectReadme(rec *FileRecord) {
	d.engine.CollectReadme(rec)
}

// CollectFile forwards a source file record to the engine.
func (d *Dispatcher) CollectFile(rec *FileRecord) {
	d.engine.CollectFile(rec)
}

// RemoveFile tells the engine a source file is gone.
func (d *Dispatcher) RemoveFile(path string) {
	d.engine.RemoveFile(path)
}

// UpdateSuppressedErrors forwards fresh suppression data to the engine.
func (d *Dispatcher) UpdateSuppressedErrors(data any) {
	d.engine.UpdateSuppressedErrors(data)
}

// RequestReview asks the engine for a review run, unless a restart is
// pending for this generation.
func (d *Dispatcher) RequestReview() {
	if !d.gen.ReviewEnabled() {
		return
	}
	d.engine.RequestReview()
}
