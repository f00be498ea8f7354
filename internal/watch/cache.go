package watch

import "sync"

// FileRecord is the cached state of one watched file. Records are shared by
// reference with the analysis engine: the same record identity is reused
// across edits within a generation, and Source/Parsed mutate in place.
// Consumers that need a stable view must snapshot the fields they care about.
type FileRecord struct {
	// Path is the normalized path, identical to the cache key.
	Path string
	// Source is the file content as last read from disk.
	Source string
	// Parsed is an opaque representation computed by the analysis engine.
	// It is cleared whenever Source changes and never populated here.
	Parsed any
}

// FileCache maps normalized paths to file records. Content equality, not
// modification time, is the sole signal for "did this file actually change",
// so touch-without-modification events are absorbed without downstream work.
type FileCache struct {
	mu      sync.Mutex
	records map[string]*FileRecord
}

// NewFileCache returns an empty cache.
func NewFileCache() *FileCache {
	return &FileCache{records: make(map[string]*FileRecord)}
}

// Lookup returns the record for path, or nil if the path is unknown.
func (c *FileCache) Lookup(path string) *FileRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.records[path]
}

// Upsert stores source under path. A new record reports changed=true.
// An existing record is compared byte-for-byte: equal content leaves the
// record untouched and reports changed=false; different content mutates
// Source in place and clears Parsed.
func (c *FileCache) Upsert(path, source string) (rec *FileRecord, changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[path]
	if !ok {
		rec = &FileRecord{Path: path, Source: source}
		c.records[path] = rec
		return rec, true
	}
	if rec.Source == source {
		return rec, false
	}
	rec.Source = source
	rec.Parsed = nil
	return rec, true
}

// Remove drops the record for path. Removing an unknown path is a no-op.
func (c *FileCache) Remove(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, path)
}

// Len returns the number of cached records.
func (c *FileCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}
