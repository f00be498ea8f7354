// Package suppress loads suppressed-error files maintained by the
// analysis engine. The watch core treats the payload as opaque; it is
// re-read after each debounced burst of changes to the suppression folder
// and forwarded to the engine.
package suppress

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Data maps a rule name (the file base name without extension) to the raw
// suppression payload stored for it.
type Data map[string]json.RawMessage

// DirLoader reads every *.json file in a suppression directory.
type DirLoader struct {
	Dir string
}

// NewDirLoader returns a loader over dir.
func NewDirLoader(dir string) *DirLoader {
	return &DirLoader{Dir: dir}
}

// Load reads the current suppression data. A missing directory yields an
// empty payload; the engine simply has nothing suppressed yet.
func (l *DirLoader) Load(ctx context.Context) (any, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Data{}, nil
		}
		return nil, fmt.Errorf("reading suppression dir: %w", err)
	}

	data := make(Data, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(l.Dir, name)) //nolint:gosec // path enumerated under configured dir
		if err != nil {
			if os.IsNotExist(err) {
				// Deleted between listing and read; the next burst refreshes.
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		if !json.Valid(raw) {
			return nil, fmt.Errorf("parsing %s: invalid JSON", name)
		}
		data[strings.TrimSuffix(name, ".json")] = json.RawMessage(raw)
	}
	return data, nil
}
