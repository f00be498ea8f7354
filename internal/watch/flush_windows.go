//go:build windows

package watch

import (
	"os"

	"golang.org/x/sys/windows"
	"golang.org/x/term"
)

// drainStdin discards any input records already buffered on the console.
// Runs once per process, before the first generation installs, so a stale
// keypress is never consumed later as an answer to the fix-acceptance
// prompt.
func drainStdin() {
	fd := os.Stdin.Fd()
	if !term.IsTerminal(int(fd)) {
		return
	}
	_ = windows.FlushConsoleInputBuffer(windows.Handle(fd))
}
