//go:build !windows

package watch

import (
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// drainStdin discards any bytes already buffered on stdin. Runs once per
// process, before the first generation installs, so a stale keypress is
// never consumed later as an answer to the fix-acceptance prompt.
func drainStdin() {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return
	}
	defer func() { _ = unix.SetNonblock(fd, false) }()

	buf := make([]byte, 256)
	for {
		n, err := unix.Read(fd, buf)
		if n <= 0 || err != nil {
			return
		}
	}
}
