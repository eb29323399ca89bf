//go:build !windows

package stdio

import (
	"os"
	"syscall"
)

// processAlive reports whether proc is still running, probed with a
// zero-signal (no actual delivery, just existence/permission check).
func processAlive(proc *os.Process) bool {
	return proc.Signal(syscall.Signal(0)) == nil
}
