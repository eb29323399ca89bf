//go:build windows

package stdio

import (
	"os"

	"golang.org/x/sys/windows"
)

// processAlive reports whether proc is still running. Unix's zero-
// signal probe has no Windows equivalent, so this opens a limited
// handle and reads the exit code instead, same as the teacher's own
// Windows process-liveness check.
func processAlive(proc *os.Process) bool {
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(proc.Pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(handle)

	var exitCode uint32
	if err := windows.GetExitCodeProcess(handle, &exitCode); err != nil {
		return false
	}
	const stillActive = 259
	return exitCode == stillActive
}
