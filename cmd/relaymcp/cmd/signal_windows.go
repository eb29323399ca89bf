//go:build windows

package cmd

import "os"

// gracefulSignals returns the OS signals that begin process-wide
// shutdown. Windows does not have SIGTERM; os.Interrupt (Ctrl+C /
// CTRL_C_EVENT) is the only one reliably delivered.
func gracefulSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
