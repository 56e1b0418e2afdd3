//go:build !windows

package platform

import "os"

// NotifyConsoleClose is a no-op on non-Windows platforms, where
// os/signal already covers every shutdown path the service cares about.
func NotifyConsoleClose(sigChan chan<- os.Signal) error {
	return nil
}
