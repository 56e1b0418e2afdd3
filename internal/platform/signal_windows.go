//go:build windows

// Package platform bridges OS-specific shutdown signaling into the
// os/signal channel the rest of the service already listens on; on
// Windows, Ctrl+Break/Ctrl+Close arrive as console control events rather
// than POSIX signals and need an explicit SetConsoleCtrlHandler bridge.
package platform

import (
	"os"

	"golang.org/x/sys/windows"
)

// NotifyConsoleClose registers a Windows console control handler that
// forwards CTRL_CLOSE/CTRL_BREAK/CTRL_SHUTDOWN events onto sigChan as an
// os.Interrupt, so the same signal.Notify-based shutdown path used on
// POSIX also fires when the console window is closed directly.
func NotifyConsoleClose(sigChan chan<- os.Signal) error {
	handler := func(ctrlType uint32) bool {
		switch ctrlType {
		case windows.CTRL_CLOSE_EVENT, windows.CTRL_BREAK_EVENT,
			windows.CTRL_SHUTDOWN_EVENT, windows.CTRL_LOGOFF_EVENT:
			sigChan <- os.Interrupt
			return true
		default:
			return false
		}
	}
	return windows.SetConsoleCtrlHandler(handler, true)
}
