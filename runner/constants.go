package runner

import "time"

// Process execution constants
const (
	// unixShell and its flag run the command line on non-Windows platforms
	unixShell     = "/bin/sh"
	unixShellFlag = "-c"

	// windowsShell and its flag run the command line on Windows
	windowsShell     = "cmd"
	windowsShellFlag = "/C"

	// DefaultWaitDelay bounds how long Wait keeps the stdout pipe open after
	// the process was killed, in case a grandchild still holds it.
	DefaultWaitDelay = time.Second
)
