// Package runner runs the external test runner as a subprocess.
//
// A ProcessRunner takes a complete shell command line, runs it through the
// platform shell with the inherited environment and working directory and
// returns the non-empty lines the process wrote to stdout. A non-zero exit
// status is not an error: whatever the process printed is returned and
// classified by the caller.
package runner
