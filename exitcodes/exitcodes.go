// Package exitcodes defines the exit codes used by op-testdash.
package exitcodes

// Exit code constants:
//
// * Success (0): the command completed and, for run, the test passed
// * TestFailure (1): a test run from the command line did not pass
// * RuntimeErr (2): configuration problems or an environment that is not ready
const (
	Success     = 0 // Command succeeded
	TestFailure = 1 // Test did not pass
	RuntimeErr  = 2 // Runtime errors or failed environment checks
)
