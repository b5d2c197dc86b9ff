package testdash

import (
	"errors"
	"fmt"

	"github.com/ethereum-optimism/infra/op-testdash/exitcodes"
	"github.com/ethereum-optimism/infra/op-testdash/types"
)

// RuntimeError represents an operational error that should lead to exit code 2.
// Examples include an unreadable dashboard config or an environment check
// that is not ready.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// TestFailureError reports a test run from the command line that did not pass (exit code 1).
type TestFailureError struct {
	Type     string
	Filename string
	State    types.TestState
}

func (e *TestFailureError) Error() string {
	return fmt.Sprintf("test failure: %s test %s finished in state %s", e.Type, e.Filename, e.State)
}

func NewTestFailureError(test *types.Test) *TestFailureError {
	return &TestFailureError{Type: test.Type(), Filename: test.Filename(), State: test.State()}
}

// IsTestFailureError checks if the error is or wraps a TestFailureError
func IsTestFailureError(err error) bool {
	var testErr *TestFailureError
	return err != nil && errors.As(err, &testErr)
}

// ExitCode maps an error returned by a command onto the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return exitcodes.Success
	case IsRuntimeError(err):
		return exitcodes.RuntimeErr
	default:
		return exitcodes.TestFailure
	}
}
