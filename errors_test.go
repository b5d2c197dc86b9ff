package testdash

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ethereum-optimism/infra/op-testdash/exitcodes"
	"github.com/ethereum-optimism/infra/op-testdash/types"
)

func TestRuntimeError(t *testing.T) {
	base := errors.New("dashboard config unreadable")
	err := NewRuntimeError(base)

	assert.Equal(t, "runtime error: dashboard config unreadable", err.Error())
	assert.ErrorIs(t, err, base)
	assert.True(t, IsRuntimeError(err))
	assert.True(t, IsRuntimeError(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsRuntimeError(base))
	assert.False(t, IsRuntimeError(nil))
}

func TestTestFailureError(t *testing.T) {
	test := types.NewTest("unit", "/site/tests/unit/MathTest.php")
	test.RecordRun([]string{"FAILURES!"})

	err := NewTestFailureError(test)
	assert.Equal(t, "test failure: unit test MathTest.php finished in state failed", err.Error())
	assert.True(t, IsTestFailureError(err))
	assert.False(t, IsRuntimeError(err))
	assert.False(t, IsTestFailureError(errors.New("other")))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: exitcodes.Success},
		{name: "runtime", err: NewRuntimeError(errors.New("boom")), want: exitcodes.RuntimeErr},
		{name: "wrapped runtime", err: fmt.Errorf("ctx: %w", NewRuntimeError(errors.New("boom"))), want: exitcodes.RuntimeErr},
		{name: "test failure", err: &TestFailureError{Type: "unit"}, want: exitcodes.TestFailure},
		{name: "other", err: errors.New("unknown"), want: exitcodes.TestFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
