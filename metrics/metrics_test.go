package metrics

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/ethereum-optimism/infra/op-testdash/types"
)

func TestErrToLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil error", err: nil, want: "nil"},
		{name: "simple error", err: errors.New("test error"), want: "test_error"},
		{name: "error with special chars", err: errors.New("test@error#123"), want: "testerror"},
		{name: "error with multiple spaces", err: errors.New("test   error"), want: "test__error"},
		{name: "error with multiple underscores", err: errors.New("test__error"), want: "testerror"},
	}

	validLabelRegex := regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := errToLabel(tt.err)
			assert.Regexp(t, validLabelRegex, result)
			assert.Equal(t, tt.want, result)
		})
	}
}

func TestRecordErrorDetails(t *testing.T) {
	before := testutil.ToFloat64(errorsTotal.WithLabelValues("exec.boom"))
	RecordErrorDetails("exec", nil)
	RecordErrorDetails("exec", errors.New("boom"))
	assert.Equal(t, before+1, testutil.ToFloat64(errorsTotal.WithLabelValues("exec.boom")))
}

func TestRecordRun(t *testing.T) {
	counter := runsTotal.WithLabelValues("site-a", "unit", "passed")
	before := testutil.ToFloat64(counter)

	RecordRun("site-a", "unit", types.TestStatePassed, time.Second)
	RecordRun("site-a", "unit", types.TestStateReady, time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(counter), "ready is not a run outcome")
}

func TestRecordDiscovery(t *testing.T) {
	RecordDiscovery("site-b", 12)
	assert.Equal(t, float64(12), testutil.ToFloat64(discoveredTests.WithLabelValues("site-b")))
	RecordDiscovery("site-b", 3)
	assert.Equal(t, float64(3), testutil.ToFloat64(discoveredTests.WithLabelValues("site-b")))
}

func TestRecordRequest(t *testing.T) {
	before := testutil.ToFloat64(requestsTotal.WithLabelValues("run", "500"))
	RecordRequest("run", 500)
	assert.Equal(t, before+1, testutil.ToFloat64(requestsTotal.WithLabelValues("run", "500")))
}
