package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ethereum-optimism/infra/op-testdash/types"
)

const (
	MetricsNamespace = "testdash"
)

var (
	Debug                bool = true
	validStates               = []types.TestState{types.TestStatePassed, types.TestStateFailed, types.TestStateError}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "runs_total",
		Help:      "Count of test runs by site, test type and resulting state",
	}, []string{
		"site",
		"type",
		"state",
	})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Wall clock duration of a single test run",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{
		"site",
		"type",
	})

	discoveredTests = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "discovered_tests",
		Help:      "Number of test files found by the last discovery of a site",
	}, []string{
		"site",
	})

	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "requests_total",
		Help:      "Count of handled HTTP requests by route and status code",
	}, []string{
		"route",
		"code",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordRun records the outcome of one test run.
func RecordRun(site string, testType string, state types.TestState, duration time.Duration) {
	if !isValidState(state) {
		log.Error("RecordRun - invalid state", "state", state)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "runs_total",
			"site", site,
			"type", testType,
			"state", state,
			"duration", duration)
	}
	runsTotal.WithLabelValues(site, testType, string(state)).Inc()
	runDuration.WithLabelValues(site, testType).Observe(duration.Seconds())
}

func RecordDiscovery(site string, tally int) {
	discoveredTests.WithLabelValues(site).Set(float64(tally))
}

func RecordRequest(route string, code int) {
	requestsTotal.WithLabelValues(route, fmt.Sprintf("%d", code)).Inc()
}

func isValidState(state types.TestState) bool {
	return slices.Contains(validStates, state)
}
