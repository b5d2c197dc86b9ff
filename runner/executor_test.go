package runner

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell fixtures assume a POSIX shell")
	}
}

func TestShellRunnerCollectsLines(t *testing.T) {
	skipOnWindows(t)
	r := NewShellRunner(Config{Log: log.New()})

	lines, err := r.Run(context.Background(), `printf 'first\r\n\n   \n  second  \nthird'`)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, lines)
}

func TestShellRunnerNonZeroExit(t *testing.T) {
	skipOnWindows(t)
	r := NewShellRunner(Config{})

	lines, err := r.Run(context.Background(), `echo "FAIL something"; exit 3`)
	require.NoError(t, err, "a failing process is not a runner error")
	assert.Equal(t, []string{"FAIL something"}, lines)
}

func TestShellRunnerStderrRedirect(t *testing.T) {
	skipOnWindows(t)
	r := NewShellRunner(Config{})

	lines, err := r.Run(context.Background(), `(echo out; echo err 1>&2) 2>&1`)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"out", "err"}, lines)

	lines, err = r.Run(context.Background(), `echo hidden 1>&2`)
	require.NoError(t, err)
	assert.Empty(t, lines, "stderr is not captured without a redirect")
}

func TestShellRunnerWorkDir(t *testing.T) {
	skipOnWindows(t)
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	r := NewShellRunner(Config{WorkDir: dir})

	lines, err := r.Run(context.Background(), `pwd -P`)
	require.NoError(t, err)
	assert.Equal(t, []string{dir}, lines)
}

func TestShellRunnerStartFailure(t *testing.T) {
	r := NewShellRunner(Config{Shell: "/nonexistent/shell"})

	lines, err := r.Run(context.Background(), "echo hi")
	require.Error(t, err)
	assert.Nil(t, lines)
}

func TestShellRunnerTimeout(t *testing.T) {
	skipOnWindows(t)
	r := NewShellRunner(Config{Timeout: 200 * time.Millisecond})

	start := time.Now()
	lines, err := r.Run(context.Background(), `echo started; sleep 10; echo finished`)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, []string{"started"}, lines)
}

func TestLineBuffer(t *testing.T) {
	b := newLineBuffer()
	_, _ = b.Write([]byte("par"))
	_, _ = b.Write([]byte("tial\r\n\t\nnext "))
	assert.Equal(t, []string{"partial", "next"}, b.Lines())
	assert.Equal(t, int64(16), b.TotalBytes())
}
