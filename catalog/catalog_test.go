package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-testdash/registry"
	"github.com/ethereum-optimism/infra/op-testdash/runner"
	"github.com/ethereum-optimism/infra/op-testdash/types"
)

const projectConfig = `
actor: Tester
paths:
  tests: tests
  log: tests/_output
  data: tests/_data
settings:
  colors: true
`

// stubRunner returns canned output and records the commands it was given.
type stubRunner struct {
	mu       sync.Mutex
	lines    []string
	err      error
	commands []string
}

func (s *stubRunner) Run(_ context.Context, command string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, command)
	if s.err != nil {
		return nil, s.err
	}
	return s.lines, nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// setupSite lays out a project with a runner config and a few tests and
// returns the site pointing at it.
func setupSite(t *testing.T) types.Site {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "codeception.yml"), projectConfig)
	writeFile(t, filepath.Join(dir, "tests", "acceptance", "LoginCept.php"), "<?php")
	writeFile(t, filepath.Join(dir, "tests", "acceptance", "admin", "AdminPanelCest.php"), "<?php")
	writeFile(t, filepath.Join(dir, "tests", "acceptance", "WebGuy.php"), "<?php")
	writeFile(t, filepath.Join(dir, "tests", "acceptance", "_bootstrap.php"), "<?php")
	writeFile(t, filepath.Join(dir, "tests", "unit", "MathTest.php"), "<?php")
	writeFile(t, filepath.Join(dir, "tests", "functional", ".DS_Store"), "")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tests", "_output"), 0755))

	return types.NewSite("Webception", filepath.Join(dir, "codeception.yml"))
}

func testDashboard() *registry.Dashboard {
	return &registry.Dashboard{
		Executable: "/usr/local/bin/codecept",
		Tests:      registry.DefaultTests(),
		Ignore:     registry.DefaultIgnore(),
		Location:   "/etc/testdash/dashboard.yaml",
	}
}

func newTestCatalog(t *testing.T, site *types.Site, r runner.ProcessRunner) *Catalog {
	t.Helper()
	return New(context.Background(), Config{
		Log:       log.New(),
		Dashboard: testDashboard(),
		Site:      site,
		Runner:    r,
	})
}

func TestDiscover(t *testing.T) {
	site := setupSite(t)
	c := newTestCatalog(t, &site, &stubRunner{})

	require.True(t, c.Ready())
	assert.Equal(t, 3, c.Tally())
	assert.Equal(t, []string{"acceptance", "unit"}, c.Types())

	login, ok := c.Test("acceptance", types.TestHash("acceptance", "Login"))
	require.True(t, ok)
	assert.Equal(t, "LoginCept.php", login.Filename())
	assert.Equal(t, "Login", login.Title())

	admin, ok := c.Test("acceptance", types.TestHash("acceptance", "AdminPanel"))
	require.True(t, ok)
	assert.Equal(t, "admin/AdminPanelCest.php", admin.Filename())
	assert.Equal(t, "Admin Panel", admin.Title())

	_, ok = c.Test("unit", types.TestHash("unit", "Math"))
	assert.True(t, ok)

	_, ok = c.Test("acceptance", types.TestHash("acceptance", "WebGuy.php"))
	assert.False(t, ok, "ignored files are not indexed")

	acceptance := c.Tests("acceptance")
	require.Len(t, acceptance, 2)
	assert.Equal(t, "LoginCept.php", acceptance[0].Filename())
	assert.Equal(t, "admin/AdminPanelCest.php", acceptance[1].Filename())

	summaries := c.Summaries()
	require.Len(t, summaries["unit"], 1)
	assert.Equal(t, types.TestStateReady, summaries["unit"][0].State)
}

func TestDiscoverDisabledCategory(t *testing.T) {
	site := setupSite(t)
	dashboard := testDashboard()
	dashboard.Tests = map[string]bool{"acceptance": false, "unit": true}

	c := New(context.Background(), Config{Dashboard: dashboard, Site: &site, Runner: &stubRunner{}})
	require.True(t, c.Ready())
	assert.Equal(t, 1, c.Tally())
	assert.Equal(t, []string{"unit"}, c.Types())
}

func TestDiscoverProjectOverrides(t *testing.T) {
	site := setupSite(t)
	dir := filepath.Dir(site.ConfigPath)
	writeFile(t, site.ConfigPath, `
paths:
  tests: tests
  output: tests/_output
  unit: spec
tests:
  unit: true
ignore:
  - Helper.php
executable: bin/codecept
`)
	writeFile(t, filepath.Join(dir, "spec", "unit", "ParserTest.php"), "<?php")
	writeFile(t, filepath.Join(dir, "spec", "models", "UserTest.php"), "<?php")
	writeFile(t, filepath.Join(dir, "spec", "Helper.php"), "<?php")

	c := newTestCatalog(t, &site, &stubRunner{})
	require.True(t, c.Ready())
	assert.Equal(t, "bin/codecept", c.Config().Executable)
	assert.Equal(t, []string{"unit"}, c.Config().Categories())
	assert.Equal(t, 2, c.Tally())

	test, ok := c.Test("unit", types.TestHash("unit", "Parser"))
	require.True(t, ok)
	assert.Equal(t, "unit/ParserTest.php", test.Filename())

	nested, ok := c.Test("unit", types.TestHash("unit", "User"))
	require.True(t, ok)
	assert.Equal(t, "models/UserTest.php", nested.Filename())
	assert.True(t, strings.HasSuffix(c.BuildCommand("unit", nested.Filename()), " unit models/UserTest.php 2>&1"))

	logPath, ok := c.LogPath()
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "tests", "_output"), logPath)
}

func TestNotReady(t *testing.T) {
	t.Run("no site selected", func(t *testing.T) {
		c := newTestCatalog(t, nil, &stubRunner{})
		assert.False(t, c.Ready())
		assert.Zero(t, c.Tally())
		_, ok := c.Site()
		assert.False(t, ok)
	})

	t.Run("missing runner config", func(t *testing.T) {
		site := types.NewSite("Missing", filepath.Join(t.TempDir(), "codeception.yml"))
		c := newTestCatalog(t, &site, &stubRunner{})
		assert.False(t, c.Ready())
	})

	t.Run("broken runner config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "codeception.yml")
		writeFile(t, path, "paths: [unterminated\n")
		site := types.NewSite("Broken", path)
		c := newTestCatalog(t, &site, &stubRunner{})
		assert.False(t, c.Ready())
	})
}

func TestLoadConfigPaths(t *testing.T) {
	site := setupSite(t)
	dir := site.ConfigDir()

	cfg, ok := LoadConfig(dir, site.ConfigFile())
	require.True(t, ok)
	assert.Equal(t, filepath.Join(filepath.Dir(site.ConfigPath), "tests"), cfg.Paths["tests"])
	assert.Equal(t, dir+"tests/_data", cfg.Paths["data"], "missing paths keep the plain concatenation")

	_, ok = LoadConfig(dir, "nope.yml")
	assert.False(t, ok)
}

func TestBuildCommand(t *testing.T) {
	site := types.NewSite("Webception", "/srv/site/codeception.yml")
	c := newTestCatalog(t, &site, &stubRunner{})

	assert.Equal(t,
		`/usr/local/bin/codecept run --no-colors --config="/srv/site/codeception.yml" acceptance LoginCept.php 2>&1`,
		c.BuildCommand("acceptance", "LoginCept.php"))
	assert.Equal(t,
		`/usr/local/bin/codecept run --no-colors --config="/srv/site/codeception.yml" acceptance 'my tests/Login Cept.php' 2>&1`,
		c.BuildCommand("acceptance", "my tests/Login Cept.php"))
}

func TestHandleRunRequest(t *testing.T) {
	site := setupSite(t)
	hash := types.TestHash("acceptance", "Login")

	t.Run("passing run", func(t *testing.T) {
		stub := &stubRunner{lines: []string{"Codeception PHP Testing Framework", "\x1b[1mOK (1 test, 2 assertions)\x1b[0m"}}
		c := newTestCatalog(t, &site, stub)

		resp := c.HandleRunRequest(context.Background(), "acceptance", hash)
		assert.Nil(t, resp.Message)
		assert.True(t, resp.Run)
		assert.True(t, resp.Passed)
		assert.Equal(t, types.TestStatePassed, resp.State)
		assert.Equal(t, "Login", resp.Title)
		require.NotNil(t, resp.Log)
		assert.Equal(t, "Codeception PHP Testing Framework\nOK (1 test, 2 assertions)", *resp.Log)

		require.Len(t, stub.commands, 1)
		assert.Equal(t, c.BuildCommand("acceptance", "LoginCept.php"), stub.commands[0])
	})

	t.Run("fail marker vetoes", func(t *testing.T) {
		stub := &stubRunner{lines: []string{"a", "b", "OK (5 tests)", "d", "e", "f", "g", "h", "FAILURES!"}}
		c := newTestCatalog(t, &site, stub)

		resp := c.HandleRunRequest(context.Background(), "acceptance", hash)
		assert.True(t, resp.Run)
		assert.False(t, resp.Passed)
		assert.Equal(t, types.TestStateFailed, resp.State)
	})

	t.Run("no output", func(t *testing.T) {
		c := newTestCatalog(t, &site, &stubRunner{})
		resp := c.HandleRunRequest(context.Background(), "acceptance", hash)
		assert.False(t, resp.Run)
		assert.Equal(t, types.TestStateError, resp.State)
		require.NotNil(t, resp.Log)
		assert.Equal(t, "", *resp.Log)
	})

	t.Run("runner start failure", func(t *testing.T) {
		c := newTestCatalog(t, &site, &stubRunner{err: errors.New("no shell")})
		resp := c.HandleRunRequest(context.Background(), "acceptance", hash)
		assert.False(t, resp.Run)
		assert.False(t, resp.Passed)
		assert.Equal(t, types.TestStateError, resp.State)
	})

	t.Run("unknown test", func(t *testing.T) {
		stub := &stubRunner{lines: []string{"PASSED"}}
		c := newTestCatalog(t, &site, stub)

		resp := c.HandleRunRequest(context.Background(), "lol", "fake-test-id")
		require.NotNil(t, resp.Message)
		assert.Equal(t, MsgTestNotFound, *resp.Message)
		assert.False(t, resp.Run)
		assert.False(t, resp.Passed)
		assert.Equal(t, types.TestStateError, resp.State)
		assert.Nil(t, resp.Log)
		assert.Empty(t, stub.commands, "nothing is executed")
	})

	t.Run("not ready wins over not found", func(t *testing.T) {
		stub := &stubRunner{lines: []string{"PASSED"}}
		c := newTestCatalog(t, nil, stub)

		resp := c.HandleRunRequest(context.Background(), "acceptance", hash)
		require.NotNil(t, resp.Message)
		assert.Equal(t, MsgConfigNotLoaded, *resp.Message)
		assert.Empty(t, stub.commands)
	})
}

func TestExecuteOpensLogDirectory(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}
	site := setupSite(t)
	logDir := filepath.Join(filepath.Dir(site.ConfigPath), "tests", "_output")
	require.NoError(t, os.Chmod(logDir, 0755))

	c := newTestCatalog(t, &site, &stubRunner{lines: []string{"PASSED"}})
	test, ok := c.Test("unit", types.TestHash("unit", "Math"))
	require.True(t, ok)

	got, err := c.Execute(context.Background(), test)
	require.NoError(t, err)
	assert.Same(t, test, got)
	assert.Equal(t, types.TestStatePassed, got.State())

	info, err := os.Stat(logDir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0777), info.Mode().Perm())
}

func TestEndToEndWithShellStub(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stub needs a POSIX shell")
	}
	site := setupSite(t)
	stub := filepath.Join(t.TempDir(), "codecept")
	script := "#!/bin/sh\n" +
		"echo \"Codeception PHP Testing Framework v2.0\"\n" +
		"echo \"args: $*\"\n" +
		"printf '\\033[30;42m\\033[2KPASSED\\033[0m\\n'\n" +
		"exit 0\n"
	require.NoError(t, os.WriteFile(stub, []byte(script), 0755))

	dashboard := testDashboard()
	dashboard.Executable = stub
	c := New(context.Background(), Config{
		Log:       log.New(),
		Dashboard: dashboard,
		Site:      &site,
		Runner:    runner.NewShellRunner(runner.Config{Log: log.New()}),
	})

	resp := c.HandleRunRequest(context.Background(), "acceptance", types.TestHash("acceptance", "AdminPanel"))
	require.Nil(t, resp.Message)
	assert.True(t, resp.Run)
	assert.True(t, resp.Passed)
	assert.Equal(t, types.TestStatePassed, resp.State)
	require.NotNil(t, resp.Log)
	// Every dash is dropped from logged lines.
	wantArgs := "args: run nocolors config=" + site.ConfigPath + " acceptance admin/AdminPanelCest.php"
	assert.Contains(t, *resp.Log, strings.ReplaceAll(wantArgs, "-", ""))
	assert.Contains(t, *resp.Log, "PASSED")
	assert.NotContains(t, *resp.Log, "\x1b")
}
