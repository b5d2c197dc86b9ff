package catalog

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-testdash/metrics"
	"github.com/ethereum-optimism/infra/op-testdash/registry"
	"github.com/ethereum-optimism/infra/op-testdash/runner"
	"github.com/ethereum-optimism/infra/op-testdash/types"
)

const logDirMode = 0o777

// Config holds what a catalog needs to load one site.
type Config struct {
	Log       log.Logger
	Dashboard *registry.Dashboard
	// Site is the active site; nil when nothing is selected.
	Site   *types.Site
	Runner runner.ProcessRunner
}

// Catalog indexes the tests of one site and runs them.
//
// The index is built once by New and is read-only afterwards, so a catalog
// can be shared between requests. Runs are serialised.
type Catalog struct {
	log       log.Logger
	dashboard *registry.Dashboard
	site      *types.Site
	config    *RunnerConfig
	ready     bool
	runner    runner.ProcessRunner
	tracer    trace.Tracer

	tests map[string]map[string]*types.Test
	tally int

	execMu sync.Mutex
}

// New loads the runner config of the active site and discovers its tests.
// The returned catalog is not ready when no site is selected or its runner
// config cannot be loaded; it still answers requests in that case.
func New(ctx context.Context, cfg Config) *Catalog {
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}
	if cfg.Dashboard == nil {
		cfg.Dashboard = &registry.Dashboard{
			Executable: registry.DefaultExecutable,
			Tests:      registry.DefaultTests(),
			Ignore:     registry.DefaultIgnore(),
		}
	}
	if cfg.Runner == nil {
		cfg.Runner = runner.NewShellRunner(runner.Config{Log: cfg.Log})
	}

	c := &Catalog{
		log:       cfg.Log,
		dashboard: cfg.Dashboard,
		site:      cfg.Site,
		runner:    cfg.Runner,
		tracer:    otel.Tracer("test catalog"),
		tests:     make(map[string]map[string]*types.Test),
	}

	var project *ProjectConfig
	if c.site != nil {
		project, c.ready = LoadConfig(c.site.ConfigDir(), c.site.ConfigFile())
		if !c.ready {
			c.log.Warn("Runner config could not be loaded", "site", c.site.Name, "path", c.site.ConfigPath)
		}
	}
	c.config = MergeConfig(cfg.Dashboard, project)

	if c.ready {
		c.discover(ctx)
	}
	return c
}

// Ready reports whether a site is selected and its runner config was loaded.
func (c *Catalog) Ready() bool {
	return c.ready
}

// Site returns the active site, if any.
func (c *Catalog) Site() (types.Site, bool) {
	if c.site == nil {
		return types.Site{}, false
	}
	return *c.site, true
}

// Config returns the merged runner config.
func (c *Catalog) Config() *RunnerConfig {
	return c.config
}

// discover walks the root of every enabled category and indexes every
// regular file that is not ignored. Categories are visited in name order
// and files in lexical walk order.
func (c *Catalog) discover(ctx context.Context) {
	_, span := c.tracer.Start(ctx, "discover")
	defer span.End()

	configDir := ""
	if c.site != nil {
		configDir = c.site.ConfigDir()
	}

	for _, typ := range c.config.Categories() {
		root := c.config.CategoryRoot(configDir, typ)
		_, declared := c.config.DeclaredRoot(typ)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == root {
					return err
				}
				c.log.Warn("Skipping unreadable path", "path", path, "err", err)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() || c.config.Ignored(d.Name()) || !isRegularFile(path, d) {
				return nil
			}
			if declared {
				c.addTest(types.NewTestUnder(typ, root, path))
			} else {
				c.addTest(types.NewTest(typ, path))
			}
			return nil
		})
		if err != nil {
			c.log.Warn("Failed to read test category", "type", typ, "root", root, "err", err)
			metrics.RecordErrorDetails("discover", err)
		}
	}

	siteName := ""
	if c.site != nil {
		siteName = c.site.Name
	}
	span.SetAttributes(attribute.String("site", siteName), attribute.Int("tally", c.tally))
	metrics.RecordDiscovery(siteName, c.tally)
	c.log.Debug("Discovered tests", "site", siteName, "tally", c.tally)
}

func isRegularFile(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (c *Catalog) addTest(test *types.Test) {
	c.tally++
	byHash, ok := c.tests[test.Type()]
	if !ok {
		byHash = make(map[string]*types.Test)
		c.tests[test.Type()] = byHash
	}
	byHash[test.Hash()] = test
}

// Tally is the number of files indexed by discovery. Two files with the
// same identity count twice but only the later one is indexed.
func (c *Catalog) Tally() int {
	return c.tally
}

// Test looks up a test by type and hash.
func (c *Catalog) Test(typ, hash string) (*types.Test, bool) {
	test, ok := c.tests[typ][hash]
	return test, ok
}

// Types returns the categories that have at least one test, sorted.
func (c *Catalog) Types() []string {
	out := make([]string, 0, len(c.tests))
	for typ := range c.tests {
		out = append(out, typ)
	}
	slices.Sort(out)
	return out
}

// Tests returns the tests of typ sorted by filename.
func (c *Catalog) Tests(typ string) []*types.Test {
	out := make([]*types.Test, 0, len(c.tests[typ]))
	for _, test := range c.tests[typ] {
		out = append(out, test)
	}
	slices.SortFunc(out, func(a, b *types.Test) int {
		return strings.Compare(a.Filename(), b.Filename())
	})
	return out
}

// Summaries returns the listing view of every test grouped by type.
func (c *Catalog) Summaries() map[string][]types.TestSummary {
	out := make(map[string][]types.TestSummary, len(c.tests))
	for _, typ := range c.Types() {
		tests := c.Tests(typ)
		summaries := make([]types.TestSummary, 0, len(tests))
		for _, test := range tests {
			summaries = append(summaries, test.Summary())
		}
		out[typ] = summaries
	}
	return out
}

// LogPath returns the runner's log directory, if one is configured.
func (c *Catalog) LogPath() (string, bool) {
	return c.config.LogPath()
}

// BuildCommand returns the shell command line that runs one test file.
func (c *Catalog) BuildCommand(typ, filename string) string {
	configPath := ""
	if c.site != nil {
		configPath = c.site.ConfigPath
	}
	params := []string{
		c.config.Executable,
		"run",
		"--no-colors",
		`--config="` + configPath + `"`,
		shellescape.Quote(typ),
		shellescape.Quote(filename),
		"2>&1",
	}
	return strings.Join(params, " ")
}

// Execute runs test and records the output on it. The error reports a
// runner that could not be started; the test then has no log.
func (c *Catalog) Execute(ctx context.Context, test *types.Test) (*types.Test, error) {
	c.execMu.Lock()
	defer c.execMu.Unlock()
	return c.execute(ctx, test)
}

func (c *Catalog) execute(ctx context.Context, test *types.Test) (*types.Test, error) {
	runID := uuid.New().String()
	ctx, span := c.tracer.Start(ctx, fmt.Sprintf("run %s/%s", test.Type(), test.Filename()))
	defer span.End()
	span.SetAttributes(attribute.String("run_id", runID), attribute.String("type", test.Type()))

	if logPath, ok := c.config.LogPath(); ok {
		if err := os.Chmod(logPath, logDirMode); err != nil {
			c.log.Debug("Could not open up log directory permissions", "path", logPath, "err", err)
		}
	}

	command := c.BuildCommand(test.Type(), test.Filename())
	c.log.Info("Running test", "run_id", runID, "type", test.Type(), "test", test.Filename())
	c.log.Debug("Running test command", "run_id", runID, "command", command)

	start := time.Now()
	lines, err := c.runner.Run(ctx, command)
	duration := time.Since(start)

	test.RecordRun(lines)
	if err != nil {
		c.log.Error("Failed to run test", "run_id", runID, "err", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordErrorDetails("execute", err)
		return test, fmt.Errorf("running %s test %s: %w", test.Type(), test.Filename(), err)
	}

	site, _ := c.Site()
	metrics.RecordRun(site.Name, test.Type(), test.State(), duration)
	c.log.Info("Test finished", "run_id", runID, "test", test.Filename(), "state", test.State(), "duration", duration)
	return test, nil
}

// HandleRunRequest looks up and runs one test, producing the response body
// for a run request. Nothing is executed when the catalog is not ready or
// the test is unknown.
func (c *Catalog) HandleRunRequest(ctx context.Context, typ, hash string) types.RunResponse {
	resp := types.NewRunResponse()

	test, found := c.Test(typ, hash)
	if !found {
		resp.SetMessage(MsgTestNotFound)
	}
	if !c.Ready() {
		resp.SetMessage(MsgConfigNotLoaded)
	}
	if resp.Message != nil {
		c.log.Debug("Run request rejected", "type", typ, "hash", hash, "message", *resp.Message)
		return resp
	}

	c.execMu.Lock()
	defer c.execMu.Unlock()

	test, _ = c.execute(ctx, test)
	formatted := test.FormattedLog()
	resp.Run = test.Ran()
	resp.Log = &formatted
	resp.Passed = test.Passed()
	resp.State = test.State()
	resp.Title = test.Title()
	return resp
}

// CheckLogs runs CheckWriteable against the configured log directory.
func (c *Catalog) CheckLogs() types.CheckResponse {
	var path *string
	if p, ok := c.config.LogPath(); ok {
		path = &p
	}
	site, _ := c.Site()
	return CheckWriteable(path, site.ConfigPath)
}

// CheckExecutable runs CheckExecutable against the configured executable.
func (c *Catalog) CheckExecutable() types.CheckResponse {
	return CheckExecutable(c.config.Executable, c.config.Location)
}
