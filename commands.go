package testdash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ethereum-optimism/infra/op-testdash/catalog"
	"github.com/ethereum-optimism/infra/op-testdash/registry"
	"github.com/ethereum-optimism/infra/op-testdash/runner"
)

// OpenCatalog loads the dashboard config, selects the configured site and
// discovers its tests. A nil runner gets the shell runner from config.
func OpenCatalog(ctx context.Context, config *Config, r runner.ProcessRunner) (*catalog.Catalog, error) {
	dashboard, err := registry.LoadDashboard(config.DashboardConfig)
	if err != nil {
		return nil, NewRuntimeError(fmt.Errorf("failed to load dashboard config: %w", err))
	}
	if r == nil {
		r = newRunner(config)
	}

	reg := dashboard.Registry(config.Log)
	reg.Select(reg.Lookup(config.Site))
	if !reg.Ready() {
		config.Log.Warn("No site selected", "site", config.Site)
	}

	cfg := catalog.Config{
		Log:       config.Log,
		Dashboard: dashboard,
		Runner:    r,
	}
	if site, ok := reg.Current(); ok {
		cfg.Site = &site
	}
	return catalog.New(ctx, cfg), nil
}

// ListTests prints the tests of cat as a table, or as a tree when tree is set.
func ListTests(w io.Writer, cat *catalog.Catalog, tree bool) error {
	if !cat.Ready() {
		return NewRuntimeError(errors.New(catalog.MsgConfigNotLoaded))
	}
	if tree {
		_, err := io.WriteString(w, formatTestTree(cat))
		return err
	}
	writeTestTable(w, cat)
	return nil
}

// RunTest runs one test and prints the run response as JSON. A test that did
// not pass is reported as a TestFailureError.
func RunTest(ctx context.Context, w io.Writer, cat *catalog.Catalog, typ, hash string) error {
	resp := cat.HandleRunRequest(ctx, typ, hash)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return NewRuntimeError(fmt.Errorf("failed to encode run response: %w", err))
	}

	if resp.Message != nil {
		return NewRuntimeError(errors.New(*resp.Message))
	}
	if !resp.Passed {
		test, _ := cat.Test(typ, hash)
		return NewTestFailureError(test)
	}
	return nil
}

// CheckEnvironment prints the log directory and executable checks and fails
// when either is not ready.
func CheckEnvironment(w io.Writer, cat *catalog.Catalog) error {
	logs := cat.CheckLogs()
	exec := cat.CheckExecutable()
	writeCheckTable(w, logs, exec)

	if !logs.Ready || !exec.Ready {
		return NewRuntimeError(errors.New("environment is not ready"))
	}
	return nil
}
