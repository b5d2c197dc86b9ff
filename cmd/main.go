package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	testdash "github.com/ethereum-optimism/infra/op-testdash"
	"github.com/ethereum-optimism/infra/op-testdash/flags"
	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum-optimism/optimism/op-service/ctxinterrupt"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := newApp()
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			cli.HandleExitCoder(cli.Exit(err.Error(), testdash.ExitCode(err)))
		}
	}

	// Start telemetry
	ctx, shutdown, err := telemetry.SetupOpenTelemetry(
		context.Background(),
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer shutdown()

	// Start CLI
	ctx = ctxinterrupt.WithSignalWaiterMain(ctx)
	err = app.RunContext(ctx, os.Args)
	if err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "op-testdash"
	app.Usage = "Codeception test dashboard"
	app.Description = "op-testdash discovers the Codeception tests of configured sites and runs them on request"
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.Action = cliapp.LifecycleCmd(serve)
	app.Commands = []*cli.Command{
		{
			Name:   "list",
			Usage:  "List the tests discovered for the selected site",
			Flags:  []cli.Flag{flags.Tree},
			Action: list,
		},
		{
			Name:      "run",
			Usage:     "Run a single test and print the run response",
			ArgsUsage: "<type> <hash>",
			Action:    run,
		},
		{
			Name:   "check",
			Usage:  "Check the log directory and runner executable of the selected site",
			Action: check,
		},
	}
	return app
}

func newLogger(ctx *cli.Context) log.Logger {
	logCfg := oplog.ReadCLIConfig(ctx)
	log := oplog.NewLogger(oplog.AppOut(ctx), logCfg)
	oplog.SetGlobalLogHandler(log.Handler())
	oplog.SetupDefaults()
	return log
}

func newConfig(ctx *cli.Context) (*testdash.Config, error) {
	cfg, err := testdash.NewConfig(ctx, newLogger(ctx))
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return nil, testdash.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}
	cfg.Log.Debug("Config", "config", cfg)
	return cfg, nil
}

func serve(ctx *cli.Context, closeApp context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	cfg, err := newConfig(ctx)
	if err != nil {
		return nil, err
	}

	dashboard, err := testdash.New(ctx.Context, cfg, Version)
	if err != nil {
		return nil, testdash.NewRuntimeError(fmt.Errorf("failed to create dashboard: %w", err))
	}
	return dashboard, nil
}

func list(ctx *cli.Context) error {
	cfg, err := newConfig(ctx)
	if err != nil {
		return err
	}
	cat, err := testdash.OpenCatalog(ctx.Context, cfg, nil)
	if err != nil {
		return err
	}
	return testdash.ListTests(ctx.App.Writer, cat, ctx.Bool(flags.Tree.Name))
}

func run(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return testdash.NewRuntimeError(fmt.Errorf("expected <type> <hash>, got %d arguments", ctx.NArg()))
	}
	cfg, err := newConfig(ctx)
	if err != nil {
		return err
	}
	cat, err := testdash.OpenCatalog(ctx.Context, cfg, nil)
	if err != nil {
		return err
	}
	return testdash.RunTest(ctx.Context, ctx.App.Writer, cat, ctx.Args().Get(0), ctx.Args().Get(1))
}

func check(ctx *cli.Context) error {
	cfg, err := newConfig(ctx)
	if err != nil {
		return err
	}
	cat, err := testdash.OpenCatalog(ctx.Context, cfg, nil)
	if err != nil {
		return err
	}
	return testdash.CheckEnvironment(ctx.App.Writer, cat)
}
