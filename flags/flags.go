package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	opflags "github.com/ethereum-optimism/optimism/op-service/flags"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

const EnvVarPrefix = "OP_TESTDASH"

var (
	DashboardConfig = &cli.StringFlag{
		Name:    "config",
		Value:   "dashboard.yaml",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CONFIG"),
		Usage:   "Path to the dashboard config file listing the sites (YAML, or TOML with a .toml extension)",
	}
	TestConfigPattern = &cli.StringFlag{
		Name:    "test-config-pattern",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TEST_CONFIG_PATTERN"),
		Usage:   "Pattern with a single %s selecting an alternate dashboard config through the 'test' query parameter (eg. 'testdata/dashboard_%s.yaml'). Empty disables it.",
	}
	HTTPAddr = &cli.StringFlag{
		Name:    "http.addr",
		Value:   "0.0.0.0",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HTTP_ADDR"),
		Usage:   "Address the dashboard HTTP server listens on",
	}
	HTTPPort = &cli.IntFlag{
		Name:    "http.port",
		Value:   8080,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HTTP_PORT"),
		Usage:   "Port the dashboard HTTP server listens on",
	}
	Site = &cli.StringFlag{
		Name:    "site",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SITE"),
		Usage:   "Name or hash of the site selected when a request names none. Defaults to the first configured site.",
	}
	RunTimeout = &cli.DurationFlag{
		Name:    "run-timeout",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN_TIMEOUT"),
		Usage:   "Kill a single test run after this long (e.g. '10m'). 0 disables the timeout.",
	}
	CatalogCacheSize = &cli.IntFlag{
		Name:    "catalog-cache-size",
		Value:   16,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CATALOG_CACHE_SIZE"),
		Usage:   "Number of discovered site catalogs kept in memory",
	}
)

// Tree is local to the list command.
var Tree = &cli.BoolFlag{
	Name:    "tree",
	Value:   false,
	EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TREE"),
	Usage:   "Print the tests as a directory tree instead of a table",
}

var requiredFlags = []cli.Flag{}

var optionalFlags = []cli.Flag{
	DashboardConfig,
	TestConfigPattern,
	HTTPAddr,
	HTTPPort,
	Site,
	RunTimeout,
	CatalogCacheSize,
}
var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return opflags.CheckRequiredXor(ctx)
}
