package testdash

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/ethereum-optimism/infra/op-testdash/flags"
)

// Config holds the application configuration
type Config struct {
	DashboardConfig   string        // Absolute path of the dashboard config file
	TestConfigPattern string        // Absolute pattern for self-test dashboard configs, or empty
	HTTPAddr          string        // Address the dashboard listens on
	HTTPPort          int           // Port the dashboard listens on
	Site              string        // Site name or hash selected by default
	RunTimeout        time.Duration // Kill a single run after this long; 0 disables
	CatalogCacheSize  int           // Number of site catalogs kept in memory
	Metrics           opmetrics.CLIConfig
	Log               log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	dashboardConfig := ctx.String(flags.DashboardConfig.Name)
	if dashboardConfig == "" {
		return nil, errors.New("dashboard config file is required")
	}
	absDashboardConfig, err := filepath.Abs(dashboardConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for dashboard config '%s': %w", dashboardConfig, err)
	}

	pattern := ctx.String(flags.TestConfigPattern.Name)
	if pattern != "" {
		pattern, err = filepath.Abs(pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for test config pattern '%s': %w", pattern, err)
		}
	}

	port := ctx.Int(flags.HTTPPort.Name)
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("invalid http port: %d", port)
	}
	if ctx.Duration(flags.RunTimeout.Name) < 0 {
		return nil, errors.New("run timeout must not be negative")
	}

	metricsCfg := opmetrics.ReadCLIConfig(ctx)
	if err := metricsCfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid metrics config: %w", err)
	}

	return &Config{
		DashboardConfig:   absDashboardConfig,
		TestConfigPattern: pattern,
		HTTPAddr:          ctx.String(flags.HTTPAddr.Name),
		HTTPPort:          port,
		Site:              ctx.String(flags.Site.Name),
		RunTimeout:        ctx.Duration(flags.RunTimeout.Name),
		CatalogCacheSize:  ctx.Int(flags.CatalogCacheSize.Name),
		Metrics:           metricsCfg,
		Log:               log,
	}, nil
}
