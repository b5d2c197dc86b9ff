package testdash

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"

	"github.com/ethereum-optimism/infra/op-testdash/catalog"
	"github.com/ethereum-optimism/infra/op-testdash/runner"
	"github.com/ethereum-optimism/infra/op-testdash/service"
)

// dashboard implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &dashboard{}

// dashboard serves the test dashboard over HTTP until stopped.
type dashboard struct {
	config  *Config
	version string
	service *service.Service

	running atomic.Bool
}

func New(ctx context.Context, config *Config, version string) (*dashboard, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating dashboard with config",
		"dashboardConfig", config.DashboardConfig,
		"testConfigPattern", config.TestConfigPattern,
		"site", config.Site,
		"runTimeout", config.RunTimeout)

	cache, err := catalog.NewCache(config.Log, config.CatalogCacheSize, newRunner(config))
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog cache: %w", err)
	}
	handler, err := service.NewHandler(service.HandlerConfig{
		Log:               config.Log,
		DashboardPath:     config.DashboardConfig,
		TestConfigPattern: config.TestConfigPattern,
		DefaultSite:       config.Site,
		Cache:             cache,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create handler: %w", err)
	}

	metricsAddr := ""
	if config.Metrics.Enabled {
		metricsAddr = net.JoinHostPort(config.Metrics.ListenAddr, strconv.Itoa(config.Metrics.ListenPort))
	}

	return &dashboard{
		config:  config,
		version: version,
		service: service.New(service.Config{
			Log:         config.Log,
			Host:        config.HTTPAddr,
			Port:        config.HTTPPort,
			Handler:     handler,
			MetricsAddr: metricsAddr,
		}),
	}, nil
}

func newRunner(config *Config) runner.ProcessRunner {
	return runner.NewShellRunner(runner.Config{
		Log:     config.Log,
		Timeout: config.RunTimeout,
	})
}

// Start implements the cliapp.Lifecycle interface.
func (d *dashboard) Start(ctx context.Context) error {
	d.config.Log.Info("Starting op-testdash", "version", d.version, "config", d.config.DashboardConfig)
	if err := d.service.Start(ctx); err != nil {
		return NewRuntimeError(fmt.Errorf("failed to start dashboard: %w", err))
	}
	d.running.Store(true)
	d.config.Log.Info("op-testdash started", "addr", d.service.Addr())
	return nil
}

// Stop implements the cliapp.Lifecycle interface.
func (d *dashboard) Stop(ctx context.Context) error {
	d.config.Log.Info("Stopping op-testdash")
	if !d.running.Load() {
		d.config.Log.Debug("Service already stopped, nothing to do")
		return nil
	}
	d.running.Store(false)
	if err := d.service.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop dashboard: %w", err)
	}
	d.config.Log.Info("op-testdash stopped successfully")
	return nil
}

// Stopped implements the cliapp.Lifecycle interface.
func (d *dashboard) Stopped() bool {
	return !d.running.Load()
}

// Addr is the address the dashboard is listening on.
func (d *dashboard) Addr() string {
	return d.service.Addr()
}
