package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/infra/op-testdash/registry"
)

const (
	pathsTestsKey  = "tests"
	pathsLogKey    = "log"
	pathsOutputKey = "output"

	defaultTestsDir = "tests"
)

// ProjectConfig is the part of a site's runner config file the dashboard
// reads. Keys other than paths override the dashboard value wholesale.
type ProjectConfig struct {
	Paths      map[string]string `yaml:"paths"`
	Tests      map[string]bool   `yaml:"tests"`
	Ignore     []string          `yaml:"ignore"`
	Executable string            `yaml:"executable"`
}

// RunnerConfig is the dashboard config merged with the project config of
// the active site.
type RunnerConfig struct {
	Tests      map[string]bool
	Ignore     map[string]struct{}
	Paths      map[string]string
	Executable string
	// Location is the dashboard config file the defaults came from.
	Location string
}

// LoadConfig reads the runner config at configDir+configFile and resolves
// its declared paths against configDir. Paths that exist are replaced by
// their real absolute location, the rest are kept as the plain
// concatenation. It reports false when the file does not exist or cannot
// be parsed.
func LoadConfig(configDir, configFile string) (*ProjectConfig, bool) {
	fullPath := configDir + configFile
	data, err := os.ReadFile(fullPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn("Failed to read runner config", "path", fullPath, "err", err)
		}
		return nil, false
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Warn("Failed to parse runner config", "path", fullPath, "err", err)
		return nil, false
	}
	if cfg.Paths == nil {
		cfg.Paths = make(map[string]string)
	}
	for key, value := range cfg.Paths {
		cfg.Paths[key] = resolveDeclaredPath(configDir, value)
	}
	return &cfg, true
}

func resolveDeclaredPath(configDir, value string) string {
	joined := configDir + value
	if _, err := os.Stat(joined); err != nil {
		return joined
	}
	abs, err := filepath.Abs(joined)
	if err != nil {
		return joined
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real
	}
	return abs
}

// MergeConfig overlays project on the dashboard defaults.
func MergeConfig(dashboard *registry.Dashboard, project *ProjectConfig) *RunnerConfig {
	cfg := &RunnerConfig{
		Tests:      dashboard.Tests,
		Executable: dashboard.Executable,
		Location:   dashboard.Location,
		Paths:      make(map[string]string),
	}
	ignore := dashboard.Ignore
	if project != nil {
		for k, v := range project.Paths {
			cfg.Paths[k] = v
		}
		if project.Tests != nil {
			cfg.Tests = project.Tests
		}
		if project.Ignore != nil {
			ignore = project.Ignore
		}
		if project.Executable != "" {
			cfg.Executable = project.Executable
		}
	}
	cfg.Ignore = make(map[string]struct{}, len(ignore))
	for _, name := range ignore {
		cfg.Ignore[name] = struct{}{}
	}
	return cfg
}

// Categories returns the enabled test categories sorted by name.
func (c *RunnerConfig) Categories() []string {
	var out []string
	for typ, enabled := range c.Tests {
		if enabled {
			out = append(out, typ)
		}
	}
	slices.Sort(out)
	return out
}

// Ignored reports whether a file with the given base name is skipped at discovery.
func (c *RunnerConfig) Ignored(name string) bool {
	_, ok := c.Ignore[name]
	return ok
}

// TestsRoot is the directory holding one subdirectory per category.
func (c *RunnerConfig) TestsRoot(configDir string) string {
	if root, ok := c.Paths[pathsTestsKey]; ok && root != "" {
		return root
	}
	return resolveDeclaredPath(configDir, defaultTestsDir)
}

// CategoryRoot returns the directory discovery walks for typ.
func (c *RunnerConfig) CategoryRoot(configDir, typ string) string {
	if root, ok := c.DeclaredRoot(typ); ok {
		return root
	}
	return filepath.Join(c.TestsRoot(configDir), typ)
}

// DeclaredRoot returns the root of typ when the project config declares one.
func (c *RunnerConfig) DeclaredRoot(typ string) (string, bool) {
	root, ok := c.Paths[typ]
	return root, ok && root != ""
}

// LogPath returns the runner's log directory, falling back to the output
// directory. It reports false when neither is declared.
func (c *RunnerConfig) LogPath() (string, bool) {
	for _, key := range []string{pathsLogKey, pathsOutputKey} {
		if p, ok := c.Paths[key]; ok && p != "" {
			return p, true
		}
	}
	return "", false
}

func (c *RunnerConfig) String() string {
	return fmt.Sprintf("RunnerConfig{executable=%s, categories=%v, location=%s}", c.Executable, c.Categories(), c.Location)
}
