package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/infra/op-testdash/schema"
)

// Dashboard is the dashboard-wide configuration: the sites it serves and
// the runner defaults shared by all of them.
type Dashboard struct {
	Sites      []SiteEntry
	Executable string
	Tests      map[string]bool
	Ignore     []string
	// Location is the absolute path of the file this config was read from.
	Location string
}

type dashboardYAML struct {
	Sites      yaml.Node       `yaml:"sites"`
	Executable string          `yaml:"executable"`
	Tests      map[string]bool `yaml:"tests"`
	Ignore     []string        `yaml:"ignore"`
}

type dashboardTOML struct {
	Sites      map[string]string `toml:"sites"`
	Executable string            `toml:"executable"`
	Tests      map[string]bool   `toml:"tests"`
	Ignore     []string          `toml:"ignore"`
}

// LoadDashboard reads a dashboard config file. Files ending in .toml are
// decoded as TOML, anything else as YAML. Relative site and executable
// paths are resolved against the directory of the file.
func LoadDashboard(path string) (*Dashboard, error) {
	log.Debug("Reading dashboard config file", "path", path)

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg *Dashboard
	if strings.EqualFold(filepath.Ext(abs), ".toml") {
		cfg, err = parseDashboardTOML(data)
	} else {
		cfg, err = parseDashboardYAML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Location = abs
	cfg.applyDefaults()
	cfg.resolvePaths(filepath.Dir(abs))
	return cfg, nil
}

// DefaultDashboard is the config used when the file at location cannot be
// read. It has no sites, so nothing is ready.
func DefaultDashboard(location string) *Dashboard {
	d := &Dashboard{Location: location}
	d.applyDefaults()
	if location != "" {
		d.resolvePaths(filepath.Dir(location))
	}
	return d
}

func parseDashboardYAML(data []byte) (*Dashboard, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if err := schema.ValidateDashboard(doc); err != nil {
		return nil, err
	}

	var raw dashboardYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	sites, err := orderedSites(&raw.Sites)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		Sites:      sites,
		Executable: raw.Executable,
		Tests:      raw.Tests,
		Ignore:     raw.Ignore,
	}, nil
}

// orderedSites reads the sites mapping keeping the order it was written in.
func orderedSites(node *yaml.Node) ([]SiteEntry, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, errors.New("sites must be a mapping of name to config path")
	}
	sites := make([]SiteEntry, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var name, path string
		if err := node.Content[i].Decode(&name); err != nil {
			return nil, fmt.Errorf("site name: %w", err)
		}
		if err := node.Content[i+1].Decode(&path); err != nil {
			return nil, fmt.Errorf("site %q: %w", name, err)
		}
		sites = append(sites, SiteEntry{Name: name, ConfigPath: path})
	}
	return sites, nil
}

func parseDashboardTOML(data []byte) (*Dashboard, error) {
	var doc map[string]any
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, err
	}
	if err := schema.ValidateDashboard(doc); err != nil {
		return nil, err
	}

	var raw dashboardTOML
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, err
	}
	// MetaData keys come back in the order they were defined.
	var sites []SiteEntry
	for _, key := range md.Keys() {
		if len(key) == 2 && key[0] == "sites" {
			sites = append(sites, SiteEntry{Name: key[1], ConfigPath: raw.Sites[key[1]]})
		}
	}
	return &Dashboard{
		Sites:      sites,
		Executable: raw.Executable,
		Tests:      raw.Tests,
		Ignore:     raw.Ignore,
	}, nil
}

func (d *Dashboard) applyDefaults() {
	if d.Executable == "" {
		d.Executable = DefaultExecutable
	}
	if d.Tests == nil {
		d.Tests = DefaultTests()
	}
	if d.Ignore == nil {
		d.Ignore = DefaultIgnore()
	}
}

func (d *Dashboard) resolvePaths(dir string) {
	for i := range d.Sites {
		d.Sites[i].ConfigPath = resolveFrom(dir, d.Sites[i].ConfigPath)
	}
	d.Executable = resolveFrom(dir, d.Executable)
}

func resolveFrom(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// Registry builds a site registry from the configured sites.
func (d *Dashboard) Registry(lgr log.Logger) *Registry {
	return New(lgr, d.Sites)
}

var fileExtension = regexp.MustCompile(`\.[^.\s]{3,4}$`)

// TestConfigPath maps a self-test config name onto pattern (a printf
// pattern with a single %s). The name is trimmed, lower-cased and stripped
// of a file extension first. It reports false when the pattern is empty or
// the resulting file does not exist.
func TestConfigPath(pattern, name string) (string, bool) {
	if pattern == "" {
		return "", false
	}
	name = strings.ToLower(strings.TrimSpace(fileExtension.ReplaceAllString(name, "")))
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", false
	}
	path := fmt.Sprintf(pattern, name)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}
