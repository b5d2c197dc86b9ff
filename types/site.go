package types

import "path/filepath"

// Site is one target project with its own runner configuration file.
type Site struct {
	Hash       string `json:"hash"`
	Name       string `json:"name"`
	ConfigPath string `json:"config"`
}

// NewSite builds a Site, deriving its hash from the name.
func NewSite(name, configPath string) Site {
	return Site{
		Hash:       ContentHash(name),
		Name:       name,
		ConfigPath: configPath,
	}
}

// ConfigDir is the directory holding the runner config, with a trailing separator.
func (s Site) ConfigDir() string {
	return filepath.Dir(s.ConfigPath) + string(filepath.Separator)
}

// ConfigFile is the base name of the runner config.
func (s Site) ConfigFile() string {
	return filepath.Base(s.ConfigPath)
}
