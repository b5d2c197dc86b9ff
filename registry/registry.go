package registry

import (
	"path/filepath"
	"sync"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-testdash/types"
)

// SiteEntry is one configured site as it appears in the dashboard config,
// before its hash is derived.
type SiteEntry struct {
	Name       string
	ConfigPath string
}

// Registry holds the configured sites in their configured order and the
// current selection.
type Registry struct {
	mu      sync.RWMutex
	sites   *linkedhashmap.Map // hash -> types.Site
	current string
	log     log.Logger
}

// New builds a registry from sites in configured order. A later entry with
// the same name replaces the earlier one but keeps its position.
func New(lgr log.Logger, entries []SiteEntry) *Registry {
	if lgr == nil {
		lgr = log.Root()
	}
	r := &Registry{
		sites: linkedhashmap.New(),
		log:   lgr,
	}
	for _, e := range entries {
		site := types.NewSite(e.Name, canonicalConfigPath(e.ConfigPath))
		if _, exists := r.sites.Get(site.Hash); exists {
			lgr.Warn("Duplicate site name, later entry wins", "name", e.Name)
		}
		r.sites.Put(site.Hash, site)
	}
	return r
}

// canonicalConfigPath resolves the directory of path to its real absolute
// location and re-attaches the file name. Unresolvable directories are
// kept as an absolute path.
func canonicalConfigPath(path string) string {
	dir, file := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return path
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}
	return filepath.Join(abs, file)
}

// Select makes hash the current site. An empty hash selects the first
// configured site; an unknown hash clears the selection.
func (r *Registry) Select(hash string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sites.Get(hash); ok {
		r.current = hash
		return
	}
	if hash == "" && !r.sites.Empty() {
		it := r.sites.Iterator()
		it.First()
		r.current = it.Key().(string)
		return
	}
	if hash != "" {
		r.log.Debug("Unknown site requested", "hash", hash)
	}
	r.current = ""
}

// Current returns the selected site, if any.
func (r *Registry) Current() (types.Site, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currentLocked()
}

func (r *Registry) currentLocked() (types.Site, bool) {
	if r.current == "" {
		return types.Site{}, false
	}
	v, ok := r.sites.Get(r.current)
	if !ok {
		return types.Site{}, false
	}
	return v.(types.Site), true
}

// Hash of the current site, or "" when none is selected.
func (r *Registry) Hash() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Name of the current site, or "".
func (r *Registry) Name() string {
	site, ok := r.Current()
	if !ok {
		return ""
	}
	return site.Name
}

// ConfigPath is the full path of the current site's runner config, or "".
func (r *Registry) ConfigPath() string {
	site, ok := r.Current()
	if !ok {
		return ""
	}
	return site.ConfigPath
}

// ConfigDir is the directory of the current site's runner config with a
// trailing separator, or "".
func (r *Registry) ConfigDir() string {
	site, ok := r.Current()
	if !ok {
		return ""
	}
	return site.ConfigDir()
}

// ConfigFile is the base name of the current site's runner config, or "".
func (r *Registry) ConfigFile() string {
	site, ok := r.Current()
	if !ok {
		return ""
	}
	return site.ConfigFile()
}

// Sites returns all sites in configured order.
func (r *Registry) Sites() []types.Site {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.Site, 0, r.sites.Size())
	it := r.sites.Iterator()
	for it.Next() {
		out = append(out, it.Value().(types.Site))
	}
	return out
}

// Get returns the site with the given hash.
func (r *Registry) Get(hash string) (types.Site, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.sites.Get(hash)
	if !ok {
		return types.Site{}, false
	}
	return v.(types.Site), true
}

// Ready reports whether sites exist and one is selected.
func (r *Registry) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.sites.Empty() && r.current != ""
}

// HasChoices reports whether there is more than one site to choose from.
func (r *Registry) HasChoices() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.sites.Empty() && r.current != "" && r.sites.Size() > 1
}

// Lookup maps a site name or hash onto the hash Select expects. Values that
// match neither are returned unchanged.
func (r *Registry) Lookup(nameOrHash string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.sites.Get(nameOrHash); ok {
		return nameOrHash
	}
	if nameOrHash == "" {
		return ""
	}
	hash := types.ContentHash(nameOrHash)
	if _, ok := r.sites.Get(hash); ok {
		return hash
	}
	return nameOrHash
}
