package catalog

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/ethereum-optimism/infra/op-testdash/registry"
	"github.com/ethereum-optimism/infra/op-testdash/runner"
	"github.com/ethereum-optimism/infra/op-testdash/types"
)

const DefaultCacheSize = 16

// Cache keeps built catalogs so a site is discovered once and then shared
// between requests. An entry is rebuilt when the dashboard config or the
// site's runner config has been modified since it was built.
type Cache struct {
	log    log.Logger
	runner runner.ProcessRunner
	items  *lru.Cache[string, *cacheEntry]
	group  singleflight.Group
}

type cacheEntry struct {
	catalog      *Catalog
	dashboardMod time.Time
	siteMod      time.Time
}

// NewCache creates a catalog cache holding at most size catalogs.
func NewCache(lgr log.Logger, size int, r runner.ProcessRunner) (*Cache, error) {
	if lgr == nil {
		lgr = log.Root()
	}
	if size <= 0 {
		size = DefaultCacheSize
	}
	items, err := lru.New[string, *cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog cache: %w", err)
	}
	return &Cache{log: lgr, runner: r, items: items}, nil
}

// Get returns the catalog for site under dashboard, building it when it is
// missing or stale. Concurrent callers asking for the same catalog share a
// single build.
func (c *Cache) Get(ctx context.Context, dashboard *registry.Dashboard, site *types.Site) *Catalog {
	key := cacheKey(dashboard, site)
	dashboardMod := modTime(dashboard.Location)
	siteMod := time.Time{}
	if site != nil {
		siteMod = modTime(site.ConfigPath)
	}

	if entry, ok := c.items.Get(key); ok {
		if entry.dashboardMod.Equal(dashboardMod) && entry.siteMod.Equal(siteMod) {
			return entry.catalog
		}
		c.log.Debug("Catalog is stale, rebuilding", "key", key)
	}

	// Builds outlive the request that triggered them.
	buildCtx := context.WithoutCancel(ctx)
	v, _, shared := c.group.Do(key, func() (any, error) {
		cat := New(buildCtx, Config{
			Log:       c.log,
			Dashboard: dashboard,
			Site:      site,
			Runner:    c.runner,
		})
		c.items.Add(key, &cacheEntry{catalog: cat, dashboardMod: dashboardMod, siteMod: siteMod})
		return cat, nil
	})
	if shared {
		c.log.Debug("Shared catalog build", "key", key)
	}
	return v.(*Catalog)
}

// Len returns the number of cached catalogs.
func (c *Cache) Len() int {
	return c.items.Len()
}

// Purge drops every cached catalog.
func (c *Cache) Purge() {
	c.items.Purge()
}

func cacheKey(dashboard *registry.Dashboard, site *types.Site) string {
	hash := ""
	if site != nil {
		hash = site.Hash
	}
	return dashboard.Location + "#" + hash
}

func modTime(path string) time.Time {
	if path == "" {
		return time.Time{}
	}
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
