package service

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/ethereum-optimism/infra/op-testdash/catalog"
	"github.com/ethereum-optimism/infra/op-testdash/metrics"
	"github.com/ethereum-optimism/infra/op-testdash/registry"
	"github.com/ethereum-optimism/infra/op-testdash/types"
)

const (
	// SiteCookie remembers the selected site between requests.
	SiteCookie = "site_session"

	siteQueryParam = "hash"
	testQueryParam = "test"
)

// HandlerConfig configures the dashboard HTTP handler.
type HandlerConfig struct {
	Log log.Logger
	// DashboardPath is the dashboard config file read on every request.
	DashboardPath string
	// TestConfigPattern maps the test query parameter onto an alternate
	// dashboard config. Empty disables the parameter.
	TestConfigPattern string
	// DefaultSite is the site name or hash used when the request names none.
	DefaultSite string
	Cache       *catalog.Cache
}

// Handler serves the dashboard JSON API.
type Handler struct {
	log   log.Logger
	cfg   HandlerConfig
	cache *catalog.Cache
}

// requestScope is what a request resolved to: the dashboard config in
// effect, the site registry with the selection applied and its catalog.
type requestScope struct {
	dashboard *registry.Dashboard
	registry  *registry.Registry
	catalog   *catalog.Catalog
}

type sitesResponse struct {
	Current    string       `json:"current"`
	Ready      bool         `json:"ready"`
	HasChoices bool         `json:"has_choices"`
	Sites      []types.Site `json:"sites"`
}

type testsResponse struct {
	Ready bool                           `json:"ready"`
	Tally int                            `json:"tally"`
	Site  *types.Site                    `json:"site"`
	Tests map[string][]types.TestSummary `json:"tests"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewHandler creates the dashboard handler. A nil cache gets a default one.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}
	if cfg.Cache == nil {
		cache, err := catalog.NewCache(cfg.Log, catalog.DefaultCacheSize, nil)
		if err != nil {
			return nil, err
		}
		cfg.Cache = cache
	}
	return &Handler{log: cfg.Log, cfg: cfg, cache: cfg.Cache}, nil
}

// Router returns the routes wrapped in a permissive CORS policy.
func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.handleHealthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/run/{type}/{hash}", h.handleRun).Methods(http.MethodGet)
	r.HandleFunc("/logs", h.handleLogs).Methods(http.MethodGet)
	r.HandleFunc("/executable", h.handleExecutable).Methods(http.MethodGet)
	r.HandleFunc("/sites", h.handleSites).Methods(http.MethodGet)
	r.HandleFunc("/tests", h.handleTests).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	return c.Handler(r)
}

// scope resolves the dashboard config, selected site and catalog for r.
// The site hash comes from the query, then the cookie, then the default.
func (h *Handler) scope(w http.ResponseWriter, r *http.Request) *requestScope {
	dashboardPath := h.cfg.DashboardPath
	if name := r.URL.Query().Get(testQueryParam); name != "" {
		if path, ok := registry.TestConfigPath(h.cfg.TestConfigPattern, name); ok {
			h.log.Debug("Using test dashboard config", "name", name, "path", path)
			dashboardPath = path
		}
	}

	dashboard, err := registry.LoadDashboard(dashboardPath)
	if err != nil {
		h.log.Warn("Failed to load dashboard config", "path", dashboardPath, "err", err)
		metrics.RecordErrorDetails("dashboard", err)
		dashboard = registry.DefaultDashboard(dashboardPath)
	}

	hash := h.cfg.DefaultSite
	if cookie, err := r.Cookie(SiteCookie); err == nil && cookie.Value != "" {
		hash = cookie.Value
	}
	if q := r.URL.Query(); q.Has(siteQueryParam) {
		hash = q.Get(siteQueryParam)
		http.SetCookie(w, &http.Cookie{
			Name:     SiteCookie,
			Value:    hash,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	reg := dashboard.Registry(h.log)
	reg.Select(reg.Lookup(hash))

	var site *types.Site
	if current, ok := reg.Current(); ok {
		site = &current
	}
	return &requestScope{
		dashboard: dashboard,
		registry:  reg,
		catalog:   h.cache.Get(r.Context(), dashboard, site),
	}
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	scope := h.scope(w, r)

	// A closed browser tab must not kill a running test.
	ctx := context.WithoutCancel(r.Context())
	resp := scope.catalog.HandleRunRequest(ctx, vars["type"], vars["hash"])

	code := http.StatusOK
	if !resp.Run {
		code = http.StatusInternalServerError
	}
	h.writeJSON(w, "run", code, resp)
}

func (h *Handler) handleLogs(w http.ResponseWriter, r *http.Request) {
	resp := h.scope(w, r).catalog.CheckLogs()
	h.writeJSON(w, "logs", checkStatus(resp), resp)
}

func (h *Handler) handleExecutable(w http.ResponseWriter, r *http.Request) {
	resp := h.scope(w, r).catalog.CheckExecutable()
	h.writeJSON(w, "executable", checkStatus(resp), resp)
}

func (h *Handler) handleSites(w http.ResponseWriter, r *http.Request) {
	scope := h.scope(w, r)
	h.writeJSON(w, "sites", http.StatusOK, sitesResponse{
		Current:    scope.registry.Hash(),
		Ready:      scope.registry.Ready(),
		HasChoices: scope.registry.HasChoices(),
		Sites:      scope.registry.Sites(),
	})
}

func (h *Handler) handleTests(w http.ResponseWriter, r *http.Request) {
	cat := h.scope(w, r).catalog
	resp := testsResponse{
		Ready: cat.Ready(),
		Tally: cat.Tally(),
		Tests: cat.Summaries(),
	}
	if site, ok := cat.Site(); ok {
		resp.Site = &site
	}
	h.writeJSON(w, "tests", http.StatusOK, resp)
}

func checkStatus(resp types.CheckResponse) int {
	if resp.Ready {
		return http.StatusOK
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeJSON(w http.ResponseWriter, route string, code int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		h.log.Error("Failed to marshal response", "route", route, "err", err)
		code = http.StatusInternalServerError
		data, _ = json.Marshal(errorResponse{Error: err.Error()})
	}

	metrics.RecordRequest(route, code)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		h.log.Error("Failed to write response", "route", route, "err", err)
	}
}
