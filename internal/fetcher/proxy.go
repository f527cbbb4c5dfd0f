package fetcher

import (
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/IshaanNene/GapFill/internal/config"
)

// ProxyManager selects a proxy per request from a fixed pool.
// The pool is read-only after construction.
type ProxyManager struct {
	proxies  []*url.URL
	rotation string
	index    atomic.Int64
	logger   *slog.Logger
}

// NewProxyManager creates a new ProxyManager from configuration.
// Unparseable entries are skipped.
func NewProxyManager(cfg *config.ProxyConfig, logger *slog.Logger) *ProxyManager {
	pm := &ProxyManager{
		proxies:  make([]*url.URL, 0, len(cfg.URLs)),
		rotation: cfg.Rotation,
		logger:   logger.With("component", "proxy_manager"),
	}

	if cfg.Enabled {
		for _, rawURL := range cfg.URLs {
			u, err := url.Parse(rawURL)
			if err != nil || u.Host == "" {
				pm.logger.Warn("invalid proxy URL", "url", rawURL, "error", err)
				continue
			}
			pm.proxies = append(pm.proxies, u)
		}
	}

	pm.logger.Debug("proxy manager initialized", "count", len(pm.proxies), "rotation", pm.rotation)
	return pm
}

// ProxyFunc returns an http.Transport-compatible proxy function.
func (pm *ProxyManager) ProxyFunc() func(*http.Request) (*url.URL, error) {
	return func(req *http.Request) (*url.URL, error) {
		// nil means a direct connection
		return pm.Next(), nil
	}
}

// Next returns the proxy for the next request, or nil for a direct connection.
func (pm *ProxyManager) Next() *url.URL {
	if pm == nil || len(pm.proxies) == 0 {
		return nil
	}

	switch pm.rotation {
	case "round_robin":
		idx := pm.index.Add(1) % int64(len(pm.proxies))
		return pm.proxies[idx]
	default: // random
		return pm.proxies[rand.Intn(len(pm.proxies))]
	}
}

// Count returns the number of usable proxies.
func (pm *ProxyManager) Count() int {
	if pm == nil {
		return 0
	}
	return len(pm.proxies)
}
