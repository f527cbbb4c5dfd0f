package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Discovery.RequestTimeout <= 0 {
		return fmt.Errorf("discovery.request_timeout must be > 0")
	}
	if err := ValidateURL(cfg.Discovery.SearchEndpoint); err != nil {
		return fmt.Errorf("discovery.search_endpoint: %w", err)
	}
	for platform, path := range cfg.Discovery.SearchPaths {
		switch platform {
		case "wordpress", "shopify", "custom":
		default:
			return fmt.Errorf("discovery.search_paths: unknown platform %q", platform)
		}
		if !strings.HasPrefix(path, "/") || !strings.Contains(path, "%s") {
			return fmt.Errorf("discovery.search_paths.%s must start with / and contain %%s, got %q", platform, path)
		}
	}

	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}
	if cfg.Fetcher.MaxPerHost < 1 {
		return fmt.Errorf("fetcher.max_per_host must be >= 1, got %d", cfg.Fetcher.MaxPerHost)
	}
	if cfg.Fetcher.HostRate < 0 {
		return fmt.Errorf("fetcher.host_rate must be >= 0")
	}
	if cfg.Fetcher.Type != "http" && cfg.Fetcher.Type != "browser" {
		return fmt.Errorf("fetcher.type must be 'http' or 'browser', got %q", cfg.Fetcher.Type)
	}

	if cfg.Proxy.Enabled {
		if cfg.Proxy.Rotation != "round_robin" && cfg.Proxy.Rotation != "random" {
			return fmt.Errorf("proxy.rotation must be 'round_robin' or 'random', got %q", cfg.Proxy.Rotation)
		}
		for _, proxyURL := range cfg.Proxy.URLs {
			if _, err := url.Parse(proxyURL); err != nil {
				return fmt.Errorf("invalid proxy URL %q: %w", proxyURL, err)
			}
		}
	}

	if cfg.Runner.Concurrency < 1 {
		return fmt.Errorf("runner.concurrency must be >= 1, got %d", cfg.Runner.Concurrency)
	}
	if cfg.Runner.Concurrency > 256 {
		return fmt.Errorf("runner.concurrency must be <= 256, got %d", cfg.Runner.Concurrency)
	}

	validStorageTypes := map[string]bool{
		"json": true, "jsonl": true, "csv": true, "mongodb": true, "sqlite": true,
	}
	for _, typ := range strings.Split(cfg.Storage.Type, ",") {
		typ = strings.TrimSpace(typ)
		if !validStorageTypes[typ] {
			return fmt.Errorf("storage.type %q is not supported (valid: json, jsonl, csv, mongodb, sqlite)", typ)
		}
		if typ == "mongodb" && cfg.Storage.MongoURI == "" {
			return fmt.Errorf("storage.mongo_uri is required for mongodb storage")
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.API.Port < 1 || cfg.API.Port > 65535 {
		return fmt.Errorf("api.port must be 1-65535, got %d", cfg.API.Port)
	}
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateURL checks if a URL string is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
