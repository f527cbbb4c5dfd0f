package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for GapFill.
type Config struct {
	Discovery DiscoveryConfig `mapstructure:"discovery" yaml:"discovery"`
	Extract   ExtractConfig   `mapstructure:"extract"   yaml:"extract"`
	Fetcher   FetcherConfig   `mapstructure:"fetcher"   yaml:"fetcher"`
	Proxy     ProxyConfig     `mapstructure:"proxy"     yaml:"proxy"`
	Runner    RunnerConfig    `mapstructure:"runner"    yaml:"runner"`
	Ingest    IngestConfig    `mapstructure:"ingest"    yaml:"ingest"`
	Storage   StorageConfig   `mapstructure:"storage"   yaml:"storage"`
	API       APIConfig       `mapstructure:"api"       yaml:"api"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   yaml:"metrics"`
}

// DiscoveryConfig controls product discovery on vendor sites.
type DiscoveryConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	SearchEndpoint string        `mapstructure:"search_endpoint" yaml:"search_endpoint"`
	UserAgents     []string      `mapstructure:"user_agents"     yaml:"user_agents"`
	AcceptLanguage string        `mapstructure:"accept_language" yaml:"accept_language"`

	// SearchPaths overrides the on-site search path per platform
	// (wordpress, shopify, custom). "%s" marks the search term.
	SearchPaths map[string]string `mapstructure:"search_paths" yaml:"search_paths"`

	// LinkSelectors replaces the search-result link rules, tried in order.
	LinkSelectors []string `mapstructure:"link_selectors" yaml:"link_selectors"`
}

// ExtractConfig overrides product page selectors. An empty list keeps
// the built-in selectors for that field.
type ExtractConfig struct {
	Title          []string `mapstructure:"title"           yaml:"title"`
	Price          []string `mapstructure:"price"           yaml:"price"`
	Description    []string `mapstructure:"description"     yaml:"description"`
	Image          string   `mapstructure:"image"           yaml:"image"`
	Variant        string   `mapstructure:"variant"         yaml:"variant"`
	StructuredData bool     `mapstructure:"structured_data" yaml:"structured_data"`
}

// FetcherConfig controls the page fetcher.
type FetcherConfig struct {
	Type            string        `mapstructure:"type"              yaml:"type"`
	FollowRedirects bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	MaxPerHost      int           `mapstructure:"max_per_host"      yaml:"max_per_host"`
	HostRate        float64       `mapstructure:"host_rate"         yaml:"host_rate"`
	Stealth         bool          `mapstructure:"stealth"           yaml:"stealth"`
}

// ProxyConfig controls proxy rotation.
type ProxyConfig struct {
	Enabled  bool     `mapstructure:"enabled"  yaml:"enabled"`
	Rotation string   `mapstructure:"rotation" yaml:"rotation"`
	URLs     []string `mapstructure:"urls"     yaml:"urls"`
}

// RunnerConfig controls batch row processing.
type RunnerConfig struct {
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// IngestConfig controls spreadsheet loading.
type IngestConfig struct {
	// ColumnAliases maps a canonical field name to accepted header spellings.
	ColumnAliases   map[string][]string `mapstructure:"column_aliases"   yaml:"column_aliases"`
	NormalizeValues bool                `mapstructure:"normalize_values" yaml:"normalize_values"`

	// Defaults fills fields still blank after enrichment.
	Defaults map[string]string `mapstructure:"defaults" yaml:"defaults"`

	// KeepFields limits output columns; empty keeps every field.
	KeepFields []string `mapstructure:"keep_fields" yaml:"keep_fields"`
}

// StorageConfig controls output of enriched rows.
type StorageConfig struct {
	Type            string `mapstructure:"type"             yaml:"type"`
	OutputPath      string `mapstructure:"output_path"      yaml:"output_path"`
	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
	SQLitePath      string `mapstructure:"sqlite_path"      yaml:"sqlite_path"`
}

// APIConfig controls the HTTP server.
type APIConfig struct {
	Port        int    `mapstructure:"port"        yaml:"port"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultColumnAliases returns the built-in header spellings per canonical field.
// Headers are compared after removing spaces and lower-casing.
func DefaultColumnAliases() map[string][]string {
	return map[string][]string{
		"TITLE":            {"title", "name", "productname", "product", "itemname"},
		"SKU":              {"sku", "itemsku", "productcode", "itemcode", "code", "partnumber"},
		"WEBSITE":          {"website", "site", "vendorwebsite", "vendorsite"},
		"URL":              {"url", "link", "producturl"},
		"BASE_URL":         {"base_url", "baseurl", "domain"},
		"PRICE":            {"price", "retailprice", "msrp", "unitprice"},
		"DESCRIPTION_HTML": {"description_html", "descriptionhtml", "description", "bodyhtml", "body_html"},
		"IMAGES":           {"images", "imageurls", "image", "imageurl"},
		"VARIANTS":         {"variants", "options", "sizes"},
		"VENDOR":           {"vendor", "brand", "manufacturer"},
		"QUANTITY":         {"quantity", "qty", "stock", "inventory"},
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Discovery: DiscoveryConfig{
			RequestTimeout: 10 * time.Second,
			SearchEndpoint: "https://www.google.com/search",
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_2) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
			},
			AcceptLanguage: "en-US,en;q=0.9",
		},
		Extract: ExtractConfig{
			StructuredData: true,
		},
		Fetcher: FetcherConfig{
			Type:            "http",
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    100,
			MaxPerHost:      2,
		},
		Proxy: ProxyConfig{
			Enabled:  false,
			Rotation: "random",
		},
		Runner: RunnerConfig{
			Concurrency: 4,
		},
		Ingest: IngestConfig{
			ColumnAliases:   DefaultColumnAliases(),
			NormalizeValues: false,
		},
		Storage: StorageConfig{
			Type:            "json",
			OutputPath:      "./output",
			MongoDatabase:   "gapfill",
			MongoCollection: "enriched_rows",
			SQLitePath:      "./output/gapfill.db",
		},
		API: APIConfig{
			Port:        8080,
			Environment: "development",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
