package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and a local .env file.
// Priority (highest to lowest): env vars > config file > defaults.
// CLI flags are applied by the caller on top of the returned Config.
func Load(configPath string) (*Config, error) {
	// A missing .env is fine; a broken one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("GAPFILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("gapfill")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".gapfill"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(cfg.Ingest.ColumnAliases) == 0 {
		cfg.Ingest.ColumnAliases = DefaultColumnAliases()
	}

	return cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("discovery.request_timeout", cfg.Discovery.RequestTimeout)
	v.SetDefault("discovery.search_endpoint", cfg.Discovery.SearchEndpoint)
	v.SetDefault("discovery.user_agents", cfg.Discovery.UserAgents)
	v.SetDefault("discovery.accept_language", cfg.Discovery.AcceptLanguage)
	v.SetDefault("discovery.link_selectors", cfg.Discovery.LinkSelectors)

	v.SetDefault("extract.title", cfg.Extract.Title)
	v.SetDefault("extract.price", cfg.Extract.Price)
	v.SetDefault("extract.description", cfg.Extract.Description)
	v.SetDefault("extract.image", cfg.Extract.Image)
	v.SetDefault("extract.variant", cfg.Extract.Variant)
	v.SetDefault("extract.structured_data", cfg.Extract.StructuredData)

	v.SetDefault("fetcher.type", cfg.Fetcher.Type)
	v.SetDefault("fetcher.follow_redirects", cfg.Fetcher.FollowRedirects)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.tls_insecure", cfg.Fetcher.TLSInsecure)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)
	v.SetDefault("fetcher.max_per_host", cfg.Fetcher.MaxPerHost)
	v.SetDefault("fetcher.host_rate", cfg.Fetcher.HostRate)
	v.SetDefault("fetcher.stealth", cfg.Fetcher.Stealth)

	v.SetDefault("proxy.enabled", cfg.Proxy.Enabled)
	v.SetDefault("proxy.rotation", cfg.Proxy.Rotation)
	v.SetDefault("proxy.urls", cfg.Proxy.URLs)

	v.SetDefault("runner.concurrency", cfg.Runner.Concurrency)

	v.SetDefault("ingest.normalize_values", cfg.Ingest.NormalizeValues)
	v.SetDefault("ingest.keep_fields", cfg.Ingest.KeepFields)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.output_path", cfg.Storage.OutputPath)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.mongo_database", cfg.Storage.MongoDatabase)
	v.SetDefault("storage.mongo_collection", cfg.Storage.MongoCollection)
	v.SetDefault("storage.sqlite_path", cfg.Storage.SQLitePath)

	v.SetDefault("api.port", cfg.API.Port)
	v.SetDefault("api.environment", cfg.API.Environment)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
