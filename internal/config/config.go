// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper. It is
// built once at startup and passed into constructors; nothing reads ambient
// global state.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	Harvest  HarvestConfig  `mapstructure:"harvest"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	DB       DBConfig       `mapstructure:"db"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls the HTTP callback server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// CrawlerConfig describes the external crawl service and the defaults merged
// into every scheduled crawl.
type CrawlerConfig struct {
	HostURL  string         `mapstructure:"host_url"`
	Project  string         `mapstructure:"project"`
	DataType string         `mapstructure:"data_type"`
	Settings map[string]any `mapstructure:"settings"`

	// SpiderArguments holds per-spider argument overrides, e.g.
	// {"myspider": {"somearg": "foo"}}.
	SpiderArguments map[string]map[string]string `mapstructure:"spider_arguments"`
}

// HarvestConfig controls where harvested records are batched to disk.
type HarvestConfig struct {
	OutputDir  string `mapstructure:"output_dir"`
	MaxRecords int    `mapstructure:"max_records"`
}

// DispatchConfig selects the downstream queue used to start workflow
// processing, keyed by spider with a fallback default.
type DispatchConfig struct {
	DefaultQueue string            `mapstructure:"default_queue"`
	Queues       map[string]string `mapstructure:"queues"`
}

// QueueFor returns the dispatch queue for a spider.
func (d DispatchConfig) QueueFor(spider string) string {
	if queue, ok := d.Queues[spider]; ok && queue != "" {
		return queue
	}
	return d.DefaultQueue
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// PubSubConfig holds metadata for the downstream dispatch transport.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("crawler.host_url", "http://localhost:6800")
	v.SetDefault("crawler.project", "hepcrawl")
	v.SetDefault("crawler.data_type", "hep")
	v.SetDefault("harvest.output_dir", "/var/lib/crawler/harvest")
	v.SetDefault("harvest.max_records", 1000)
	v.SetDefault("dispatch.default_queue", "harvest")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.HostURL == "" {
		return fmt.Errorf("crawler.host_url is required")
	}
	if c.Crawler.Project == "" {
		return fmt.Errorf("crawler.project is required")
	}
	if c.Crawler.DataType == "" {
		return fmt.Errorf("crawler.data_type is required")
	}
	if c.Harvest.MaxRecords <= 0 {
		return fmt.Errorf("harvest.max_records must be > 0")
	}
	if c.Dispatch.DefaultQueue == "" {
		return fmt.Errorf("dispatch.default_queue is required")
	}
	return nil
}
