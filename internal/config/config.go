// Package config loads and validates ingest service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Scrape    ScrapeConfig    `mapstructure:"scrape"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Qdrant    QdrantConfig    `mapstructure:"qdrant"`
	Object    ObjectConfig    `mapstructure:"object"`
	Publisher PublisherConfig `mapstructure:"publisher"`
}

// ServerConfig controls the ops HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// ScrapeConfig governs the crawl target surface and fetch pacing.
type ScrapeConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Division          string        `mapstructure:"division"`
	ProductPathPrefix string        `mapstructure:"product_path_prefix"`
	Categories        []string      `mapstructure:"categories"`
	PagesPerCategory  int           `mapstructure:"pages_per_category"`
	LimitPerPage      int           `mapstructure:"limit_per_page"`
	Concurrency       int           `mapstructure:"concurrency"`
	RequestDelay      time.Duration `mapstructure:"request_delay"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	UserAgent         string        `mapstructure:"user_agent"`
}

// EmbeddingConfig selects and configures the embedding capability.
type EmbeddingConfig struct {
	// Provider is "service" (HTTP inference sidecar), "openai", or "noop".
	Provider   string `mapstructure:"provider"`
	ServiceURL string `mapstructure:"service_url"`
	Model      string `mapstructure:"model"`
	Dimension  int    `mapstructure:"dimension"`
	// Captions enables the auxiliary image-caption capability.
	Captions bool `mapstructure:"captions"`
}

// PostgresConfig controls the relational sink.
type PostgresConfig struct {
	Provider string `mapstructure:"provider"` // postgres | noop
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// QdrantConfig controls the vector sink.
type QdrantConfig struct {
	Provider        string `mapstructure:"provider"` // qdrant | memory
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	APIKey          string `mapstructure:"api_key"`
	UseTLS          bool   `mapstructure:"use_tls"`
	TextCollection  string `mapstructure:"text_collection"`
	ImageCollection string `mapstructure:"image_collection"`
}

// ObjectConfig controls the object-store sink.
type ObjectConfig struct {
	Provider  string `mapstructure:"provider"` // s3 | memory
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// PublisherConfig controls optional ingest-event publishing.
type PublisherConfig struct {
	Provider string   `mapstructure:"provider"` // kafka | memory | none
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CATALOG")
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
	v.SetDefault("logging.development", true)
	v.SetDefault("scrape.base_url", "https://www.fashionnova.com")
	v.SetDefault("scrape.division", "women")
	v.SetDefault("scrape.product_path_prefix", "/products/")
	v.SetDefault("scrape.categories", []string{"shoes", "bodysuits", "jackets"})
	v.SetDefault("scrape.pages_per_category", 3)
	v.SetDefault("scrape.limit_per_page", 60)
	v.SetDefault("scrape.concurrency", 10)
	v.SetDefault("scrape.request_delay", "1s")
	v.SetDefault("scrape.request_timeout", "30s")
	v.SetDefault("embedding.provider", "noop")
	v.SetDefault("embedding.dimension", 768)
	v.SetDefault("embedding.captions", false)
	v.SetDefault("postgres.provider", "noop")
	v.SetDefault("postgres.max_conns", 4)
	v.SetDefault("qdrant.provider", "memory")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("qdrant.text_collection", "jibbs_product_text_embeddings")
	v.SetDefault("qdrant.image_collection", "jibbs_product_image_embeddings")
	v.SetDefault("object.provider", "memory")
	v.SetDefault("object.region", "us-east-1")
	v.SetDefault("publisher.provider", "none")
}

// Validate enforces required values. Missing store credentials are a fatal
// misconfiguration, unlike transient fetch or sink failures which are soft.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Scrape.BaseURL == "" {
		return fmt.Errorf("scrape.base_url must be set")
	}
	if c.Scrape.Concurrency <= 0 {
		return fmt.Errorf("scrape.concurrency must be > 0")
	}
	if c.Scrape.RequestTimeout <= 0 {
		return fmt.Errorf("scrape.request_timeout must be > 0")
	}
	if c.Scrape.PagesPerCategory <= 0 {
		return fmt.Errorf("scrape.pages_per_category must be > 0")
	}

	switch c.Embedding.Provider {
	case "service":
		if c.Embedding.ServiceURL == "" {
			return fmt.Errorf("embedding.provider is 'service' but embedding.service_url is not set")
		}
	case "openai", "noop":
	default:
		return fmt.Errorf("unknown embedding provider: %s", c.Embedding.Provider)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be > 0")
	}

	if c.Postgres.Provider == "postgres" && c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.provider is 'postgres' but postgres.dsn is not set")
	}
	if c.Qdrant.Provider == "qdrant" && c.Qdrant.Host == "" {
		return fmt.Errorf("qdrant.provider is 'qdrant' but qdrant.host is not set")
	}
	if c.Object.Provider == "s3" {
		if c.Object.Endpoint == "" || c.Object.Bucket == "" {
			return fmt.Errorf("object.provider is 's3' but endpoint or bucket is not set")
		}
		if c.Object.AccessKey == "" || c.Object.SecretKey == "" {
			return fmt.Errorf("object store credentials are not available or incomplete")
		}
	}
	if c.Publisher.Provider == "kafka" && (len(c.Publisher.Brokers) == 0 || c.Publisher.Topic == "") {
		return fmt.Errorf("publisher.provider is 'kafka' but brokers or topic is not set")
	}
	return nil
}
