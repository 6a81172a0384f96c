package config

import (
	"time"

	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"
)

// Config holds the main configuration for the application.
type Config struct {
	Server    Server    `mapstructure:"server"`
	Storage   Storage   `mapstructure:"storage"`
	Kafka     Kafka     `mapstructure:"kafka"`
	Retry     Retry     `mapstructure:"retry"`
	Loader    Loader    `mapstructure:"loader"`
	Render    Render    `mapstructure:"render"`
	WordPress WordPress `mapstructure:"wordpress"`
}

// Server holds HTTP server-related configuration.
type Server struct {
	HTTPPort string `mapstructure:"http_port"` // HTTP port to listen on
}

// Storage holds configuration for the bucket rendered graphics are written to.
type Storage struct {
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`
}

// Kafka holds configuration for the render request and result topics.
type Kafka struct {
	GroupID      string   `mapstructure:"group_id"`      // Consumer group ID
	RequestTopic string   `mapstructure:"request_topic"` // render requests
	ResultTopic  string   `mapstructure:"result_topic"`  // rendered events
	Brokers      []string `mapstructure:"brokers"`       // List of Kafka broker addresses
}

// Retry defines retry policy configuration.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

// Loader configures image delivery tiers.
type Loader struct {
	// Tiers are URL templates tried in order; {url} receives the escaped target.
	Tiers          []string      `mapstructure:"tiers"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	Origin         string        `mapstructure:"origin"`     // sent as the Origin header
	MaxPixels      int           `mapstructure:"max_pixels"` // larger images are rejected before decoding
}

// Render configures the compositing pipeline.
type Render struct {
	SiteLabel       string `mapstructure:"site_label"`
	DefaultTemplate string `mapstructure:"default_template"`
	DefaultLogo     string `mapstructure:"default_logo"` // data URI or URL, optional
	LinkQR          bool   `mapstructure:"link_qr"`
}

// WordPress configures the post poller.
type WordPress struct {
	Enabled        bool          `mapstructure:"enabled"`
	BaseURL        string        `mapstructure:"base_url"`
	PerPage        int           `mapstructure:"per_page"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	RenderExisting bool          `mapstructure:"render_existing"`
}

// DefaultTiers are the public proxies used when none are configured.
var DefaultTiers = []string{
	"https://images.weserv.nl/?url={url}",
	"https://corsproxy.io/?{url}",
	"https://api.allorigins.win/raw?url={url}",
}

func setDefaults() {
	viper.SetDefault("server.http_port", ":8080")
	viper.SetDefault("storage.bucket_name", "newsflow")
	viper.SetDefault("kafka.group_id", "newsflow-renderer")
	viper.SetDefault("kafka.request_topic", "render.requested")
	viper.SetDefault("kafka.result_topic", "render.completed")
	viper.SetDefault("retry.attempts", 3)
	viper.SetDefault("retry.delay", 500*time.Millisecond)
	viper.SetDefault("retry.backoff", 2.0)
	viper.SetDefault("loader.tiers", DefaultTiers)
	viper.SetDefault("loader.attempt_timeout", 8*time.Second)
	viper.SetDefault("loader.max_pixels", 40_000_000)
	viper.SetDefault("render.site_label", "newsflow.app")
	viper.SetDefault("render.default_template", "standard")
	viper.SetDefault("wordpress.per_page", 10)
	viper.SetDefault("wordpress.poll_interval", time.Minute)
}

// mustBindEnv binds secrets and deployment specific values to Viper keys.
//
// It panics if any environment variable cannot be bound.
func mustBindEnv() {
	bindings := map[string]string{
		"storage.endpoint":   "MINIO_ENDPOINT",
		"storage.access_key": "MINIO_ACCESS_KEY",
		"storage.secret_key": "MINIO_SECRET_KEY",
		"wordpress.base_url": "WORDPRESS_URL",
	}

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			zlog.Logger.Panic().Err(err).Msgf("failed to bind env %s", env)
		}
	}
}

// MustLoad loads the configuration from the given YAML file.
// It panics if the configuration file cannot be loaded or unmarshaled.
func MustLoad(path string) *Config {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to read config")
	}

	mustBindEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		zlog.Logger.Panic().Err(err).Msgf("failed to unmarshal config: %v", err)
	}

	return &cfg
}
