// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable override (PODCAST_SHEETS_URL, ...).
const EnvPrefix = "PODCAST"

// DefaultEnvFile is read when present; variables already set in the environment win.
const DefaultEnvFile = ".env"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Store     StoreConfig     `mapstructure:"store"`
	Sheets    SheetsConfig    `mapstructure:"sheets"`
	Processor ProcessorConfig `mapstructure:"processor"`
	Feed      FeedConfig      `mapstructure:"feed"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// StoreConfig selects where record files live and how new ones are named.
type StoreConfig struct {
	Backend string         `mapstructure:"backend"`
	Dir     string         `mapstructure:"dir"`
	GCS     GCSStoreConfig `mapstructure:"gcs"`
	Naming  string         `mapstructure:"naming"`
}

// GCSStoreConfig locates records in a bucket.
type GCSStoreConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// SheetsConfig locates the spreadsheet mirror and its credentials.
type SheetsConfig struct {
	URL             string `mapstructure:"url"`
	Worksheet       string `mapstructure:"worksheet"`
	CredentialsJSON string `mapstructure:"credentials_json"`
	CredentialsFile string `mapstructure:"credentials_file"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`

	// AuthorizedExport signs CSV export requests with the service account for private sheets.
	AuthorizedExport bool `mapstructure:"authorized_export"`
}

// ProcessorConfig addresses the remote summarization function.
type ProcessorConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	App            string `mapstructure:"app"`
	Function       string `mapstructure:"function"`
	LocalPath      string `mapstructure:"local_path"`
	Token          string `mapstructure:"token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// FeedConfig controls the feed pre-check.
type FeedConfig struct {
	Precheck       bool   `mapstructure:"precheck"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// DBConfig controls access to the submission ledger database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int    `mapstructure:"max_conns"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Load builds a Config from DefaultEnvFile, the environment and an optional YAML file.
func Load(path string) (Config, error) {
	return LoadWithEnvFile(path, DefaultEnvFile)
}

// LoadWithEnvFile is Load with an explicit dotenv file; a missing file is ignored.
func LoadWithEnvFile(path, envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file: %w", err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("bind port env: %w", err)
	}

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

// Every key gets a default, even an empty one, so AutomaticEnv can fill it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 900)
	v.SetDefault("logging.development", true)
	v.SetDefault("store.backend", "local")
	v.SetDefault("store.dir", "./podcasts")
	v.SetDefault("store.gcs.bucket", "")
	v.SetDefault("store.gcs.prefix", "podcasts")
	v.SetDefault("store.naming", "sequential")
	v.SetDefault("sheets.url", "")
	v.SetDefault("sheets.worksheet", "podcasts")
	v.SetDefault("sheets.credentials_json", "")
	v.SetDefault("sheets.credentials_file", "")
	v.SetDefault("sheets.authorized_export", false)
	v.SetDefault("sheets.cache_ttl_seconds", 600)
	v.SetDefault("sheets.timeout_seconds", 30)
	v.SetDefault("processor.endpoint", "")
	v.SetDefault("processor.app", "corise-podcast-project")
	v.SetDefault("processor.function", "process_podcast")
	v.SetDefault("processor.local_path", "/")
	v.SetDefault("processor.token", "")
	v.SetDefault("processor.timeout_seconds", 600)
	v.SetDefault("feed.precheck", true)
	v.SetDefault("feed.timeout_seconds", 20)
	v.SetDefault("feed.user_agent", "podcastdigest/0.1")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "podcast_submissions")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("server.request_timeout_seconds must be >= 0")
	}
	switch c.Store.Backend {
	case "local":
		if c.Store.Dir == "" {
			return fmt.Errorf("store.dir is required for the local backend")
		}
	case "gcs":
		if c.Store.GCS.Bucket == "" {
			return fmt.Errorf("store.gcs.bucket is required for the gcs backend")
		}
	case "memory":
	default:
		return fmt.Errorf("store.backend must be local, gcs or memory, got %q", c.Store.Backend)
	}
	if c.Store.Naming != "sequential" && c.Store.Naming != "uuid" {
		return fmt.Errorf("store.naming must be sequential or uuid, got %q", c.Store.Naming)
	}
	if c.Sheets.URL == "" {
		return fmt.Errorf("sheets.url is required")
	}
	if c.Sheets.CredentialsJSON == "" && c.Sheets.CredentialsFile == "" {
		return fmt.Errorf("sheets.credentials_json or sheets.credentials_file is required")
	}
	if c.Sheets.CacheTTLSeconds < 0 {
		return fmt.Errorf("sheets.cache_ttl_seconds must be >= 0")
	}
	if c.Processor.Endpoint == "" {
		return fmt.Errorf("processor.endpoint is required")
	}
	if c.Processor.TimeoutSeconds < 0 {
		return fmt.Errorf("processor.timeout_seconds must be >= 0")
	}
	if c.DB.MaxConns < 0 || c.DB.MaxConns > 1000 {
		return fmt.Errorf("db.max_conns must be between 0 and 1000")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	return nil
}

// SheetsCredentials returns the service-account JSON, reading the file when
// no inline JSON is configured.
func (c Config) SheetsCredentials() ([]byte, error) {
	if c.Sheets.CredentialsJSON != "" {
		return []byte(c.Sheets.CredentialsJSON), nil
	}
	data, err := os.ReadFile(c.Sheets.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read sheets credentials: %w", err)
	}
	return data, nil
}

// RequestTimeout bounds one HTTP request to the service.
func (c Config) RequestTimeout() time.Duration {
	return seconds(c.Server.RequestTimeoutSeconds)
}

// CacheTTL is how long spreadsheet rows are reused; zero disables caching.
func (c Config) CacheTTL() time.Duration {
	return seconds(c.Sheets.CacheTTLSeconds)
}

// SheetsTimeout bounds spreadsheet export and append calls.
func (c Config) SheetsTimeout() time.Duration {
	return seconds(c.Sheets.TimeoutSeconds)
}

// ProcessorTimeout bounds one remote processing call; zero means no limit.
func (c Config) ProcessorTimeout() time.Duration {
	return seconds(c.Processor.TimeoutSeconds)
}

// FeedTimeout bounds one feed pre-check.
func (c Config) FeedTimeout() time.Duration {
	return seconds(c.Feed.TimeoutSeconds)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
