// Package config handles loading and parsing application configuration.
// It supports two sources for the file path (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//
// Every value in the file can be overridden by the environment variable
// named in its env:"..." tag, so secrets such as the Mongo URI or the
// embedding API key never need to live in the YAML.
package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Storage drivers understood by Storage.Driver.
const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

// Config is the root configuration structure.
//
// env-required:"true" means the app refuses to start if that value is
// missing.
type Config struct {
	// Env controls log format and verbosity.
	// Valid values: "dev", "staging", "prod"
	Env string `yaml:"env" env:"ENV" env-required:"true"`

	HTTPServer HTTPServer `yaml:"http_server"`
	Storage    Storage    `yaml:"storage"`
	Embedding  Embedding  `yaml:"embedding"`
	Resume     Resume     `yaml:"resume"`
	Cache      Cache      `yaml:"cache"`
	Recommend  Recommend  `yaml:"recommend"`
}

// HTTPServer holds settings specific to the HTTP server.
type HTTPServer struct {
	// Addr is the TCP address the server listens on, e.g. "localhost:8001".
	Addr string `yaml:"address" env:"HTTP_SERVER_ADDR" env-required:"true"`

	ReadTimeout  time.Duration `yaml:"read_timeout" env:"HTTP_SERVER_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"HTTP_SERVER_WRITE_TIMEOUT" env-default:"120s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"HTTP_SERVER_IDLE_TIMEOUT" env-default:"60s"`

	// ShutdownTimeout bounds how long in-flight requests may run after
	// SIGINT/SIGTERM before the server gives up on them.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SERVER_SHUTDOWN_TIMEOUT" env-default:"5s"`

	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `yaml:"cors_origins" env:"HTTP_SERVER_CORS_ORIGINS" env-separator:"," env-default:"http://localhost:5173,http://localhost:3000"`
}

// Storage selects and configures the profile store.
type Storage struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"mongo"`
	Mongo  Mongo  `yaml:"mongo"`
	SQLite SQLite `yaml:"sqlite"`
}

// Mongo is used when Storage.Driver is "mongo".
type Mongo struct {
	URI            string        `yaml:"uri" env:"MONGODB_URI"`
	Database       string        `yaml:"database" env:"MONGODB_DATABASE" env-default:"alumni"`
	Collection     string        `yaml:"collection" env:"MONGODB_COLLECTION" env-default:"users"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"MONGODB_CONNECT_TIMEOUT" env-default:"10s"`
}

// SQLite is used when Storage.Driver is "sqlite".
type SQLite struct {
	// Path is the filesystem path to the SQLite .db file.
	Path string `yaml:"path" env:"STORAGE_PATH" env-default:"storage/storage.db"`

	// SeedFile optionally names a JSON array of users loaded at startup.
	// Users whose id already exists are skipped.
	SeedFile string `yaml:"seed_file" env:"SQLITE_SEED_FILE"`
}

// Embedding configures the sentence-embedding provider used for ATS scoring.
// Empty Model and BaseURL fall back to the provider's defaults.
type Embedding struct {
	Provider   string        `yaml:"provider" env:"EMBEDDING_PROVIDER" env-default:"ollama"`
	BaseURL    string        `yaml:"base_url" env:"EMBEDDING_BASE_URL"`
	APIKey     string        `yaml:"api_key" env:"EMBEDDING_API_KEY"`
	Model      string        `yaml:"model" env:"EMBEDDING_MODEL"`
	Timeout    time.Duration `yaml:"timeout" env:"EMBEDDING_TIMEOUT" env-default:"60s"`
	MaxRetries int           `yaml:"max_retries" env:"EMBEDDING_MAX_RETRIES" env-default:"2"`
}

// Resume configures résumé downloading.
type Resume struct {
	DownloadTimeout time.Duration `yaml:"download_timeout" env:"RESUME_DOWNLOAD_TIMEOUT" env-default:"20s"`
	MaxBytes        int64         `yaml:"max_bytes" env:"RESUME_MAX_BYTES" env-default:"10485760"`
	Concurrency     int           `yaml:"concurrency" env:"RESUME_CONCURRENCY" env-default:"8"`
}

// Cache configures the Redis résumé-text cache. An empty RedisAddr
// disables caching entirely.
type Cache struct {
	RedisAddr string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	Password  string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB        int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	TTL       time.Duration `yaml:"ttl" env:"RESUME_CACHE_TTL" env-default:"24h"`
}

// Recommend tunes alumni recommendations.
type Recommend struct {
	// Threshold is the minimum (exclusive) TF-IDF cosine score an alumnus
	// must reach to be recommended.
	Threshold float64 `yaml:"threshold" env:"RECOMMEND_THRESHOLD" env-default:"0.4"`

	// Limit caps each of the sameCollege / otherCollege lists.
	Limit int `yaml:"limit" env:"RECOMMEND_LIMIT" env-default:"10"`
}

// MustLoad reads, validates, and returns the application config.
//
// Functions prefixed with "Must" are allowed to fatal on failure: if this
// returns, the config is valid.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	if configPath == "" {
		log.Fatal("config path is not set: use --config flag or CONFIG_PATH env var")
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err.Error())
	}

	return cfg
}

// Load reads the YAML file at path, applies environment overrides and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	// A clear message here beats a cryptic "open: no such file" later.
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMongo:
		if c.Storage.Mongo.URI == "" {
			return fmt.Errorf("storage.mongo.uri is required for the %q driver", DriverMongo)
		}
	case DriverSQLite:
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path is required for the %q driver", DriverSQLite)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Resume.Concurrency < 1 {
		return fmt.Errorf("resume.concurrency must be at least 1, got %d", c.Resume.Concurrency)
	}
	if c.Recommend.Limit < 1 {
		return fmt.Errorf("recommend.limit must be at least 1, got %d", c.Recommend.Limit)
	}

	return nil
}
