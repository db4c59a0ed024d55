package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const envPrefix = "WELLRAG"

// Store kinds.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	// APIToken enables bearer auth on the HTTP API when set.
	APIToken     string `envconfig:"API_TOKEN"`
	MaxUploadMiB int64  `envconfig:"MAX_UPLOAD_MIB" default:"64"`

	ConfigFile string `envconfig:"CONFIG_FILE" default:"config.yaml"`

	Store       string `envconfig:"STORE" default:"sqlite"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"./wellrag.db"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
	Collection  string `envconfig:"COLLECTION" default:"well_reports"`

	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	EmbeddingCacheSize  int    `envconfig:"EMBEDDING_CACHE_SIZE" default:"1024"`

	SpecsKeywords  []string `envconfig:"SPECS_KEYWORDS" default:"Casing,Mud"`
	GeologySection string   `envconfig:"GEOLOGY_SECTION" default:"Geology"`
	GeologyLimit   int      `envconfig:"GEOLOGY_LIMIT" default:"5"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"wellrag-archive"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	InboxDir     string        `envconfig:"INBOX_DIR" default:"./inbox"`
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"10s"`
}

// fileConfig is the optional YAML overlay. Keys follow the settings file of
// the earlier ingestion tool so existing files keep working.
type fileConfig struct {
	Store          string `yaml:"store"`
	SQLitePath     string `yaml:"sqlite_path"`
	ChromaDBPath   string `yaml:"chroma_db_path"`
	CollectionName string `yaml:"collection_name"`
	DatabaseURL    string `yaml:"database_url"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.applyFile(cfg.ConfigFile); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// applyFile overlays values from the YAML file that are not set in the
// environment. A missing file is not an error.
func (c *Config) applyFile(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	overlay := func(key string, dst *string, value string) {
		if value == "" {
			return
		}
		if _, set := os.LookupEnv(envPrefix + "_" + key); set {
			return
		}
		*dst = value
	}

	sqlitePath := fc.SQLitePath
	if sqlitePath == "" && fc.ChromaDBPath != "" {
		sqlitePath = filepath.Join(fc.ChromaDBPath, "wellrag.db")
	}
	overlay("STORE", &c.Store, fc.Store)
	overlay("SQLITE_PATH", &c.SQLitePath, sqlitePath)
	overlay("COLLECTION", &c.Collection, fc.CollectionName)
	overlay("DATABASE_URL", &c.DatabaseURL, fc.DatabaseURL)
	return nil
}

// Validate checks store selection and numeric settings.
func (c *Config) Validate() error {
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("invalid config: %s_SQLITE_PATH is required for the sqlite store", envPrefix)
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("invalid config: %s_DATABASE_URL is required for the postgres store", envPrefix)
		}
	default:
		return fmt.Errorf("invalid config: unknown store %q", c.Store)
	}
	if c.Collection == "" {
		return fmt.Errorf("invalid config: %s_COLLECTION must not be empty", envPrefix)
	}
	if c.EmbeddingDimensions <= 0 {
		return fmt.Errorf("invalid config: %s_EMBEDDING_DIMENSIONS must be positive", envPrefix)
	}
	if c.MaxUploadMiB <= 0 {
		return fmt.Errorf("invalid config: %s_MAX_UPLOAD_MIB must be positive", envPrefix)
	}
	if c.GeologyLimit <= 0 {
		return fmt.Errorf("invalid config: %s_GEOLOGY_LIMIT must be positive", envPrefix)
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
