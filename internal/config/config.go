package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	domquery "github.com/kailas-cloud/booksrag/internal/domain/query"
)

// Config holds the booksrag API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Relational RelationalConfig `yaml:"relational"`
	Vector     VectorConfig     `yaml:"vector"`
	Collection CollectionConfig `yaml:"collection"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Worker     WorkerConfig     `yaml:"worker"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	MaxUploadMB     int      `yaml:"max_upload_mb"`
	CORSOrigins     []string `yaml:"cors_origins"`
	// HideCollaboratorErrors replaces collaborator error text with a generic message.
	HideCollaboratorErrors bool `yaml:"hide_collaborator_errors"`
}

// RelationalConfig holds relational store connection settings.
type RelationalConfig struct {
	Driver           string `yaml:"driver"` // postgres, sqlite (default: postgres)
	Host             string `yaml:"host"`
	Port             int    `yaml:"port"`
	User             string `yaml:"user"`
	Password         string `yaml:"password"`
	Database         string `yaml:"database"`
	SSLMode          string `yaml:"sslmode"`
	Path             string `yaml:"path"` // sqlite file
	MaxOpenConns     int    `yaml:"max_open_conns"`
	MaxIdleConns     int    `yaml:"max_idle_conns"`
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`
}

// VectorConfig holds vector store connection settings.
type VectorConfig struct {
	Driver     string   `yaml:"driver"` // qdrant, valkey (default: qdrant)
	Host       string   `yaml:"host"`
	Port       int      `yaml:"port"`
	HTTPS      bool     `yaml:"https"`
	APIKey     string   `yaml:"api_key"`
	Addrs      []string `yaml:"addrs"`
	Password   string   `yaml:"password"`
	KeyPrefix  string   `yaml:"key_prefix"`
	BareSearch bool     `yaml:"bare_search"`
	TimeoutSec int      `yaml:"timeout_sec"`
}

// CollectionConfig holds the vector collection resolution layers.
type CollectionConfig struct {
	Override string `yaml:"override"`
	Fallback string `yaml:"fallback"`
	Seed     string `yaml:"seed"`
}

// IngestConfig holds ingestion collaborator settings.
type IngestConfig struct {
	Driver            string   `yaml:"driver"` // rag, command (default: rag)
	Command           []string `yaml:"command"`
	CommandEnv        []string `yaml:"command_env"`
	Extensions        []string `yaml:"extensions"`
	DefaultCollection string   `yaml:"default_collection"`
	StagingDir        string   `yaml:"staging_dir"`
}

// RetrievalConfig holds retrieval collaborator settings.
type RetrievalConfig struct {
	BaseURL    string           `yaml:"base_url"`
	TimeoutSec int              `yaml:"timeout_sec"`
	Manifest   bool             `yaml:"manifest"`
	Params     []domquery.Param `yaml:"params"`
}

// WorkerConfig holds worker pool settings.
type WorkerConfig struct {
	Size  int `yaml:"size"`
	Queue int `yaml:"queue"`
}

// QueryEnvKeys are the environment variables reported by /debug/query-env.
var QueryEnvKeys = []string{
	"PGHOST", "PGPORT", "PGUSER", "PGDATABASE",
	"QDRANT_HOST", "QDRANT_PORT",
	"QDRANT_COLLECTION", "BOOKS_COLLECTION", "BOOKS_SEED_COLLECTION",
}

// DotEnvCandidates are the .env files loaded before the YAML config.
var DotEnvCandidates = []string{".env", filepath.Join("..", ".env")}

// LoadDotEnv loads every existing candidate file. Variables already set are never overridden.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if !fileExists(p) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	if err := LoadDotEnv(DotEnvCandidates...); err != nil {
		return Config{}, err
	}

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands environment variables in data and decodes it.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 300
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxUploadMB <= 0 {
		c.HTTP.MaxUploadMB = 64
	}
	if len(c.HTTP.CORSOrigins) == 0 {
		c.HTTP.CORSOrigins = []string{"*"}
	}
	if c.Relational.Driver == "" {
		c.Relational.Driver = "postgres"
	}
	if c.Relational.Port <= 0 {
		c.Relational.Port = 55432
	}
	if c.Relational.MaxOpenConns <= 0 {
		c.Relational.MaxOpenConns = 10
	}
	if c.Relational.ReadinessTimeout <= 0 {
		c.Relational.ReadinessTimeout = 10
	}
	if c.Vector.Driver == "" {
		c.Vector.Driver = "qdrant"
	}
	if c.Vector.Port <= 0 {
		c.Vector.Port = 6333
	}
	if c.Vector.TimeoutSec <= 0 {
		c.Vector.TimeoutSec = 15
	}
	if c.Collection.Fallback == "" {
		c.Collection.Fallback = "books_rag"
	}
	if c.Ingest.Driver == "" {
		c.Ingest.Driver = "rag"
	}
	if len(c.Ingest.Extensions) == 0 {
		c.Ingest.Extensions = []string{".pdf"}
	}
	if c.Retrieval.TimeoutSec <= 0 {
		c.Retrieval.TimeoutSec = 120
	}
	if c.Worker.Size <= 0 {
		c.Worker.Size = 4
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Relational.Driver {
	case "postgres":
		if c.Relational.Host == "" {
			return errors.New("relational.host is required for postgres")
		}
	case "sqlite":
	default:
		return fmt.Errorf("relational.driver must be \"postgres\" or \"sqlite\", got %q", c.Relational.Driver)
	}
	switch c.Vector.Driver {
	case "qdrant":
		if c.Vector.Host == "" {
			return errors.New("vector.host is required for qdrant")
		}
	case "valkey", "redis":
		if len(c.Vector.Addrs) == 0 {
			return fmt.Errorf("vector.addrs is required for %s", c.Vector.Driver)
		}
	default:
		return fmt.Errorf("vector.driver must be \"qdrant\" or \"valkey\", got %q", c.Vector.Driver)
	}
	switch c.Ingest.Driver {
	case "rag":
	case "command":
		if len(c.Ingest.Command) == 0 {
			return errors.New("ingest.command is required for ingest.driver command")
		}
	default:
		return fmt.Errorf("ingest.driver must be \"rag\" or \"command\", got %q", c.Ingest.Driver)
	}
	if c.Retrieval.BaseURL == "" {
		return errors.New("retrieval.base_url is required")
	}
	return nil
}

// Masked returns a copy safe to print: secrets are replaced.
func (c Config) Masked() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "***"
	}
	c.Relational.Password = mask(c.Relational.Password)
	c.Vector.APIKey = mask(c.Vector.APIKey)
	c.Vector.Password = mask(c.Vector.Password)
	return c
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
