// Package config loads carupload configuration from a single YAML file,
// followed by the environment variables the handlers were historically
// deployed with (UploadBucket, AWS_REGION, TABLE_NAME).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/mwantia/carupload/backend"
	"github.com/mwantia/carupload/log"
)

const (
	// EnvConfigPath names the config file when --config is not given.
	EnvConfigPath = "CARUPLOAD_CONFIG"

	EnvUploadBucket = "UploadBucket"
	EnvRegion       = "AWS_REGION"
	EnvTableName    = "TABLE_NAME"
	EnvLogLevel     = "CARUPLOAD_LOG_LEVEL"
)

type Config struct {
	Listen string `yaml:"listen"`

	Log      LogConfig    `yaml:"log"`
	Upload   UploadConfig `yaml:"upload"`
	Signer   SignerConfig `yaml:"signer"`
	Table    StoreConfig  `yaml:"table"`
	Registry StoreConfig  `yaml:"registry"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	JSON    bool   `yaml:"json"`
	NoColor bool   `yaml:"no_color"`
}

type UploadConfig struct {
	// ExpirySeconds is the lifetime of signed URLs.
	ExpirySeconds int `yaml:"expiry_seconds"`
	// ACL is the canned ACL bound to uploads; "none" disables it.
	ACL string `yaml:"acl"`
}

type SignerConfig struct {
	// Backend is one of "s3", "gcs" or "memory".
	Backend string    `yaml:"backend"`
	Bucket  string    `yaml:"bucket"`
	S3      S3Config  `yaml:"s3"`
	GCS     GCSConfig `yaml:"gcs"`
}

type S3Config struct {
	Endpoint     string `yaml:"endpoint"`
	Region       string `yaml:"region"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	SessionToken string `yaml:"session_token"`
	Insecure     bool   `yaml:"insecure"`
	VerifyBucket bool   `yaml:"verify_bucket"`
}

type GCSConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	Endpoint        string `yaml:"endpoint"`
}

// StoreConfig selects the backend for the metadata table or the connection registry.
type StoreConfig struct {
	// Backend is one of "memory", "sqlite", "postgres" or "consul".
	Backend string `yaml:"backend"`
	// Name is the table name (or consul key segment).
	Name string `yaml:"name"`

	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
	Consul   ConsulConfig   `yaml:"consul"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type ConsulConfig struct {
	Address    string `yaml:"address"`
	Token      string `yaml:"token"`
	Datacenter string `yaml:"datacenter"`
	Prefix     string `yaml:"prefix"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		Log: LogConfig{
			Level: "info",
		},
		Upload: UploadConfig{
			ExpirySeconds: 300,
			ACL:           "public-read",
		},
		Signer: SignerConfig{
			Backend: "s3",
		},
		Table: StoreConfig{
			Backend: "memory",
			Name:    "metaStore",
		},
		Registry: StoreConfig{
			Backend: "memory",
			Name:    "connections",
		},
	}
}

// Load reads path (when not empty) over the defaults, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config '%s': %w", path, err)
		}
	}

	cfg.applyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if bucket := getenv(EnvUploadBucket); bucket != "" {
		c.Signer.Bucket = bucket
	}
	if region := getenv(EnvRegion); region != "" && c.Signer.S3.Region == "" {
		c.Signer.S3.Region = region
	}
	if table := getenv(EnvTableName); table != "" {
		c.Registry.Name = table
	}
	if level := getenv(EnvLogLevel); level != "" {
		c.Log.Level = level
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Upload.ExpirySeconds <= 0 {
		errs = append(errs, fmt.Errorf("upload.expiry_seconds must be positive, got %d", c.Upload.ExpirySeconds))
	}

	switch c.Signer.Backend {
	case "s3", "gcs":
		if c.Signer.Bucket == "" {
			errs = append(errs, fmt.Errorf("signer.bucket is required for '%s' (or set %s)", c.Signer.Backend, EnvUploadBucket))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown signer backend '%s'", c.Signer.Backend))
	}

	for section, store := range map[string]StoreConfig{"table": c.Table, "registry": c.Registry} {
		if err := store.validate(section); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (s StoreConfig) validate(section string) error {
	if !backend.ValidTableName(s.Name) {
		return fmt.Errorf("%s.name '%s' is not a valid table name", section, s.Name)
	}

	switch s.Backend {
	case "memory", "sqlite", "consul":
		return nil
	case "postgres":
		if s.Postgres.DSN == "" {
			return fmt.Errorf("%s.postgres.dsn is required", section)
		}
		return nil
	default:
		return fmt.Errorf("unknown %s backend '%s'", section, s.Backend)
	}
}

// LogLevel returns the parsed log level; Validate guarantees it parses.
func (c *Config) LogLevel() log.LogLevel {
	level, _ := log.ParseLevel(c.Log.Level)
	return level
}

// UploadACL returns the canned ACL, empty when disabled.
func (c *Config) UploadACL() string {
	if c.Upload.ACL == "none" {
		return ""
	}
	return c.Upload.ACL
}

func (c *Config) String() string {
	return "config(signer=" + c.Signer.Backend + ", table=" + c.Table.Backend +
		", registry=" + c.Registry.Backend + ", expiry=" + strconv.Itoa(c.Upload.ExpirySeconds) + "s)"
}
