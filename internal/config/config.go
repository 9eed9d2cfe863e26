// Package config loads service settings from an optional YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	RemoteNone     = ""
	RemoteMemory   = "memory"
	RemotePostgres = "postgres"
)

type Config struct {
	Port        string `yaml:"port"`
	DBPath      string `yaml:"db_path"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	Timezone    string `yaml:"timezone"`
	Remote      string `yaml:"remote"`
	DatabaseURL string `yaml:"database_url"`
	JWTSecret   string `yaml:"jwt_secret"`
	AccessToken string `yaml:"access_token"`

	RemoteTimeout time.Duration `yaml:"remote_timeout"`

	Backup BackupConfig `yaml:"backup"`
}

type BackupConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	Bucket        string        `yaml:"bucket"`
	Region        string        `yaml:"region"`
	AccessKey     string        `yaml:"access_key"`
	SecretKey     string        `yaml:"secret_key"`
	Passphrase    string        `yaml:"passphrase"`
	Interval      time.Duration `yaml:"interval"`
	RetentionDays int           `yaml:"retention_days"`
}

func defaults() *Config {
	return &Config{
		Port:          "8080",
		DBPath:        "lifeos.db",
		LogLevel:      "info",
		LogFormat:     "text",
		RemoteTimeout: 15 * time.Second,
		Backup: BackupConfig{
			Region:        "us-east-1",
			RetentionDays: 30,
		},
	}
}

// Load builds the configuration from LIFEOS_CONFIG (if set) and LIFEOS_*
// environment variables, then validates it.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("LIFEOS_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.overrideFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) overrideFromEnv() error {
	c.Port = getEnv("LIFEOS_PORT", c.Port)
	c.DBPath = getEnv("LIFEOS_DB_PATH", c.DBPath)
	c.LogLevel = getEnv("LIFEOS_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LIFEOS_LOG_FORMAT", c.LogFormat)
	c.Timezone = getEnv("LIFEOS_TIMEZONE", c.Timezone)
	c.Remote = strings.ToLower(getEnv("LIFEOS_REMOTE", c.Remote))
	c.DatabaseURL = getEnv("LIFEOS_DATABASE_URL", c.DatabaseURL)
	c.JWTSecret = getEnv("LIFEOS_JWT_SECRET", c.JWTSecret)
	c.AccessToken = getEnv("LIFEOS_ACCESS_TOKEN", c.AccessToken)

	c.Backup.Endpoint = getEnv("LIFEOS_BACKUP_S3_ENDPOINT", c.Backup.Endpoint)
	c.Backup.Bucket = getEnv("LIFEOS_BACKUP_S3_BUCKET", c.Backup.Bucket)
	c.Backup.Region = getEnv("LIFEOS_BACKUP_S3_REGION", c.Backup.Region)
	c.Backup.AccessKey = getEnv("LIFEOS_BACKUP_S3_ACCESS_KEY", c.Backup.AccessKey)
	c.Backup.SecretKey = getEnv("LIFEOS_BACKUP_S3_SECRET_KEY", c.Backup.SecretKey)
	c.Backup.Passphrase = getEnv("LIFEOS_BACKUP_PASSPHRASE", c.Backup.Passphrase)

	var err error
	if c.RemoteTimeout, err = getEnvDuration("LIFEOS_REMOTE_TIMEOUT", c.RemoteTimeout); err != nil {
		return err
	}
	if c.Backup.Interval, err = getEnvDuration("LIFEOS_BACKUP_INTERVAL", c.Backup.Interval); err != nil {
		return err
	}
	if c.Backup.RetentionDays, err = getEnvInt("LIFEOS_BACKUP_RETENTION_DAYS", c.Backup.RetentionDays); err != nil {
		return err
	}
	return nil
}

// Validate checks combinations that cannot work at runtime.
func (c *Config) Validate() error {
	var errs []error
	switch c.Remote {
	case RemoteNone:
	case RemoteMemory:
		// Without a secret no request carries a session, so the memory
		// remote would never be reached.
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("LIFEOS_JWT_SECRET is required for the memory remote"))
		}
	case RemotePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("LIFEOS_DATABASE_URL is required for the postgres remote"))
		}
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("LIFEOS_JWT_SECRET is required for the postgres remote"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown remote %q: want postgres, memory, or empty", c.Remote))
	}
	if c.AccessToken != "" && c.JWTSecret == "" {
		errs = append(errs, errors.New("LIFEOS_ACCESS_TOKEN requires LIFEOS_JWT_SECRET"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.Backup.Interval < 0 {
		errs = append(errs, errors.New("backup interval must not be negative"))
	}
	return errors.Join(errs...)
}

// Location resolves Timezone. An empty value means the host's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// BackupRetention is RetentionDays as a duration.
func (c *Config) BackupRetention() time.Duration {
	return time.Duration(c.Backup.RetentionDays) * 24 * time.Hour
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, value)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, value)
	}
	return d, nil
}
