package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port                     string `yaml:"port"`
	LogLevel                 string `yaml:"logLevel"`
	DatabaseURL              string `yaml:"databaseURL"`
	LegacyDatabaseDSN        string `yaml:"legacyDatabaseDSN"`
	RemoteBaseURL            string `yaml:"remoteBaseURL"`
	RemoteFileBaseURL        string `yaml:"remoteFileBaseURL"`
	RemoteUserAgent          string `yaml:"remoteUserAgent"`
	RemoteRequestsPerSecond  int    `yaml:"remoteRequestsPerSecond"`
	RedisAddr                string `yaml:"redisAddr"`
	RedisPassword            string `yaml:"redisPassword"`
	InternalJWTPublicKeyPath string `yaml:"internalJwtPublicKeyPath"`
	InternalJWTKeyID         string `yaml:"internalJwtKeyId"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("LEGACY_DATABASE_DSN"); v != "" {
		cfg.LegacyDatabaseDSN = v
	}
	if v := os.Getenv("REMOTE_BASE_URL"); v != "" {
		cfg.RemoteBaseURL = v
	}
	if v := os.Getenv("REMOTE_FILE_BASE_URL"); v != "" {
		cfg.RemoteFileBaseURL = v
	}
	if v := os.Getenv("REMOTE_USER_AGENT"); v != "" {
		cfg.RemoteUserAgent = v
	}
	if v := os.Getenv("REMOTE_REQUESTS_PER_SECOND"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RemoteRequestsPerSecond = n
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("INTERNAL_JWT_PUBLIC_KEY_PATH"); v != "" {
		cfg.InternalJWTPublicKeyPath = v
	}
	if v := os.Getenv("INTERNAL_JWT_KEY_ID"); v != "" {
		cfg.InternalJWTKeyID = v
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.RemoteUserAgent == "" {
		cfg.RemoteUserAgent = "boorusync/1.0"
	}
	if cfg.RemoteRequestsPerSecond <= 0 {
		cfg.RemoteRequestsPerSecond = 2
	}
	return cfg, nil
}
