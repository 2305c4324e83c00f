// Package config reads the service's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"symptomcheck/artifacts"
	"symptomcheck/logging"
)

const (
	CacheNone  = "none"
	CacheLRU   = "lru"
	CacheRedis = "redis"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
		MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	} `yaml:"http"`
	Artifacts artifacts.Config `yaml:"artifacts"`
	Cache     struct {
		Backend string `yaml:"backend"`
		Size    int    `yaml:"size"`
		Redis   struct {
			Addr   string        `yaml:"addr"`
			DB     int           `yaml:"db"`
			Prefix string        `yaml:"prefix"`
			TTL    time.Duration `yaml:"ttl"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Log logging.Config `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var c Config
	c.Http.Port = 8000
	c.Http.Timeout = 30 * time.Second
	c.Http.AllowedOrigins = []string{"*"}
	c.Http.MaxBodyBytes = 1 << 20
	c.Artifacts = artifacts.DefaultConfig()
	c.Cache.Backend = CacheLRU
	c.Cache.Size = 1024
	c.Cache.Redis.Addr = "localhost:6379"
	c.Cache.Redis.Prefix = "symptomcheck:prediction:"
	c.Cache.Redis.TTL = time.Hour
	c.Log = logging.DefaultConfig()
	return &c
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	config := Default()
	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(config); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		// artifact paths in the file are relative to the file itself
		if !filepath.IsAbs(config.Artifacts.Dir) {
			config.Artifacts.Dir = filepath.Join(filepath.Dir(path), config.Artifacts.Dir)
		}
	case !os.IsNotExist(err):
		return nil, err
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PORT=%q", ErrInvalidConfig, v)
		}
		c.Http.Port = port
	}
	if v := os.Getenv("ARTIFACTS_DIR"); v != "" {
		c.Artifacts.Dir = v
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("%w: http.port %d", ErrInvalidConfig, c.Http.Port)
	}
	if c.Http.Timeout < 0 {
		return fmt.Errorf("%w: http.timeout must not be negative", ErrInvalidConfig)
	}
	if c.Http.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: http.max_body_bytes must be positive", ErrInvalidConfig)
	}
	if len(c.Http.AllowedOrigins) == 0 {
		c.Http.AllowedOrigins = []string{"*"}
	}
	switch c.Cache.Backend {
	case "", CacheNone:
		c.Cache.Backend = CacheNone
	case CacheLRU:
		if c.Cache.Size <= 0 {
			return fmt.Errorf("%w: cache.size must be positive", ErrInvalidConfig)
		}
	case CacheRedis:
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("%w: cache.redis.addr is required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown cache backend %q", ErrInvalidConfig, c.Cache.Backend)
	}
	for name, file := range map[string]string{
		"rf_model":  c.Artifacts.RandomForest,
		"nb_model":  c.Artifacts.NaiveBayes,
		"svm_model": c.Artifacts.SVM,
		"data_dict": c.Artifacts.DataDict,
	} {
		if file == "" {
			return fmt.Errorf("%w: artifacts.%s is required", ErrInvalidConfig, name)
		}
	}
	return nil
}
