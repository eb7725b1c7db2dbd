package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        int               `yaml:"port" env:"SERVER_PORT"`
		CORSOrigins []string          `yaml:"corsOrigins" env:"SERVER_CORS_ORIGINS" envSeparator:","`
		APIKeys     map[string]string `yaml:"apiKeys"`
		RateLimit   struct {
			Capacity        int `yaml:"capacity"`
			RefillPerSecond int `yaml:"refillPerSecond"`
		} `yaml:"rateLimit"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level" env:"LOG_LEVEL"`
	} `yaml:"log"`

	Database struct {
		Driver   string `yaml:"driver" env:"DB_DRIVER"`
		Path     string `yaml:"path" env:"DB_PATH"`
		Host     string `yaml:"host" env:"DB_HOST"`
		Port     int    `yaml:"port" env:"DB_PORT"`
		User     string `yaml:"user" env:"DB_USER"`
		Password string `yaml:"password" env:"DB_PASSWORD"`
		Name     string `yaml:"name" env:"DB_NAME"`
		SSLMode  string `yaml:"sslMode" env:"DB_SSLMODE"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint" env:"MINIO_ENDPOINT"`
		AccessKey  string `yaml:"accessKey" env:"MINIO_ACCESS_KEY"`
		SecretKey  string `yaml:"secretKey" env:"MINIO_SECRET_KEY"`
		BucketName string `yaml:"bucketName" env:"MINIO_BUCKET"`
		Region     string `yaml:"region" env:"MINIO_REGION"`
		UseSSL     bool   `yaml:"useSSL" env:"MINIO_USE_SSL"`
		Prefix     string `yaml:"prefix"`
	} `yaml:"minio"`

	// Backend is the remote task API used by the CLI and by remote
	// sources. The API server itself runs tasks in process.
	Backend struct {
		URL       string `yaml:"url" env:"BACKEND_URL"`
		PublicKey string `yaml:"publicKey" env:"BACKEND_PUBLIC_KEY"`
		UserID    string `yaml:"userId" env:"BACKEND_USER_ID"`
	} `yaml:"backend"`

	OpenAI struct {
		APIKey  string `yaml:"apiKey" env:"OPENAI_API_KEY"`
		Model   string `yaml:"model" env:"OPENAI_MODEL"`
		BaseURL string `yaml:"baseURL" env:"OPENAI_BASE_URL"`
	} `yaml:"openai"`

	PageSpeed struct {
		APIKey  string `yaml:"apiKey" env:"PAGESPEED_API_KEY"`
		BaseURL string `yaml:"baseURL"`
	} `yaml:"pagespeed"`

	Directory struct {
		APIKey  string `yaml:"apiKey" env:"PLACES_API_KEY"`
		BaseURL string `yaml:"baseURL"`
	} `yaml:"directory"`

	Cache struct {
		Backend string        `yaml:"backend" env:"CACHE_BACKEND"`
		Dir     string        `yaml:"dir" env:"CACHE_DIR"`
		TTL     time.Duration `yaml:"ttl"`
	} `yaml:"cache"`

	Poll struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"poll"`

	Timeouts struct {
		SEO      time.Duration `yaml:"seo"`
		AIO      time.Duration `yaml:"aio"`
		Presence time.Duration `yaml:"presence"`
	} `yaml:"timeouts"`

	Tasks struct {
		MaxAttempts int           `yaml:"maxAttempts"`
		RetryDelay  time.Duration `yaml:"retryDelay"`
	} `yaml:"tasks"`

	Scheduler struct {
		Schedule string `yaml:"schedule"`
		Batch    int    `yaml:"batch"`
		Timezone string `yaml:"timezone"`
	} `yaml:"scheduler"`
}

// Default returns a config that runs locally with sqlite and an in-memory cache.
func Default() *Config {
	var c Config
	c.Server.Port = 8080
	c.Server.RateLimit.Capacity = 60
	c.Server.RateLimit.RefillPerSecond = 1
	c.Log.Level = "INFO"
	c.Database.Driver = "sqlite"
	c.Database.Path = "data/tasks.db"
	c.Minio.Prefix = "cache"
	c.Cache.Backend = "memory"
	c.Cache.Dir = ".seo-aio-cache"
	c.Cache.TTL = 30 * time.Minute
	c.Poll.Interval = 2 * time.Second
	c.Timeouts.SEO = 3 * time.Minute
	c.Timeouts.AIO = 90 * time.Second
	c.Timeouts.Presence = 60 * time.Second
	c.Tasks.MaxAttempts = 3
	c.Tasks.RetryDelay = 30 * time.Second
	c.Scheduler.Schedule = "@every 5s"
	c.Scheduler.Batch = 20
	c.Backend.URL = "http://localhost:8080"
	return &c
}

// Load baca file config.yaml di atas default, lalu override dari env
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// env + default saja
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for sqlite"))
		}
	case "mysql", "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			errs = append(errs, fmt.Errorf("database.host and database.name are required for %s", c.Database.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver %q", c.Database.Driver))
	}
	switch c.Cache.Backend {
	case "memory":
	case "file":
		if c.Cache.Dir == "" {
			errs = append(errs, errors.New("cache.dir is required for the file backend"))
		}
	case "minio":
		if c.Minio.Endpoint == "" || c.Minio.BucketName == "" {
			errs = append(errs, errors.New("minio.endpoint and minio.bucketName are required for the minio backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache.backend %q", c.Cache.Backend))
	}
	if c.Backend.URL != "" {
		if u, err := url.Parse(c.Backend.URL); err != nil || u.Host == "" {
			errs = append(errs, fmt.Errorf("backend.url %q is not a valid URL", c.Backend.URL))
		}
	}
	for name, d := range map[string]time.Duration{
		"cache.ttl":         c.Cache.TTL,
		"poll.interval":     c.Poll.Interval,
		"timeouts.seo":      c.Timeouts.SEO,
		"timeouts.aio":      c.Timeouts.AIO,
		"timeouts.presence": c.Timeouts.Presence,
		"tasks.retryDelay":  c.Tasks.RetryDelay,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.Tasks.MaxAttempts <= 0 {
		errs = append(errs, errors.New("tasks.maxAttempts must be positive"))
	}
	return errors.Join(errs...)
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     c.Database.Name,
		RawQuery: "sslmode=" + sslMode,
	}
	return u.String()
}
