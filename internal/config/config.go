package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

const (
	DriverMemory   = "memory"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverBadger   = "badger"

	ProviderGemini  = "gemini"
	ProviderOpenAI  = "openai"
	ProviderOffline = "offline"
)

type Config struct {
	Server struct {
		Port         int           `yaml:"port"`
		ReadTimeout  time.Duration `yaml:"readTimeout"`
		WriteTimeout time.Duration `yaml:"writeTimeout"`
		IdleTimeout  time.Duration `yaml:"idleTimeout"`
		CORSOrigins  []string      `yaml:"corsOrigins"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	RateLimit struct {
		MaxRequests int  `yaml:"maxRequests"`
		WindowHours int  `yaml:"windowHours"`
		Strict      bool `yaml:"strict"`
	} `yaml:"rateLimit"`

	// Burst limits raw request rate per client before the quota is consulted.
	Burst struct {
		RequestsPerSecond float64 `yaml:"requestsPerSecond"`
		Burst             int     `yaml:"burst"`
	} `yaml:"burst"`

	Input struct {
		MinChars int `yaml:"minChars"`
		MaxChars int `yaml:"maxChars"`
		MaxWords int `yaml:"maxWords"`
	} `yaml:"input"`

	Provider Provider `yaml:"provider"`

	Database struct {
		Driver      string `yaml:"driver"`
		Host        string `yaml:"host"`
		Port        int    `yaml:"port"`
		User        string `yaml:"user"`
		Password    string `yaml:"password"`
		Name        string `yaml:"name"`
		SSLMode     string `yaml:"sslMode"`
		Path        string `yaml:"path"`
		AutoMigrate bool   `yaml:"autoMigrate"`
	} `yaml:"database"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`
}

// Provider selects and tunes the diagnosis backend.
type Provider struct {
	Kind            string        `yaml:"kind"`
	Model           string        `yaml:"model"`
	APIKey          string        `yaml:"apiKey"`
	BaseURL         string        `yaml:"baseURL"`
	Temperature     float32       `yaml:"temperature"`
	MaxOutputTokens int           `yaml:"maxOutputTokens"`
	Timeout         time.Duration `yaml:"timeout"`
}

// Default returns a config that runs without any external dependency.
func Default() *Config {
	var c Config
	c.applyDefaults()
	c.RateLimit.Strict = true
	return &c
}

// Load baca file config.yaml, expand ${VAR} references, apply defaults, validate.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config", goerr.V("path", path))
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid config", goerr.V("path", path))
	}
	return cfg, nil
}

// Parse decodes YAML bytes. Unset keys keep their defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to decode yaml")
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		// harus lebih lama dari provider timeout
		c.Server.WriteTimeout = 90 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.RateLimit.MaxRequests == 0 {
		c.RateLimit.MaxRequests = 10
	}
	if c.RateLimit.WindowHours == 0 {
		c.RateLimit.WindowHours = 24
	}
	if c.Burst.RequestsPerSecond == 0 {
		c.Burst.RequestsPerSecond = 2
	}
	if c.Burst.Burst == 0 {
		c.Burst.Burst = 5
	}
	if c.Input.MinChars == 0 {
		c.Input.MinChars = 10
	}
	if c.Input.MaxChars == 0 {
		c.Input.MaxChars = 2000
	}
	if c.Input.MaxWords == 0 {
		c.Input.MaxWords = 200
	}
	if c.Provider.Kind == "" {
		c.Provider.Kind = ProviderOffline
	}
	if c.Provider.Temperature == 0 {
		c.Provider.Temperature = 0.3
	}
	if c.Provider.MaxOutputTokens == 0 {
		c.Provider.MaxOutputTokens = 2000
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = 60 * time.Second
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverMemory
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return goerr.New("server.port out of range", goerr.V("port", c.Server.Port))
	}
	if c.RateLimit.MaxRequests < 0 {
		return goerr.New("rateLimit.maxRequests must be positive", goerr.V("maxRequests", c.RateLimit.MaxRequests))
	}
	if c.RateLimit.WindowHours < 0 {
		return goerr.New("rateLimit.windowHours must be positive", goerr.V("windowHours", c.RateLimit.WindowHours))
	}
	if c.Input.MinChars > c.Input.MaxChars {
		return goerr.New("input.minChars exceeds input.maxChars",
			goerr.V("minChars", c.Input.MinChars), goerr.V("maxChars", c.Input.MaxChars))
	}
	if c.Burst.RequestsPerSecond < 0 || c.Burst.Burst < 0 {
		return goerr.New("burst values must not be negative")
	}
	if c.Provider.Temperature < 0 || c.Provider.Temperature > 2 {
		return goerr.New("provider.temperature must be within [0, 2]", goerr.V("temperature", c.Provider.Temperature))
	}

	switch c.Provider.Kind {
	case ProviderOffline:
	case ProviderGemini, ProviderOpenAI:
		if c.Provider.APIKey == "" {
			return goerr.New("provider.apiKey is required", goerr.V("kind", c.Provider.Kind))
		}
		if c.Provider.BaseURL != "" {
			if _, err := url.ParseRequestURI(c.Provider.BaseURL); err != nil {
				return goerr.Wrap(err, "provider.baseURL is not a valid URL")
			}
		}
	default:
		return goerr.New("unknown provider.kind", goerr.V("kind", c.Provider.Kind))
	}

	switch c.Database.Driver {
	case DriverMemory:
	case DriverBadger:
	case DriverMySQL, DriverPostgres, DriverPgx:
		if c.Database.Host == "" || c.Database.Name == "" {
			return goerr.New("database.host and database.name are required", goerr.V("driver", c.Database.Driver))
		}
	default:
		return goerr.New("unknown database.driver", goerr.V("driver", c.Database.Driver))
	}

	if c.Minio.Enabled && (c.Minio.Endpoint == "" || c.Minio.BucketName == "") {
		return goerr.New("minio.endpoint and minio.bucketName are required when minio is enabled")
	}
	return nil
}

// Window is the quota window as a duration.
func (c *Config) Window() time.Duration {
	return time.Duration(c.RateLimit.WindowHours) * time.Hour
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.mysqlPort(),
		c.Database.Name,
	)
}

// PostgresDSN builds a URL DSN accepted by both lib/pq and pgx.
func (c *Config) PostgresDSN() string {
	port := c.Database.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, port),
		Path:     "/" + strings.TrimPrefix(c.Database.Name, "/"),
		RawQuery: url.Values{"sslmode": []string{c.Database.SSLMode}}.Encode(),
	}
	return u.String()
}

func (c *Config) mysqlPort() int {
	if c.Database.Port == 0 {
		return 3306
	}
	return c.Database.Port
}
