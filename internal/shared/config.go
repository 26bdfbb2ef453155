package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	Redis       RedisConfig       `toml:"redis"`
	Worker      WorkerConfig      `toml:"worker"`
	Credentials CredentialsConfig `toml:"credentials"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	Debug     bool   `toml:"debug"`
	SecretKey string `toml:"secret_key"`
	BaseURL   string `toml:"base_url"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// RedisConfig points at the broker shared by the queue, job progress and sessions.
type RedisConfig struct {
	URL string `toml:"url"`
}

// WorkerConfig contains background worker settings.
type WorkerConfig struct {
	Concurrency          int     `toml:"concurrency"`
	Queue                string  `toml:"queue"`
	ResultRetentionHours int     `toml:"result_retention_hours"`
	SpotifyRateLimit     float64 `toml:"spotify_rate_limit"` // per worker process, shared by concurrent scrapes
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	Google  GoogleConfig  `toml:"google"`
}

// SpotifyConfig contains Spotify API app credentials (client credentials grant).
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// GoogleConfig locates the OAuth client secrets used for the YouTube Data API.
type GoogleConfig struct {
	ClientSecretsFile string `toml:"client_secrets_file"`
	RedirectURL       string `toml:"redirect_url"`
	RevokeURL         string `toml:"revoke_url"`
}

// Addr returns the host:port pair the HTTP server listens on.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ResultRetention is how long finished task results are kept by the queue.
func (c WorkerConfig) ResultRetention() time.Duration {
	if c.ResultRetentionHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.ResultRetentionHours) * time.Hour
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ResolveConfig loads path when it exists and falls back to the defaults otherwise,
// then applies environment overrides (after loading envFile, if present).
func ResolveConfig(path, envFile string) (*Config, error) {
	config := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := LoadConfig(path)
			if err != nil {
				return nil, err
			}
			config = loaded
		}
	}

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides config values from environment variables resolved through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("DATABASE_URL"); ok && v != "" {
		c.Database.Path = strings.TrimPrefix(strings.TrimPrefix(v, "sqlite:///"), "sqlite://")
	}
	if v, ok := lookup("SECRET_KEY"); ok && v != "" {
		c.Server.SecretKey = v
	}
	if v, ok := lookup("REDIS_URL"); ok && v != "" {
		c.Redis.URL = v
	}
	if v, ok := lookup("SPOTIFY_CLIENT_ID"); ok && v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v, ok := lookup("SPOTIFY_CLIENT_SECRET"); ok && v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
	if v, ok := lookup("GOOGLE_CLIENT_SECRETS_FILE"); ok && v != "" {
		c.Credentials.Google.ClientSecretsFile = v
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PORT=%q", ErrInvalidConfig, v)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate checks the settings every process needs.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is empty", ErrInvalidConfig)
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("%w: redis.url is empty", ErrInvalidConfig)
	}
	if c.Server.SecretKey == "" {
		return fmt.Errorf("%w: server.secret_key is empty", ErrInvalidConfig)
	}
	return nil
}
