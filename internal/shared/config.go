package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that take precedence over values in config.toml.
const (
	EnvPocketBaseURL      = "POCKETBASE_URL"
	EnvPocketBaseEmail    = "POCKETBASE_ADMIN_EMAIL"
	EnvPocketBasePassword = "POCKETBASE_ADMIN_PASSWORD"
	EnvDataDir            = "CLSEED_DATA_DIR"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	PocketBase PocketBaseConfig `toml:"pocketbase"`
	Seed       SeedConfig       `toml:"seed"`
	Database   DatabaseConfig   `toml:"database"`
}

// PocketBaseConfig contains the backend address and superuser credentials.
type PocketBaseConfig struct {
	URL               string  `toml:"url"`
	AuthCollection    string  `toml:"auth_collection"`
	Email             string  `toml:"email"`
	Password          string  `toml:"password"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// SeedConfig locates the fixture files.
type SeedConfig struct {
	DataDir     string `toml:"data_dir"`
	ModulesFile string `toml:"modules_file"`
	LessonsFile string `toml:"lessons_file"`
	QuizzesFile string `toml:"quizzes_file"`
}

// DatabaseConfig contains settings for the local run history database.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// Timeout returns the HTTP timeout for backend requests.
func (c PocketBaseConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// HasCredentials reports whether superuser credentials are configured.
func (c PocketBaseConfig) HasCredentials() bool {
	return c.Email != "" && c.Password != ""
}

// FixturePath joins the data directory with a fixture file name.
//
// Absolute file names are returned unchanged.
func (c SeedConfig) FixturePath(name string) string {
	if filepath.IsAbs(name) || c.DataDir == "" {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
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

// LoadEnv loads a dotenv file into the process environment if it exists.
//
// Variables already set in the environment are not overwritten.
func LoadEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat env file: %w", err)
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides config values with any set environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvPocketBaseURL); v != "" {
		c.PocketBase.URL = v
	}
	if v := os.Getenv(EnvPocketBaseEmail); v != "" {
		c.PocketBase.Email = v
	}
	if v := os.Getenv(EnvPocketBasePassword); v != "" {
		c.PocketBase.Password = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		c.Seed.DataDir = v
	}
}
