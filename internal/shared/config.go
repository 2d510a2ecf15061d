package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API         APIConfig         `toml:"api"`
	Upload      UploadConfig      `toml:"upload"`
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
}

// APIConfig contains the iBroadcast endpoint URLs and request timeout.
type APIConfig struct {
	URL            string `toml:"url"`
	LibraryURL     string `toml:"library_url"`
	UploadURL      string `toml:"upload_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// UploadConfig contains upload pipeline settings.
type UploadConfig struct {
	Workers   int     `toml:"workers"`    // Concurrent upload workers when parallel is enabled
	RateLimit float64 `toml:"rate_limit"` // Tag/playlist API calls per second
}

// CredentialsConfig contains the iBroadcast login token.
//
// The token on the command line takes precedence over the config file.
type CredentialsConfig struct {
	LoginToken string `toml:"login_token"`
}

// DatabaseConfig contains upload history database settings.
//
// An empty path disables the local history log.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
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
