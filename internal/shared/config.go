package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override secrets from the config file.
const (
	EnvOAuthToken       = "SOUNDCLOUD_OAUTH_TOKEN"
	EnvClientID         = "SOUNDCLOUD_CLIENT_ID"
	EnvUserID           = "SOUNDCLOUD_USER_ID"
	EnvDatadomeClientID = "SOUNDCLOUD_DATADOME_CLIENT_ID"
	EnvProxy            = "SOUNDCLOUD_PROXY"
	EnvBaseURL          = "SOUNDCLOUD_BASE_URL"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	LogLevel   string           `toml:"log_level"`
	SoundCloud SoundCloudConfig `toml:"soundcloud"`
	Weekly     WeeklyConfig     `toml:"weekly"`
}

// SoundCloudConfig contains the API location, credentials and transport settings.
type SoundCloudConfig struct {
	BaseURL            string  `toml:"base_url"`
	OAuthToken         string  `toml:"oauth_token"`
	ClientID           string  `toml:"client_id"`
	UserID             int     `toml:"user_id"`
	DatadomeClientID   string  `toml:"datadome_client_id"`
	AppVersion         string  `toml:"app_version"`
	AppLocale          string  `toml:"app_locale"`
	UserAgent          string  `toml:"user_agent"`
	Proxy              string  `toml:"proxy"`
	InsecureSkipVerify bool    `toml:"insecure_skip_verify"`
	RateLimit          float64 `toml:"rate_limit"` // Requests per second, 0 disables limiting
}

// WeeklyConfig controls how the weekly favorites playlist is assembled.
type WeeklyConfig struct {
	Feed         string   `toml:"feed"`  // reposts, likes or stream
	Types        []string `toml:"types"` // activity types, in priority order
	BatchSize    int      `toml:"batch_size"`
	Workers      int      `toml:"workers"`
	Sharing      string   `toml:"sharing"`
	ExcludeOwn   bool     `toml:"exclude_own"`
	ExcludeLiked bool     `toml:"exclude_liked"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values not present in the file keep the defaults from [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
	}
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

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// WriteConfigFile encodes config as TOML to a new file at path.
func WriteConfigFile(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("config file already exists at %s", path)
		}
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadDotEnv loads variables from the given .env files into the process environment.
//
// Missing files are ignored and variables already set are never overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides secrets and connection settings with SOUNDCLOUD_* variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}

	sc := &c.SoundCloud
	for env, target := range map[string]*string{
		EnvOAuthToken:       &sc.OAuthToken,
		EnvClientID:         &sc.ClientID,
		EnvDatadomeClientID: &sc.DatadomeClientID,
		EnvProxy:            &sc.Proxy,
		EnvBaseURL:          &sc.BaseURL,
	} {
		if v := getenv(env); v != "" {
			*target = v
		}
	}

	if v := getenv(EnvUserID); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, EnvUserID, v)
		}
		sc.UserID = id
	}

	return nil
}

// Validate checks that the settings required for API calls are present.
func (c *Config) Validate() error {
	sc := c.SoundCloud
	switch {
	case sc.BaseURL == "":
		return fmt.Errorf("%w: soundcloud.base_url is empty", ErrInvalidConfig)
	case sc.OAuthToken == "":
		return fmt.Errorf("%w: oauth_token (or %s)", ErrMissingCredentials, EnvOAuthToken)
	case sc.ClientID == "":
		return fmt.Errorf("%w: client_id (or %s)", ErrMissingCredentials, EnvClientID)
	case sc.UserID <= 0:
		return fmt.Errorf("%w: user_id (or %s)", ErrMissingCredentials, EnvUserID)
	}

	switch c.Weekly.Feed {
	case "reposts", "likes", "stream":
	default:
		return fmt.Errorf("%w: weekly.feed must be reposts, likes or stream, got %q", ErrInvalidConfig, c.Weekly.Feed)
	}

	if len(c.Weekly.Types) == 0 {
		return fmt.Errorf("%w: weekly.types is empty", ErrInvalidConfig)
	}

	return nil
}
