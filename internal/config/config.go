package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config is the resolved client configuration. Sources, later wins:
// built-in defaults, the YAML config file, SPLITROOM_* environment
// variables, then command-line flags applied by the caller.
type Config struct {
	APIBaseURL      string        `env:"SPLITROOM_API_BASE_URL" validate:"required,url"`
	SocketURL       string        `env:"SPLITROOM_SOCKET_URL" validate:"omitempty,url"`
	CredentialsPath string        `env:"SPLITROOM_CREDENTIALS" validate:"required"`
	RoomID          string        `env:"SPLITROOM_ROOM_ID"`
	LogLevel        string        `env:"SPLITROOM_LOG_LEVEL" validate:"oneof=trace debug info warn error"`
	HTTPTimeout     time.Duration `env:"SPLITROOM_HTTP_TIMEOUT" validate:"gt=0"`
}

// fileConfig is the YAML shape. Fields are pointers so only keys that
// are present override the defaults, and the timeout is a duration
// string ("15s") rather than raw nanoseconds.
type fileConfig struct {
	APIBaseURL      *string `yaml:"api_base_url"`
	SocketURL       *string `yaml:"socket_url"`
	CredentialsPath *string `yaml:"credentials_path"`
	RoomID          *string `yaml:"room_id"`
	LogLevel        *string `yaml:"log_level"`
	HTTPTimeout     *string `yaml:"http_timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIBaseURL:      "https://api.splitroom.app",
		CredentialsPath: configFile("credentials.yaml"),
		LogLevel:        "info",
		HTTPTimeout:     15 * time.Second,
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	return configFile("config.yaml")
}

func configFile(name string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "splitroom", name)
}

// Load resolves defaults, then the YAML file at path, then environment
// overrides. A missing file is fine: the default location is optional
// and everything can come from the environment and flags.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		default:
			var fc fileConfig
			if err := yaml.Unmarshal(data, &fc); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
			if err := fc.apply(&cfg); err != nil {
				return Config{}, fmt.Errorf("config: %s: %w", path, err)
			}
		}
	}

	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: environment: %w", err)
	}
	return cfg, nil
}

func (fc fileConfig) apply(cfg *Config) error {
	if fc.APIBaseURL != nil {
		cfg.APIBaseURL = *fc.APIBaseURL
	}
	if fc.SocketURL != nil {
		cfg.SocketURL = *fc.SocketURL
	}
	if fc.CredentialsPath != nil {
		cfg.CredentialsPath = *fc.CredentialsPath
	}
	if fc.RoomID != nil {
		cfg.RoomID = *fc.RoomID
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	if fc.HTTPTimeout != nil {
		d, err := time.ParseDuration(*fc.HTTPTimeout)
		if err != nil {
			return fmt.Errorf("parse http_timeout: %w", err)
		}
		cfg.HTTPTimeout = d
	}
	return nil
}

// Validate checks the resolved configuration. The room ID is checked
// separately at run time because it may arrive via a flag.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// ResolveSocketURL returns the websocket endpoint, derived from the API
// base URL when not configured explicitly.
func (c Config) ResolveSocketURL() (string, error) {
	if c.SocketURL != "" {
		return c.SocketURL, nil
	}

	u, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return "", fmt.Errorf("config: parse api base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}
