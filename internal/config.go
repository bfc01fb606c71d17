package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Source   TreeConfig        `yaml:"source"`
	Dest     TreeConfig        `yaml:"dest"`
	Convert  ConvertConfig     `yaml:"convert"`
	Manifest ManifestConfig    `yaml:"manifest"`
	Watch    WatchConfig       `yaml:"watch"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Convert.Validate(); err != nil {
		return err
	}
	if c.Convert.Incremental && c.Manifest.Path == "" {
		return fmt.Errorf("convert: incremental mode needs manifest.path")
	}
	if err := c.Watch.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ValidateTrees checks that both tree roots are set. Commands that convert
// call it after command-line overrides have been applied.
func (c *Config) ValidateTrees() error {
	return validation.Errors{
		"source": c.Source.Validate(),
		"dest":   c.Dest.Validate(),
	}.Filter()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// TreeConfig points at the root of a source or destination tree.
type TreeConfig struct {
	Root string `yaml:"root"`
}

// Validate validates the tree configuration.
func (c *TreeConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
	)
}

// ConvertConfig tunes tree conversion.
type ConvertConfig struct {
	Workers         int  `yaml:"workers"`
	ContinueOnError bool `yaml:"continue_on_error"`
	Incremental     bool `yaml:"incremental"`
}

// Validate validates the conversion configuration.
func (c *ConvertConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Min(1), validation.Max(256)),
	)
}

// ManifestConfig holds the SQLite manifest location. An empty path disables it.
type ManifestConfig struct {
	Path string `yaml:"path"`
}

// WatchConfig tunes watch mode.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// AuthConfig holds HTTP API authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Convert: ConvertConfig{
			Workers: 1,
		},
		Watch: WatchConfig{
			Debounce: 200 * time.Millisecond,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
