package internal

import (
	"errors"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/text/language"

	"github.com/starford/cardbind/internal/cardservice"
	"github.com/starford/cardbind/internal/mediaquery"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Bundles BundlesConfig     `yaml:"bundles"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Device  DeviceConfig      `yaml:"device"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Bundles.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Device.Validate()
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

// BundlesConfig holds the card bundles root. Each subdirectory is a bundle.
type BundlesConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the bundles configuration.
func (c *BundlesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
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

// DeviceConfig describes the host device cards are rendered for when a
// session does not say otherwise.
type DeviceConfig struct {
	Width       int     `yaml:"width"`
	Height      int     `yaml:"height"`
	Density     float64 `yaml:"density"`
	Type        string  `yaml:"type"`
	Brand       string  `yaml:"brand"`
	RoundScreen bool    `yaml:"round_screen"`
	Locale      string  `yaml:"locale"`
	ColorMode   string  `yaml:"color_mode"`
	APIVersion  int     `yaml:"api_version"`
}

var errBadLocale = errors.New("must be a valid BCP 47 tag")

func validLocale(value any) error {
	s, _ := value.(string)
	if _, err := language.Parse(s); err != nil {
		return errBadLocale
	}
	return nil
}

// Validate validates the device configuration.
func (c *DeviceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Width, validation.Required, validation.Min(1)),
		validation.Field(&c.Height, validation.Required, validation.Min(1)),
		validation.Field(&c.Density, validation.Required, validation.Min(0.1)),
		validation.Field(&c.Type, validation.Required),
		validation.Field(&c.Locale, validation.Required, validation.By(validLocale)),
		validation.Field(&c.ColorMode, validation.In("light", "dark")),
		validation.Field(&c.APIVersion, validation.Min(0)),
	)
}

// Defaults converts the device section into card service defaults.
func (c *DeviceConfig) Defaults() cardservice.Defaults {
	return cardservice.Defaults{
		Width:      c.Width,
		Height:     c.Height,
		Locale:     c.Locale,
		ColorMode:  mediaquery.ParseColorMode(c.ColorMode),
		APIVersion: c.APIVersion,
		Device: mediaquery.Device{
			Type:        c.Type,
			Brand:       c.Brand,
			RoundScreen: c.RoundScreen,
			Density:     c.Density,
		},
	}
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
		Bundles: BundlesConfig{
			Path: "./bundles",
		},
		SQLite: SQLiteConfig{
			Path: "./cardbind.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Device: DeviceConfig{
			Width:     360,
			Height:    360,
			Density:   1,
			Type:      "phone",
			Locale:    "en-US",
			ColorMode: "light",
		},
	}
}
