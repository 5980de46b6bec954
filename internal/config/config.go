// Package config loads settings from an HCL file with environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rs/zerolog"

	"github.com/lox/century/internal/auth"
)

// EnvPrefix is prepended to every environment override
const EnvPrefix = "CENTURY_"

// Config is the complete application configuration
type Config struct {
	Store    StoreConfig
	AutoSave AutoSaveConfig
	Status   StatusConfig
	Auth     AuthConfig
	Log      LogConfig
	Spectate SpectateConfig
}

// StoreConfig selects and configures the saved-game backend
type StoreConfig struct {
	Backend       string `hcl:"backend,optional"`
	Path          string `hcl:"path,optional"`
	RedisAddr     string `hcl:"redis_addr,optional"`
	RedisPassword string `hcl:"redis_password,optional"`
	RedisDB       int    `hcl:"redis_db,optional"`
}

// AutoSaveConfig controls the debounced save after every round
type AutoSaveConfig struct {
	Enabled bool
	Delay   time.Duration
}

// StatusConfig controls the save indicator
type StatusConfig struct {
	Revert time.Duration
}

// AuthConfig describes who is playing. With a URL set, Token is checked
// against it; otherwise UserID is used as a fixed local identity.
type AuthConfig struct {
	URL         string `hcl:"url,optional"`
	AdminSecret string `hcl:"admin_secret,optional"`
	UserID      string `hcl:"user_id,optional"`
	Email       string `hcl:"email,optional"`
	Token       string
}

// LogConfig controls the structured logger
type LogConfig struct {
	Level  string `hcl:"level,optional"`
	Format string `hcl:"format,optional"`
	File   string `hcl:"file,optional"`
}

// SpectateConfig enables the websocket scoreboard when Address is set
type SpectateConfig struct {
	Address string `hcl:"address,optional"`
}

type fileConfig struct {
	Store    *StoreConfig    `hcl:"store,block"`
	AutoSave *autoSaveBlock  `hcl:"autosave,block"`
	Status   *statusBlock    `hcl:"status,block"`
	Auth     *AuthConfig     `hcl:"auth,block"`
	Log      *LogConfig      `hcl:"log,block"`
	Spectate *SpectateConfig `hcl:"spectate,block"`
}

type autoSaveBlock struct {
	Enabled *bool `hcl:"enabled,optional"`
	DelayMS int   `hcl:"delay_ms,optional"`
}

type statusBlock struct {
	RevertMS int `hcl:"revert_ms,optional"`
}

type envOverrides struct {
	StoreBackend  *string        `env:"STORE_BACKEND"`
	StorePath     *string        `env:"STORE_PATH"`
	RedisAddr     *string        `env:"REDIS_ADDR"`
	RedisPassword *string        `env:"REDIS_PASSWORD"`
	RedisDB       *int           `env:"REDIS_DB"`
	AutoSave      *bool          `env:"AUTOSAVE"`
	AutoSaveDelay *time.Duration `env:"AUTOSAVE_DELAY"`
	AuthURL       *string        `env:"AUTH_URL"`
	AdminSecret   *string        `env:"AUTH_ADMIN_SECRET"`
	AuthToken     *string        `env:"AUTH_TOKEN"`
	UserID        *string        `env:"USER_ID"`
	Email         *string        `env:"USER_EMAIL"`
	LogLevel      *string        `env:"LOG_LEVEL"`
	LogFormat     *string        `env:"LOG_FORMAT"`
	SpectateAddr  *string        `env:"SPECTATE_ADDRESS"`
}

const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:   BackendSQLite,
			RedisAddr: "localhost:6379",
		},
		AutoSave: AutoSaveConfig{
			Enabled: true,
			Delay:   time.Second,
		},
		Status: StatusConfig{
			Revert: 3 * time.Second,
		},
		Auth: AuthConfig{
			UserID: "local",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFile reads an HCL file on top of the defaults. A missing file is not
// an error.
func LoadFile(filename string) (*Config, error) {
	cfg := Default()
	if filename == "" {
		return cfg, nil
	}
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return cfg, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var fc fileConfig
	diags = gohcl.DecodeBody(file.Body, nil, &fc)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	if s := fc.Store; s != nil {
		setString(&cfg.Store.Backend, s.Backend)
		setString(&cfg.Store.Path, s.Path)
		setString(&cfg.Store.RedisAddr, s.RedisAddr)
		setString(&cfg.Store.RedisPassword, s.RedisPassword)
		cfg.Store.RedisDB = s.RedisDB
	}
	if a := fc.AutoSave; a != nil {
		if a.Enabled != nil {
			cfg.AutoSave.Enabled = *a.Enabled
		}
		if a.DelayMS > 0 {
			cfg.AutoSave.Delay = time.Duration(a.DelayMS) * time.Millisecond
		}
	}
	if s := fc.Status; s != nil && s.RevertMS > 0 {
		cfg.Status.Revert = time.Duration(s.RevertMS) * time.Millisecond
	}
	if a := fc.Auth; a != nil {
		setString(&cfg.Auth.URL, a.URL)
		setString(&cfg.Auth.AdminSecret, a.AdminSecret)
		setString(&cfg.Auth.UserID, a.UserID)
		setString(&cfg.Auth.Email, a.Email)
	}
	if l := fc.Log; l != nil {
		setString(&cfg.Log.Level, l.Level)
		setString(&cfg.Log.Format, l.Format)
		setString(&cfg.Log.File, l.File)
	}
	if s := fc.Spectate; s != nil {
		setString(&cfg.Spectate.Address, s.Address)
	}

	return cfg, nil
}

// Load reads filename and then applies CENTURY_* environment variables.
func Load(filename string) (*Config, error) {
	cfg, err := LoadFile(filename)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from CENTURY_* environment variables. Unset
// variables leave the current value alone.
func (c *Config) ApplyEnv() error {
	var o envOverrides
	if err := env.ParseWithOptions(&o, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	setPtr(&c.Store.Backend, o.StoreBackend)
	setPtr(&c.Store.Path, o.StorePath)
	setPtr(&c.Store.RedisAddr, o.RedisAddr)
	setPtr(&c.Store.RedisPassword, o.RedisPassword)
	setPtr(&c.Store.RedisDB, o.RedisDB)
	setPtr(&c.AutoSave.Enabled, o.AutoSave)
	setPtr(&c.AutoSave.Delay, o.AutoSaveDelay)
	setPtr(&c.Auth.URL, o.AuthURL)
	setPtr(&c.Auth.AdminSecret, o.AdminSecret)
	setPtr(&c.Auth.Token, o.AuthToken)
	setPtr(&c.Auth.UserID, o.UserID)
	setPtr(&c.Auth.Email, o.Email)
	setPtr(&c.Log.Level, o.LogLevel)
	setPtr(&c.Log.Format, o.LogFormat)
	setPtr(&c.Spectate.Address, o.SpectateAddr)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setPtr[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// StorePath returns the configured path or the backend's default location.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	switch c.Store.Backend {
	case BackendFile:
		return "saved-games"
	case BackendSQLite:
		return "century.db"
	}
	return ""
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite, BackendFile, BackendMemory:
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store: redis backend needs redis_addr")
		}
		if c.Store.RedisDB < 0 {
			return fmt.Errorf("store: invalid redis_db %d", c.Store.RedisDB)
		}
	default:
		return fmt.Errorf("store: unknown backend %q", c.Store.Backend)
	}

	if c.AutoSave.Delay <= 0 {
		return fmt.Errorf("autosave: delay must be positive")
	}
	if c.Status.Revert <= 0 {
		return fmt.Errorf("status: revert delay must be positive")
	}

	if c.Auth.URL == "" && c.Auth.UserID == "" {
		return fmt.Errorf("auth: either url or user_id must be set")
	}
	if c.Auth.Email != "" {
		if err := auth.ValidateEmail(c.Auth.Email); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log: invalid level %q", c.Log.Level)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("log: format must be console or json, got %q", c.Log.Format)
	}

	return nil
}
