package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nexusbot/entitlements/pkg/licensing"
	"github.com/nexusbot/entitlements/pkg/validation"
)

// Duration wraps time.Duration so YAML values like "30s" parse
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full server configuration. Values load from YAML first,
// then environment variables override individual fields.
type Config struct {
	Server  ServerConfig        `yaml:"server"`
	Store   StoreConfig         `yaml:"store"`
	Keys    licensing.KeyConfig `yaml:"keys"`
	Auth    AuthConfig          `yaml:"auth"`
	Gateway GatewayConfig       `yaml:"gateway"`
	Log     LogConfig           `yaml:"log"`
}

type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

type StoreConfig struct {
	// DatabaseURL selects the Postgres store when set; otherwise the
	// file store under DataDir is used.
	DatabaseURL string `yaml:"database_url"`
	DataDir     string `yaml:"data_dir"`
	Backups     bool   `yaml:"backups"`
}

type AuthConfig struct {
	JWTSecret string           `yaml:"jwt_secret"`
	TokenTTL  Duration         `yaml:"token_ttl"`
	Operators []OperatorConfig `yaml:"operators"`
}

type OperatorConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

type GatewayConfig struct {
	OwnerID  string   `yaml:"owner_id"`
	Cooldown Duration `yaml:"cooldown"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file or overrides are
// present
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     Duration(10 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Store: StoreConfig{
			DataDir: "./data",
		},
		Keys: licensing.DefaultKeyConfig(),
		Auth: AuthConfig{
			TokenTTL: Duration(24 * time.Hour),
		},
		Gateway: GatewayConfig{
			Cooldown: Duration(3 * time.Second),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from an optional YAML file and applies
// environment overrides. An empty path skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ENTITLEMENTS_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("ENTITLEMENTS_DATABASE_URL"); v != "" {
		c.Store.DatabaseURL = v
	}
	if v := os.Getenv("ENTITLEMENTS_DATA_DIR"); v != "" {
		c.Store.DataDir = v
	}
	if v := os.Getenv("ENTITLEMENTS_BACKUPS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Store.Backups = b
		}
	}
	if v := os.Getenv("ENTITLEMENTS_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("ENTITLEMENTS_OWNER_ID"); v != "" {
		c.Gateway.OwnerID = v
	}
	if v := os.Getenv("ENTITLEMENTS_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks the configuration for values the server cannot start
// with
func (c *Config) Validate() error {
	v := validation.NewConfigValidator("Config")
	v.Required("server.addr", c.Server.Addr)
	v.OneOf("log.level", c.Log.Level, "debug", "info", "warn", "error")

	if c.Store.DatabaseURL == "" {
		v.Required("store.data_dir", c.Store.DataDir)
	}

	if c.Auth.JWTSecret != "" {
		v.MinLen("auth.jwt_secret", c.Auth.JWTSecret, 32)
	}
	for i, op := range c.Auth.Operators {
		v.Required(fmt.Sprintf("auth.operators[%d].username", i), op.Username)
		v.MinLen(fmt.Sprintf("auth.operators[%d].password", i), op.Password, 8)
		v.OneOf(fmt.Sprintf("auth.operators[%d].role", i), op.Role, "owner", "operator")
	}

	if err := v.Err(); err != nil {
		return err
	}
	return c.Keys.Validate()
}
