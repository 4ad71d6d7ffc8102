package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. POWER_SCHEDULE_DB_PATH.
const EnvPrefix = "POWER_SCHEDULE"

type Config struct {
	Port      string        `mapstructure:"port"`
	LogLevel  string        `mapstructure:"log_level"`
	DB        DBConfig      `mapstructure:"db"`
	Auth      AuthConfig    `mapstructure:"auth"`
	Monitor   MonitorConfig `mapstructure:"monitor"`
	TimeZones []string      `mapstructure:"timezones"`
	Remote    RemoteConfig  `mapstructure:"remote"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	SigningKey   string        `mapstructure:"signing_key"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
	Editors      []string      `mapstructure:"editors"`
	SpecialUsers []string      `mapstructure:"special_users"`
}

type MonitorConfig struct {
	Tick time.Duration `mapstructure:"tick"`
}

// RemoteConfig points the CLI at a running server.
type RemoteConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("db.path", "app.db")
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("auth.editors", []string{})
	v.SetDefault("auth.special_users", []string{})
	v.SetDefault("monitor.tick", 30*time.Second)
	v.SetDefault("timezones", []string{"UTC"})
	v.SetDefault("remote.base_url", "http://localhost:8080")
	v.SetDefault("remote.token", "")
	v.SetDefault("remote.timeout", 10*time.Second)
}

// Load reads .env (if present), the config file and environment overrides
// into v and decodes the result. An empty path searches configs/config.yml
// and falls back to defaults when no file exists.
func Load(v *viper.Viper, path string) (*Config, error) {
	// a missing .env is normal outside development
	_ = godotenv.Load(".env")

	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MinSigningKeyLen is the shortest accepted HMAC signing key.
const MinSigningKeyLen = 32

// Validate checks values that have no usable default. An empty signing key
// is allowed here; serve refuses to start without one.
func (c *Config) Validate() error {
	if k := c.Auth.SigningKey; k != "" && len(k) < MinSigningKeyLen {
		return fmt.Errorf("auth.signing_key must be at least %d bytes, got %d", MinSigningKeyLen, len(k))
	}
	if c.Monitor.Tick <= 0 {
		return fmt.Errorf("monitor.tick must be positive, got %s", c.Monitor.Tick)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive, got %s", c.Auth.TokenTTL)
	}
	return nil
}
