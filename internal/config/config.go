// Package config loads the authcore server configuration from an optional
// YAML file and AUTHCORE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/eamcap/authcore"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment key, e.g. AUTHCORE_JWT_SECRET.
const EnvPrefix = "AUTHCORE"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Password PasswordConfig `mapstructure:"password"`
	Security SecurityConfig `mapstructure:"security"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"` // gin mode: debug, release, test
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// PostgresConfig selects the account store. An empty URL uses the
// in-memory store.
type PostgresConfig struct {
	URL     string `mapstructure:"url"`
	Migrate bool   `mapstructure:"migrate"`
}

// RedisConfig backs the throttles. An empty Addr disables them.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type JWTConfig struct {
	SigningMethod  string        `mapstructure:"signing_method"`
	Secret         string        `mapstructure:"secret"`
	PrivateKeyFile string        `mapstructure:"private_key_file"`
	PublicKeyFile  string        `mapstructure:"public_key_file"`
	Issuer         string        `mapstructure:"issuer"`
	Audience       string        `mapstructure:"audience"`
	KeyID          string        `mapstructure:"key_id"`
	AccessTTL      time.Duration `mapstructure:"access_ttl"`
	RefreshTTL     time.Duration `mapstructure:"refresh_ttl"`
}

type PasswordConfig struct {
	Algorithm      string `mapstructure:"algorithm"`
	MinLength      int    `mapstructure:"min_length"`
	MaxLength      int    `mapstructure:"max_length"`
	BcryptCost     int    `mapstructure:"bcrypt_cost"`
	UpgradeOnLogin bool   `mapstructure:"upgrade_on_login"`
}

type SecurityConfig struct {
	LoginThrottle   bool          `mapstructure:"login_throttle"`
	IPThrottle      bool          `mapstructure:"ip_throttle"`
	MaxLogin        int           `mapstructure:"max_login_attempts"`
	LoginCooldown   time.Duration `mapstructure:"login_cooldown"`
	RefreshThrottle bool          `mapstructure:"refresh_throttle"`
	MaxRefresh      int           `mapstructure:"max_refresh_attempts"`
	RefreshCooldown time.Duration `mapstructure:"refresh_cooldown"`
}

type AuditConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	BufferSize int  `mapstructure:"buffer_size"`
	DropIfFull bool `mapstructure:"drop_if_full"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Latency bool `mapstructure:"latency"`
}

// Load reads path when non-empty, otherwise looks for config.yaml in the
// working directory and ./config. A missing default file is not an error.
// Environment variables override both.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := authcore.DefaultConfig()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("postgres.url", "")
	v.SetDefault("postgres.migrate", false)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("jwt.signing_method", d.JWT.SigningMethod)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.private_key_file", "")
	v.SetDefault("jwt.public_key_file", "")
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("jwt.audience", "")
	v.SetDefault("jwt.key_id", "")
	v.SetDefault("jwt.access_ttl", d.JWT.AccessTTL)
	v.SetDefault("jwt.refresh_ttl", d.JWT.RefreshTTL)

	v.SetDefault("password.algorithm", d.Password.Algorithm)
	v.SetDefault("password.min_length", d.Password.MinLength)
	v.SetDefault("password.max_length", d.Password.MaxLength)
	v.SetDefault("password.bcrypt_cost", d.Password.BcryptCost)
	v.SetDefault("password.upgrade_on_login", d.Password.UpgradeOnLogin)

	v.SetDefault("security.login_throttle", d.Security.EnableLoginThrottle)
	v.SetDefault("security.ip_throttle", d.Security.EnableIPThrottle)
	v.SetDefault("security.max_login_attempts", d.Security.MaxLoginAttempts)
	v.SetDefault("security.login_cooldown", d.Security.LoginCooldownDuration)
	v.SetDefault("security.refresh_throttle", d.Security.EnableRefreshThrottle)
	v.SetDefault("security.max_refresh_attempts", d.Security.MaxRefreshAttempts)
	v.SetDefault("security.refresh_cooldown", d.Security.RefreshCooldownDuration)

	v.SetDefault("audit.enabled", d.Audit.Enabled)
	v.SetDefault("audit.buffer_size", d.Audit.BufferSize)
	v.SetDefault("audit.drop_if_full", d.Audit.DropIfFull)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.latency", true)
}

// Engine converts the file settings into an [authcore.Config]. Key files
// are read here.
func (c *Config) Engine() (authcore.Config, error) {
	out := authcore.DefaultConfig()

	out.JWT.SigningMethod = c.JWT.SigningMethod
	out.JWT.Issuer = c.JWT.Issuer
	out.JWT.Audience = c.JWT.Audience
	out.JWT.KeyID = c.JWT.KeyID
	out.JWT.AccessTTL = c.JWT.AccessTTL
	out.JWT.RefreshTTL = c.JWT.RefreshTTL

	switch {
	case c.JWT.PrivateKeyFile != "":
		key, err := os.ReadFile(c.JWT.PrivateKeyFile)
		if err != nil {
			return authcore.Config{}, fmt.Errorf("read jwt private key: %w", err)
		}
		out.JWT.PrivateKey = key
	case c.JWT.Secret != "":
		out.JWT.PrivateKey = []byte(c.JWT.Secret)
	}
	if c.JWT.PublicKeyFile != "" {
		key, err := os.ReadFile(c.JWT.PublicKeyFile)
		if err != nil {
			return authcore.Config{}, fmt.Errorf("read jwt public key: %w", err)
		}
		out.JWT.PublicKey = key
	}

	out.Password.Algorithm = c.Password.Algorithm
	out.Password.MinLength = c.Password.MinLength
	out.Password.MaxLength = c.Password.MaxLength
	out.Password.BcryptCost = c.Password.BcryptCost
	out.Password.UpgradeOnLogin = c.Password.UpgradeOnLogin

	out.Security = authcore.SecurityConfig{
		EnableLoginThrottle:     c.Security.LoginThrottle,
		EnableIPThrottle:        c.Security.IPThrottle,
		MaxLoginAttempts:        c.Security.MaxLogin,
		LoginCooldownDuration:   c.Security.LoginCooldown,
		EnableRefreshThrottle:   c.Security.RefreshThrottle,
		MaxRefreshAttempts:      c.Security.MaxRefresh,
		RefreshCooldownDuration: c.Security.RefreshCooldown,
	}
	out.Audit = authcore.AuditConfig{
		Enabled:    c.Audit.Enabled,
		BufferSize: c.Audit.BufferSize,
		DropIfFull: c.Audit.DropIfFull,
	}
	out.Metrics = authcore.MetricsConfig{
		Enabled:                 c.Metrics.Enabled,
		EnableLatencyHistograms: c.Metrics.Latency,
	}

	if err := out.Validate(); err != nil {
		return authcore.Config{}, fmt.Errorf("engine config: %w", err)
	}
	return out, nil
}
