package config

import (
	"fmt"
	"sync"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
	Mode    string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	DSN     string `mapstructure:"dsn"`
	LogMode bool   `mapstructure:"log_mode"`
}

type JWTConfig struct {
	Secret             string `mapstructure:"secret"`
	RefreshSecret      string `mapstructure:"refresh_secret"` // falls back to Secret when empty
	Issuer             string `mapstructure:"issuer"`
	AccessExpireHours  int    `mapstructure:"access_expire_hours"`
	RefreshExpireHours int    `mapstructure:"refresh_expire_hours"`
	FreshWindowMinutes int    `mapstructure:"fresh_window_minutes"`
}

type SecurityConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

type RedisConfig struct {
	Addr                 string `mapstructure:"addr"` // empty disables the login throttle
	LoginMaxAttempts     int    `mapstructure:"login_max_attempts"`
	LoginCooldownMinutes int    `mapstructure:"login_cooldown_minutes"`
}

type AppConfig struct {
	PageSize int `mapstructure:"page_size"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Security SecurityConfig `mapstructure:"security"`
	Redis    RedisConfig    `mapstructure:"redis"`
	App      AppConfig      `mapstructure:"app"`
}

var (
	appConfig *Config
	loadErr   error
	once      sync.Once
)

// Load loads configuration from given file path (e.g. "config.yaml").
// If path is empty, it defaults to "config.yaml" in current working directory.
// The result is memoized; repeat calls return the first outcome, error included.
func Load(path string) (*Config, error) {
	once.Do(func() {
		appConfig, loadErr = load(path)
	})
	return appConfig, loadErr
}

func load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	// environment overrides, e.g. DPL_SERVER_PORT=9000
	v.SetEnvPrefix("DPL")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&c)
	return &c, nil
}

func applyDefaults(c *Config) {
	if c.JWT.AccessExpireHours <= 0 {
		c.JWT.AccessExpireHours = 24
	}
	if c.JWT.RefreshExpireHours <= 0 {
		c.JWT.RefreshExpireHours = 7 * 24
	}
	if c.JWT.FreshWindowMinutes <= 0 {
		c.JWT.FreshWindowMinutes = 15
	}
	if c.Security.BcryptCost <= 0 {
		c.Security.BcryptCost = 10
	}
	if c.Redis.LoginMaxAttempts <= 0 {
		c.Redis.LoginMaxAttempts = 10
	}
	if c.Redis.LoginCooldownMinutes <= 0 {
		c.Redis.LoginCooldownMinutes = 10
	}
	if c.App.PageSize <= 0 {
		c.App.PageSize = 50
	}
}

// Get returns the loaded global configuration.
// Call Load() once at application startup.
func Get() *Config {
	return appConfig
}
