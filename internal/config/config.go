// Package config loads portal settings from the environment, an optional .env
// file and built-in defaults.
//
// Every key can be overridden with a PORTAL_ prefixed environment variable,
// e.g. PORTAL_API_BASE_URL or PORTAL_GATEWAY_TIMEOUT=45s.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "PORTAL"

// Config holds the settings shared by the portal server and terminal client.
type Config struct {
	APIBaseURL     string
	Port           int
	DBPath         string
	JWTSecret      string
	JWTTTL         time.Duration
	Currency       string
	GatewayTimeout time.Duration
	GatewayDelay   time.Duration
	AutoCloseDelay time.Duration
	HTTPTimeout    time.Duration
	LogLevel       string
	Seed           bool
	SessionFile    string
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("api_base_url", "http://localhost:8000/api/financials")
	v.SetDefault("port", 8000)
	v.SetDefault("db_path", "./data/fees.db")
	v.SetDefault("jwt_secret", "dev-secret-change-in-production")
	v.SetDefault("jwt_ttl", 24*time.Hour)
	v.SetDefault("currency", "bdt")
	v.SetDefault("gateway_timeout", 30*time.Second)
	v.SetDefault("gateway_delay", 2*time.Second)
	v.SetDefault("auto_close_delay", 3*time.Second)
	v.SetDefault("http_timeout", 15*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("seed", true)
	v.SetDefault("session_file", defaultSessionFile())
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".deptportal/session"
	}
	return home + "/.deptportal/session"
}

// Load reads configuration. dotEnvPath is loaded first if it exists; a missing
// file is not an error. Environment variables already set take precedence over
// the file.
func Load(dotEnvPath string) (*Config, error) {
	if dotEnvPath != "" {
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat %s: %w", dotEnvPath, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		APIBaseURL:     strings.TrimRight(v.GetString("api_base_url"), "/"),
		Port:           v.GetInt("port"),
		DBPath:         v.GetString("db_path"),
		JWTSecret:      v.GetString("jwt_secret"),
		JWTTTL:         v.GetDuration("jwt_ttl"),
		Currency:       strings.ToLower(v.GetString("currency")),
		GatewayTimeout: v.GetDuration("gateway_timeout"),
		GatewayDelay:   v.GetDuration("gateway_delay"),
		AutoCloseDelay: v.GetDuration("auto_close_delay"),
		HTTPTimeout:    v.GetDuration("http_timeout"),
		LogLevel:       v.GetString("log_level"),
		Seed:           v.GetBool("seed"),
		SessionFile:    v.GetString("session_file"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the portal cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.APIBaseURL == "":
		return fmt.Errorf("api_base_url is required")
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("port %d out of range", c.Port)
	case c.Currency == "":
		return fmt.Errorf("currency is required")
	case c.GatewayTimeout <= 0:
		return fmt.Errorf("gateway_timeout must be positive, got %s", c.GatewayTimeout)
	case c.GatewayDelay < 0:
		return fmt.Errorf("gateway_delay must not be negative, got %s", c.GatewayDelay)
	case c.AutoCloseDelay < 0:
		return fmt.Errorf("auto_close_delay must not be negative, got %s", c.AutoCloseDelay)
	case c.JWTTTL <= 0:
		return fmt.Errorf("jwt_ttl must be positive, got %s", c.JWTTTL)
	}
	return nil
}

// Addr is the listen address for the server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
