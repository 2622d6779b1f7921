package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/amoylab/catclient/internal/common/cnst"
	errs "github.com/amoylab/catclient/pkg/errors"
	"github.com/amoylab/catclient/pkg/helper"
	"github.com/amoylab/catclient/pkg/trace"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type (
	// CatctlConfig represents the catctl command line configuration
	CatctlConfig struct {
		Server   ServerConfig   `yaml:"server" toml:"server"`
		Identity IdentityConfig `yaml:"identity" toml:"identity"`
		Session  SessionConfig  `yaml:"session" toml:"session"`
		Logger   LoggerConfig   `yaml:"logger" toml:"logger"`
		Metrics  MetricsConfig  `yaml:"metrics" toml:"metrics"`
		Tracing  trace.Config   `yaml:"tracing" toml:"tracing"`
	}

	// MockCatConfig represents the fake CheshireCat server configuration
	MockCatConfig struct {
		Port      int             `yaml:"port" toml:"port"`
		PID       string          `yaml:"pid" toml:"pid"`
		APIKey    string          `yaml:"api_key" toml:"api_key"`
		JWTSecret string          `yaml:"jwt_secret" toml:"jwt_secret"`
		TokenTTL  time.Duration   `yaml:"token_ttl" toml:"token_ttl"`
		Users     []MockUser      `yaml:"users" toml:"users"`
		Heartbeat HeartbeatConfig `yaml:"heartbeat" toml:"heartbeat"`
		Logger    LoggerConfig    `yaml:"logger" toml:"logger"`
		Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`
		Tracing   trace.Config    `yaml:"tracing" toml:"tracing"`
	}

	// MockUser is a user seeded into the fake server
	MockUser struct {
		Username string `yaml:"username" toml:"username"`
		Password string `yaml:"password" toml:"password"`
	}

	// HeartbeatConfig controls the fake server's ping behaviour
	HeartbeatConfig struct {
		Native   bool          `yaml:"native" toml:"native"`     // send protocol pings
		Interval time.Duration `yaml:"interval" toml:"interval"` // 0 disables server pings
	}

	// ServerConfig is where the CheshireCat server lives and how to authenticate
	ServerConfig struct {
		Host    string        `yaml:"host" toml:"host"`
		Port    int           `yaml:"port" toml:"port"`
		Secure  bool          `yaml:"secure" toml:"secure"`
		APIKey  string        `yaml:"api_key" toml:"api_key"`
		Token   string        `yaml:"token" toml:"token"`
		Timeout time.Duration `yaml:"timeout" toml:"timeout"`
	}

	// IdentityConfig is the default agent/user/chat triple
	IdentityConfig struct {
		AgentID string `yaml:"agent_id" toml:"agent_id"`
		UserID  string `yaml:"user_id" toml:"user_id"`
		ChatID  string `yaml:"chat_id" toml:"chat_id"`
	}

	// SessionConfig overrides the realtime session tunables
	SessionConfig struct {
		PingInterval         time.Duration `yaml:"ping_interval" toml:"ping_interval"`
		PongTimeout          time.Duration `yaml:"pong_timeout" toml:"pong_timeout"`
		MaxReconnectAttempts int           `yaml:"max_reconnect_attempts" toml:"max_reconnect_attempts"`
		ReconnectDelay       time.Duration `yaml:"reconnect_delay" toml:"reconnect_delay"`
		ApplicationPing      bool          `yaml:"application_ping" toml:"application_ping"` // skip protocol pings
	}

	// LoggerConfig represents the logger configuration
	LoggerConfig struct {
		Level      string `yaml:"level" toml:"level"`             // debug, info, warn, error
		Format     string `yaml:"format" toml:"format"`           // json, console
		Output     string `yaml:"output" toml:"output"`           // stdout, file
		FilePath   string `yaml:"file_path" toml:"file_path"`     // path to log file when output is file
		MaxSize    int    `yaml:"max_size" toml:"max_size"`       // max size of log file in MB
		MaxBackups int    `yaml:"max_backups" toml:"max_backups"` // max number of backup files
		MaxAge     int    `yaml:"max_age" toml:"max_age"`         // max age of backup files in days
		Compress   bool   `yaml:"compress" toml:"compress"`       // whether to compress backup files
		Color      bool   `yaml:"color" toml:"color"`             // whether to use color in console output
		Stacktrace bool   `yaml:"stacktrace" toml:"stacktrace"`   // whether to include stacktrace in error logs
		TimeZone   string `yaml:"time_zone" toml:"time_zone"`     // time zone for log timestamps, e.g., "UTC", default is local
		TimeFormat string `yaml:"time_format" toml:"time_format"` // time format for log timestamps, default is "2006-01-02 15:04:05"
	}

	// MetricsConfig represents the prometheus configuration
	MetricsConfig struct {
		Enabled   bool      `yaml:"enabled" toml:"enabled"`
		Addr      string    `yaml:"addr" toml:"addr"` // listen address for /metrics
		Namespace string    `yaml:"namespace" toml:"namespace"`
		Buckets   []float64 `yaml:"buckets" toml:"buckets"`
	}
)

type Type interface {
	CatctlConfig | MockCatConfig
}

// LoadConfig loads configuration from a YAML or TOML file with environment variable support
func LoadConfig[T Type](filename string) (*T, string, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfgPath := helper.GetCfgPath(filename)
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, cfgPath, err
	}

	// Resolve environment variables
	data = resolveEnv(data)
	var cfg T
	switch strings.ToLower(filepath.Ext(cfgPath)) {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, cfgPath, err
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, cfgPath, err
		}
	default:
		return nil, cfgPath, errs.ErrUnsupportedConfigFormat(filepath.Ext(cfgPath))
	}

	switch c := any(&cfg).(type) {
	case *CatctlConfig:
		c.setDefaults()
	case *MockCatConfig:
		c.setDefaults()
	}

	return &cfg, cfgPath, nil
}

// NewCatctlConfig returns a config with every default applied, for runs
// without a config file.
func NewCatctlConfig() *CatctlConfig {
	c := &CatctlConfig{}
	c.setDefaults()
	return c
}

func (c *CatctlConfig) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.Timeout <= 0 {
		c.Server.Timeout = 30 * time.Second
	}
	if c.Identity.AgentID == "" {
		c.Identity.AgentID = "agent"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "catclient"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = cnst.CommandName
	}
}

func (c *MockCatConfig) setDefaults() {
	if c.Port == 0 {
		c.Port = 1865
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = time.Hour
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "mockcat"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = cnst.MockName
	}
}

// resolveEnv replaces environment variable placeholders in the config content
func resolveEnv(content []byte) []byte {
	regex := regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

	return regex.ReplaceAllFunc(content, func(match []byte) []byte {
		matches := regex.FindSubmatch(match)
		envKey := string(matches[1])
		var defaultValue string

		if len(matches) > 2 {
			defaultValue = string(matches[2])
		}

		if value, exists := os.LookupEnv(envKey); exists {
			return []byte(value)
		}
		return []byte(defaultValue)
	})
}
