package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/idsweep-io/idsweep/internal/models"
)

// Config represents the application configuration structure
type Config struct {

	// System configuration
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	API     APIConfig     `mapstructure:"api"`

	// Aggregation configuration
	Grouping    GroupingConfig    `mapstructure:"grouping"`
	Aggregation AggregationConfig `mapstructure:"aggregation"`
	Connectors  ConnectorConfig   `mapstructure:"connectors"`
}

type ServerConfig struct {
	Host      string             `mapstructure:"host"`
	Port      int                `mapstructure:"port"`
	Limits    ServerLimitsConfig `mapstructure:"limits"`
	Metrics   MetricsConfig      `mapstructure:"metrics"`
	Health    HealthConfig       `mapstructure:"health"`
	Ready     ReadyConfig        `mapstructure:"ready"`
	Security  SecurityConfig     `mapstructure:"security"`
	RateLimit RateLimitConfig    `mapstructure:"ratelimit"`
}

type ServerLimitsConfig struct {
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" default:"info"`
	Format string `mapstructure:"format" default:"text"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" default:"true"`
	Path    string `mapstructure:"path" default:"/metrics"`
}

type HealthConfig struct {
	Enabled bool `mapstructure:"enabled" default:"true"`
	// Don't use /healthz as it conflicts with google k8s health checks
	Path string `mapstructure:"path" default:"/health"`
}

type ReadyConfig struct {
	Enabled bool   `mapstructure:"enabled" default:"true"`
	Path    string `mapstructure:"path" default:"/ready"`
}

// SecurityConfig guards the API surface. An empty key list leaves the API
// open, for deployments that terminate auth at a proxy.
type SecurityConfig struct {
	CORS    CORSConfig `mapstructure:"cors"`
	APIKeys []string   `mapstructure:"api_keys"`
}

// RateLimitConfig throttles API callers per client IP. Verification and
// enumeration fan out to upstream identity providers, so a single noisy
// caller can burn through upstream API quotas.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Rate    float64 `mapstructure:"rate"`
	Burst   int     `mapstructure:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	MaxAge         int      `mapstructure:"max_age"`
}

type APIConfig struct {
	Version string `mapstructure:"version" default:"v1"`
}

func (api *APIConfig) GetVersion() string {
	if len(api.Version) > 0 {
		return api.Version
	}
	return "v1"
}

// GroupingConfig locates the grouping file that records which identifiers
// belong to the same person.
type GroupingConfig struct {
	Path string `mapstructure:"path"`
}

type AggregationConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// ConnectorConfig describes where connector definitions come from. Path and
// URL point at external definition documents; definitions may also be written
// inline, collected through mapstructure's remain support.
type ConnectorConfig struct {
	Path    string        `mapstructure:"path"`
	URL     string        `mapstructure:"url"`
	Data    string        `mapstructure:"data"`
	Timeout time.Duration `mapstructure:"timeout"`

	// Store everything in memory
	Definitions map[string]models.ConnectorDefinition `mapstructure:",remain"`
}

func (c *ConnectorConfig) IsExternal() bool {
	return (len(c.Path) > 0 || len(c.URL) > 0 || len(c.Data) > 0)
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) GetLocalServerUrl() string {
	hostname := c.Server.Host
	if hostname == "0.0.0.0" {
		hostname = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", hostname, c.Server.Port)
}

func (c *Config) GetApiBasePath() string {
	return strings.TrimSuffix(fmt.Sprintf("/api/%s", c.API.GetVersion()), "/")
}

func (c *Config) GetGroupingPath() string {
	return c.Grouping.Path
}

func (c *Config) GetAggregationTimeout() time.Duration {
	return c.Aggregation.Timeout
}

func (c *Config) GetConnectorFetchTimeout() time.Duration {
	if c.Connectors.Timeout > 0 {
		return c.Connectors.Timeout
	}
	return 10 * time.Second
}
