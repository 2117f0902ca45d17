package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

func DefaultConfig() *Config {

	v := viper.New()

	// Set default values
	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("error unmarshaling default config: %v", err)
	}

	return &config
}

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	v := viper.New()

	setupViperConfig(v, configFile)
	bindEnvironmentVariables(v)

	config, err := readAndUnmarshalConfig(v)
	if err != nil {
		return nil, err
	}

	if err := setupLogging(config, v); err != nil {
		return nil, err
	}

	return config, nil
}

// loadEnvFile loads the .env file if it exists
func loadEnvFile() error {
	if err := gotenv.Load(); err != nil {
		// .env file not found, that's okay - continue with other sources
		if !os.IsNotExist(err) {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}
	return nil
}

// setupViperConfig configures viper with file paths and defaults
func setupViperConfig(v *viper.Viper, configFile string) {
	// Set configuration file details
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/idsweep")

	if home := os.Getenv("HOME"); len(home) > 0 {
		v.AddConfigPath(home + "/.config/idsweep")
	}

	if len(configFile) > 0 {
		v.SetConfigFile(configFile)
	}

	// Set default values
	setDefaults(v)

	// Set environment variable settings
	v.SetEnvPrefix("IDSWEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
}

// bindEnvironmentVariables binds all environment variables to viper
func bindEnvironmentVariables(v *viper.Viper) {

	// Aggregation environment variables
	v.BindEnv("grouping.path", "IDSWEEP_GROUPING_PATH")
	v.BindEnv("aggregation.timeout", "IDSWEEP_AGGREGATION_TIMEOUT")

	// Connector definition sources
	v.BindEnv("connectors.path", "IDSWEEP_CONNECTORS_PATH")
	v.BindEnv("connectors.url", "IDSWEEP_CONNECTORS_URL")
	v.BindEnv("connectors.data", "IDSWEEP_CONNECTORS_DATA")

	bindConnectorSecretEnvVars(v)
	bindLoggingEnvVars(v)
	bindServerEnvVars(v)
}

// bindConnectorSecretEnvVars binds the credentials operators most often keep
// out of the config file
func bindConnectorSecretEnvVars(v *viper.Viper) {
	// Slack environment variables
	v.BindEnv("connectors.slack.config.bot_token", "IDSWEEP_CONNECTORS_SLACK_CONFIG_BOT_TOKEN")

	// Okta environment variables
	v.BindEnv("connectors.okta.config.org_url", "IDSWEEP_CONNECTORS_OKTA_CONFIG_ORG_URL")
	v.BindEnv("connectors.okta.config.api_token", "IDSWEEP_CONNECTORS_OKTA_CONFIG_API_TOKEN")

	// Entra environment variables
	v.BindEnv("connectors.entra.config.tenant_id", "IDSWEEP_CONNECTORS_ENTRA_CONFIG_TENANT_ID")
	v.BindEnv("connectors.entra.config.client_id", "IDSWEEP_CONNECTORS_ENTRA_CONFIG_CLIENT_ID")
	v.BindEnv("connectors.entra.config.client_secret", "IDSWEEP_CONNECTORS_ENTRA_CONFIG_CLIENT_SECRET")

	// LDAP environment variables
	v.BindEnv("connectors.ldap.config.bind_password", "IDSWEEP_CONNECTORS_LDAP_CONFIG_BIND_PASSWORD")

	// RADIUS environment variables
	v.BindEnv("connectors.radius.config.secret", "IDSWEEP_CONNECTORS_RADIUS_CONFIG_SECRET")
	v.BindEnv("connectors.radius.config.probe_password", "IDSWEEP_CONNECTORS_RADIUS_CONFIG_PROBE_PASSWORD")

	// AWS environment variables
	v.BindEnv("connectors.awsidentity.config.region", "IDSWEEP_CONNECTORS_AWSIDENTITY_CONFIG_REGION")
	v.BindEnv("connectors.awsidentity.config.access_key_id", "IDSWEEP_CONNECTORS_AWSIDENTITY_CONFIG_ACCESS_KEY_ID")
	v.BindEnv("connectors.awsidentity.config.secret_access_key", "IDSWEEP_CONNECTORS_AWSIDENTITY_CONFIG_SECRET_ACCESS_KEY")
}

// bindLoggingEnvVars binds logging configuration environment variables
func bindLoggingEnvVars(v *viper.Viper) {
	v.BindEnv("logging.level", "IDSWEEP_LOGGING_LEVEL")
	v.BindEnv("logging.format", "IDSWEEP_LOGGING_FORMAT")
	v.BindEnv("logging.output", "IDSWEEP_LOGGING_OUTPUT")
}

// bindServerEnvVars binds server configuration environment variables
func bindServerEnvVars(v *viper.Viper) {
	v.BindEnv("server.host", "IDSWEEP_SERVER_HOST")
	v.BindEnv("server.port", "IDSWEEP_SERVER_PORT")

	// Comma-separated; keys are secrets so they usually arrive this way
	v.BindEnv("server.security.api_keys", "IDSWEEP_SERVER_SECURITY_API_KEYS")
}

// readAndUnmarshalConfig reads the configuration file and unmarshals it
func readAndUnmarshalConfig(v *viper.Viper) (*Config, error) {
	// Read configuration file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults and environment variables
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setupLogging configures the logging system based on the config
func setupLogging(config *Config, v *viper.Viper) error {
	// Set logging level
	logrusLevel, err := logrus.ParseLevel(config.Logging.Level)
	if err != nil {
		return fmt.Errorf("error parsing log level: %w", err)
	}

	logrus.SetLevel(logrusLevel)

	// Set logging format
	switch strings.ToLower(config.Logging.Format) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	default:
		logrus.WithFields(logrus.Fields{
			"format": config.Logging.Format,
		}).Warn("Unknown log format")
	}

	// Dump out the config settings if in debug mode
	if logrusLevel >= logrus.DebugLevel {
		for key, value := range v.AllSettings() {
			logrus.Debugf("Config '%s': %v\n", key, value)
		}
	}

	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5780)

	// API defaults
	v.SetDefault("api.version", "v1")

	// Metrics defaults
	v.SetDefault("server.metrics.enabled", true)
	v.SetDefault("server.metrics.path", "/metrics")

	// Health defaults
	v.SetDefault("server.health.enabled", true)
	v.SetDefault("server.health.path", "/health")

	// Ready defaults
	v.SetDefault("server.ready.enabled", true)
	v.SetDefault("server.ready.path", "/ready")

	// Security defaults
	v.SetDefault("server.security.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("server.security.cors.allowed_headers", []string{"Authorization", "Content-Type", "X-Requested-With", "X-Correlation-ID", "X-API-Key"})
	v.SetDefault("server.security.cors.max_age", 86400)

	// Rate limiting defaults. Disabled out of the box; when enabled the
	// limits apply per client IP across the API group.
	v.SetDefault("server.ratelimit.enabled", false)
	v.SetDefault("server.ratelimit.rate", 25.0)
	v.SetDefault("server.ratelimit.burst", 50)

	// Server limits
	v.SetDefault("server.limits.read_timeout", "30s")
	v.SetDefault("server.limits.write_timeout", "60s")
	v.SetDefault("server.limits.idle_timeout", "120s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")

	// Aggregation defaults
	v.SetDefault("grouping.path", "./groups.json")
	v.SetDefault("aggregation.timeout", "30s")

	// Where to load connector definitions from
	v.SetDefault("connectors.path", "./config/connectors") // load any json or yaml files from this directory
	v.SetDefault("connectors.timeout", "10s")
}
