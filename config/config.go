package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/kosarica/purchase-optimizer/internal/optimizer"
	"github.com/kosarica/purchase-optimizer/internal/solver"
	"github.com/kosarica/purchase-optimizer/internal/telemetry"
)

// EnvPrefix prefixes every environment override, e.g. PURCHASE_OPTIMIZER_SERVER_PORT.
const EnvPrefix = "PURCHASE_OPTIMIZER"

// Config holds the application configuration
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Auth      AuthConfig       `mapstructure:"auth"`
	RateLimit RateLimitConfig  `mapstructure:"rate_limit"`
	Logging   LoggingConfig    `mapstructure:"logging"`
	Solver    SolverConfig     `mapstructure:"solver"`
	Optimizer optimizer.Config `mapstructure:"optimizer"`
	Telemetry telemetry.Config `mapstructure:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AuthConfig holds API key authentication. An empty key disables auth.
type AuthConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// RateLimitConfig holds per-client rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// SolverConfig selects the default solver and its limits.
type SolverConfig struct {
	ID             string `mapstructure:"id"`
	solver.Options `mapstructure:",squash"`
}

var globalConfig *Config

// Load loads the configuration from file, .env, and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg(".env file not loaded")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.OptimizerConfig().Validate(); err != nil {
		return nil, fmt.Errorf("invalid optimizer config: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// OptimizerConfig returns the optimizer configuration with the solver
// section folded in.
func (c *Config) OptimizerConfig() *optimizer.Config {
	oc := c.Optimizer
	oc.SolverID = c.Solver.ID
	oc.Solver = c.Solver.Options
	return &oc
}

// loadEnvFile loads the first .env file found in dirs (the working
// directory and ./config by default), without overriding variables already
// present in the environment.
func loadEnvFile(dirs ...string) error {
	if len(dirs) == 0 {
		dirs = []string{".", "./config"}
	}
	for _, dir := range dirs {
		envFile := filepath.Join(dir, ".env")
		if _, err := os.Stat(envFile); err == nil {
			return godotenv.Load(envFile)
		}
	}
	return fmt.Errorf("no .env file found")
}

// bindEnvVars binds unprefixed conventional variables to config keys
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT")
	v.BindEnv("server.host", EnvPrefix+"_SERVER_HOST", "HOST")
	v.BindEnv("logging.level", EnvPrefix+"_LOGGING_LEVEL", "LOG_LEVEL")
	v.BindEnv("solver.id", EnvPrefix+"_SOLVER_ID", "SOLVER")
	v.BindEnv("auth.api_key", EnvPrefix+"_AUTH_API_KEY", "API_KEY")
	v.BindEnv("telemetry.endpoint", EnvPrefix+"_TELEMETRY_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.service_name", EnvPrefix+"_TELEMETRY_SERVICE_NAME", "OTEL_SERVICE_NAME")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("auth.api_key", "")

	v.SetDefault("rate_limit.requests_per_second", 10)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.no_color", false)

	so := solver.DefaultOptions()
	v.SetDefault("solver.id", solver.BranchAndBoundID)
	v.SetDefault("solver.tolerance", so.Tolerance)
	v.SetDefault("solver.integrality_tolerance", so.IntegralityTolerance)
	v.SetDefault("solver.max_nodes", so.MaxNodes)
	v.SetDefault("solver.time_limit", so.TimeLimit)

	oc := optimizer.Defaults()
	v.SetDefault("optimizer.allow_surplus_for_savings", oc.AllowSurplusForSavings)
	v.SetDefault("optimizer.integer_quantities", oc.IntegerQuantities)
	v.SetDefault("optimizer.big_m_margin", oc.BigMMargin)
	v.SetDefault("optimizer.max_items", oc.MaxItems)
	v.SetDefault("optimizer.max_retailers", oc.MaxRetailers)
	v.SetDefault("optimizer.max_quantities", oc.MaxQuantities)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", telemetry.DefaultEndpoint)
	v.SetDefault("telemetry.service_name", telemetry.DefaultServiceName)
	v.SetDefault("telemetry.export_interval", 30*time.Second)
}

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}
