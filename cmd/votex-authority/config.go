package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultAPIHost       = "0.0.0.0"
	defaultAPIPort       = 9090
	defaultLogLevel      = "info"
	defaultLogOutput     = "stdout"
	defaultDatadir       = ".votex" // Will be prefixed with user's home directory
	defaultSweepInterval = time.Minute
	artifactsTimeout     = 20 * time.Minute
)

// Version is the build version, set at build time with -ldflags
var Version = "dev"

// Config holds the application configuration
type Config struct {
	API       APIConfig
	Log       LogConfig
	Finalizer FinalizerConfig
	Datadir   string
}

// APIConfig holds the API-specific configuration
type APIConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Output string `mapstructure:"output"`
}

// FinalizerConfig holds the election finalizer configuration
type FinalizerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// loadConfig loads configuration from flags, environment variables, and defaults
func loadConfig() (*Config, error) {
	v := viper.New()

	// Set up default values
	// Get user's home directory for default datadir
	userHomeDir, err := os.UserHomeDir()
	if err != nil {
		userHomeDir = "."
	}
	defaultDatadirPath := filepath.Join(userHomeDir, defaultDatadir)

	v.SetDefault("api.host", defaultAPIHost)
	v.SetDefault("api.port", defaultAPIPort)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.output", defaultLogOutput)
	v.SetDefault("finalizer.interval", defaultSweepInterval)
	v.SetDefault("datadir", defaultDatadirPath)

	// Configure flags
	flag.StringP("api.host", "a", defaultAPIHost, "API host")
	flag.IntP("api.port", "p", defaultAPIPort, "API port")
	flag.StringP("log.level", "l", defaultLogLevel, "log level (debug, info, warn, error, fatal)")
	flag.StringP("log.output", "o", defaultLogOutput, "log output (stdout, stderr or filepath)")
	flag.DurationP("finalizer.interval", "i", defaultSweepInterval, "sweep interval for ending overdue elections (i.e 30s or 5m)")
	flag.StringP("datadir", "d", defaultDatadirPath, "data directory for database and storage files")

	// Configure usage information
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "votex-authority v%s\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: votex-authority [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment variables are also available with the same name as flags,\n")
		fmt.Fprintf(os.Stderr, "  except for dashes (-) and dots (.) which are replaced by underscores (_).\n")
		fmt.Fprintf(os.Stderr, "  For example, VOTEX_API_HOST or VOTEX_LOG_LEVEL\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Start with default settings\n")
		fmt.Fprintf(os.Stderr, "  votex-authority\n\n")
		fmt.Fprintf(os.Stderr, "  # Start on a custom port with debug logging\n")
		fmt.Fprintf(os.Stderr, "  votex-authority --api.port=8080 --log.level=debug\n\n")
		fmt.Fprintf(os.Stderr, "  # Start with a custom data directory and a fast finalizer sweep\n")
		fmt.Fprintf(os.Stderr, "  votex-authority --datadir=/var/lib/votex --finalizer.interval=10s\n")
	}

	// Parse flags
	flag.CommandLine.SortFlags = false
	flag.Parse()

	// Configure Viper to use environment variables
	v.SetEnvPrefix("VOTEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind flags to Viper
	if err := v.BindPFlags(flag.CommandLine); err != nil {
		return nil, fmt.Errorf("error binding flags: %w", err)
	}

	// Create config struct
	cfg := &Config{}

	// Unmarshal configuration into struct
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return cfg, nil
}

// validateConfig validates the loaded configuration
func validateConfig(cfg *Config) error {
	if cfg.API.Port <= 0 || cfg.API.Port > 65535 {
		return fmt.Errorf("invalid API port %d, must be between 1 and 65535", cfg.API.Port)
	}
	if cfg.Finalizer.Interval <= 0 {
		return fmt.Errorf("invalid finalizer interval %s, must be positive", cfg.Finalizer.Interval)
	}
	return nil
}
