// Package config loads, defaults, and validates the daemon's static
// configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (PDRHUB_*)
//  2. Configuration file (YAML)
//  3. Default values
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the pdrhub daemon configuration.
//
// This structure captures static configuration:
//   - Logging configuration
//   - Telemetry/tracing and profiling configuration
//   - Prometheus metrics listener
//   - Repository sizing (blob capacity, record limit, transfer chunk)
//   - Manager sizing (termini, reassembly buffer) and the terminus list
//   - Provisioning (static PDR image seeding from a file or S3)
//   - Debug API (introspection and change-event injection listener)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Repository sizes the local PDR repository
	Repository RepositoryConfig `mapstructure:"repository" yaml:"repository"`

	// Manager sizes the multi-terminus manager and lists the termini to
	// register at startup
	Manager ManagerConfig `mapstructure:"manager" yaml:"manager"`

	// Provisioning configures static PDR image seeding at boot
	Provisioning ProvisioningConfig `mapstructure:"provisioning" yaml:"provisioning"`

	// DebugAPI contains the introspection and event-injection HTTP listener
	DebugAPI DebugAPIConfig `mapstructure:"debug_api" yaml:"debug_api"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing. When
// enabled, trace data is exported to an OTLP-compatible collector.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false (opt-in for telemetry)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317" (standard OTLP gRPC port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use insecure (non-TLS) connection
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	// Default: 1.0 (sample all)
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled
	// Default: false (opt-in for profiling)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL)
	// Default: "http://localhost:4040"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP server. When
// Enabled is false, no listener is started.
type MetricsConfig struct {
	// Enabled controls whether the metrics HTTP server is started
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// RepositoryConfig sizes the local PDR repository. These correspond to
// the compile-time limits of the firmware rendition, surfaced as
// runtime configuration.
type RepositoryConfig struct {
	// BlobCapacity is the repository blob size in bytes
	// Default: 8192
	BlobCapacity uint32 `mapstructure:"blob_capacity" yaml:"blob_capacity"`

	// MaxRecords bounds the number of records (live plus tombstoned)
	// Default: 64
	MaxRecords int `mapstructure:"max_records" yaml:"max_records"`

	// TransferChunkSize bounds one GetPDR response payload
	// Default: 128
	TransferChunkSize uint32 `mapstructure:"transfer_chunk_size" yaml:"transfer_chunk_size"`
}

// ManagerConfig sizes the multi-terminus manager and declares the
// termini registered at startup.
type ManagerConfig struct {
	// MaxTermini bounds the slot table (at most 8, the remap ranges)
	// Default: 8
	MaxTermini int `mapstructure:"max_termini" validate:"omitempty,min=1,max=8" yaml:"max_termini"`

	// ReassemblyCapacity sizes each terminus's reassembly buffer
	// Default: 256
	ReassemblyCapacity int `mapstructure:"reassembly_capacity" yaml:"reassembly_capacity"`

	// Termini lists the remote endpoints to register at startup
	Termini []TerminusConfig `mapstructure:"termini" validate:"dive" yaml:"termini,omitempty"`
}

// TerminusConfig declares one remote terminus.
type TerminusConfig struct {
	// EID is the MCTP endpoint ID of the terminus
	EID uint8 `mapstructure:"eid" validate:"required" yaml:"eid"`

	// TerminusHandle is the PDR terminus handle
	TerminusHandle uint16 `mapstructure:"terminus_handle" yaml:"terminus_handle"`

	// TID is the PLDM terminus ID
	TID uint8 `mapstructure:"tid" yaml:"tid"`
}

// ProvisioningConfig configures static PDR image seeding at boot. At
// most one source may be set; with neither, the repository starts
// empty.
type ProvisioningConfig struct {
	// ImagePath is a local pre-packed PDR image file to bind at boot.
	// When Watch is true the file is re-applied on change.
	ImagePath string `mapstructure:"image_path" yaml:"image_path,omitempty"`

	// Watch re-runs the init agent when the local image file changes
	Watch bool `mapstructure:"watch" yaml:"watch"`

	// S3 fetches the image from an S3-compatible object store instead
	// of the local filesystem
	S3 S3Config `mapstructure:"s3" yaml:"s3"`
}

// S3Config locates a provisioned PDR image in an S3-compatible store.
type S3Config struct {
	// Enabled controls whether the image is fetched from S3
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Bucket is the bucket holding the image
	Bucket string `mapstructure:"bucket" validate:"required_if=Enabled true" yaml:"bucket,omitempty"`

	// Key is the object key of the image
	Key string `mapstructure:"key" validate:"required_if=Enabled true" yaml:"key,omitempty"`

	// Region is the bucket's region
	Region string `mapstructure:"region" yaml:"region,omitempty"`

	// Endpoint overrides the S3 endpoint (for MinIO and compatibles)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
}

// DebugAPIConfig configures the introspection and event-injection HTTP
// listener.
type DebugAPIConfig struct {
	// Enabled controls whether the debug API is started
	// Default: false
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the debug API
	// Default: 8090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// ReadTimeout bounds one request's read phase
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout bounds one response's write phase
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration's struct tags plus the cross-field
// rules the tags cannot express.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}

	if cfg.Provisioning.ImagePath != "" && cfg.Provisioning.S3.Enabled {
		return fmt.Errorf("provisioning: image_path and s3 are mutually exclusive")
	}
	if cfg.Provisioning.Watch && cfg.Provisioning.ImagePath == "" {
		return fmt.Errorf("provisioning: watch requires image_path")
	}

	seen := map[uint8]bool{}
	for _, t := range cfg.Manager.Termini {
		if seen[t.EID] {
			return fmt.Errorf("manager: duplicate terminus eid %d", t.EID)
		}
		seen[t.EID] = true
	}
	if len(cfg.Manager.Termini) > cfg.Manager.MaxTermini {
		return fmt.Errorf("manager: %d termini configured but max_termini is %d",
			len(cfg.Manager.Termini), cfg.Manager.MaxTermini)
	}

	return nil
}

// SaveConfig saves the configuration to the specified file path in
// YAML format.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config
// file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use a PDRHUB_ prefix and underscores.
	// Example: PDRHUB_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("PDRHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. Returns
// (fileFound, error); a missing file is not an error, defaults apply.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks returns a combined decode hook for custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
	)
}

// durationDecodeHook converts strings like "30s", "5m" to
// time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path: XDG_CONFIG_HOME
// if set, otherwise ~/.config, falling back to the current directory.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "pdrhub")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "pdrhub")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
