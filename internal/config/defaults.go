package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields. Zero values are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyRepositoryDefaults(&cfg.Repository)
	applyManagerDefaults(&cfg.Manager)
	applyDebugAPIDefaults(&cfg.DebugAPI)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyRepositoryDefaults sets repository sizing defaults.
func applyRepositoryDefaults(cfg *RepositoryConfig) {
	if cfg.BlobCapacity == 0 {
		cfg.BlobCapacity = 8192
	}
	if cfg.MaxRecords == 0 {
		cfg.MaxRecords = 64
	}
	if cfg.TransferChunkSize == 0 {
		cfg.TransferChunkSize = 128
	}
}

// applyManagerDefaults sets manager sizing defaults.
func applyManagerDefaults(cfg *ManagerConfig) {
	if cfg.MaxTermini == 0 {
		cfg.MaxTermini = 8
	}
	if cfg.ReassemblyCapacity == 0 {
		cfg.ReassemblyCapacity = 256
	}
}

// applyDebugAPIDefaults sets debug API defaults.
func applyDebugAPIDefaults(cfg *DebugAPIConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 8090
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
}

// GetDefaultConfig returns a fully-defaulted configuration.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
