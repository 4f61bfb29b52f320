package telemetry

import (
	"fmt"
	"runtime"

	"github.com/grafana/pyroscope-go"
)

// ProfilingConfig contains configuration for Pyroscope continuous
// profiling of the daemon process.
type ProfilingConfig struct {
	// Enabled controls whether profiling is active. Off by default;
	// the repository's hot paths are allocation-free and profiling is
	// only interesting while tuning sync/fetch behavior.
	Enabled bool

	// ServiceName is the application name shown in Pyroscope
	ServiceName string

	// ServiceVersion is the application version, attached as a tag
	ServiceVersion string

	// Endpoint is the Pyroscope server URL (e.g., "http://localhost:4040")
	Endpoint string

	// ProfileTypes selects which profile streams to collect; see
	// profileTypes for the accepted names
	ProfileTypes []string
}

// profileTypes maps config names to Pyroscope profile streams.
var profileTypes = map[string]pyroscope.ProfileType{
	"cpu":            pyroscope.ProfileCPU,
	"alloc_objects":  pyroscope.ProfileAllocObjects,
	"alloc_space":    pyroscope.ProfileAllocSpace,
	"inuse_objects":  pyroscope.ProfileInuseObjects,
	"inuse_space":    pyroscope.ProfileInuseSpace,
	"goroutines":     pyroscope.ProfileGoroutines,
	"mutex_count":    pyroscope.ProfileMutexCount,
	"mutex_duration": pyroscope.ProfileMutexDuration,
	"block_count":    pyroscope.ProfileBlockCount,
	"block_duration": pyroscope.ProfileBlockDuration,
}

// profilingActive tracks whether a profiler is currently running.
var profilingActive bool

// InitProfiling starts Pyroscope continuous profiling per cfg and
// returns a stop function. With cfg.Enabled false, both the start and
// the returned stop are no-ops.
func InitProfiling(cfg ProfilingConfig) (shutdown func() error, err error) {
	if !cfg.Enabled {
		profilingActive = false
		return func() error { return nil }, nil
	}

	selected := make([]pyroscope.ProfileType, 0, len(cfg.ProfileTypes))
	for _, name := range cfg.ProfileTypes {
		pt, ok := profileTypes[name]
		if !ok {
			return nil, fmt.Errorf("unknown profile type: %s", name)
		}
		selected = append(selected, pt)

		// Mutex and block profiling are off in the runtime until a
		// sampling rate is set.
		switch name {
		case "mutex_count", "mutex_duration":
			runtime.SetMutexProfileFraction(5)
		case "block_count", "block_duration":
			runtime.SetBlockProfileRate(5)
		}
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ServiceName,
		ServerAddress:   cfg.Endpoint,
		Tags: map[string]string{
			"version": cfg.ServiceVersion,
		},
		ProfileTypes: selected,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start Pyroscope profiler: %w", err)
	}

	profilingActive = true
	return func() error {
		profilingActive = false
		return profiler.Stop()
	}, nil
}

// IsProfilingEnabled reports whether a profiler is currently running.
func IsProfilingEnabled() bool {
	return profilingActive
}
